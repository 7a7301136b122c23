package src

import (
	"appdocu/src/model"
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Qlik   model.QlikConfig   `envconfig:"QLIK"`
	Log    model.LogConfig    `envconfig:"LOG"`
	Export model.ExportConfig `envconfig:"EXPORT"`
	Redis  model.RedisConfig  `envconfig:"REDIS"`
}

func LoadConfig() (*Config, error) {
	var config Config
	err := envconfig.Process("", &config)
	if err != nil {
		return nil, fmt.Errorf("error processing environment configuration: %w", err)
	}

	return &config, nil
}
