package model

import "time"

// ----------------------------------------------------
// ================ Config ================

// QlikConfig holds the tenant connection settings.
type QlikConfig struct {
	Tenant                 string        `envconfig:"TENANT" required:"true"`
	APIKey                 string        `envconfig:"API_KEY" required:"true"`
	AppID                  string        `envconfig:"APP_ID"`
	SpaceID                string        `envconfig:"SPACE_ID"`
	ReplyTimeout           time.Duration `envconfig:"REPLY_TIMEOUT" default:"30s"`
	HandshakeTimeout       time.Duration `envconfig:"HANDSHAKE_TIMEOUT" default:"15s"`
	HTTPTimeout            time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	ConsumeIDOnSendFailure bool          `envconfig:"CONSUME_ID_ON_SEND_FAILURE" default:"true"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level      string `envconfig:"LEVEL" default:"info"`
	Format     string `envconfig:"FORMAT" default:"console"` // json | console
	Output     string `envconfig:"OUTPUT" default:"stderr"`  // stdout | stderr | file | discard
	FilePath   string `envconfig:"FILE_PATH" default:"logs/appdocu.log"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"rfc3339"` // rfc3339 | unix | iso8601
}

// ExportConfig holds where reports are written.
type ExportConfig struct {
	Dir     string `envconfig:"DIR" default:"exports"`
	Profile string `envconfig:"PROFILE" default:"report.yaml"`
}

// RedisConfig holds the optional snapshot cache.
type RedisConfig struct {
	URL string        `envconfig:"URL"`
	TTL time.Duration `envconfig:"TTL" default:"24h"`
}
