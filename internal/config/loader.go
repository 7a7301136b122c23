package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"appdocu/internal/engine"
	"appdocu/internal/masteritems"
	"appdocu/internal/report"
	"appdocu/internal/rest"
	"appdocu/src/model"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Output formats a profile can request.
const (
	FormatText  = "text"
	FormatXLSX  = "xlsx"
	FormatJSON  = "json"
	FormatRedis = "redis"
)

var knownFormats = []string{FormatText, FormatXLSX, FormatJSON, FormatRedis}

// Profile represents the structure of the report profile YAML file.
type Profile struct {
	MasterItems struct {
		Columns          []string `yaml:"columns"`
		IncludeVariables bool     `yaml:"include_variables"`
	} `yaml:"master_items"`
	Text struct {
		MaxPerLine int `yaml:"max_per_line"`
	} `yaml:"text"`
	Formats []string `yaml:"formats"`
	Sheets  struct {
		MasterItems string `yaml:"master_items"`
		Dimensions  string `yaml:"dimensions"`
		Measures    string `yaml:"measures"`
		Variables   string `yaml:"variables"`
	} `yaml:"sheets"`
}

// DefaultProfile is used when no profile file exists. Values missing from a
// profile file keep these defaults.
func DefaultProfile() *Profile {
	p := &Profile{}
	p.MasterItems.IncludeVariables = true
	p.Text.MaxPerLine = 80
	p.Formats = []string{FormatText, FormatXLSX, FormatJSON}
	p.Sheets.MasterItems = "Master Items"
	p.Sheets.Dimensions = "Dimensions"
	p.Sheets.Measures = "Measures"
	p.Sheets.Variables = "Variables"
	return p
}

// LoadProfile loads the report profile from path. A missing file yields
// DefaultProfile.
func LoadProfile(path string) (*Profile, error) {
	profile := DefaultProfile()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return profile, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading profile file: %w", err)
	}

	if err := yaml.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("error parsing YAML: %w", err)
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}

// Validate checks formats, column names and that sheet names are distinct.
func (p *Profile) Validate() error {
	for _, f := range p.Formats {
		if !contains(knownFormats, strings.ToLower(f)) {
			return fmt.Errorf("unknown output format %q", f)
		}
	}
	if _, err := masteritems.ParseColumns(p.MasterItems.Columns); err != nil {
		return fmt.Errorf("profile master_items.columns: %w", err)
	}
	if p.Text.MaxPerLine < 0 {
		return fmt.Errorf("text.max_per_line must not be negative")
	}
	seen := map[string]bool{}
	for _, name := range []string{p.Sheets.MasterItems, p.Sheets.Dimensions, p.Sheets.Measures, p.Sheets.Variables} {
		if name == "" {
			continue
		}
		key := strings.ToLower(report.SheetName(name))
		if seen[key] {
			return fmt.Errorf("profile sheets: %w: %q", report.ErrDuplicateSheet, name)
		}
		seen[key] = true
	}
	return nil
}

// Wants reports whether the profile asks for format.
func (p *Profile) Wants(format string) bool {
	for _, f := range p.Formats {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}

// Columns returns the parsed master item columns.
func (p *Profile) Columns() []masteritems.Column {
	cols, err := masteritems.ParseColumns(p.MasterItems.Columns)
	if err != nil {
		return masteritems.AllColumns
	}
	return cols
}

// BuildSessionConfig creates the engine session config from the environment.
func BuildSessionConfig(qlik model.QlikConfig, logger *zerolog.Logger) engine.Config {
	cfg := engine.DefaultConfig()
	if qlik.ReplyTimeout > 0 {
		cfg.ReplyTimeout = qlik.ReplyTimeout
	}
	if qlik.HandshakeTimeout > 0 {
		cfg.HandshakeTimeout = qlik.HandshakeTimeout
	}
	cfg.ConsumeIDOnSendFailure = qlik.ConsumeIDOnSendFailure
	cfg.Logger = logger
	return cfg
}

// BuildRESTConfig creates the REST client config from the environment.
func BuildRESTConfig(qlik model.QlikConfig, logger *zerolog.Logger) rest.Config {
	return rest.Config{
		Tenant:  qlik.Tenant,
		APIKey:  qlik.APIKey,
		Timeout: qlik.HTTPTimeout,
		Logger:  logger,
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
