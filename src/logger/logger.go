package logger

import (
	"appdocu/src/model"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var Logger = zerolog.Nop()

// New builds a logger from config without touching global state. The
// returned closer releases the log file when output is "file".
func New(config model.LogConfig) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(config.Level))
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("invalid log level '%s': %w", config.Level, err)
	}

	output, closer, err := openOutput(config)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	// Configure log format
	if strings.ToLower(config.Format) == "console" && output != io.Discard {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	l := zerolog.New(output).Level(level).With().
		Timestamp().
		Caller().
		Logger()
	return l, closer, nil
}

// InitLogger initializes the global logger with the provided configuration
func InitLogger(config model.LogConfig) (io.Closer, error) {
	// Configure time format
	switch strings.ToLower(config.TimeFormat) {
	case "unix":
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	case "iso8601":
		zerolog.TimeFieldFormat = "2006-01-02T15:04:05.000Z07:00"
	default:
		zerolog.TimeFieldFormat = time.RFC3339
	}

	l, closer, err := New(config)
	if err != nil {
		return nil, err
	}
	Logger = l

	// Also set the global zerolog logger for compatibility
	log.Logger = Logger

	Logger.Debug().
		Str("level", config.Level).
		Str("format", config.Format).
		Str("output", config.Output).
		Msg("Logger initialized successfully")

	return closer, nil
}

// GetLogger returns the configured logger instance
func GetLogger() *zerolog.Logger {
	return &Logger
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openOutput(config model.LogConfig) (io.Writer, io.Closer, error) {
	switch strings.ToLower(config.Output) {
	case "stdout":
		return os.Stdout, nopCloser{}, nil
	case "", "stderr":
		return os.Stderr, nopCloser{}, nil
	case "discard":
		return io.Discard, nopCloser{}, nil
	case "file":
		if dir := filepath.Dir(config.FilePath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, nil, fmt.Errorf("failed to create logs directory: %w", err)
			}
		}
		file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file '%s': %w", config.FilePath, err)
		}
		return file, file, nil
	default:
		return nil, nil, fmt.Errorf("unknown log output '%s'", config.Output)
	}
}
