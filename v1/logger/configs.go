package logger

import (
	"os"
	"strconv"
)

const (
	Debug   = "debug"
	Info    = "info"
	Warning = "warning"
	Error   = "error"
)

// Config configures the zap logger.
type Config struct {
	// Level is one of debug, info, warning or error. Anything else means info.
	Level string `yaml:"level" envconfig:"ZAP_LOGGER_LEVEL"`

	// ServiceName is added to every entry as the "service" field.
	ServiceName string `yaml:"service_name" envconfig:"LOGGER_SERVICE_NAME"`

	// Encoding is "json" (default) or "console".
	Encoding string `yaml:"encoding" envconfig:"LOGGER_ENCODING"`

	// EnableTracing adds trace_id and span_id to entries logged through the
	// *WithContext methods.
	EnableTracing bool `yaml:"enable_tracing" envconfig:"LOGGER_ENABLE_TRACING"`
}

// NewConfig reads the logger configuration from the environment.
func NewConfig() Config {
	cfg := Config{
		Level:       os.Getenv("ZAP_LOGGER_LEVEL"),
		ServiceName: os.Getenv("LOGGER_SERVICE_NAME"),
		Encoding:    os.Getenv("LOGGER_ENCODING"),
	}
	if v := os.Getenv("LOGGER_ENABLE_TRACING"); v != "" {
		cfg.EnableTracing, _ = strconv.ParseBool(v)
	}
	return cfg
}
