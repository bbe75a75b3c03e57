package app

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPaths []string `validate:"min=1,dive,required"` // hcl and yaml files or directories

	LogFormat       string `validate:"oneof=text json"`
	LogLevel        string `validate:"oneof=debug info warn error"`
	HealthcheckPort int    `validate:"min=0,max=65535"`

	TraceExporter string `validate:"oneof=none stdout otlp"`
	OTLPEndpoint  string

	// RunID labels every result. A random one is generated when empty.
	RunID string
	// ListFunctors prints the functor table after resolution.
	ListFunctors bool
}

var validate = validator.New()

// NewConfig fills defaults and validates cfg.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.TraceExporter == "" {
		cfg.TraceExporter = "none"
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid application config: %w", err)
	}
	return &cfg, nil
}
