package loop

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/specialistvlad/capscan/internal/functor"
)

// Option keys read from the manager functor's options.
const (
	OptionWorkers                = "workers"
	OptionSubsystems             = "subsystems"
	OptionBatchSize              = "batch_size"
	OptionMaxIterations          = "max_iterations"
	OptionMaxFailedEvents        = "max_failed_events"
	OptionInvalidateFailedPoints = "invalidate_failed_points"
)

// Config controls one manager run.
type Config struct {
	Workers                int      `validate:"min=1"`
	Subsystems             []string `validate:"min=1,dive,required"`
	BatchSize              int      `validate:"min=1"`
	MaxIterations          int      `validate:"min=0"`
	MaxFailedEvents        int      `validate:"min=0"`
	InvalidateFailedPoints bool
}

// DefaultConfig returns the settings used for options that are not set.
func DefaultConfig() Config {
	return Config{
		Workers:                1,
		Subsystems:             []string{"default"},
		BatchSize:              100,
		MaxIterations:          1000,
		MaxFailedEvents:        10,
		InvalidateFailedPoints: true,
	}
}

var validate = validator.New()

// ConfigFromOptions reads the manager settings from a functor option bag,
// falling back to DefaultConfig.
func ConfigFromOptions(o *functor.Options) (Config, error) {
	cfg := DefaultConfig()
	var err error
	if cfg.Workers, err = o.Int(OptionWorkers, cfg.Workers); err != nil {
		return cfg, err
	}
	if cfg.Subsystems, err = o.Strings(OptionSubsystems, cfg.Subsystems); err != nil {
		return cfg, err
	}
	if cfg.BatchSize, err = o.Int(OptionBatchSize, cfg.BatchSize); err != nil {
		return cfg, err
	}
	if cfg.MaxIterations, err = o.Int(OptionMaxIterations, cfg.MaxIterations); err != nil {
		return cfg, err
	}
	if cfg.MaxFailedEvents, err = o.Int(OptionMaxFailedEvents, cfg.MaxFailedEvents); err != nil {
		return cfg, err
	}
	if cfg.InvalidateFailedPoints, err = o.Bool(OptionInvalidateFailedPoints, cfg.InvalidateFailedPoints); err != nil {
		return cfg, err
	}
	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid loop options: %w", err)
	}
	return cfg, nil
}
