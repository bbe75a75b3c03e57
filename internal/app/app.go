package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/capscan/internal/config"
	"github.com/specialistvlad/capscan/internal/ctxlog"
	"github.com/specialistvlad/capscan/internal/registry"
	"github.com/specialistvlad/capscan/internal/scan"
	"github.com/specialistvlad/capscan/internal/sink"
)

const serviceName = "capscan"

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	ctx        context.Context
	logger     *slog.Logger
	config     *Config
	model      *config.Model
	registry   *registry.Registry
	httpServer *http.Server

	results *sink.Memory
	summary scan.Summary
}

// NewApp is the constructor for the main application. It loads and
// validates the scan configuration and registers the modules. Module wiring
// mistakes are programmer errors and panic.
func NewApp(outW io.Writer, cfg *Config, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loadModel(ctx, cfg.ConfigPaths)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	if err := reg.Validate(ctx); err != nil {
		panic(err)
	}

	return &App{
		outW:     outW,
		ctx:      ctx,
		logger:   logger,
		config:   cfg,
		model:    model,
		registry: reg,
		results:  sink.NewMemory(),
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the loaded scan configuration.
func (a *App) Model() *config.Model {
	return a.model
}

// Results returns every record written during the last run.
func (a *App) Results() *sink.Memory {
	return a.results
}

// Summary returns the tallies of the last run.
func (a *App) Summary() scan.Summary {
	return a.summary
}
