package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/specialistvlad/capscan/internal/config"
	"github.com/specialistvlad/capscan/internal/ctxlog"
	"github.com/specialistvlad/capscan/internal/resolver"
	"github.com/specialistvlad/capscan/internal/scan"
	"github.com/specialistvlad/capscan/internal/scanpoint"
	"github.com/specialistvlad/capscan/internal/sink"
	"github.com/specialistvlad/capscan/internal/telemetry"
)

// Run resolves the configured requests and scans every point.
func (a *App) Run(ctx context.Context) (err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:   serviceName,
		TraceExporter: a.config.TraceExporter,
		OTLPEndpoint:  a.config.OTLPEndpoint,
		OTLPInsecure:  true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialise tracing: %w", err)
	}
	defer func() {
		if serr := shutdownTracing(context.WithoutCancel(ctx)); serr != nil {
			a.logger.Warn("Tracing shutdown failed.", "error", serr)
		}
	}()

	a.startHealthcheckServer()
	defer func() {
		err = errors.Join(err, a.closeHealthcheckServer())
	}()

	res := resolver.New(a.registry, requestsOf(a.model), rulesOf(a.model))
	if err := res.ResolveNow(ctx); err != nil {
		return fmt.Errorf("failed to resolve dependencies: %w", err)
	}
	a.logger.Info("Evaluation order determined.", "functors", len(res.EvaluationOrder()))

	if a.config.ListFunctors {
		if err := a.registry.WriteTable(a.outW); err != nil {
			return fmt.Errorf("failed to print functor table: %w", err)
		}
	}

	out, err := a.openSinks(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, out.Close(context.WithoutCancel(ctx)))
	}()

	runID := a.config.RunID
	if runID == "" {
		runID = scan.NewRunID()
	}
	src, err := sourceOf(runID, a.model.Scan)
	if err != nil {
		return err
	}

	a.logger.Info("🚀 Starting scan...", "run", runID)
	ctrl := scan.New(res, out, scanConfigOf(a.model.Likelihood))
	a.summary, err = ctrl.Run(ctx, runID, src)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	a.logger.Info("🏁 Scan finished.", "points", a.summary.Points, "valid", a.summary.Valid, "invalid", a.summary.Invalid)
	return nil
}

// openSinks builds the result sinks. The in-memory sink is always present.
func (a *App) openSinks(ctx context.Context) (sink.Multi, error) {
	out := sink.Multi{a.results}
	if a.model.Sinks.Log {
		out = append(out, sink.Log{Level: slog.LevelInfo})
	}
	if sio := a.model.Sinks.SocketIO; sio != nil {
		cfg := sink.SocketIOConfig{
			URL:                sio.URL,
			Namespace:          sio.Namespace,
			Event:              sio.Event,
			InsecureSkipVerify: sio.InsecureSkipVerify,
		}
		if sio.ConnectTimeout != "" {
			d, err := time.ParseDuration(sio.ConnectTimeout)
			if err != nil {
				return nil, fmt.Errorf("invalid socketio connect_timeout: %w", err)
			}
			cfg.ConnectTimeout = d
		}
		s, err := sink.DialSocketIO(ctx, cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func requestsOf(m *config.Model) []resolver.Request {
	out := make([]resolver.Request, len(m.Requests))
	for i, r := range m.Requests {
		out[i] = resolver.Request{
			Capability: r.Capability,
			Type:       r.Type,
			Function:   r.Function,
			Module:     r.Module,
			Purpose:    r.Purpose,
			Label:      r.Label,
		}
	}
	return out
}

func rulesOf(m *config.Model) resolver.Rules {
	rules := resolver.Rules{Models: m.Models}
	for _, r := range m.Rules {
		rules.Rules = append(rules.Rules, resolver.Rule{
			Capability: r.Capability,
			Type:       r.Type,
			Function:   r.Function,
			Module:     r.Module,
			Dependent:  r.Dependent,
			Options:    r.Options,
		})
	}
	for _, b := range m.Backends {
		rules.Backends = append(rules.Backends, resolver.BackendRule{Capability: b.Capability, Library: b.Library, Versions: b.Versions})
	}
	return rules
}

func scanConfigOf(l config.Likelihood) scan.Config {
	cfg := scan.Config{Floor: scan.DefaultFloor, MaxInvalidStreak: l.MaxInvalidStreak, LikelihoodLabel: l.Label}
	if l.Floor != nil {
		cfg.Floor = *l.Floor
	}
	return cfg
}

// sourceOf picks the point source. Without an explicit source, a point list
// is replayed if present and the parameters are walked as a grid otherwise.
func sourceOf(runID string, s config.Scan) (scanpoint.Source, error) {
	params := make([]scanpoint.Parameter, len(s.Parameters))
	for i, p := range s.Parameters {
		params[i] = scanpoint.Parameter{Name: p.Name, Min: p.Min, Max: p.Max, Steps: p.Steps}
	}

	source := s.Source
	if source == "" {
		source = config.SourceGrid
		if len(s.List) > 0 {
			source = config.SourceList
		}
	}
	switch source {
	case config.SourceRandom:
		if s.Points <= 0 {
			return nil, errors.New("random scan needs a positive number of points")
		}
		return scanpoint.NewRandom(runID, params, s.Points, s.Seed), nil
	case config.SourceGrid:
		return scanpoint.NewGrid(runID, params), nil
	case config.SourceList:
		return scanpoint.NewList(runID, s.List...), nil
	}
	return nil, fmt.Errorf("unknown scan source %q", source)
}
