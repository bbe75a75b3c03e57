package scan

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/capscan/internal/ctxlog"
	"github.com/specialistvlad/capscan/internal/functor"
	"github.com/specialistvlad/capscan/internal/invalidation"
	"github.com/specialistvlad/capscan/internal/resolver"
	"github.com/specialistvlad/capscan/internal/scanpoint"
	"github.com/specialistvlad/capscan/internal/sink"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultFloor is the likelihood reported for invalid points when no floor
// is configured.
const DefaultFloor = -1e10

// DefaultLikelihoodLabel labels the summed likelihood record.
const DefaultLikelihoodLabel = "LogLike"

// Config controls the point loop.
type Config struct {
	// Floor is the likelihood value of an invalid point.
	Floor float64
	// MaxInvalidStreak is the number of consecutive invalid points
	// tolerated before the scan aborts. Zero disables the check.
	MaxInvalidStreak int
	// LikelihoodLabel labels the record carrying the summed likelihood. It
	// is only written when at least one request has the likelihood purpose.
	LikelihoodLabel string
}

// Result is the outcome of one point.
type Result struct {
	Point    scanpoint.Point
	Valid    bool
	Reason   string
	LogLike  float64
	Records  []sink.Record
	Warnings []invalidation.Signal
}

// Summary tallies a finished scan.
type Summary struct {
	RunID          string
	Points         int
	Valid          int
	Invalid        int
	Warnings       int
	InvalidReasons map[string]int
	LastReason     string
}

// Controller drives the resolved graph over scan points.
type Controller struct {
	res     *resolver.Resolver
	out     sink.Sink
	cfg     Config
	signals *invalidation.Channel
	streak  int
}

// New creates a controller. The resolver must already be resolved.
func New(res *resolver.Resolver, out sink.Sink, cfg Config) *Controller {
	if cfg.LikelihoodLabel == "" {
		cfg.LikelihoodLabel = DefaultLikelihoodLabel
	}
	return &Controller{
		res:     res,
		out:     out,
		cfg:     cfg,
		signals: invalidation.NewChannel(),
	}
}

// NewRunID returns a fresh identifier for a scan run.
func NewRunID() string {
	return uuid.NewString()
}

// Signals exposes the invalidation channel shared by every point.
func (c *Controller) Signals() *invalidation.Channel {
	return c.signals
}

// Evaluate calculates one point. An invalid point is not an error; the
// returned error is fatal for the scan.
func (c *Controller) Evaluate(ctx context.Context, pt scanpoint.Point) (Result, error) {
	ctx, logger := ctxlog.With(ctx, "point", pt.ID)
	ctx, span := tracer.Start(ctx, "scan.Point", trace.WithAttributes(attribute.Int64("point", pt.ID)))
	defer span.End()
	start := time.Now()
	defer func() { pointSeconds.Observe(time.Since(start).Seconds()) }()

	order := c.res.EvaluationOrder()
	if order == nil {
		return Result{}, errors.New("dependencies are not resolved")
	}

	c.signals.Clear()
	c.res.ResetAll()
	frame := functor.Frame{Point: pt, Signals: c.signals}

	for _, f := range order {
		err := c.res.Calculate(ctx, f, frame)
		if err == nil {
			continue
		}
		if invalidation.IsInvalid(err) {
			logger.Debug("Point invalidated.", "functor", f.ID().String(), "error", err)
			break
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "fatal error")
		return Result{}, fmt.Errorf("point %d: %w", pt.ID, err)
	}

	result := Result{Point: pt, Valid: true}
	if sig, pending := c.signals.Pending(); pending {
		result.Valid = false
		result.Reason = sig.Reason
	}
	result.Warnings = c.signals.Clear()
	for _, w := range result.Warnings {
		logger.Warn("Functor warning.", "origin", w.Origin, "reason", w.Reason)
	}
	warningsTotal.Add(float64(len(result.Warnings)))

	if err := c.collect(pt, &result); err != nil {
		span.RecordError(err)
		return Result{}, err
	}
	span.SetAttributes(attribute.Bool("valid", result.Valid))

	if result.Valid {
		pointsTotal.WithLabelValues("valid").Inc()
		c.streak = 0
	} else {
		pointsTotal.WithLabelValues("invalid").Inc()
		c.streak++
	}
	invalidStreak.Set(float64(c.streak))

	if err := c.out.Write(ctx, result.Records); err != nil {
		return result, fmt.Errorf("writing results of point %d: %w", pt.ID, err)
	}
	logger.Debug("Point evaluated.", "valid", result.Valid, "loglike", result.LogLike)

	if c.cfg.MaxInvalidStreak > 0 && c.streak > c.cfg.MaxInvalidStreak {
		return result, fmt.Errorf("%w: %d in a row, last reason %q", invalidation.ErrInvalidStreak, c.streak, result.Reason)
	}
	return result, nil
}

// collect builds the records of a point and sums its likelihood.
func (c *Controller) collect(pt scanpoint.Point, result *Result) error {
	hasLikelihood := false
	for _, out := range c.res.Outputs() {
		rec := sink.Record{RunID: pt.RunID, PointID: pt.ID, Label: out.Label, Purpose: out.Purpose, Valid: result.Valid, Reason: result.Reason}
		likelihood := out.Purpose == resolver.PurposeLikelihood
		hasLikelihood = hasLikelihood || likelihood

		switch {
		case !result.Valid && likelihood:
			rec.Value = c.cfg.Floor
		case result.Valid:
			v, ok := out.Functor.Value()
			if !ok {
				return fmt.Errorf("output %s of point %d was not computed", out.Label, pt.ID)
			}
			rec.Value = v
			if likelihood {
				lnL, ok := v.(float64)
				if !ok {
					return fmt.Errorf("likelihood %s (%s) returned %T, expected float64", out.Label, out.Functor.ID(), v)
				}
				result.LogLike += lnL
			}
		}
		result.Records = append(result.Records, rec)
	}

	if !result.Valid {
		result.LogLike = c.cfg.Floor
	}
	if hasLikelihood {
		result.Records = append(result.Records, sink.Record{
			RunID: pt.RunID, PointID: pt.ID, Label: c.cfg.LikelihoodLabel, Purpose: resolver.PurposeLikelihood,
			Value: result.LogLike, Valid: result.Valid, Reason: result.Reason,
		})
	}
	return nil
}

// Run evaluates every point of src. The summary is returned even when the
// scan stops on an error.
func (c *Controller) Run(ctx context.Context, runID string, src scanpoint.Source) (Summary, error) {
	ctx, logger := ctxlog.With(ctx, "run", runID)
	ctx, span := tracer.Start(ctx, "scan.Run", trace.WithAttributes(attribute.String("run", runID)))
	defer span.End()

	summary := Summary{RunID: runID, InvalidReasons: make(map[string]int)}
	logger.Info("Scan started.", "models", c.res.Models(), "functors", len(c.res.EvaluationOrder()))

	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		pt, ok, err := src.Next(ctx)
		if err != nil {
			return summary, fmt.Errorf("reading next point: %w", err)
		}
		if !ok {
			break
		}
		pt.RunID = runID

		result, err := c.Evaluate(ctx, pt)
		if err == nil || errors.Is(err, invalidation.ErrInvalidStreak) {
			summary.add(result)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "scan aborted")
			logger.Error("Scan aborted.", "point", pt.ID, "error", err)
			return summary, err
		}
	}

	span.SetAttributes(attribute.Int("points", summary.Points), attribute.Int("invalid", summary.Invalid))
	logger.Info("Scan finished.", "points", summary.Points, "valid", summary.Valid, "invalid", summary.Invalid, "warnings", summary.Warnings)
	for _, reason := range slices.Sorted(maps.Keys(summary.InvalidReasons)) {
		logger.Info("Invalid points by reason.", "reason", reason, "count", summary.InvalidReasons[reason])
	}
	return summary, nil
}

func (s *Summary) add(r Result) {
	s.Points++
	s.Warnings += len(r.Warnings)
	if r.Valid {
		s.Valid++
		return
	}
	s.Invalid++
	s.InvalidReasons[r.Reason]++
	s.LastReason = r.Reason
}
