package sink

import (
	"context"
	"errors"
)

// Record is a single result of a single point.
type Record struct {
	RunID   string `json:"run_id"`
	PointID int64  `json:"point_id"`
	Label   string `json:"label"`
	Purpose string `json:"purpose,omitempty"`
	Value   any    `json:"value"`
	Valid   bool   `json:"valid"`
	Reason  string `json:"reason,omitempty"`
}

// Sink consumes the records of each point as it completes.
type Sink interface {
	Write(ctx context.Context, records []Record) error
	Close(ctx context.Context) error
}

// Multi fans records out to several sinks.
type Multi []Sink

// Write implements Sink. Every sink is written even if an earlier one fails.
func (m Multi) Write(ctx context.Context, records []Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements Sink.
func (m Multi) Close(ctx context.Context) error {
	var errs []error
	for _, s := range m {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
