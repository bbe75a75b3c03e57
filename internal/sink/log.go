package sink

import (
	"context"
	"log/slog"

	"github.com/specialistvlad/capscan/internal/ctxlog"
)

// Log writes each record to the context logger.
type Log struct {
	Level slog.Level
}

// Write implements Sink.
func (l Log) Write(ctx context.Context, records []Record) error {
	logger := ctxlog.FromContext(ctx)
	for _, rec := range records {
		attrs := []any{"run", rec.RunID, "point", rec.PointID, "label", rec.Label, "value", rec.Value, "valid", rec.Valid}
		if rec.Reason != "" {
			attrs = append(attrs, "reason", rec.Reason)
		}
		logger.Log(ctx, l.Level, "Point result.", attrs...)
	}
	return nil
}

// Close implements Sink.
func (l Log) Close(ctx context.Context) error {
	return nil
}
