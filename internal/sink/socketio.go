package sink

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/capscan/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultEvent is the event name points are emitted under.
const DefaultEvent = "point"

// SocketIOConfig configures the socket.io sink.
type SocketIOConfig struct {
	URL                string
	Namespace          string
	Event              string
	ConnectTimeout     time.Duration
	InsecureSkipVerify bool
}

// SocketIO emits one event per point to a socket.io server.
type SocketIO struct {
	io    *socket.Socket
	event string
}

// DialSocketIO connects to the server and waits for the connection to be
// established.
func DialSocketIO(ctx context.Context, cfg SocketIOConfig) (*SocketIO, error) {
	logger := ctxlog.FromContext(ctx).With("sink", "socketio", "url", cfg.URL)

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if cfg.Event == "" {
		cfg.Event = DefaultEvent
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 15 * time.Second
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected result stream.", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		var err error = fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connectChan <- err
	})

	logger.Debug("Connecting result stream.")
	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &SocketIO{io: io, event: cfg.Event}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(cfg.ConnectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", cfg.ConnectTimeout)
	}
}

// Write implements Sink. The records of a point are sent as one event.
func (s *SocketIO) Write(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	s.io.Emit(s.event, pointEvent(records))
	return nil
}

// Close implements Sink.
func (s *SocketIO) Close(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("Disconnecting result stream.", "sid", s.io.Id())
	s.io.Disconnect()
	return nil
}

// pointEvent is the event body for the records of one point.
func pointEvent(records []Record) map[string]any {
	payload := make([]map[string]any, len(records))
	for i, rec := range records {
		payload[i] = payloadOf(rec)
	}
	return map[string]any{
		"run_id":   records[0].RunID,
		"point_id": records[0].PointID,
		"results":  payload,
	}
}

func payloadOf(rec Record) map[string]any {
	out := map[string]any{
		"label": rec.Label,
		"value": rec.Value,
		"valid": rec.Valid,
	}
	if rec.Purpose != "" {
		out["purpose"] = rec.Purpose
	}
	if rec.Reason != "" {
		out["reason"] = rec.Reason
	}
	return out
}
