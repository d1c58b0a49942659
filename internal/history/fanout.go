package history

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"
)

// DefaultSendTimeout bounds a single delivery to one sink.
const DefaultSendTimeout = 5 * time.Second

// Fanout delivers every event to all sinks. Delivery is best effort: sink
// errors are logged and never returned.
type Fanout struct {
	sinks   []Sink
	timeout time.Duration
	logger  *slog.Logger
}

func NewFanout(logger *slog.Logger, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{sinks: sinks, timeout: DefaultSendTimeout, logger: logger}
}

// Len is the number of attached sinks.
func (f *Fanout) Len() int {
	if f == nil {
		return 0
	}
	return len(f.sinks)
}

// Record sends e to every sink. A nil Fanout drops the event.
func (f *Fanout) Record(ctx context.Context, e Event) {
	if f == nil {
		return
	}
	for _, s := range f.sinks {
		sctx, cancel := context.WithTimeout(ctx, f.timeout)
		if err := s.Send(sctx, e); err != nil {
			f.logger.Warn("history sink send failed",
				slog.String("type", string(e.Type)),
				slog.String("station", e.Station),
				slog.Any("error", err))
		}
		cancel()
	}
}

// Close closes every sink that holds resources.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, s := range f.sinks {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
