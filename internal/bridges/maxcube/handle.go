package maxcube

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-maxcube/internal/clock"
	"github.com/nerrad567/gray-logic-maxcube/internal/poller"
)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// HandleOptions configures the polling behaviour of a Handle.
type HandleOptions struct {
	// Interval is the minimum time between refreshes. Default: 60 seconds.
	Interval time.Duration

	// Clock is the time source. Default: the real clock.
	Clock clock.Clock

	// ImmediateFirst lets the first Update refresh without waiting a full
	// interval after construction.
	ImmediateFirst bool

	// Logger is optional.
	Logger Logger

	// Observer receives every non-skipped refresh result. Optional.
	Observer poller.Observer
}

// Handle is the single shared entry point to one gateway. Entities call
// Update before reading state; at most one refresh per interval reaches
// the network no matter how many entities ask.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Update calls for the same Handle are serialised.
type Handle struct {
	host   string
	port   int
	conn   Connection
	poller *poller.Poller
}

// NewHandle wraps an established connection.
//
// The connection's initial fetch counts as the first refresh unless
// opts.ImmediateFirst is set.
func NewHandle(host string, port int, conn Connection, opts HandleOptions) (*Handle, error) {
	if host == "" {
		return nil, errors.New("handle: empty host")
	}
	if conn == nil {
		return nil, fmt.Errorf("handle %s: nil connection", host)
	}
	if port == 0 {
		port = DefaultPort
	}

	var logger poller.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	}

	p, err := poller.New(conn, poller.Options{
		Name:           host,
		Interval:       opts.Interval,
		Clock:          opts.Clock,
		ImmediateFirst: opts.ImmediateFirst,
		IsTransient:    IsTimeout,
		Logger:         logger,
		Observer:       opts.Observer,
	})
	if err != nil {
		return nil, fmt.Errorf("handle %s: %w", host, err)
	}

	return &Handle{host: host, port: port, conn: conn, poller: p}, nil
}

// Update refreshes the gateway if the polling interval has elapsed since
// the last successful refresh, and otherwise does nothing.
//
// Returns:
//   - nil: refreshed, or skipped within the interval
//   - error wrapping ErrConnectionFailed: the refresh timed out; the next
//     call retries immediately
//   - any other error: returned unmodified from the connection
func (h *Handle) Update(ctx context.Context) error {
	err := h.poller.Update(ctx)
	if errors.Is(err, poller.ErrRefreshFailed) {
		return fmt.Errorf("%w: %s: %w", ErrConnectionFailed, h.host, err)
	}
	return err
}

// Host returns the gateway host.
func (h *Handle) Host() string { return h.host }

// Port returns the gateway port.
func (h *Handle) Port() int { return h.port }

// LastRefresh returns the time of the last successful refresh.
// It waits behind an in-flight refresh.
func (h *Handle) LastRefresh() time.Time { return h.poller.LastRefresh() }

// Interval returns the minimum time between refreshes.
func (h *Handle) Interval() time.Duration { return h.poller.Interval() }

// Stats returns cumulative refresh counters.
func (h *Handle) Stats() poller.Stats { return h.poller.Stats() }

// Snapshot returns the latest raw gateway messages.
func (h *Handle) Snapshot() Snapshot { return h.conn.Snapshot() }

// Status is a point-in-time summary of a Handle.
type Status struct {
	Host        string        `json:"host"`
	Port        int           `json:"port"`
	LastRefresh time.Time     `json:"last_refresh"`
	Interval    time.Duration `json:"-"`
	poller.Stats
}

// Status returns a summary for reporting.
func (h *Handle) Status() Status {
	return Status{
		Host:        h.host,
		Port:        h.port,
		LastRefresh: h.LastRefresh(),
		Interval:    h.Interval(),
		Stats:       h.Stats(),
	}
}

// Close closes the underlying connection.
func (h *Handle) Close() error {
	return h.conn.Close()
}
