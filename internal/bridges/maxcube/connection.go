package maxcube

import (
	"context"
	"errors"
	"net"
	"os"
	"time"
)

// DefaultPort is the TCP port a MAX! Cube listens on.
const DefaultPort = 62910

// Snapshot is the latest set of raw messages received from a gateway.
type Snapshot struct {
	// Messages holds raw message payloads keyed by message type letter
	// ("H" hello, "M" metadata, "C" configuration, "L" live device list).
	Messages map[string][]string

	// UpdatedAt is when the messages were received. Zero before the first
	// successful session.
	UpdatedAt time.Time
}

// clone returns a deep copy so callers cannot mutate connection state.
func (s Snapshot) clone() Snapshot {
	out := Snapshot{UpdatedAt: s.UpdatedAt}
	if s.Messages != nil {
		out.Messages = make(map[string][]string, len(s.Messages))
		for k, v := range s.Messages {
			out.Messages[k] = append([]string(nil), v...)
		}
	}
	return out
}

// Connection is a stateful session with one gateway.
//
// Refresh re-fetches device state and, on success, replaces the snapshot.
// A failed Refresh leaves the previous snapshot untouched.
type Connection interface {
	Refresh(ctx context.Context) error
	Snapshot() Snapshot
	Close() error
}

// Dialer establishes Connections. Dial performs the initial fetch, so a
// returned Connection already holds a snapshot.
type Dialer interface {
	Dial(ctx context.Context, host string, port int) (Connection, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, host string, port int) (Connection, error)

// Dial calls f(ctx, host, port).
func (f DialerFunc) Dial(ctx context.Context, host string, port int) (Connection, error) {
	return f(ctx, host, port)
}

// IsTimeout reports whether err is a network timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) ||
		errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
