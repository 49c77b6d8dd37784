package poller

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-maxcube/internal/clock"
)

// DefaultInterval is the minimum time between successful refreshes.
const DefaultInterval = 60 * time.Second

// Refresher performs the expensive operation being throttled.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefresherFunc adapts a function to the Refresher interface.
type RefresherFunc func(ctx context.Context) error

// Refresh calls f(ctx).
func (f RefresherFunc) Refresh(ctx context.Context) error {
	return f(ctx)
}

// Logger is the logging interface used by the Poller.
type Logger interface {
	Debug(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Error(string, ...any) {}

// Outcome describes what a single Update call did.
type Outcome string

// Update outcomes.
const (
	OutcomeRefreshed Outcome = "refreshed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeError     Outcome = "error"
)

// Result is reported to the Observer after every refresh attempt.
// Skipped calls are not reported.
type Result struct {
	Name     string
	Outcome  Outcome
	Duration time.Duration
	At       time.Time
	Err      error
}

// Observer receives refresh results. It is called with the poller lock held
// and must not call back into the Poller.
type Observer interface {
	ObservePoll(Result)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Result)

// ObservePoll calls f(r).
func (f ObserverFunc) ObservePoll(r Result) {
	f(r)
}

// Options configures a Poller. Zero values select defaults.
type Options struct {
	// Name identifies the poller in logs and results (e.g. the gateway host).
	Name string

	// Interval is the minimum time between successful refreshes.
	// Default: DefaultInterval.
	Interval time.Duration

	// Clock is the time source. Default: clock.Real.
	Clock clock.Clock

	// ImmediateFirst makes the first Update refresh regardless of when the
	// poller was constructed. When false the construction time counts as the
	// last refresh.
	ImmediateFirst bool

	// IsTransient reports whether a refresh error is a transient network
	// condition. Transient errors are logged and wrapped in ErrRefreshFailed;
	// all other errors are returned unmodified. Default: every error is
	// treated as non-transient.
	IsTransient func(error) bool

	// Logger is optional.
	Logger Logger

	// Observer is optional.
	Observer Observer
}

// Stats holds cumulative counters for a Poller.
type Stats struct {
	Refreshes uint64 `json:"refreshes"`
	Skips     uint64 `json:"skips"`
	Failures  uint64 `json:"failures"`
}

// Poller coalesces refresh requests from many callers.
type Poller struct {
	name        string
	refresher   Refresher
	interval    time.Duration
	clock       clock.Clock
	isTransient func(error) bool
	logger      Logger
	observer    Observer

	// mu guards last and serialises calls to refresher.
	mu   sync.Mutex
	last time.Time

	refreshes atomic.Uint64
	skips     atomic.Uint64
	failures  atomic.Uint64
}

// New creates a Poller around r.
//
// Parameters:
//   - r: The refresher to throttle (required)
//   - opts: Interval, clock and hooks
//
// Returns:
//   - *Poller: Ready for use
//   - error: ErrNilRefresher if r is nil
func New(r Refresher, opts Options) (*Poller, error) {
	if r == nil {
		return nil, ErrNilRefresher
	}

	p := &Poller{
		name:        opts.Name,
		refresher:   r,
		interval:    opts.Interval,
		clock:       opts.Clock,
		isTransient: opts.IsTransient,
		logger:      opts.Logger,
		observer:    opts.Observer,
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.clock == nil {
		p.clock = clock.NewReal()
	}
	if p.isTransient == nil {
		p.isTransient = func(error) bool { return false }
	}
	if p.logger == nil {
		p.logger = noopLogger{}
	}
	if !opts.ImmediateFirst {
		p.last = p.clock.Now()
	}

	return p, nil
}

// Update refreshes if the interval since the last successful refresh has
// elapsed, and otherwise returns nil without doing any work.
//
// Lock acquisition blocks and is not cancellable; ctx is passed through to
// the refresher only.
//
// Returns:
//   - nil: refreshed successfully, or skipped within the interval
//   - error wrapping ErrRefreshFailed: a transient refresh failure
//   - any other error: returned unmodified from the refresher
func (p *Poller) Update(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	if now.Sub(p.last) < p.interval {
		p.skips.Add(1)
		p.logger.Debug("skipping update", "name", p.name)
		return nil
	}

	p.logger.Debug("updating", "name", p.name)

	err := p.refresher.Refresh(ctx)
	done := p.clock.Now()
	result := Result{
		Name:     p.name,
		Duration: done.Sub(now),
		At:       done,
	}

	switch {
	case err == nil:
		p.last = done
		p.refreshes.Add(1)
		result.Outcome = OutcomeRefreshed
	case p.isTransient(err):
		p.failures.Add(1)
		p.logger.Error("connection failed", "name", p.name, "error", err)
		result.Outcome = OutcomeTimeout
		result.Err = err
		err = fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	default:
		p.failures.Add(1)
		result.Outcome = OutcomeError
		result.Err = err
	}

	if p.observer != nil {
		p.observer.ObservePoll(result)
	}

	return err
}

// LastRefresh returns the time of the last successful refresh, or the
// construction time if none has succeeded yet. It is the zero time when
// ImmediateFirst was set and no refresh has succeeded.
//
// It takes the poller lock and so waits behind an in-flight refresh.
func (p *Poller) LastRefresh() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Interval returns the configured minimum refresh interval.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Stats returns a snapshot of the cumulative counters.
func (p *Poller) Stats() Stats {
	return Stats{
		Refreshes: p.refreshes.Load(),
		Skips:     p.skips.Load(),
		Failures:  p.failures.Load(),
	}
}
