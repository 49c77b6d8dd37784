package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-maxcube/internal/clock"
)

var errTestTimeout = errors.New("i/o timeout")

// mockRefresher counts calls and returns queued errors in order.
type mockRefresher struct {
	mu    sync.Mutex
	calls int
	errs  []error
	hook  func()
}

func (m *mockRefresher) Refresh(_ context.Context) error {
	m.mu.Lock()
	m.calls++
	var err error
	if len(m.errs) > 0 {
		err = m.errs[0]
		m.errs = m.errs[1:]
	}
	hook := m.hook
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	return err
}

func (m *mockRefresher) getCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func isTestTimeout(err error) bool {
	return errors.Is(err, errTestTimeout)
}

func testStart() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func newTestPoller(t *testing.T, r Refresher, clk clock.Clock) *Poller {
	t.Helper()
	p, err := New(r, Options{
		Name:        "test",
		Clock:       clk,
		IsTransient: isTestTimeout,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestNew_NilRefresher(t *testing.T) {
	_, err := New(nil, Options{})
	if !errors.Is(err, ErrNilRefresher) {
		t.Errorf("New(nil) error = %v, want ErrNilRefresher", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	p, err := New(&mockRefresher{}, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if p.Interval() != DefaultInterval {
		t.Errorf("Interval() = %v, want %v", p.Interval(), DefaultInterval)
	}
	if p.LastRefresh().IsZero() {
		t.Error("LastRefresh() is zero, want construction time")
	}
}

// Handle constructed at T=0; update at T=10 skips, update at T=65 refreshes.
func TestUpdate_SkipsWithinInterval(t *testing.T) {
	clk := clock.NewMock(testStart())
	r := &mockRefresher{}
	p := newTestPoller(t, r, clk)

	clk.Advance(10 * time.Second)
	if err := p.Update(context.Background()); err != nil {
		t.Fatalf("Update() at T=10 error = %v", err)
	}
	if r.getCalls() != 0 {
		t.Errorf("refresh calls at T=10 = %d, want 0", r.getCalls())
	}

	clk.Set(testStart().Add(65 * time.Second))
	if err := p.Update(context.Background()); err != nil {
		t.Fatalf("Update() at T=65 error = %v", err)
	}
	if r.getCalls() != 1 {
		t.Errorf("refresh calls at T=65 = %d, want 1", r.getCalls())
	}
	if got := p.LastRefresh(); !got.Equal(testStart().Add(65 * time.Second)) {
		t.Errorf("LastRefresh() = %v, want T=65", got)
	}
}

func TestUpdate_ExactIntervalRefreshes(t *testing.T) {
	clk := clock.NewMock(testStart())
	r := &mockRefresher{}
	p := newTestPoller(t, r, clk)

	clk.Advance(DefaultInterval)
	if err := p.Update(context.Background()); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if r.getCalls() != 1 {
		t.Errorf("refresh calls = %d, want 1", r.getCalls())
	}
}

func TestUpdate_NoRefreshBeforeNextWindow(t *testing.T) {
	clk := clock.NewMock(testStart())
	r := &mockRefresher{}
	p := newTestPoller(t, r, clk)

	clk.Advance(65 * time.Second)
	if err := p.Update(context.Background()); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	for _, offset := range []time.Duration{0, time.Second, 30 * time.Second, 59 * time.Second} {
		clk.Set(testStart().Add(65*time.Second + offset))
		if err := p.Update(context.Background()); err != nil {
			t.Fatalf("Update() at +%v error = %v", offset, err)
		}
	}
	if r.getCalls() != 1 {
		t.Errorf("refresh calls = %d, want 1", r.getCalls())
	}

	stats := p.Stats()
	if stats.Refreshes != 1 || stats.Skips != 4 || stats.Failures != 0 {
		t.Errorf("Stats() = %+v, want 1 refresh, 4 skips, 0 failures", stats)
	}
}

// A timeout at T=65 leaves the timestamp alone, so T=66 retries immediately.
func TestUpdate_TimeoutRetriesImmediately(t *testing.T) {
	clk := clock.NewMock(testStart())
	r := &mockRefresher{errs: []error{errTestTimeout}}
	p := newTestPoller(t, r, clk)

	clk.Advance(65 * time.Second)
	err := p.Update(context.Background())
	if !errors.Is(err, ErrRefreshFailed) {
		t.Fatalf("Update() error = %v, want ErrRefreshFailed", err)
	}
	if !errors.Is(err, errTestTimeout) {
		t.Errorf("Update() error = %v, want cause preserved", err)
	}
	if got := p.LastRefresh(); !got.Equal(testStart()) {
		t.Errorf("LastRefresh() = %v, want construction time", got)
	}

	clk.Advance(time.Second)
	if err := p.Update(context.Background()); err != nil {
		t.Fatalf("Update() at T=66 error = %v", err)
	}
	if r.getCalls() != 2 {
		t.Errorf("refresh calls = %d, want 2", r.getCalls())
	}
	if got := p.LastRefresh(); !got.Equal(testStart().Add(66 * time.Second)) {
		t.Errorf("LastRefresh() = %v, want T=66", got)
	}
}

func TestUpdate_NonTransientErrorUnmodified(t *testing.T) {
	clk := clock.NewMock(testStart())
	protocolErr := errors.New("unexpected response")
	r := &mockRefresher{errs: []error{protocolErr}}
	p := newTestPoller(t, r, clk)

	clk.Advance(2 * DefaultInterval)
	err := p.Update(context.Background())
	if err != protocolErr { //nolint:errorlint // identity is the point
		t.Errorf("Update() error = %v, want the refresher's error unmodified", err)
	}
	if errors.Is(err, ErrRefreshFailed) {
		t.Error("non-transient error must not be wrapped in ErrRefreshFailed")
	}
	if got := p.LastRefresh(); !got.Equal(testStart()) {
		t.Errorf("LastRefresh() = %v, want construction time", got)
	}
	if p.Stats().Failures != 1 {
		t.Errorf("Failures = %d, want 1", p.Stats().Failures)
	}
}

func TestUpdate_RepeatedFailuresNeverThrottle(t *testing.T) {
	clk := clock.NewMock(testStart())
	r := &mockRefresher{errs: []error{errTestTimeout, errTestTimeout, errTestTimeout}}
	p := newTestPoller(t, r, clk)

	clk.Advance(DefaultInterval)
	for i := 0; i < 3; i++ {
		if err := p.Update(context.Background()); err == nil {
			t.Fatalf("Update() #%d error = nil, want failure", i)
		}
	}
	if r.getCalls() != 3 {
		t.Errorf("refresh calls = %d, want 3", r.getCalls())
	}
}

func TestUpdate_ImmediateFirst(t *testing.T) {
	clk := clock.NewMock(testStart())
	r := &mockRefresher{}
	p, err := New(r, Options{Clock: clk, ImmediateFirst: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !p.LastRefresh().IsZero() {
		t.Errorf("LastRefresh() = %v, want zero", p.LastRefresh())
	}

	if err := p.Update(context.Background()); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if r.getCalls() != 1 {
		t.Errorf("refresh calls = %d, want 1", r.getCalls())
	}
}

func TestUpdate_ConcurrentCallersCoalesce(t *testing.T) {
	clk := clock.NewMock(testStart())
	r := &mockRefresher{hook: func() { time.Sleep(10 * time.Millisecond) }}
	p := newTestPoller(t, r, clk)
	clk.Advance(65 * time.Second)

	const callers = 50
	var wg sync.WaitGroup
	var failed atomic.Int32
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if err := p.Update(context.Background()); err != nil {
				failed.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if r.getCalls() != 1 {
		t.Errorf("refresh calls = %d, want 1", r.getCalls())
	}
	if failed.Load() != 0 {
		t.Errorf("%d callers failed, want 0", failed.Load())
	}
	if p.Stats().Skips != callers-1 {
		t.Errorf("Skips = %d, want %d", p.Stats().Skips, callers-1)
	}
}

func TestUpdate_SingleFlight(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	r := &mockRefresher{hook: func() {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
	}}
	// Every call is due: the interval is tiny relative to the real clock.
	p, err := New(r, Options{Interval: time.Nanosecond})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Update(context.Background())
		}()
	}
	wg.Wait()

	if maxInFlight.Load() != 1 {
		t.Errorf("max concurrent refreshes = %d, want 1", maxInFlight.Load())
	}
}

func TestUpdate_IndependentPollersDoNotBlock(t *testing.T) {
	clk := clock.NewMock(testStart())
	release := make(chan struct{})
	blocked := &mockRefresher{hook: func() { <-release }}
	free := &mockRefresher{}

	p1 := newTestPoller(t, blocked, clk)
	p2 := newTestPoller(t, free, clk)
	clk.Advance(65 * time.Second)

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_ = p1.Update(context.Background())
	}()

	// Wait until p1 is inside its refresh.
	deadline := time.Now().Add(time.Second)
	for blocked.getCalls() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	secondDone := make(chan error, 1)
	go func() { secondDone <- p2.Update(context.Background()) }()

	select {
	case err := <-secondDone:
		if err != nil {
			t.Errorf("p2.Update() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("p2.Update() blocked behind p1")
	}

	close(release)
	<-firstDone
}

func TestUpdate_ObserverReceivesResults(t *testing.T) {
	clk := clock.NewMock(testStart())
	r := &mockRefresher{errs: []error{errTestTimeout, nil}}

	var mu sync.Mutex
	var results []Result
	p, err := New(r, Options{
		Name:        "gw",
		Clock:       clk,
		IsTransient: isTestTimeout,
		Observer: ObserverFunc(func(res Result) {
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_ = p.Update(context.Background()) // skipped, not observed
	clk.Advance(DefaultInterval)
	_ = p.Update(context.Background())
	_ = p.Update(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(results) != 2 {
		t.Fatalf("observed %d results, want 2", len(results))
	}
	if results[0].Outcome != OutcomeTimeout || results[0].Err == nil {
		t.Errorf("results[0] = %+v, want timeout with error", results[0])
	}
	if results[1].Outcome != OutcomeRefreshed || results[1].Name != "gw" {
		t.Errorf("results[1] = %+v, want refreshed for gw", results[1])
	}
}
