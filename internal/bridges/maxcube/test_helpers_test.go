package maxcube

import (
	"context"
	"sync"
	"time"
)

// timeoutError is a net.Error that reports a timeout.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// fakeConnection is a Connection with scripted refresh results.
type fakeConnection struct {
	mu         sync.Mutex
	refreshErr error
	refreshes  int
	closed     bool
	delay      time.Duration
	snapshot   Snapshot
}

func newFakeConnection() *fakeConnection {
	return &fakeConnection{
		snapshot: Snapshot{Messages: map[string][]string{"L": {"initial"}}},
	}
}

func (f *fakeConnection) Refresh(_ context.Context) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.refreshErr != nil {
		return f.refreshErr
	}
	f.snapshot = Snapshot{Messages: map[string][]string{"L": {"refreshed"}}}
	return nil
}

func (f *fakeConnection) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot.clone()
}

func (f *fakeConnection) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConnection) setErr(err error) {
	f.mu.Lock()
	f.refreshErr = err
	f.mu.Unlock()
}

func (f *fakeConnection) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes
}

func (f *fakeConnection) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeDialer hands out fakeConnections and records dial attempts.
type fakeDialer struct {
	mu       sync.Mutex
	errs     map[string]error
	conns    map[string]*fakeConnection
	attempts []string
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{
		errs:  make(map[string]error),
		conns: make(map[string]*fakeConnection),
	}
}

func (d *fakeDialer) Dial(_ context.Context, host string, _ int) (Connection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts = append(d.attempts, host)
	if err := d.errs[host]; err != nil {
		return nil, err
	}
	c := newFakeConnection()
	d.conns[host] = c
	return c, nil
}

func (d *fakeDialer) attempted() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.attempts...)
}

// recordingNotifier captures notifications.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, note Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
	return n.err
}

// recordingActivator captures platform activations.
type recordingActivator struct {
	mu        sync.Mutex
	platforms []Platform
	hosts     [][]string
	failOn    Platform
}

func (a *recordingActivator) Activate(_ context.Context, p Platform, hosts []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p == a.failOn {
		return timeoutError{}
	}
	a.platforms = append(a.platforms, p)
	a.hosts = append(a.hosts, hosts)
	return nil
}

// published is one message sent through mockMQTT.
type published struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// mockMQTT implements MQTTClient in memory.
type mockMQTT struct {
	mu         sync.Mutex
	messages   []published
	handlers   map[string]func(string, []byte) error
	publishErr error
}

func newMockMQTT() *mockMQTT {
	return &mockMQTT{handlers: make(map[string]func(string, []byte) error)}
}

func (m *mockMQTT) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.messages = append(m.messages, published{topic: topic, payload: payload, qos: qos, retained: retained})
	return nil
}

func (m *mockMQTT) Subscribe(topic string, _ byte, handler func(string, []byte) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

func (m *mockMQTT) IsConnected() bool { return true }

func (m *mockMQTT) handler(topic string) func(string, []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handlers[topic]
}

func (m *mockMQTT) sent() []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]published(nil), m.messages...)
}
