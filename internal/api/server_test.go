package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-maxcube/internal/bridges/maxcube"
	"github.com/nerrad567/gray-logic-maxcube/internal/clock"
	"github.com/nerrad567/gray-logic-maxcube/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-maxcube/internal/infrastructure/logging"
)

var testStart = time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)

// stubConnection is a maxcube.Connection with a settable refresh error.
type stubConnection struct {
	mu  sync.Mutex
	err error
}

func (c *stubConnection) Refresh(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *stubConnection) Snapshot() maxcube.Snapshot { return maxcube.Snapshot{} }
func (c *stubConnection) Close() error               { return nil }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

type fakeBroker struct{ connected bool }

func (f fakeBroker) IsConnected() bool { return f.connected }

type testEnv struct {
	srv   *Server
	clock *clock.Mock
	conn  *stubConnection
}

func newTestEnv(t *testing.T, broker ConnectionChecker) *testEnv {
	t.Helper()

	clk := clock.NewMock(testStart)
	conn := &stubConnection{}
	h, err := maxcube.NewHandle("192.168.1.50", 0, conn, maxcube.HandleOptions{Clock: clk})
	if err != nil {
		t.Fatalf("NewHandle() error: %v", err)
	}
	registry := maxcube.NewRegistry()
	if err := registry.Register(h); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	srv, err := New(Deps{
		Config:   config.APIConfig{Host: "127.0.0.1", Port: 0},
		Logger:   log,
		Registry: registry,
		MQTT:     broker,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return &testEnv{srv: srv, clock: clk, conn: conn}
}

func (e *testEnv) do(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	e.srv.buildRouter().ServeHTTP(rec, req)
	return rec
}

func TestNewRequiresDeps(t *testing.T) {
	if _, err := New(Deps{Registry: maxcube.NewRegistry()}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: logging.Default()}); err == nil {
		t.Error("New() without registry should fail")
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		broker     ConnectionChecker
		wantStatus string
	}{
		{"no broker", nil, "ok"},
		{"broker up", fakeBroker{connected: true}, "ok"},
		{"broker down", fakeBroker{connected: false}, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.broker)
			rec := env.do(http.MethodGet, "/api/v1/health")

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.wantStatus || resp.Gateways != 1 || resp.Version != "test" {
				t.Errorf("health = %+v", resp)
			}
		})
	}
}

func TestListGateways(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodGet, "/api/v1/gateways")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Gateways []GatewayResponse `json:"gateways"`
		Count    int               `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || resp.Gateways[0].Host != "192.168.1.50" || resp.Gateways[0].Port != 62910 {
		t.Errorf("gateways = %+v", resp)
	}
	if resp.Gateways[0].IntervalSeconds != 60 {
		t.Errorf("interval_seconds = %v, want 60", resp.Gateways[0].IntervalSeconds)
	}
}

func TestGetGateway(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/api/v1/gateways/192.168.1.50")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var gw GatewayResponse
	_ = json.NewDecoder(rec.Body).Decode(&gw)
	if !gw.LastRefresh.Equal(testStart) {
		t.Errorf("last_refresh = %v, want %v", gw.LastRefresh, testStart)
	}

	rec = env.do(http.MethodGet, "/api/v1/gateways/10.9.9.9")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown gateway status = %d, want 404", rec.Code)
	}
}

func TestUpdateGateway(t *testing.T) {
	env := newTestEnv(t, nil)

	// Within the interval: 200 with no refresh.
	rec := env.do(http.MethodPost, "/api/v1/gateways/192.168.1.50/update")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp UpdateResponse
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Refreshed {
		t.Error("update within interval reported a refresh")
	}
	if resp.RequestID == "" || rec.Header().Get("X-Request-ID") != resp.RequestID {
		t.Errorf("request id = %q, header %q", resp.RequestID, rec.Header().Get("X-Request-ID"))
	}

	env.clock.Advance(time.Minute)
	rec = env.do(http.MethodPost, "/api/v1/gateways/192.168.1.50/update")
	resp = UpdateResponse{}
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if rec.Code != http.StatusOK || !resp.Refreshed || resp.Gateway.Refreshes != 1 {
		t.Errorf("status = %d, resp = %+v", rec.Code, resp)
	}
}

func TestUpdateGatewayErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"timeout", timeoutErr{}, http.StatusBadGateway},
		{"other", errors.New("protocol violation"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			env.conn.err = tt.err
			env.clock.Advance(time.Minute)

			rec := env.do(http.MethodPost, "/api/v1/gateways/192.168.1.50/update")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var apiErr Error
			_ = json.NewDecoder(rec.Body).Decode(&apiErr)
			if apiErr.Status != tt.wantStatus || apiErr.Message == "" {
				t.Errorf("error body = %+v", apiErr)
			}
		})
	}

	env := newTestEnv(t, nil)
	if rec := env.do(http.MethodPost, "/api/v1/gateways/10.9.9.9/update"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown gateway update status = %d, want 404", rec.Code)
	}
}

func TestRequestIDPassthrough(t *testing.T) {
	env := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-supplied")
	rec := httptest.NewRecorder()
	env.srv.buildRouter().ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "client-supplied" {
		t.Errorf("X-Request-ID = %q, want client-supplied", got)
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	env := newTestEnv(t, nil)

	if rec := env.do(http.MethodGet, "/api/v1/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want 404", rec.Code)
	}
	rec := env.do(http.MethodDelete, "/api/v1/health")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("wrong method status = %d, want 405", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), ErrCodeMethodNotAllow) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestStartAndClose(t *testing.T) {
	env := newTestEnv(t, nil)
	if err := env.srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start should fail")
	}

	if err := env.srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer env.srv.Close()

	resp, err := http.Get("http://" + env.srv.Addr() + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if err := env.srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() after Start error: %v", err)
	}
}

func TestStartAppliesTimeouts(t *testing.T) {
	env := newTestEnv(t, nil)
	env.srv.timeouts = Timeouts{Read: 30 * time.Second, Write: 45 * time.Second, Idle: time.Minute}

	if err := env.srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer env.srv.Close()

	if got := env.srv.server.ReadTimeout; got != 30*time.Second {
		t.Errorf("ReadTimeout = %v, want 30s", got)
	}
	if got := env.srv.server.ReadHeaderTimeout; got != 30*time.Second {
		t.Errorf("ReadHeaderTimeout = %v, want 30s", got)
	}
	if got := env.srv.server.WriteTimeout; got != 45*time.Second {
		t.Errorf("WriteTimeout = %v, want 45s", got)
	}
	if got := env.srv.server.IdleTimeout; got != time.Minute {
		t.Errorf("IdleTimeout = %v, want 1m", got)
	}
}

func TestNewCopiesTimeouts(t *testing.T) {
	want := Timeouts{Read: time.Second, Write: 2 * time.Second, Idle: 3 * time.Second}
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	srv, err := New(Deps{Timeouts: want, Logger: log, Registry: maxcube.NewRegistry()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if srv.timeouts != want {
		t.Errorf("timeouts = %+v, want %+v", srv.timeouts, want)
	}
}
