package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-maxcube/internal/bridges/maxcube"
)

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Gateways      int    `json:"gateways"`
	MQTTConnected *bool  `json:"mqtt_connected,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// GatewayResponse describes one registered gateway.
type GatewayResponse struct {
	Host            string    `json:"host"`
	Port            int       `json:"port"`
	LastRefresh     time.Time `json:"last_refresh"`
	IntervalSeconds float64   `json:"interval_seconds"`
	Refreshes       uint64    `json:"refreshes"`
	Skips           uint64    `json:"skips"`
	Failures        uint64    `json:"failures"`
}

// UpdateResponse is returned by POST /api/v1/gateways/{host}/update.
type UpdateResponse struct {
	Gateway   GatewayResponse `json:"gateway"`
	Refreshed bool            `json:"refreshed"`
	RequestID string          `json:"request_id,omitempty"`
}

func gatewayResponse(st maxcube.Status) GatewayResponse {
	return GatewayResponse{
		Host:            st.Host,
		Port:            st.Port,
		LastRefresh:     st.LastRefresh.UTC(),
		IntervalSeconds: st.Interval.Seconds(),
		Refreshes:       st.Refreshes,
		Skips:           st.Skips,
		Failures:        st.Failures,
	}
}

// handleHealth reports overall bridge status. The status is "degraded"
// when the broker connection is down.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status:        "ok",
		Version:       s.version,
		Gateways:      s.registry.Len(),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	if s.mqtt != nil {
		connected := s.mqtt.IsConnected()
		resp.MQTTConnected = &connected
		if !connected {
			resp.Status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListGateways(w http.ResponseWriter, _ *http.Request) {
	handles := s.registry.Handles()
	out := make([]GatewayResponse, 0, len(handles))
	for _, h := range handles {
		out = append(out, gatewayResponse(h.Status()))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"gateways": out,
		"count":    len(out),
	})
}

func (s *Server) handleGetGateway(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, gatewayResponse(h.Status()))
}

// handleUpdateGateway runs Update on the gateway's handle. Within the
// polling interval this is a no-op and Refreshed is false.
func (s *Server) handleUpdateGateway(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookup(w, r)
	if !ok {
		return
	}

	before := h.Stats().Refreshes
	err := h.Update(r.Context())
	switch {
	case errors.Is(err, maxcube.ErrConnectionFailed):
		writeBadGateway(w, err.Error())
		return
	case err != nil:
		s.logger.Error("manual gateway update failed", "host", h.Host(), "error", err)
		writeInternalError(w, err.Error())
		return
	}

	st := h.Status()
	writeJSON(w, http.StatusOK, UpdateResponse{
		Gateway:   gatewayResponse(st),
		Refreshed: st.Refreshes > before,
		RequestID: requestID(r.Context()),
	})
}

// lookup resolves the {host} URL parameter, writing a 404 when unknown.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*maxcube.Handle, bool) {
	host := chi.URLParam(r, "host")
	h, err := s.registry.Get(host)
	if err != nil {
		writeNotFound(w, "gateway not found: "+host)
		return nil, false
	}
	return h, true
}
