package maxcube

import (
	"encoding/json"
	"fmt"
	"time"
)

// MQTT message types exchanged with the host.

// NotificationMessage carries a Notification.
// Topic: graylogic/core/alert/{id}
type NotificationMessage struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ActivationMessage tells the host to load an entity platform.
// Topic: graylogic/discovery/maxcube/{platform} (retained)
type ActivationMessage struct {
	Platform  string    `json:"platform"`
	Gateways  []string  `json:"gateways"`
	Timestamp time.Time `json:"timestamp"`
}

// UpdateRequest is published by an entity that wants fresh gateway data.
// The payload may be empty.
// Topic: graylogic/request/maxcube/{host}
type UpdateRequest struct {
	// RequestID is echoed back in the state message. Optional.
	RequestID string `json:"request_id,omitempty"`
}

// StateStatus is the outcome reported in a StateMessage.
type StateStatus string

const (
	// StateOK means the data is current for the polling interval.
	StateOK StateStatus = "ok"

	// StateError means the last update attempt failed; Messages holds the
	// previous data.
	StateError StateStatus = "error"
)

// StateMessage publishes a gateway's raw data after an update request.
// Topic: graylogic/state/maxcube/{host} (retained)
type StateMessage struct {
	Host        string              `json:"host"`
	Status      StateStatus         `json:"status"`
	LastRefresh time.Time           `json:"last_refresh"`
	Messages    map[string][]string `json:"messages,omitempty"`
	Error       string              `json:"error,omitempty"`
	RequestID   string              `json:"request_id,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
}

// ParseUpdateRequest decodes an update request payload. Empty payloads
// are valid and yield a zero request.
func ParseUpdateRequest(payload []byte) (UpdateRequest, error) {
	var req UpdateRequest
	if len(payload) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return req, fmt.Errorf("parsing update request: %w", err)
	}
	return req, nil
}

// NewStateMessage builds the state message for h after an update.
func NewStateMessage(h *Handle, updateErr error, requestID string, now time.Time) StateMessage {
	snap := h.Snapshot()
	msg := StateMessage{
		Host:        h.Host(),
		Status:      StateOK,
		LastRefresh: h.LastRefresh().UTC(),
		Messages:    snap.Messages,
		RequestID:   requestID,
		Timestamp:   now.UTC(),
	}
	if updateErr != nil {
		msg.Status = StateError
		msg.Error = updateErr.Error()
	}
	return msg
}
