package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// pollMeasurement is the measurement name for gateway poll outcomes.
const pollMeasurement = "maxcube_poll"

// NewPollPoint builds the point recorded for one gateway refresh attempt.
//
// Tags: host, outcome ("refreshed", "timeout", "error").
// Fields: duration_ms, success (bool).
func NewPollPoint(host, outcome string, duration time.Duration, at time.Time) *write.Point {
	return write.NewPoint(
		pollMeasurement,
		map[string]string{
			"host":    host,
			"outcome": outcome,
		},
		map[string]interface{}{
			"duration_ms": float64(duration) / float64(time.Millisecond),
			"success":     outcome == "refreshed",
		},
		at,
	)
}

// WritePollResult records a gateway refresh attempt. Non-blocking; a no-op
// when disconnected.
func (c *Client) WritePollResult(host, outcome string, duration time.Duration, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(NewPollPoint(host, outcome, duration, at))
}

// WritePoint writes a custom point timestamped now.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
