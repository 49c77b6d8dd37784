package maxcube

import (
	"time"

	"github.com/nerrad567/gray-logic-maxcube/internal/poller"
)

// MetricsWriter records poll outcomes. It is satisfied by *influxdb.Client.
type MetricsWriter interface {
	WritePollResult(host, outcome string, duration time.Duration, at time.Time)
}

// NewPollRecorder returns an observer that forwards every refresh attempt
// to w. A nil w yields a nil observer.
func NewPollRecorder(w MetricsWriter) poller.Observer {
	if w == nil {
		return nil
	}
	return poller.ObserverFunc(func(r poller.Result) {
		w.WritePollResult(r.Name, string(r.Outcome), r.Duration, r.At)
	})
}
