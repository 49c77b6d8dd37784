// Package poller implements a coalescing poller: a single-flight refresh
// guarded by a mutex and gated by a minimum interval.
//
// Many callers share one Poller. Each call to Update either performs the
// underlying refresh (when the interval since the last successful refresh has
// elapsed) or returns immediately. Concurrent callers serialise on the lock,
// so at most one refresh is in flight and at most one succeeds per interval.
//
// The poller knows nothing about the device behind the Refresher. It is used
// by the MAX! Cube bridge to throttle gateway polling, and is tested in
// isolation with a fake Refresher and clock.Mock.
//
// # Failure Semantics
//
// A failed refresh never moves the last-refresh timestamp. The next Update
// therefore retries immediately instead of waiting for the interval, which
// also means throttling is suspended for as long as the refresher keeps
// failing. There is no retry loop and no backoff inside the poller.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Update holds the lock for the
// full duration of the refresh, including network latency.
package poller
