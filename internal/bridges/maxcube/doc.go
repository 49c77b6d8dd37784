// Package maxcube connects the home-automation host to MAX! Cube heating
// gateways on the LAN.
//
// # Architecture
//
//	┌──────────────┐  MQTT  ┌──────────────────────────────┐  TCP  ┌──────────┐
//	│ Host         │◄──────►│ Service → Registry → Handle  │◄─────►│ MAX!Cube │
//	│ (entities)   │        │            (one per gateway) │ 62910 │ gateway  │
//	└──────────────┘        └──────────────────────────────┘       └──────────┘
//
// One Handle exists per configured gateway. Every dependent entity (climate
// controls, window sensors) asks its gateway's Handle for fresh data, and the
// Handle collapses those requests into at most one network refresh per
// polling interval (60 seconds by default). The throttling itself lives in
// package poller.
//
// # Lifecycle
//
// Setup runs once at startup. It connects each gateway in order, and with the
// default fail-fast policy aborts on the first gateway whose initial
// connection times out: a notification is published, nothing is registered
// and no entity platform is activated. When all gateways connect, their
// handles are registered and the "climate" and "binary_sensor" platforms are
// activated. Handles and their connections then live until process exit.
//
// # Failure Handling
//
// A refresh timeout during normal polling is logged and returned to the
// caller as ErrConnectionFailed. The last-refresh timestamp is left alone, so
// the next request retries at once; there is no backoff. Errors that are not
// timeouts are returned unchanged.
//
// # Payloads
//
// Gateway messages are kept as raw lines keyed by message type (H, M, C, L).
// Decoding them into thermostat and sensor values is the job of the entities.
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple goroutines.
package maxcube
