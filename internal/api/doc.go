// Package api provides the HTTP status API for the MAX! Cube bridge.
//
// Operators use it to see which gateways are registered, when each was
// last refreshed, and how often refreshes were skipped or failed. A manual
// update goes through the same Handle as entity requests, so it obeys the
// polling interval:
//
//	GET  /api/v1/health
//	GET  /api/v1/gateways
//	GET  /api/v1/gateways/{host}
//	POST /api/v1/gateways/{host}/update
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
