package maxcube

import "errors"

// Domain errors for the MAX! Cube bridge package.
var (
	// ErrTimeout marks a network timeout talking to a gateway. It is the only
	// failure that takes the notification path at setup and the
	// ErrConnectionFailed path during polling.
	ErrTimeout = errors.New("maxcube: gateway timed out")

	// ErrConnectionFailed is returned by Handle.Update when a refresh timed out.
	ErrConnectionFailed = errors.New("maxcube: connection to gateway failed")

	// ErrSetupFailed is returned by Setup when a gateway's initial connection
	// timed out (fail-fast) or when no gateway could be connected.
	ErrSetupFailed = errors.New("maxcube: gateway setup failed")

	// ErrPartialSetup is returned by Setup under the independent policy when
	// some, but not all, gateways connected.
	ErrPartialSetup = errors.New("maxcube: some gateways failed setup")

	// ErrActivationFailed is returned when an entity platform could not be activated.
	ErrActivationFailed = errors.New("maxcube: platform activation failed")

	// ErrNoGateways is returned by Setup when no gateways are configured.
	ErrNoGateways = errors.New("maxcube: no gateways configured")

	// ErrGatewayNotFound is returned when no handle is registered for a host.
	ErrGatewayNotFound = errors.New("maxcube: gateway not found")

	// ErrGatewayExists is returned when registering a host twice.
	ErrGatewayExists = errors.New("maxcube: gateway already registered")

	// ErrClosed is returned when refreshing a closed connection.
	ErrClosed = errors.New("maxcube: connection closed")

	// ErrInvalidResponse is returned when a gateway sends an unexpected stream.
	ErrInvalidResponse = errors.New("maxcube: invalid gateway response")
)
