package maxcube

import (
	"context"
	"errors"
	"fmt"
)

// Policy selects how Setup reacts to a gateway that fails to connect.
type Policy string

// Setup policies.
const (
	// PolicyFailFast stops at the first initial-connection timeout and
	// registers nothing.
	PolicyFailFast Policy = "fail_fast"

	// PolicyIndependent attempts every gateway and keeps the ones that connect.
	PolicyIndependent Policy = "independent"
)

// Gateway is the address of one configured gateway.
type Gateway struct {
	Host string
	Port int
}

// SetupOptions holds everything Setup needs.
type SetupOptions struct {
	// Gateways in configuration order (required, non-empty).
	Gateways []Gateway

	// Policy defaults to PolicyFailFast.
	Policy Policy

	// Dialer opens gateway connections. Default: TCPDialer with default timeouts.
	Dialer Dialer

	// Registry receives the handles (required).
	Registry *Registry

	// Notifier is told about initial-connection timeouts. Optional.
	Notifier Notifier

	// Activator loads entity platforms once handles are registered. Optional.
	Activator Activator

	// Handle configures every created handle.
	Handle HandleOptions

	// Logger is optional.
	Logger Logger
}

// SetupResult reports what Setup did.
type SetupResult struct {
	// Registered lists hosts whose handles were registered, in configuration order.
	Registered []string

	// Failed maps hosts that did not connect to their error.
	Failed map[string]error

	// Activated lists platforms that were activated.
	Activated []Platform
}

// Setup connects every configured gateway, registers a Handle for each and
// activates the entity platforms.
//
// With PolicyFailFast (the default), gateways are connected in order and
// the first initial-connection timeout ends setup: a notification is sent,
// connections already opened are closed, nothing is registered and no
// platform is activated. Later gateways are not attempted.
//
// Returns:
//   - *SetupResult: Always non-nil
//   - ErrNoGateways: the gateway list is empty
//   - ErrGatewayExists: a host is listed twice or already registered
//   - error wrapping ErrSetupFailed: an initial connection timed out
//   - error wrapping ErrPartialSetup: independent policy, some gateways failed
//   - error wrapping ErrActivationFailed: a platform could not be activated
//   - any other error: a non-timeout dial error, returned unmodified
func Setup(ctx context.Context, opts SetupOptions) (*SetupResult, error) {
	result := &SetupResult{Failed: make(map[string]error)}

	if len(opts.Gateways) == 0 {
		return result, ErrNoGateways
	}
	if opts.Registry == nil {
		return result, errors.New("maxcube: setup requires a registry")
	}
	if opts.Dialer == nil {
		opts.Dialer = TCPDialer{}
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	if opts.Handle.Logger == nil {
		opts.Handle.Logger = opts.Logger
	}

	if err := checkDuplicates(opts.Gateways, opts.Registry); err != nil {
		return result, err
	}

	var (
		staged []*Handle
		err    error
	)
	switch opts.Policy {
	case PolicyIndependent:
		staged, err = connectIndependent(ctx, opts, result)
	case PolicyFailFast, "":
		staged, err = connectFailFast(ctx, opts, result)
	default:
		return result, fmt.Errorf("maxcube: unknown setup policy %q", opts.Policy)
	}
	if len(staged) == 0 {
		return result, err
	}

	for i, h := range staged {
		if regErr := opts.Registry.Register(h); regErr != nil {
			closeHandles(staged[i:], opts.Logger)
			return result, regErr
		}
		result.Registered = append(result.Registered, h.Host())
		opts.Logger.Info("Max!Cube gateway registered", "host", h.Host(), "port", h.Port())
	}

	if actErr := activate(ctx, opts, result); actErr != nil {
		return result, errors.Join(err, actErr)
	}

	return result, err
}

// connectFailFast dials gateways in order and stops at the first failure.
func connectFailFast(ctx context.Context, opts SetupOptions, result *SetupResult) ([]*Handle, error) {
	staged := make([]*Handle, 0, len(opts.Gateways))

	for _, gw := range opts.Gateways {
		h, err := connectGateway(ctx, opts, gw)
		if err != nil {
			closeHandles(staged, opts.Logger)
			result.Failed[gw.Host] = err

			if !IsTimeout(err) {
				return nil, err
			}
			opts.Logger.Error("unable to connect to Max!Cube gateway", "host", gw.Host, "error", err)
			notify(ctx, opts, setupNotification(NotificationID, err))
			return nil, fmt.Errorf("%w: %s: %w", ErrSetupFailed, gw.Host, err)
		}
		staged = append(staged, h)
	}

	return staged, nil
}

// connectIndependent dials every gateway and keeps the ones that connect.
func connectIndependent(ctx context.Context, opts SetupOptions, result *SetupResult) ([]*Handle, error) {
	staged := make([]*Handle, 0, len(opts.Gateways))
	var errs []error

	for _, gw := range opts.Gateways {
		h, err := connectGateway(ctx, opts, gw)
		if err != nil {
			result.Failed[gw.Host] = err
			errs = append(errs, fmt.Errorf("%s: %w", gw.Host, err))
			opts.Logger.Error("unable to connect to Max!Cube gateway", "host", gw.Host, "error", err)
			notify(ctx, opts, setupNotification(NotificationID+"_"+gw.Host, err))
			continue
		}
		staged = append(staged, h)
	}

	switch {
	case len(errs) == 0:
		return staged, nil
	case len(staged) == 0:
		return nil, fmt.Errorf("%w: %w", ErrSetupFailed, errors.Join(errs...))
	default:
		return staged, fmt.Errorf("%w: %w", ErrPartialSetup, errors.Join(errs...))
	}
}

// connectGateway dials one gateway and wraps the connection in a Handle.
func connectGateway(ctx context.Context, opts SetupOptions, gw Gateway) (*Handle, error) {
	port := gw.Port
	if port == 0 {
		port = DefaultPort
	}

	conn, err := opts.Dialer.Dial(ctx, gw.Host, port)
	if err != nil {
		return nil, err
	}

	h, err := NewHandle(gw.Host, port, conn, opts.Handle)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return h, nil
}

// activate loads every platform for the registered hosts, in order.
func activate(ctx context.Context, opts SetupOptions, result *SetupResult) error {
	if opts.Activator == nil {
		return nil
	}

	for _, p := range Platforms {
		if err := opts.Activator.Activate(ctx, p, result.Registered); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrActivationFailed, p, err)
		}
		result.Activated = append(result.Activated, p)
		opts.Logger.Info("platform activated", "platform", string(p), "gateways", len(result.Registered))
	}
	return nil
}

// notify sends n, logging rather than returning delivery failures.
func notify(ctx context.Context, opts SetupOptions, n Notification) {
	if opts.Notifier == nil {
		return
	}
	if err := opts.Notifier.Notify(ctx, n); err != nil {
		opts.Logger.Warn("failed to deliver notification", "id", n.ID, "error", err)
	}
}

// checkDuplicates rejects hosts listed twice or already registered.
func checkDuplicates(gateways []Gateway, registry *Registry) error {
	seen := make(map[string]bool, len(gateways))
	for _, gw := range gateways {
		if seen[gw.Host] || registry.Has(gw.Host) {
			return fmt.Errorf("%w: %s", ErrGatewayExists, gw.Host)
		}
		seen[gw.Host] = true
	}
	return nil
}

// closeHandles closes connections opened by a setup that did not complete.
func closeHandles(handles []*Handle, logger Logger) {
	for _, h := range handles {
		if err := h.Close(); err != nil {
			logger.Warn("failed to close gateway connection", "host", h.Host(), "error", err)
		}
	}
}
