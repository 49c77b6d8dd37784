package maxcube

import "context"

// Platform names an entity platform that consumes gateway data.
type Platform string

// Entity platforms activated after a successful setup, in activation order.
const (
	PlatformClimate      Platform = "climate"
	PlatformBinarySensor Platform = "binary_sensor"
)

// Platforms lists every platform in activation order.
var Platforms = []Platform{PlatformClimate, PlatformBinarySensor}

// Activator loads an entity platform for the given gateway hosts.
type Activator interface {
	Activate(ctx context.Context, platform Platform, hosts []string) error
}

// ActivatorFunc adapts a function to the Activator interface.
type ActivatorFunc func(ctx context.Context, platform Platform, hosts []string) error

// Activate calls f(ctx, platform, hosts).
func (f ActivatorFunc) Activate(ctx context.Context, platform Platform, hosts []string) error {
	return f(ctx, platform, hosts)
}
