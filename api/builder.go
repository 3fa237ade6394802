package api

import (
	"log/slog"

	"github.com/benbjohnson/clock"
)

// CoordinatorBuilder constructs a Coordinator.
type CoordinatorBuilder interface {
	// Build constructs the Coordinator from the configuration provided to
	// the builder. It returns an error if the configuration is unusable.
	Build() (Coordinator, error)

	// WithConfig sets the coordinator configuration.
	// If not provided, coordinator.DefaultConfig() is used.
	WithConfig(*CoordinatorConfig) CoordinatorBuilder

	// WithLogger sets a custom slog.Logger.
	// If not provided, one is derived from the config's Log.Env.
	WithLogger(*slog.Logger) CoordinatorBuilder

	// WithClock sets the clock used for every timer, ticker and delay.
	// If not provided, the wall clock is used. Tests pass clock.NewMock().
	WithClock(clock.Clock) CoordinatorBuilder

	// WithClients sets custom NodeClient implementations, one per node.
	// If not provided, HTTP clients are built from the cluster config.
	WithClients([]NodeClient) CoordinatorBuilder
}
