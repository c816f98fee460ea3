package di

import (
	"github.com/google/wire"
)

// SuperSet combines all provider sets for the container.
var SuperSet = wire.NewSet(
	ConfigProviders,
	ObservabilityProviders,
	AutoConfigProviders,
	provideContainer,
)

// ConfigProviders provides configuration and logging.
var ConfigProviders = wire.NewSet(
	provideConfig,
	provideLogger,
)

// ObservabilityProviders provides metrics and tracing.
var ObservabilityProviders = wire.NewSet(
	provideCollector,
	provideTracerProvider,
)

// AutoConfigProviders evaluates which components to register.
var AutoConfigProviders = wire.NewSet(
	provideRegistry,
	provideActivator,
	provideDecisions,
)
