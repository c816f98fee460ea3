package di

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"graphboot/internal/autoconfig"
	"graphboot/internal/config"
	"graphboot/internal/observability"
	"graphboot/internal/ogm"
)

// Options is what the host supplies when building the container.
type Options struct {
	// Config is the loaded application configuration. Required.
	Config *config.Config
	// Capabilities defaults to autoconfig.DefaultCapabilities when nil.
	Capabilities *autoconfig.Capabilities
	// Registry carries host registrations made before auto-configuration.
	Registry *Registry
	// Catalog lists the mapped entities available for scanning.
	Catalog *ogm.EntityCatalog
	// Drivers defaults to ogm.DefaultDrivers when nil.
	Drivers *ogm.Drivers
	// Logger is built from Config.Logging when nil.
	Logger *zap.Logger
	// Routes mounts the host's handlers. Registered interceptors apply to them.
	Routes func(r chi.Router)
}

// Container holds the components built at startup.
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *observability.Collector
	Tracer    *observability.TracerProvider
	Registry  *Registry
	Decisions autoconfig.Decisions

	// DriverConfig is set when the default session factory was built.
	DriverConfig *ogm.DriverConfiguration

	SessionFactory         ogm.SessionOpener
	TransactionCoordinator ogm.TransactionCoordinator

	// Router is nil unless the web serving context is enabled.
	Router http.Handler

	catalog           *ogm.EntityCatalog
	drivers           *ogm.Drivers
	routes            func(r chi.Router)
	shutdownFunctions []func(context.Context) error
}
