package di

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"graphboot/internal/autoconfig"
	"graphboot/internal/config"
	"graphboot/internal/observability"
	"graphboot/internal/ogm"
)

func provideConfig(opts Options) (*config.Config, error) {
	if opts.Config == nil {
		return nil, errors.New("configuration is required")
	}
	return opts.Config, nil
}

func provideLogger(opts Options, cfg *config.Config) (*zap.Logger, error) {
	if opts.Logger != nil {
		return opts.Logger, nil
	}
	return observability.NewLogger(cfg.Logging)
}

func provideCollector(cfg *config.Config) *observability.Collector {
	return observability.NewCollector(cfg.Metrics.Namespace)
}

func provideTracerProvider(cfg *config.Config) (*observability.TracerProvider, error) {
	return observability.InitTracing(context.Background(), cfg.Tracing, cfg.Environment)
}

func provideRegistry(opts Options) *Registry {
	if opts.Registry != nil {
		return opts.Registry
	}
	return NewRegistry()
}

func provideActivator(logger *zap.Logger, collector *observability.Collector) *autoconfig.Activator {
	return autoconfig.NewActivator(logger, collector)
}

// provideDecisions evaluates activation once, against the registrations the
// host made before the container was built.
func provideDecisions(opts Options, cfg *config.Config, registry *Registry, activator *autoconfig.Activator) (autoconfig.Decisions, error) {
	openInView, err := autoconfig.ParseOpenInView(cfg.Neo4j)
	if err != nil {
		return autoconfig.Decisions{}, err
	}

	capabilities := autoconfig.DefaultCapabilities()
	if opts.Capabilities != nil {
		capabilities = *opts.Capabilities
	}

	return activator.Decide(autoconfig.Inputs{
		Capabilities:   capabilities,
		WebApplication: cfg.Web.Enabled,
		Registrations:  registry,
		OpenInView:     openInView,
	}), nil
}

func provideContainer(
	opts Options,
	cfg *config.Config,
	logger *zap.Logger,
	collector *observability.Collector,
	tracer *observability.TracerProvider,
	registry *Registry,
	decisions autoconfig.Decisions,
) (*Container, error) {
	drivers := opts.Drivers
	if drivers == nil {
		drivers = ogm.DefaultDrivers()
	}

	c := &Container{
		Config:    cfg,
		Logger:    logger,
		Metrics:   collector,
		Tracer:    tracer,
		Registry:  registry,
		Decisions: decisions,
		catalog:   opts.Catalog,
		drivers:   drivers,
		routes:    opts.Routes,
	}
	c.addShutdownFunction(tracer.Shutdown)

	if err := c.activate(); err != nil {
		_ = c.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize container: %w", err)
	}

	if cfg.Web.Enabled {
		c.Router = c.buildRouter()
	}

	logger.Info("Container initialized",
		zap.String("environment", string(cfg.Environment)),
		zap.Bool("web", cfg.Web.Enabled),
	)
	return c, nil
}
