//go:build !wireinject
// +build !wireinject

// Package di builds the graph infrastructure components and the HTTP router
// from configuration and host registrations.
package di

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"graphboot/internal/autoconfig"
	"graphboot/internal/middleware"
	"graphboot/internal/ogm"
)

// InitializeContainer builds the container. It calls the same providers, in
// the same order, as the wire injector.
func InitializeContainer(opts Options) (*Container, error) {
	cfg, err := provideConfig(opts)
	if err != nil {
		return nil, err
	}
	logger, err := provideLogger(opts, cfg)
	if err != nil {
		return nil, err
	}
	collector := provideCollector(cfg)
	tracer, err := provideTracerProvider(cfg)
	if err != nil {
		return nil, err
	}
	registry := provideRegistry(opts)
	activator := provideActivator(logger, collector)
	decisions, err := provideDecisions(opts, cfg, registry, activator)
	if err != nil {
		return nil, err
	}
	return provideContainer(opts, cfg, logger, collector, tracer, registry, decisions)
}

// activate applies the decisions. The session factory comes first so that a
// default transaction manager binds to the primary factory, whether the host
// supplied it or it was built here.
func (c *Container) activate() error {
	if c.Decisions.SessionFactory.Register {
		if err := c.registerSessionFactory(); err != nil {
			return err
		}
	}
	if c.Registry.Has(autoconfig.KindSessionFactory) {
		factory, err := c.Registry.SessionFactory()
		if err != nil {
			return err
		}
		c.SessionFactory = factory
	}

	if c.Decisions.TransactionCoordinator.Register {
		if c.SessionFactory == nil {
			return errors.New("transaction manager requires a session factory")
		}
		err := c.Registry.Register(Registration{
			Kind:      autoconfig.KindTransactionCoordinator,
			Name:      "transactionManager",
			Component: ogm.NewTransactionManager(c.SessionFactory),
			Default:   true,
		})
		if err != nil {
			return err
		}
	}
	if c.Registry.Has(autoconfig.KindTransactionCoordinator) {
		coordinator, err := c.Registry.TransactionCoordinator()
		if err != nil {
			return err
		}
		c.TransactionCoordinator = coordinator
	}

	if c.Decisions.Interceptor.Register {
		if c.SessionFactory == nil {
			return errors.New("open-session-in-view interceptor requires a session factory")
		}
		err := c.Registry.Register(Registration{
			Kind:      autoconfig.KindOpenSessionInViewInterceptor,
			Name:      "openSessionInViewInterceptor",
			Component: middleware.OpenSessionInView(c.SessionFactory, c.Logger, c.Metrics),
			Default:   true,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) registerSessionFactory() error {
	driverConfig, err := ogm.Resolve(c.Config.Neo4j)
	if err != nil {
		return fmt.Errorf("failed to resolve neo4j configuration: %w", err)
	}

	packages := autoconfig.PackagesToScan(c.Config.Scan.EntityPackages, c.Config.Scan.BasePackages)
	factory, err := ogm.NewSessionFactory(driverConfig, c.drivers, c.catalog, packages, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create session factory: %w", err)
	}
	c.addShutdownFunction(factory.Close)

	c.DriverConfig = driverConfig
	return c.Registry.Register(Registration{
		Kind:      autoconfig.KindSessionFactory,
		Name:      "sessionFactory",
		Component: factory,
		Primary:   true,
		Default:   true,
	})
}

func (c *Container) addShutdownFunction(fn func(context.Context) error) {
	c.shutdownFunctions = append(c.shutdownFunctions, fn)
}

// AddShutdownFunction adds a function to be called during container shutdown.
func (c *Container) AddShutdownFunction(fn func(context.Context) error) {
	c.addShutdownFunction(fn)
}

// Shutdown runs the shutdown functions in reverse order of registration.
func (c *Container) Shutdown(ctx context.Context) error {
	c.Logger.Info("Shutting down container")

	var errs []error
	for i := len(c.shutdownFunctions) - 1; i >= 0; i-- {
		if err := c.shutdownFunctions[i](ctx); err != nil {
			errs = append(errs, err)
			c.Logger.Error("Error during shutdown", zap.Error(err))
		}
	}
	c.shutdownFunctions = nil

	_ = c.Logger.Sync()
	return errors.Join(errs...)
}
