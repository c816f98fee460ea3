package ogm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// ErrSessionFactoryClosed is returned by operations on a closed factory.
var ErrSessionFactoryClosed = errors.New("session factory closed")

// SessionFactory creates sessions against the configured database. It owns
// the underlying driver.
type SessionFactory struct {
	config   *DriverConfiguration
	driver   Driver
	packages []string
	entities []Entity
	logger   *zap.Logger

	closeOnce sync.Once
	closeErr  error
	closed    bool
	mu        sync.RWMutex
}

// NewSessionFactory opens the driver selected by cfg and binds the entities
// found in packages.
func NewSessionFactory(cfg *DriverConfiguration, drivers *Drivers, catalog *EntityCatalog, packages []string, logger *zap.Logger) (*SessionFactory, error) {
	if cfg == nil {
		return nil, errors.New("driver configuration is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	driver, err := drivers.Open(cfg)
	if err != nil {
		return nil, err
	}

	f := &SessionFactory{
		config:   cfg,
		driver:   driver,
		packages: append([]string(nil), packages...),
		logger:   logger,
	}
	if catalog != nil {
		f.entities = catalog.Scan(packages)
	}

	logger.Info("Session factory created",
		zap.String("driver", string(cfg.Selector)),
		zap.String("uri", cfg.URI),
		zap.String("compiler", cfg.CompilerOrDefault()),
		zap.Strings("packages", f.packages),
		zap.Int("entities", len(f.entities)),
	)
	return f, nil
}

// OpenSession opens a session in the given access mode.
func (f *SessionFactory) OpenSession(ctx context.Context, mode neo4j.AccessMode) Session {
	return f.driver.Session(ctx, mode, f.config.Database)
}

// Packages returns the packages the factory was scoped to.
func (f *SessionFactory) Packages() []string {
	return append([]string(nil), f.packages...)
}

// Entities returns the mapped entities found in Packages.
func (f *SessionFactory) Entities() []Entity {
	return append([]Entity(nil), f.entities...)
}

func (f *SessionFactory) Configuration() *DriverConfiguration {
	return f.config
}

func (f *SessionFactory) Compiler() string {
	return f.config.CompilerOrDefault()
}

// VerifyConnectivity checks that the database is reachable.
func (f *SessionFactory) VerifyConnectivity(ctx context.Context) error {
	f.mu.RLock()
	closed := f.closed
	f.mu.RUnlock()
	if closed {
		return ErrSessionFactoryClosed
	}
	if err := f.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("neo4j unreachable at %s: %w", f.config.URI, err)
	}
	return nil
}

// Close closes the driver. Later calls return the first result.
func (f *SessionFactory) Close(ctx context.Context) error {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
		f.closeErr = f.driver.Close(ctx)
		f.logger.Info("Session factory closed", zap.Error(f.closeErr))
	})
	return f.closeErr
}
