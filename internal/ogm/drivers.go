package ogm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ErrUnsupportedDriver is returned when no opener is registered for a selector.
var ErrUnsupportedDriver = errors.New("no driver registered for selector")

// Driver is an open connection to the graph database.
type Driver interface {
	Session(ctx context.Context, mode neo4j.AccessMode, database string) Session
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// DriverOpener opens a Driver for a resolved configuration.
type DriverOpener func(cfg *DriverConfiguration) (Driver, error)

// Drivers maps selectors to openers.
type Drivers struct {
	mu      sync.RWMutex
	openers map[Selector]DriverOpener
}

// NewDrivers returns an empty table.
func NewDrivers() *Drivers {
	return &Drivers{openers: make(map[Selector]DriverOpener)}
}

// DefaultDrivers returns a table with the bolt opener registered. The http
// and embedded selectors have no Go driver; hosts that provide one register
// it with Register.
func DefaultDrivers() *Drivers {
	d := NewDrivers()
	d.Register(BoltDriver, OpenBolt)
	return d
}

// Register sets the opener for sel, replacing any previous one.
func (d *Drivers) Register(sel Selector, opener DriverOpener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.openers[sel] = opener
}

// Supports reports whether an opener is registered for sel.
func (d *Drivers) Supports(sel Selector) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.openers[sel]
	return ok
}

// Open opens the driver selected by cfg.
func (d *Drivers) Open(cfg *DriverConfiguration) (Driver, error) {
	d.mu.RLock()
	opener, ok := d.openers[cfg.Selector]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s (uri %q)", ErrUnsupportedDriver, cfg.Selector, cfg.URI)
	}
	return opener(cfg)
}

// OpenBolt opens a bolt driver with the Neo4j Go driver.
func OpenBolt(cfg *DriverConfiguration) (Driver, error) {
	auth := neo4j.NoAuth()
	if cfg.Credentials != nil {
		auth = neo4j.BasicAuth(cfg.Credentials.Username, cfg.Credentials.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth, func(c *neo4j.Config) {
		if cfg.MaxConnectionPoolSize > 0 {
			c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
		}
		if cfg.ConnectionAcquisitionTimeout > 0 {
			c.ConnectionAcquisitionTimeout = cfg.ConnectionAcquisitionTimeout
		}
		if cfg.MaxTransactionRetryTime > 0 {
			c.MaxTransactionRetryTime = cfg.MaxTransactionRetryTime
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	return &boltDriver{driver: driver}, nil
}

type boltDriver struct {
	driver neo4j.DriverWithContext
}

func (d *boltDriver) Session(ctx context.Context, mode neo4j.AccessMode, database string) Session {
	return &driverSession{session: d.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: database,
	})}
}

func (d *boltDriver) VerifyConnectivity(ctx context.Context) error {
	return d.driver.VerifyConnectivity(ctx)
}

func (d *boltDriver) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}
