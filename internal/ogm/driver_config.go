// Package ogm derives the graph driver configuration from properties and
// provides the session factory, sessions and transaction manager built on
// top of the Neo4j Go driver.
package ogm

import (
	"strconv"
	"strings"
	"time"

	"graphboot/internal/config"
	apperrors "graphboot/internal/errors"
)

// Selector names the transport implementation used to reach the database.
type Selector string

const (
	BoltDriver     Selector = "bolt"
	HTTPDriver     Selector = "http"
	EmbeddedDriver Selector = "embedded"
)

// DefaultCompiler is the statement compiler used when none is configured.
const DefaultCompiler = "multi-statement"

// Credentials is a username/password pair. Both are always non-empty.
type Credentials struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// DriverConfiguration is the resolved, immutable driver configuration.
type DriverConfiguration struct {
	URI         string       `yaml:"uri"`
	Credentials *Credentials `yaml:"credentials,omitempty"`
	Selector    Selector     `yaml:"driver"`
	Compiler    string       `yaml:"compiler,omitempty"`

	Database                     string        `yaml:"database,omitempty"`
	MaxConnectionPoolSize        int           `yaml:"max_connection_pool_size,omitempty"`
	ConnectionAcquisitionTimeout time.Duration `yaml:"connection_acquisition_timeout,omitempty"`
	MaxTransactionRetryTime      time.Duration `yaml:"max_transaction_retry_time,omitempty"`
}

// CompilerOrDefault returns the compiler override or DefaultCompiler.
func (c *DriverConfiguration) CompilerOrDefault() string {
	if c.Compiler != "" {
		return c.Compiler
	}
	return DefaultCompiler
}

// Redacted returns a copy safe to print.
func (c *DriverConfiguration) Redacted() DriverConfiguration {
	out := *c
	if c.Credentials != nil {
		out.Credentials = &Credentials{Username: c.Credentials.Username, Password: "******"}
	}
	return out
}

// SelectorFor picks the driver from the URI scheme prefix. The match is
// case-sensitive and anything that is neither bolt nor http is embedded.
func SelectorFor(uri string) Selector {
	switch {
	case strings.HasPrefix(uri, "bolt"):
		return BoltDriver
	case strings.HasPrefix(uri, "http"):
		return HTTPDriver
	default:
		return EmbeddedDriver
	}
}

// Resolve turns the neo4j properties into a DriverConfiguration.
//
// The uri property is required. The driver property is not consulted: the
// selector always follows the uri.
func Resolve(props config.PropertySet) (*DriverConfiguration, error) {
	uri, ok := props.Lookup(config.PropertyURI)
	if !ok {
		return nil, apperrors.MissingProperty(config.PropertyURI)
	}

	cfg := &DriverConfiguration{
		URI:      uri,
		Selector: SelectorFor(uri),
		Database: props.Get(config.PropertyDatabase),
	}

	if props.Has(config.PropertyUsername) && props.Has(config.PropertyPassword) {
		cfg.Credentials = &Credentials{
			Username: props.Get(config.PropertyUsername),
			Password: props.Get(config.PropertyPassword),
		}
	}

	if props.Has(config.PropertyCompiler) {
		cfg.Compiler = props.Get(config.PropertyCompiler)
	}

	var err error
	if cfg.MaxConnectionPoolSize, err = positiveInt(props, config.PropertyMaxConnectionPoolSize); err != nil {
		return nil, err
	}
	if cfg.ConnectionAcquisitionTimeout, err = positiveDuration(props, config.PropertyConnectionAcquisitionTimeout); err != nil {
		return nil, err
	}
	if cfg.MaxTransactionRetryTime, err = positiveDuration(props, config.PropertyMaxTransactionRetryTime); err != nil {
		return nil, err
	}

	return cfg, nil
}

func positiveInt(props config.PropertySet, key string) (int, error) {
	raw := props.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, apperrors.InvalidProperty(key, raw, err)
	}
	if n <= 0 {
		return 0, apperrors.InvalidProperty(key, raw, nil)
	}
	return n, nil
}

func positiveDuration(props config.PropertySet, key string) (time.Duration, error) {
	raw := props.Get(key)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, apperrors.InvalidProperty(key, raw, err)
	}
	if d <= 0 {
		return 0, apperrors.InvalidProperty(key, raw, nil)
	}
	return d, nil
}
