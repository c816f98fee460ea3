// Package config provides layered configuration loading for graphboot.
//
// Configuration comes from, in increasing priority: built-in defaults, YAML
// files and environment variables. The neo4j section is kept as a flat
// PropertySet because the driver configuration is derived from it rather than
// decoded into a fixed struct.
package config

import (
	"errors"
	"net"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "graphboot/internal/errors"
)

// Environment is the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the complete application configuration.
type Config struct {
	Environment Environment `yaml:"environment" validate:"required,oneof=development staging production"`
	Server      Server      `yaml:"server"`
	Logging     Logging     `yaml:"logging"`
	Web         Web         `yaml:"web"`
	Scan        Scan        `yaml:"scan"`
	Tracing     Tracing     `yaml:"tracing"`
	Metrics     Metrics     `yaml:"metrics"`
	Neo4j       PropertySet `yaml:"neo4j"`

	// LoadedFrom lists the sources applied, lowest priority first.
	LoadedFrom []string `yaml:"-"`
}

// Server configures the HTTP listener.
type Server struct {
	Host            string        `yaml:"host" validate:"required"`
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	RequestTimeout  time.Duration `yaml:"request_timeout" validate:"gt=0"`
}

// Logging configures the zap logger.
type Logging struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// Web says whether the process runs a web serving context.
type Web struct {
	Enabled bool `yaml:"enabled"`
}

// Scan holds the package sources used to scope the session factory.
type Scan struct {
	// EntityPackages is the explicitly configured entity-scan list.
	EntityPackages []string `yaml:"entity_packages" validate:"dive,required"`
	// BasePackages are the application's auto-discovered base packages.
	BasePackages []string `yaml:"base_packages" validate:"dive,required"`
}

// Tracing configures OpenTelemetry export.
type Tracing struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name" validate:"required_if=Enabled true"`
	SampleRate  float64 `yaml:"sample_rate" validate:"gte=0,lte=1"`
}

// Metrics configures the prometheus endpoint.
type Metrics struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path" validate:"required_if=Enabled true"`
	Namespace string `yaml:"namespace" validate:"required"`
}

// Address returns the listen address.
func (s Server) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// IsDevelopment reports whether the config targets development.
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction reports whether the config targets production.
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report yaml names so faults match what the user wrote.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the struct-level constraints. The neo4j properties are
// validated when the driver configuration is resolved.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.NewConfigurationFault(apperrors.CodeInvalidConfig, "", "configuration validation failed").
			WithCause(err).
			Build()
	}

	first := verrs[0]
	field := first.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	return apperrors.NewConfigurationFault(apperrors.CodeInvalidConfig, field, "configuration validation failed").
		WithDetails(describe(first)).
		Build()
}

func describe(fe validator.FieldError) string {
	if fe.Param() != "" {
		return fe.Tag() + "=" + fe.Param()
	}
	return fe.Tag()
}
