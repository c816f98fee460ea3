// Package autoconfig decides which graph infrastructure components the host
// registers, based on declared capabilities, existing registrations and the
// neo4j properties.
package autoconfig

import (
	"strconv"
	"strings"

	"graphboot/internal/config"
	apperrors "graphboot/internal/errors"
)

// Kind identifies a registrable component.
type Kind string

const (
	KindTransactionCoordinator       Kind = "transaction_coordinator"
	KindSessionFactory               Kind = "session_factory"
	KindOpenSessionInViewInterceptor Kind = "open_session_in_view_interceptor"
	KindOpenSessionInViewFilter      Kind = "open_session_in_view_filter"
)

// Capabilities declares which optional pieces the host binary links in.
type Capabilities struct {
	SessionFactory        bool
	TransactionManagement bool
	Session               bool
	WebPipeline           bool
}

// DefaultCapabilities reports everything this module provides as present.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		SessionFactory:        true,
		TransactionManagement: true,
		Session:               true,
		WebPipeline:           true,
	}
}

// core reports whether the capabilities required by every component are
// present.
func (c Capabilities) core() bool {
	return c.SessionFactory && c.TransactionManagement && c.Session
}

// RegistrationProbe answers whether a component of a kind is registered.
type RegistrationProbe interface {
	Has(kind Kind) bool
}

// ProbeFunc adapts a function to RegistrationProbe.
type ProbeFunc func(kind Kind) bool

func (f ProbeFunc) Has(kind Kind) bool { return f(kind) }

// PackagesToScan returns the explicit entity-scan packages when any are
// configured, otherwise the auto-discovered ones. Both empty yields an
// empty scope.
func PackagesToScan(explicit, discovered []string) []string {
	if pkgs := nonEmpty(explicit); len(pkgs) > 0 {
		return pkgs
	}
	return nonEmpty(discovered)
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ParseOpenInView reads the open-in-view property. nil means absent.
func ParseOpenInView(props config.PropertySet) (*bool, error) {
	raw, ok := props.Lookup(config.PropertyOpenInView)
	if !ok {
		return nil, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return nil, apperrors.InvalidProperty(config.PropertyOpenInView, raw, err)
	}
	return &v, nil
}
