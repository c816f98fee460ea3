package di

import (
	"fmt"
	"net/http"
	"sync"

	"graphboot/internal/autoconfig"
	"graphboot/internal/ogm"
)

// Middleware wraps an http.Handler. Interceptors and filters are both
// middleware; filters wrap the whole router, interceptors run inside it.
type Middleware = func(http.Handler) http.Handler

// Registration is one component known to the container.
type Registration struct {
	Kind      autoconfig.Kind
	Name      string
	Component any
	// Primary marks the registration to use when several share a kind.
	Primary bool
	// Default is set on registrations made by auto-configuration.
	Default bool
}

// Registry holds host and auto-configured components by kind. Registrations
// are kept in order and never replaced: whatever the host registers before
// the container is built takes precedence over the defaults.
type Registry struct {
	mu     sync.RWMutex
	byKind map[autoconfig.Kind][]Registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byKind: make(map[autoconfig.Kind][]Registration)}
}

// Register records reg. The component must have the shape its kind requires.
func (r *Registry) Register(reg Registration) error {
	if err := checkComponent(reg); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byKind[reg.Kind] {
		if reg.Name != "" && existing.Name == reg.Name {
			return fmt.Errorf("%s %q already registered", reg.Kind, reg.Name)
		}
	}
	r.byKind[reg.Kind] = append(r.byKind[reg.Kind], reg)
	return nil
}

// RegisterSessionFactory registers a session factory.
func (r *Registry) RegisterSessionFactory(name string, factory ogm.SessionOpener, primary bool) error {
	return r.Register(Registration{Kind: autoconfig.KindSessionFactory, Name: name, Component: factory, Primary: primary})
}

// RegisterTransactionCoordinator registers a transaction coordinator.
func (r *Registry) RegisterTransactionCoordinator(name string, coordinator ogm.TransactionCoordinator) error {
	return r.Register(Registration{Kind: autoconfig.KindTransactionCoordinator, Name: name, Component: coordinator})
}

// RegisterInterceptor registers an open-session-in-view interceptor.
func (r *Registry) RegisterInterceptor(name string, mw Middleware) error {
	return r.Register(Registration{Kind: autoconfig.KindOpenSessionInViewInterceptor, Name: name, Component: mw})
}

// RegisterFilter registers a filter that keeps sessions open per request.
func (r *Registry) RegisterFilter(name string, mw Middleware) error {
	return r.Register(Registration{Kind: autoconfig.KindOpenSessionInViewFilter, Name: name, Component: mw})
}

// Has implements autoconfig.RegistrationProbe.
func (r *Registry) Has(kind autoconfig.Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKind[kind]) > 0
}

// All returns the registrations of kind in registration order.
func (r *Registry) All(kind autoconfig.Kind) []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Registration(nil), r.byKind[kind]...)
}

// Primary returns the registration marked primary, or the only one. More
// than one candidate without a single primary is an error.
func (r *Registry) Primary(kind autoconfig.Kind) (Registration, error) {
	regs := r.All(kind)
	switch len(regs) {
	case 0:
		return Registration{}, fmt.Errorf("no %s registered", kind)
	case 1:
		return regs[0], nil
	}

	var primary []Registration
	for _, reg := range regs {
		if reg.Primary {
			primary = append(primary, reg)
		}
	}
	if len(primary) != 1 {
		return Registration{}, fmt.Errorf("%d %s registrations and %d marked primary", len(regs), kind, len(primary))
	}
	return primary[0], nil
}

// SessionFactory returns the primary session factory.
func (r *Registry) SessionFactory() (ogm.SessionOpener, error) {
	reg, err := r.Primary(autoconfig.KindSessionFactory)
	if err != nil {
		return nil, err
	}
	return reg.Component.(ogm.SessionOpener), nil
}

// TransactionCoordinator returns the primary transaction coordinator.
func (r *Registry) TransactionCoordinator() (ogm.TransactionCoordinator, error) {
	reg, err := r.Primary(autoconfig.KindTransactionCoordinator)
	if err != nil {
		return nil, err
	}
	return reg.Component.(ogm.TransactionCoordinator), nil
}

// Middleware returns the components of kind as middleware, in order.
func (r *Registry) Middleware(kind autoconfig.Kind) []Middleware {
	regs := r.All(kind)
	out := make([]Middleware, 0, len(regs))
	for _, reg := range regs {
		out = append(out, reg.Component.(Middleware))
	}
	return out
}

func checkComponent(reg Registration) error {
	if reg.Component == nil {
		return fmt.Errorf("%s %q: component is nil", reg.Kind, reg.Name)
	}

	var ok bool
	switch reg.Kind {
	case autoconfig.KindSessionFactory:
		_, ok = reg.Component.(ogm.SessionOpener)
	case autoconfig.KindTransactionCoordinator:
		_, ok = reg.Component.(ogm.TransactionCoordinator)
	case autoconfig.KindOpenSessionInViewInterceptor, autoconfig.KindOpenSessionInViewFilter:
		var mw Middleware
		mw, ok = reg.Component.(Middleware)
		ok = ok && mw != nil
	default:
		return fmt.Errorf("unknown component kind %q", reg.Kind)
	}
	if !ok {
		return fmt.Errorf("%s %q: unexpected component type %T", reg.Kind, reg.Name, reg.Component)
	}
	return nil
}
