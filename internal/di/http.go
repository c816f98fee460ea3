package di

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"graphboot/internal/api"
	"graphboot/internal/autoconfig"
	"graphboot/internal/middleware"
	"graphboot/internal/observability"
)

const neo4jHealthTimeout = 5 * time.Second

type connectivityChecker interface {
	VerifyConnectivity(ctx context.Context) error
}

// buildRouter wires the global middleware, the registered interceptors and
// the built-in routes. Registered filters wrap the result, outermost first.
func (c *Container) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(c.Logger))
	if c.Config.Metrics.Enabled {
		r.Use(observability.MetricsMiddleware(c.Metrics))
	}
	if c.Config.Tracing.Enabled {
		r.Use(observability.TracingMiddleware(c.Config.Tracing.ServiceName))
	}
	r.Use(middleware.Timeout(c.Config.Server.RequestTimeout, c.Logger))

	for _, mw := range c.Registry.Middleware(autoconfig.KindOpenSessionInViewInterceptor) {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.With(middleware.CircuitBreaker(middleware.DefaultCircuitBreakerConfig("neo4j-health"), c.Logger)).
		Get("/health/neo4j", c.neo4jHealth)
	r.Get("/autoconfig", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, c.Decisions.All())
	})
	if c.Config.Metrics.Enabled {
		r.Handle(c.Config.Metrics.Path, c.Metrics.Handler())
	}

	if c.routes != nil {
		c.routes(r)
	}

	var h http.Handler = r
	filters := c.Registry.Middleware(autoconfig.KindOpenSessionInViewFilter)
	for i := len(filters) - 1; i >= 0; i-- {
		h = filters[i](h)
	}
	return h
}

func (c *Container) neo4jHealth(w http.ResponseWriter, r *http.Request) {
	checker, ok := c.SessionFactory.(connectivityChecker)
	if !ok {
		api.ErrorWithRequestID(w, http.StatusNotFound, "no session factory with connectivity checks", middleware.GetRequestIDFromRequest(r))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), neo4jHealthTimeout)
	defer cancel()

	if err := checker.VerifyConnectivity(ctx); err != nil {
		api.ErrorWithRequestID(w, http.StatusServiceUnavailable, err.Error(), middleware.GetRequestIDFromRequest(r))
		return
	}
	api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
}
