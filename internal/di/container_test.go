package di

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"graphboot/internal/autoconfig"
	"graphboot/internal/config"
	apperrors "graphboot/internal/errors"
	"graphboot/internal/ogm"
)

type fakeTx struct{ committed bool }

func (t *fakeTx) Run(context.Context, string, map[string]any) (neo4j.ResultWithContext, error) {
	return nil, nil
}
func (t *fakeTx) Commit(context.Context) error   { t.committed = true; return nil }
func (t *fakeTx) Rollback(context.Context) error { return nil }
func (t *fakeTx) Close(context.Context) error    { return nil }

type fakeSession struct{ closed int }

func (s *fakeSession) ExecuteRead(context.Context, neo4j.ManagedTransactionWork) (any, error) {
	return nil, nil
}
func (s *fakeSession) ExecuteWrite(context.Context, neo4j.ManagedTransactionWork) (any, error) {
	return nil, nil
}
func (s *fakeSession) BeginTransaction(context.Context) (ogm.Tx, error) { return &fakeTx{}, nil }
func (s *fakeSession) Close(context.Context) error                      { s.closed++; return nil }

type fakeDriver struct {
	sessions  []*fakeSession
	verifyErr error
	closed    int
}

func (d *fakeDriver) Session(context.Context, neo4j.AccessMode, string) ogm.Session {
	s := &fakeSession{}
	d.sessions = append(d.sessions, s)
	return s
}
func (d *fakeDriver) VerifyConnectivity(context.Context) error { return d.verifyErr }
func (d *fakeDriver) Close(context.Context) error              { d.closed++; return nil }

// userFactory stands in for a session factory supplied by the host.
type userFactory struct{ opened int }

func (f *userFactory) OpenSession(context.Context, neo4j.AccessMode) ogm.Session {
	f.opened++
	return &fakeSession{}
}

type userCoordinator struct{}

func (userCoordinator) Begin(context.Context) (ogm.Transaction, error) {
	return nil, errors.New("not implemented")
}

func testConfig(props config.PropertySet) *config.Config {
	cfg := config.DefaultConfig(config.Development)
	cfg.Neo4j = props
	cfg.Scan.BasePackages = []string{"example.com/app"}
	return cfg
}

func testOptions(cfg *config.Config, drv *fakeDriver) Options {
	drivers := ogm.NewDrivers()
	drivers.Register(ogm.BoltDriver, func(*ogm.DriverConfiguration) (ogm.Driver, error) { return drv, nil })

	catalog := ogm.NewEntityCatalog()
	catalog.Register("example.com/app/domain", "Person", "Movie")

	return Options{
		Config:  cfg,
		Drivers: drivers,
		Catalog: catalog,
		Logger:  zap.NewNop(),
	}
}

var boltProps = config.PropertySet{"uri": "bolt://localhost:7687", "username": "neo4j", "password": "secret"}

func TestInitializeContainer_Defaults(t *testing.T) {
	drv := &fakeDriver{}
	opts := testOptions(testConfig(boltProps), drv)
	var sessionBound bool
	opts.Routes = func(r chi.Router) {
		r.Get("/people", func(w http.ResponseWriter, r *http.Request) {
			_, sessionBound = ogm.SessionFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})
	}

	c, err := InitializeContainer(opts)
	require.NoError(t, err)

	t.Run("Should register exactly one of each component", func(t *testing.T) {
		assert.Len(t, c.Registry.All(autoconfig.KindSessionFactory), 1)
		assert.Len(t, c.Registry.All(autoconfig.KindTransactionCoordinator), 1)
		assert.Len(t, c.Registry.All(autoconfig.KindOpenSessionInViewInterceptor), 1)

		reg, err := c.Registry.Primary(autoconfig.KindSessionFactory)
		require.NoError(t, err)
		assert.True(t, reg.Primary)
		assert.True(t, reg.Default)
	})

	t.Run("Should resolve the driver configuration", func(t *testing.T) {
		require.NotNil(t, c.DriverConfig)
		assert.Equal(t, ogm.BoltDriver, c.DriverConfig.Selector)
		assert.Equal(t, &ogm.Credentials{Username: "neo4j", Password: "secret"}, c.DriverConfig.Credentials)

		factory := c.SessionFactory.(*ogm.SessionFactory)
		assert.Equal(t, []string{"example.com/app"}, factory.Packages())
		assert.Len(t, factory.Entities(), 2)
	})

	t.Run("Should bind a session to each request", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/people", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, sessionBound)
		require.NotEmpty(t, drv.sessions)
		assert.Equal(t, 1, drv.sessions[len(drv.sessions)-1].closed)
	})

	t.Run("Should bind the transaction manager to the session factory", func(t *testing.T) {
		before := len(drv.sessions)
		err := ogm.InTransaction(context.Background(), c.TransactionCoordinator, func(context.Context, ogm.Transaction) error {
			return nil
		})
		require.NoError(t, err)
		assert.Len(t, drv.sessions, before+1)
	})

	t.Run("Should serve health and metrics", func(t *testing.T) {
		for _, path := range []string{"/health", "/health/neo4j", "/metrics", "/autoconfig"} {
			rec := httptest.NewRecorder()
			c.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code, path)
		}

		drv.verifyErr = errors.New("connection refused")
		rec := httptest.NewRecorder()
		c.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/neo4j", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		drv.verifyErr = nil
	})

	t.Run("Should close the driver on shutdown", func(t *testing.T) {
		require.NoError(t, c.Shutdown(context.Background()))
		assert.Equal(t, 1, drv.closed)
	})
}

func TestInitializeContainer_UserOverrides(t *testing.T) {
	t.Run("Should keep a user transaction coordinator", func(t *testing.T) {
		opts := testOptions(testConfig(boltProps), &fakeDriver{})
		opts.Registry = NewRegistry()
		require.NoError(t, opts.Registry.RegisterTransactionCoordinator("custom", userCoordinator{}))

		c, err := InitializeContainer(opts)
		require.NoError(t, err)
		defer c.Shutdown(context.Background())

		regs := c.Registry.All(autoconfig.KindTransactionCoordinator)
		require.Len(t, regs, 1)
		assert.Equal(t, "custom", regs[0].Name)
		assert.IsType(t, userCoordinator{}, c.TransactionCoordinator)
		assert.False(t, c.Decisions.TransactionCoordinator.Register)
	})

	t.Run("Should bind the default transaction manager to a user session factory", func(t *testing.T) {
		factory := &userFactory{}
		// No uri: nothing needs resolving when the host supplies the factory.
		opts := testOptions(testConfig(config.PropertySet{}), &fakeDriver{})
		opts.Registry = NewRegistry()
		require.NoError(t, opts.Registry.RegisterSessionFactory("custom", factory, false))

		c, err := InitializeContainer(opts)
		require.NoError(t, err)
		defer c.Shutdown(context.Background())

		assert.Nil(t, c.DriverConfig)
		assert.Same(t, factory, c.SessionFactory)
		assert.Len(t, c.Registry.All(autoconfig.KindSessionFactory), 1)

		_, err = c.TransactionCoordinator.Begin(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, factory.opened)
	})
}

func TestInitializeContainer_Interceptor(t *testing.T) {
	t.Run("Should not register when open-in-view is false", func(t *testing.T) {
		props := boltProps.Merge(config.PropertySet{"open-in-view": "false"})
		c, err := InitializeContainer(testOptions(testConfig(props), &fakeDriver{}))
		require.NoError(t, err)
		defer c.Shutdown(context.Background())

		assert.False(t, c.Registry.Has(autoconfig.KindOpenSessionInViewInterceptor))
		assert.Equal(t, autoconfig.ReasonOpenInViewDisabled, c.Decisions.Interceptor.Reason)
	})

	t.Run("Should not register when a filter exists and wrap the router with it", func(t *testing.T) {
		opts := testOptions(testConfig(boltProps), &fakeDriver{})
		opts.Registry = NewRegistry()
		require.NoError(t, opts.Registry.RegisterFilter("filter", func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Filter", "applied")
				next.ServeHTTP(w, r)
			})
		}))

		c, err := InitializeContainer(opts)
		require.NoError(t, err)
		defer c.Shutdown(context.Background())

		assert.False(t, c.Registry.Has(autoconfig.KindOpenSessionInViewInterceptor))

		rec := httptest.NewRecorder()
		c.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, "applied", rec.Header().Get("X-Filter"))
	})

	t.Run("Should not build a router without a web context", func(t *testing.T) {
		cfg := testConfig(boltProps)
		cfg.Web.Enabled = false

		c, err := InitializeContainer(testOptions(cfg, &fakeDriver{}))
		require.NoError(t, err)
		defer c.Shutdown(context.Background())

		assert.Nil(t, c.Router)
		assert.False(t, c.Registry.Has(autoconfig.KindOpenSessionInViewInterceptor))
		assert.True(t, c.Registry.Has(autoconfig.KindSessionFactory))
	})
}

func TestInitializeContainer_Faults(t *testing.T) {
	t.Run("Should fail on a missing uri", func(t *testing.T) {
		_, err := InitializeContainer(testOptions(testConfig(config.PropertySet{"username": "neo4j"}), &fakeDriver{}))

		require.Error(t, err)
		assert.True(t, apperrors.IsConfigurationFault(err))
		assert.Equal(t, config.PropertyURI, apperrors.FieldOf(err))
	})

	t.Run("Should fail on a malformed open-in-view", func(t *testing.T) {
		props := boltProps.Merge(config.PropertySet{"open-in-view": "sometimes"})
		_, err := InitializeContainer(testOptions(testConfig(props), &fakeDriver{}))

		assert.True(t, apperrors.IsConfigurationFault(err))
	})

	t.Run("Should fail when no driver serves the uri", func(t *testing.T) {
		_, err := InitializeContainer(testOptions(testConfig(config.PropertySet{"uri": "http://db.example:7474"}), &fakeDriver{}))

		assert.ErrorIs(t, err, ogm.ErrUnsupportedDriver)
	})

	t.Run("Should skip everything without the core capabilities", func(t *testing.T) {
		opts := testOptions(testConfig(config.PropertySet{}), &fakeDriver{})
		opts.Capabilities = &autoconfig.Capabilities{WebPipeline: true}

		c, err := InitializeContainer(opts)
		require.NoError(t, err)
		defer c.Shutdown(context.Background())

		for _, kind := range []autoconfig.Kind{autoconfig.KindSessionFactory, autoconfig.KindTransactionCoordinator, autoconfig.KindOpenSessionInViewInterceptor} {
			assert.False(t, c.Registry.Has(kind), kind)
		}
	})

	t.Run("Should require a configuration", func(t *testing.T) {
		_, err := InitializeContainer(Options{})
		assert.Error(t, err)
	})
}
