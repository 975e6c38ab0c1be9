// Package api exposes the access control core over HTTP: the
// authorization check endpoint queried by frontends for every request,
// and the admin API managing users, locations and permissions.
package api

import (
	"net/http"
	"net/http/pprof"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/yarko/wwwhisper/internal/authz"
	"github.com/yarko/wwwhisper/internal/cache"
	"github.com/yarko/wwwhisper/internal/config"
	"github.com/yarko/wwwhisper/internal/metrics"
	"github.com/yarko/wwwhisper/internal/middleware"
	"github.com/yarko/wwwhisper/internal/store"
)

// Server routes authorization checks and admin operations to the
// access control core.
type Server struct {
	config      *config.Config
	store       store.Store
	users       *authz.Users
	locations   *authz.Locations
	permissions *authz.Permissions
	authorizer  *authz.Authorizer
	router      *mux.Router
	metrics     *metrics.Metrics
	repr        representer
}

// NewServer wires the access control core over the configured store.
func NewServer(cfg *config.Config) (*Server, error) {
	var backing store.Store
	if cfg.Database.Enabled {
		db, err := store.NewConnection(store.Config{
			Driver:           cfg.Database.Driver,
			ConnectionString: cfg.Database.ConnectionString,
			MaxOpenConns:     cfg.Database.MaxOpenConns,
			MaxIdleConns:     cfg.Database.MaxIdleConns,
			ConnMaxLifetime:  cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		if err := db.InitSchema(); err != nil {
			return nil, err
		}
		backing = db
		logrus.WithField("driver", cfg.Database.Driver).Info("Database store initialized")
	} else {
		backing = store.NewMemory()
		logrus.Warn("Database disabled, using in-memory store; state is lost on restart")
	}

	// Authorization checks dominate traffic; serve them from cache.
	cached := cache.New(backing)

	s := &Server{
		config:      cfg,
		store:       cached,
		users:       authz.NewUsers(cached),
		locations:   authz.NewLocations(cached),
		permissions: authz.NewPermissions(cached),
		router:      mux.NewRouter(),
		metrics:     metrics.NewMetrics("wwwhisper"),
		repr:        representer{siteURL: cfg.Site.URL},
	}
	s.authorizer = authz.NewAuthorizer(s.locations, s.permissions)

	s.setupRoutes()

	s.router.Use(s.metrics.Middleware())
	if cfg.Sentry.Enabled {
		s.router.Use(middleware.SentryRecoveryMiddleware())
		s.router.Use(middleware.SentryMiddleware(false, cfg.Auth.IdentityHeader))
		logrus.Info("Sentry middleware enabled")
	}

	return s, nil
}

// ServeHTTP handles incoming requests with security headers applied.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.setSecurityHeaders(w)
	s.router.ServeHTTP(w, r)
}

func (s *Server) setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Cache-Control", "no-store")
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.healthCheck).Methods("GET", "HEAD")
	s.router.HandleFunc("/ready", s.readinessCheck).Methods("GET", "HEAD")
	if s.config.Monitoring.MetricsEnabled {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
		s.router.Handle("/stats", s.metrics.StatsHandler()).Methods("GET")
	}
	if s.config.Monitoring.PprofEnabled {
		logrus.Info("pprof profiling endpoints enabled at /debug/pprof/")
		s.router.HandleFunc("/debug/pprof/", pprof.Index)
		s.router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		s.router.HandleFunc("/debug/pprof/profile", pprof.Profile)
		s.router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		s.router.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	// Authorization check queried by the frontend for every request.
	auth := s.router.PathPrefix("/auth/api").Subrouter()
	auth.Use(middleware.Identity(s.config.Auth.IdentityHeader))
	auth.HandleFunc("/is-authorized", s.isAuthorized).Methods("GET")

	// Admin API.
	admin := s.router.PathPrefix("/admin/api").Subrouter()
	admin.Use(middleware.AdminAuth(s.config.Admin.TokenHash))
	admin.HandleFunc("/users", s.createUser).Methods("POST")
	admin.HandleFunc("/users", s.listUsers).Methods("GET")
	admin.HandleFunc("/users/{uuid}", s.getUser).Methods("GET")
	admin.HandleFunc("/users/{uuid}", s.deleteUser).Methods("DELETE")
	admin.HandleFunc("/locations", s.createLocation).Methods("POST")
	admin.HandleFunc("/locations", s.listLocations).Methods("GET")
	admin.HandleFunc("/locations/{uuid}", s.getLocation).Methods("GET")
	admin.HandleFunc("/locations/{uuid}", s.deleteLocation).Methods("DELETE")
	admin.HandleFunc("/locations/{uuid}/open-access", s.setOpenAccess).Methods("PUT")
	admin.HandleFunc("/locations/{uuid}/allowed-users", s.listAllowedUsers).Methods("GET")
	admin.HandleFunc("/locations/{uuid}/allowed-users/{user}", s.getPermission).Methods("GET")
	admin.HandleFunc("/locations/{uuid}/allowed-users/{user}", s.grantPermission).Methods("PUT")
	admin.HandleFunc("/locations/{uuid}/allowed-users/{user}", s.revokePermission).Methods("DELETE")
}

// Close releases the underlying store resources.
func (s *Server) Close() error {
	return s.store.Close()
}

func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) readinessCheck(w http.ResponseWriter, _ *http.Request) {
	if _, err := s.store.Locations(); err != nil {
		logrus.WithError(err).Error("Readiness check failed")
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
