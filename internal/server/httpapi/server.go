// Package httpapi exposes the microblog over a JSON HTTP API: signup and
// sessions, the user directory, the follow graph, microposts and the feed,
// plus avatar upload URLs and Prometheus metrics.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"microblog/internal/logging"
	"microblog/internal/server/config"
	"microblog/internal/server/services"
)

// HTTPServer serves the public JSON API.
type HTTPServer struct {
	address       string
	logger        logging.Logger
	users         *services.UserService
	microposts    *services.MicropostService
	relationships *services.RelationshipService
	avatars       *services.AvatarService
	jwtSecret     []byte
	store         *sessions.CookieStore
	metrics       *Metrics
}

// NewHTTPServer wires services, the remember-me cookie store and metrics into
// a ready-to-run server.
func NewHTTPServer(cfg *config.Config, l logging.Logger,
	us *services.UserService, ms *services.MicropostService,
	rs *services.RelationshipService, as *services.AvatarService) (*HTTPServer, error) {

	store := sessions.NewCookieStore([]byte(cfg.CookieKey))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionTokenValidityDuration / time.Second),
		HttpOnly: true,
	}

	return &HTTPServer{
		address:       cfg.EndpointAddr,
		logger:        l.With("module", "http_server"),
		users:         us,
		microposts:    ms,
		relationships: rs,
		avatars:       as,
		jwtSecret:     []byte(cfg.SecretKey),
		store:         store,
		metrics:       InitMetrics(),
	}, nil
}

func (s *HTTPServer) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/users", s.handleSignup).Methods(http.MethodPost)
	api.HandleFunc("/users", s.handleListUsers).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", s.handleGetUser).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", s.withAuth(s.handleUpdateUser)).Methods(http.MethodPut)
	api.HandleFunc("/users/{id}", s.withAuth(s.handleDeleteUser)).Methods(http.MethodDelete)

	api.HandleFunc("/users/{id}/microposts", s.handleUserMicroposts).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/following", s.handleFollowing).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/followers", s.handleFollowers).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/follow", s.withAuth(s.handleFollow)).Methods(http.MethodPost)
	api.HandleFunc("/users/{id}/follow", s.withAuth(s.handleUnfollow)).Methods(http.MethodDelete)
	api.HandleFunc("/users/{id}/avatar", s.handleGetAvatar).Methods(http.MethodGet)

	api.HandleFunc("/sessions", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/sessions/refresh", s.handleRefresh).Methods(http.MethodPost)
	api.HandleFunc("/sessions", s.handleLogout).Methods(http.MethodDelete)

	api.HandleFunc("/microposts", s.withAuth(s.handleCreateMicropost)).Methods(http.MethodPost)
	api.HandleFunc("/microposts/{id}", s.withAuth(s.handleDeleteMicropost)).Methods(http.MethodDelete)
	api.HandleFunc("/feed", s.withAuth(s.handleFeed)).Methods(http.MethodGet)

	api.HandleFunc("/avatars/upload-url", s.withAuth(s.handleAvatarUploadURL)).Methods(http.MethodPost)
	api.HandleFunc("/avatars/confirm", s.withAuth(s.handleAvatarConfirm)).Methods(http.MethodPost)

	return r
}

// Run starts the server and blocks until ctx is cancelled, then shuts down
// gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:    s.address,
		Handler: s.router(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "Shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}
