package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/horizons-db/archive-backend/config"
	"github.com/horizons-db/archive-backend/editor"
	"github.com/horizons-db/archive-backend/models"
	"github.com/horizons-db/archive-backend/relations"
	"github.com/horizons-db/archive-backend/services"
	"github.com/horizons-db/archive-backend/storage"
	"github.com/horizons-db/archive-backend/taxonomy"
)

// Store is the record store behind every route. database.Store and
// memstore.Store both satisfy it.
type Store interface {
	taxonomy.Store
	relations.Store
	editor.Store
	services.ProjectStore
	services.InviteStore
	ListPeople(ctx context.Context) ([]models.Person, error)
	FindPersonByUserID(ctx context.Context, userID uuid.UUID) (*models.Person, error)
}

type Server struct {
	*http.Server
	startupTime time.Time
}

func NewServer(settings config.Settings, store Store, objects storage.ObjectStore, opts ...Option) (Server, error) {
	address := fmt.Sprintf("0.0.0.0:%s", settings.Port) // Bind to 0.0.0.0 for external access

	// Capture startup time
	startupTime := time.Now()

	opts = append([]Option{withStartupTime(startupTime)}, opts...)
	router := newRouter(settings, store, objects, opts...)

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  settings.ReadTimeout,  // Timeout for reading the entire request
		WriteTimeout: settings.WriteTimeout, // Timeout for writing the response
		IdleTimeout:  settings.IdleTimeout,  // Timeout for idle connections
	}

	return Server{server, startupTime}, nil
}

type router struct {
	settings    config.Settings
	mailer      services.Mailer
	prepare     func([]byte) ([]byte, string, error)
	now         func() time.Time
	startupTime time.Time
}

type Option func(*router)

// WithMailer sets how invite codes are delivered.
func WithMailer(m services.Mailer) Option {
	return func(r *router) {
		r.mailer = m
	}
}

// WithImagePreparer re-encodes images before they are stored.
func WithImagePreparer(f func([]byte) ([]byte, string, error)) Option {
	return func(r *router) {
		r.prepare = f
	}
}

// WithClock replaces time.Now for services and edit sessions.
func WithClock(now func() time.Time) Option {
	return func(r *router) {
		r.now = now
	}
}

func withStartupTime(startupTime time.Time) Option {
	return func(r *router) {
		r.startupTime = startupTime
	}
}

func newRouter(settings config.Settings, store Store, objects storage.ObjectStore, opts ...Option) *chi.Mux {
	router := router{settings: settings, now: time.Now}
	for _, opt := range opts {
		opt(&router)
	}
	if router.mailer == nil {
		router.mailer = services.LogMailer{Logger: log.With().Str("component", "mailer").Logger()}
	}

	chiRouter := chi.NewRouter()
	chiRouter.Use(LogInternalServerErrors)

	// Initialize all handlers
	handlers := initializeHandlers(router, store, objects)

	// Initialize auth middleware
	authMiddleware := newAuthMiddleware(settings.JWTSecret, store)

	// Apply CORS middleware
	chiRouter.Use(CORSCheckMiddleware(settings.AcceptedOrigins))
	chiRouter.Use(corsMiddleware(settings.AcceptedOrigins))
	if settings.Env == config.Dev {
		chiRouter.Use(ColoredHTTPLoggingMiddleware)
	} else {
		chiRouter.Use(JSONHTTPLoggingMiddleware)
	}

	setupPublicRoutes(chiRouter, handlers, router.startupTime)
	setupMemberRoutes(chiRouter, handlers, authMiddleware)
	setupAdminRoutes(chiRouter, handlers, authMiddleware)

	return chiRouter
}

func (s Server) Start(errChannel chan<- error) {
	log.Info().Msgf("Server started on: %s", s.Addr)
	errChannel <- s.ListenAndServe()
}

func (s Server) ShutdownGracefully(timeout time.Duration) {
	log.Info().Msg("Gracefully shutting down...")

	gracefullCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(gracefullCtx); err != nil {
		log.Error().Msgf("Error shutting down the server: %v", err)
	} else {
		log.Info().Msg("HttpServer gracefully shut down")
	}
}
