// Package api provides the HTTP API server and handlers for the points bot.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pointsbot/pointsbot-server/internal/audit"
	"github.com/pointsbot/pointsbot-server/internal/auth"
	"github.com/pointsbot/pointsbot-server/internal/http/response"
	"github.com/pointsbot/pointsbot-server/internal/ratelimit"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

// Version is reported in the OpenAPI document.
const Version = "1.0.0"

// Token exchange is limited per client IP.
const (
	authRatePerMinute = 10
	authBurst         = 5
)

// Options holds the server's tunables.
type Options struct {
	AllowedOrigins []string
	// Events serves the live audit stream; nil leaves the route unmounted.
	Events http.Handler
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store           store.Ledger
	services        *Services
	tokens          *auth.TokenService
	operators       auth.Operators
	journal         audit.Reader
	events          http.Handler
	router          *chi.Mux
	api             huma.API
	logger          *slog.Logger
	authRateLimiter *ratelimit.KeyedRateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	ledger store.Ledger,
	services *Services,
	tokens *auth.TokenService,
	operators auth.Operators,
	journal audit.Reader,
	opts Options,
	logger *slog.Logger,
) *Server {
	s := &Server{
		store:           ledger,
		services:        services,
		tokens:          tokens,
		operators:       operators,
		journal:         journal,
		events:          opts.Events,
		router:          chi.NewRouter(),
		logger:          logger,
		authRateLimiter: NewRateLimiter(authRatePerMinute, time.Minute, authBurst),
	}

	// chi requires every middleware before the first route, and huma
	// registers its docs routes as soon as the API is created.
	s.setupMiddleware(opts)

	humaConfig := huma.DefaultConfig("Points Bot API", Version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	s.authRateLimiter.Stop()
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(recoverer(s.logger))

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Actor-ID", "X-Request-ID"},
		MaxAge:         300,
	}))

	s.router.Use(RateLimitMiddleware(s.authRateLimiter, s.logger, "/api/v1/auth/"))
	s.router.Use(authMiddleware(s.tokens))

	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "route not found", s.logger)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w, s.logger)
	})
}

// registerRoutes registers every huma operation.
func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerUserRoutes()
	s.registerPlatformRoutes()
	s.registerAdminKeyRoutes()
	s.registerAdminPlatformRoutes()
	s.registerAdminUserRoutes()
	s.registerAdminRoutes()
	s.registerAdminSettingsRoutes()
	s.registerReportRoutes()
	s.registerAuditRoutes()
	s.registerEventStream()
}
