package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/exercise-engine/internal/config"
	"github.com/terra-clan/exercise-engine/internal/grading"
	"github.com/terra-clan/exercise-engine/internal/models"
	"github.com/terra-clan/exercise-engine/internal/services"
	"github.com/terra-clan/exercise-engine/internal/storage"
)

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	grader         grading.Service
	registry       *services.Registry
	authMiddleware *AuthMiddleware
	authEnabled    bool
}

// NewServer creates a new API server. A nil registry reports ready
// whenever the grader's store answers.
func NewServer(
	cfg config.ServerConfig,
	auth config.AuthConfig,
	grader grading.Service,
	registry *services.Registry,
	repo storage.Repository,
) *Server {
	s := &Server{
		config:         cfg,
		grader:         grader,
		registry:       registry,
		authMiddleware: NewAuthMiddleware(repo, auth.Clients...),
		authEnabled:    auth.Enabled,
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	timeout := s.config.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		if s.authEnabled {
			r.Use(s.authMiddleware.Authenticate)
		}

		r.Route("/exercises", func(r chi.Router) {
			r.With(middleware.Timeout(timeout), s.require(models.PermExercisesRead)).Get("/", s.handleListExercises)

			r.Route("/{slug}", func(r chi.Router) {
				r.With(middleware.Timeout(timeout), s.require(models.PermExercisesRead)).Get("/", s.handleGetExercise)
				r.With(middleware.Timeout(timeout), s.require(models.PermAttemptsWrite)).Post("/verify", s.handleVerify)
				r.With(middleware.Timeout(timeout), s.require(models.PermAttemptsRead)).Get("/attempts", s.handleListAttempts)
				// Long-lived; no request timeout
				r.With(s.require(models.PermExercisesRead)).Get("/live", s.handleLiveVerify)
			})
		})

		r.With(middleware.Timeout(timeout), s.require(models.PermAttemptsRead)).Get("/attempts/{id}", s.handleGetAttempt)
	})

	s.router = r
}

// require checks a permission when authentication is enabled
func (s *Server) require(permission string) func(http.Handler) http.Handler {
	if !s.authEnabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return s.authMiddleware.RequirePermission(permission)
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
