// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/markb/bodylog/internal/auth"
	"github.com/markb/bodylog/internal/db"
	"github.com/markb/bodylog/internal/log"
	"github.com/markb/bodylog/internal/oauth"
	"github.com/markb/bodylog/internal/records"
)

type Server struct {
	db             *db.DB
	router         *chi.Mux
	authService    *auth.Service
	recordsHandler *records.Handler

	httpServer *http.Server
}

// Config holds server configuration.
type Config struct {
	JWTSecret        string
	AllowedRedirects []string
	Provider         oauth.Provider
}

func New(database *db.DB, cfg Config) *Server {
	authService := auth.NewService(database, cfg.JWTSecret)
	if cfg.Provider != nil {
		authService.SetProvider(cfg.Provider)
	}
	authService.SetAllowedRedirects(cfg.AllowedRedirects)

	s := &Server{
		db:             database,
		router:         chi.NewRouter(),
		authService:    authService,
		recordsHandler: records.NewHandler(records.NewStore(database)),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// CORS middleware for browser-based apps
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.router.Use(log.RequestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.SetHeader("Content-Type", "application/json"))

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/google/code", s.handleCodeExchange)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/me", s.handleMe)
			r.Post("/logout", s.handleLogout)
		})
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/records", s.recordsHandler.Create)
			r.Get("/records", s.recordsHandler.List)
			r.Put("/records/{id}", s.recordsHandler.Update)
			r.Delete("/records/{id}", s.recordsHandler.Delete)
		})

		// Leaderboard serves both guests and authenticated users; the
		// optional middleware only shapes identity redaction.
		r.Group(func(r chi.Router) {
			r.Use(s.optionalAuthMiddleware)
			r.Get("/leaderboard", s.recordsHandler.Leaderboard)
		})
	})
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// AuthService returns the underlying auth service, mainly for tests.
func (s *Server) AuthService() *auth.Service {
	return s.authService
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
