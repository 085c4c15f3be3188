package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/L1oneSs/AuthTemplate/internal/security"
)

// Mounter mounts a group of routes. authMW guards endpoints that require an
// access token.
type Mounter interface {
	Routes(r chi.Router, authMW func(http.Handler) http.Handler)
}

// NewRouter builds the HTTP router: middleware stack, health endpoint, and
// every mounter's routes under /api/auth.
func NewRouter(log *zap.Logger, tokens *security.TokenProvider, sources TokenSources, corsOrigins []string, mounters ...Mounter) chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(RequestLogger(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	if len(corsOrigins) == 0 {
		corsOrigins = []string{"https://*", "http://*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	authMW := RequireAuth(tokens, sources)
	router.Route("/api/auth", func(r chi.Router) {
		for _, m := range mounters {
			m.Routes(r, authMW)
		}
	})

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		RespondError(w, http.StatusNotFound, "endpoint not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		RespondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return router
}
