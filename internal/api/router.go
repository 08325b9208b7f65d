package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/dgorozz/notflix/internal/sessions"
	"github.com/dgorozz/notflix/internal/store"
)

// NewRouter creates the Chi router with all routes and middleware.
func NewRouter(
	db *store.DB,
	showStore *store.ShowStore,
	sessionSvc *sessions.Service,
	apiKey string,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (runs on ALL routes including /health)
	r.Use(CORS)
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery)

	healthH := NewHealthHandler(db)
	showH := NewShowHandler(showStore, sessionSvc)
	sessionH := NewSessionHandler(sessionSvc)

	r.Get("/health", healthH.Health)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(apiKey))

		r.Route("/shows", func(r chi.Router) {
			r.Get("/", showH.List)
			r.Post("/", showH.Create)
			r.Get("/{id}", showH.Get)
			r.Delete("/{id}", showH.Delete)
			r.Post("/{id}/start", showH.Start)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", sessionH.List)
			r.Get("/{id}", sessionH.Get)
			r.Delete("/{id}", sessionH.Delete)
			r.Post("/{id}/next", sessionH.Next)
			r.Post("/{id}/previous", sessionH.Previous)
			r.Post("/{id}/goto", sessionH.Goto)
			r.Post("/{id}/restart", sessionH.Restart)
		})
	})

	return r
}
