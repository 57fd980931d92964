package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/veloro/possync/internal/services"
)

// NewRouter wires the HTTP surface: health, login, and the authenticated
// sync endpoints.
func NewRouter(authService *services.AuthService, syncService *services.SyncService) http.Handler {
	authHandler := NewAuthHandler(authService)
	syncHandler := NewSyncHandler(syncService)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	router.Post("/auth/login", authHandler.Login)

	router.Group(func(r chi.Router) {
		r.Use(Authenticator(authService))
		r.Post("/auth/logout", authHandler.Logout)
		r.Post("/sync/push", syncHandler.Push)
		r.Post("/sync/pull", syncHandler.Pull)
		r.Post("/sync/conflict-action", syncHandler.ConflictAction)
	})

	return router
}
