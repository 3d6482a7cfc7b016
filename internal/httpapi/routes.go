// Package httpapi exposes the spectator hub over HTTP and WebSocket.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"arena-battle/internal/spectate"
	"arena-battle/pkg/logger"
)

// SetupRoutes wires the spectator endpoints onto a chi router.
func SetupRoutes(h *spectate.Hub, log *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", Healthz)
	r.Get("/state", State(h))
	r.Get("/ws", Stream(h, log))
	return r
}
