package httpapi

import (
	"net/http"

	"github.com/DoyleJ11/dice-table/internal/session"
	"github.com/DoyleJ11/dice-table/internal/ws"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func SetupRoutes(co *session.Coordinator, staticDir string, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(co, log))
	// Client bundle. The page and its assets are plain files; the realtime
	// protocol all goes over /ws.
	r.Handle("/*", http.FileServer(http.Dir(staticDir)))
	return r
}
