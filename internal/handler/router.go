package handler

import (
	"embed"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cogtrail/backend/internal/handler/mcpsse"
	"github.com/cogtrail/backend/internal/handler/mcpws"
	middlewarePkg "github.com/cogtrail/backend/internal/middleware"
	"github.com/cogtrail/backend/internal/service/session"
	"github.com/cogtrail/backend/pkg/utils"
)

//go:embed web/index.html
var webFS embed.FS

// NewRouter wires HTTP routes to the protocol transports.
func NewRouter(sseHandler *mcpsse.Handler, wsHandler *mcpws.Handler, registry *session.Registry, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(allowedOrigins))

	r.Get("/", handleIndex)
	r.Get("/healthz", handleHealth(registry))

	sseHandler.RegisterRoutes(r)
	wsHandler.RegisterRoutes(r)

	return r
}

// handleIndex serves the embedded manual test page.
func handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := webFS.ReadFile("web/index.html")
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "test page unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

// handleHealth reports liveness plus the live session count.
func handleHealth(registry *session.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": registry.Len(),
		})
	}
}
