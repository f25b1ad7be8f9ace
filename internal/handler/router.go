package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/novel-roleplay/backend/internal/handler/novel"
	"github.com/zhouzirui/novel-roleplay/backend/internal/handler/roleplay"
	middlewarePkg "github.com/zhouzirui/novel-roleplay/backend/internal/middleware"
	roleplayService "github.com/zhouzirui/novel-roleplay/backend/internal/service/roleplay"
	"github.com/zhouzirui/novel-roleplay/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(catalog novel.Catalog, viewers *roleplayService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	novelHandler := novel.New(catalog)
	roleplayHandler := roleplay.New(viewers)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status":  "ok",
				"viewers": len(viewers.List()),
			})
		})

		// Catalog passthrough to the novel generator
		novelHandler.RegisterRoutes(api)

		// Roleplay viewers, SSE stream and websocket
		roleplayHandler.RegisterRoutes(api)
	})

	return r
}
