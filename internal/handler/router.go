package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/workboard/internal/metrics"
	"github.com/hitoshi/workboard/internal/middleware"
	"github.com/hitoshi/workboard/internal/repository"
	"github.com/hitoshi/workboard/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger        *slog.Logger
	HealthChecker HealthChecker
	RateLimiter   *middleware.RateLimiter

	Metrics        metrics.MetricsCollector
	MetricsHandler http.Handler

	Tags      repository.TagRepository
	Users     repository.UserRepository
	WorkItems repository.WorkItemRepository
	Sanitizer security.DescriptionSanitizer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → Recovery → RequestID → Logging → Metrics → RateLimit（/api/*のみ）
//
// /health と /metrics はレート制限の対象外とする。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusNotFound, notFoundRoute())
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusMethodNotAllowed, methodNotAllowed())
	})

	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	tagHandler := NewTagHandler(deps.Tags, deps.Metrics)
	userHandler := NewUserHandler(deps.Users, deps.Metrics)
	workItemHandler := NewWorkItemHandler(deps.WorkItems, deps.Sanitizer, deps.Metrics)

	r.Route("/api", func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}

		r.Route("/tags", func(r chi.Router) {
			r.Post("/", tagHandler.Create)
			r.Get("/", tagHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", tagHandler.Get)
				r.Put("/", tagHandler.Update)
				r.Delete("/", tagHandler.Delete)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", userHandler.Create)
			r.Get("/", userHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", userHandler.Get)
				r.Put("/", userHandler.Update)
				r.Delete("/", userHandler.Delete)
			})
		})

		r.Route("/workitems", func(r chi.Router) {
			r.Post("/", workItemHandler.Create)
			r.Get("/", workItemHandler.List)
			// /removed は /{id} より先に登録する
			r.Get("/removed", workItemHandler.ListRemoved)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", workItemHandler.Get)
				r.Put("/", workItemHandler.Update)
				r.Delete("/", workItemHandler.Delete)
			})
		})
	})

	return r
}
