package handler

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/remindcast/internal/metrics"
	"github.com/hitoshi/remindcast/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	DB           *sql.DB
	Runner       DeliveryRunner
	Logger       *slog.Logger
	Gatherer     prometheus.Gatherer
	TriggerToken string
	RateLimiter  *middleware.TriggerRateLimiter
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RecoveryMiddleware → LoggingMiddleware
//
// 配信トリガーにはさらにBearer認証とレート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	healthHandler := NewHealthHandler(deps.DB)
	pushHandler := NewPushHandler(deps.Runner)

	// --- 認証不要のルート ---
	r.Get("/health", healthHandler.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: BearerAuth → RateLimit
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewBearerAuthMiddleware(deps.TriggerToken))
		r.Use(deps.RateLimiter.Middleware())

		r.Post("/push/deliver-notifications", pushHandler.DeliverNotifications)
	})

	return r
}
