// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/docgate/internal/auth"
	"github.com/hitoshi/docgate/internal/metrics"
	"github.com/hitoshi/docgate/internal/middleware"
)

// ConnectorSource はルーターが必要とするコネクタアクセスのインターフェース。
// connector.Registryが実装する。
type ConnectorSource interface {
	ConnectorResolver
	ConnectorLister
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger     *slog.Logger
	Connectors ConnectorSource

	// 認証
	AuthBackend auth.Backend
	AuthMetrics middleware.AuthMetrics

	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Metrics           middleware.RequestMetrics

	// Prometheusスクレイプ用
	Gatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → RecoveryMiddleware → LoggingMiddleware → MetricsMiddleware
//	→ AuthMiddleware → RateLimitMiddleware（認証必須グループのみ）
//
// 死活監視（/healthz、/readiness）と/metricsは認証チェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}

	healthHandler := NewHealthHandler(deps.Connectors)
	principalHandler := NewPrincipalHandler()
	documentHandler := NewDocumentHandler(deps.Connectors, deps.Logger)

	// --- 認証不要のルート ---

	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readiness", healthHandler.Readiness)

	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.AuthBackend, deps.AuthMetrics))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/me", principalHandler.Me)

			// ドキュメント管理
			r.Route("/documents", func(r chi.Router) {
				r.Post("/", documentHandler.CreateDocument)
				r.Get("/search", documentHandler.SearchDocuments)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", documentHandler.GetDocument)
					r.Get("/content", documentHandler.GetDocumentContent)
				})
			})
		})
	})

	return r
}
