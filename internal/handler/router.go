package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/lifelog/internal/metrics"
	"github.com/hitoshi/lifelog/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ブログ
	BlogService BlogServiceInterface

	// ライフログミラー
	LifelogHandler *LifelogHandler

	// メトリクス
	Collector metrics.MetricsCollector
	Gatherer  prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS
//
// 管理ルート（/api/admin/*）はlogin/verifyを除きセッションミドルウェアで保護する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.Collector, deps.AuthConfig)
	blogHandler := NewBlogHandler(deps.BlogService)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler(deps.Gatherer))

	// 公開ブログ
	r.Get("/api/categories", blogHandler.ListCategories)
	r.Get("/api/posts", blogHandler.ListPosts)
	r.Get("/api/posts/{id}", blogHandler.GetPost)

	// ライフログミラー（閲覧時に同期ゲートを評価）
	r.Get("/api/reading", deps.LifelogHandler.ListReading)
	r.Get("/api/films", deps.LifelogHandler.ListFilms)

	// 管理者ログインフロー
	r.Post("/api/admin/login", authHandler.Login)
	r.Post("/api/admin/verify", authHandler.Verify)

	// --- セッション認証が必要な管理ルート ---

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAdminSessionMiddleware(deps.SessionFinder))

		r.Post("/api/admin/logout", authHandler.Logout)
		r.Get("/api/admin/overview", blogHandler.Overview)
		r.Post("/api/admin/preview", blogHandler.Preview)

		r.Route("/api/admin/categories", func(r chi.Router) {
			r.Post("/", blogHandler.CreateCategory)
			r.Put("/{id}", blogHandler.UpdateCategory)
			r.Delete("/{id}", blogHandler.DeleteCategory)
		})

		r.Route("/api/admin/posts", func(r chi.Router) {
			r.Post("/", blogHandler.CreatePost)
			r.Put("/{id}", blogHandler.UpdatePost)
			r.Delete("/{id}", blogHandler.DeletePost)
		})
	})

	return r
}
