package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yshimura/magfeed/internal/media"
	"github.com/yshimura/magfeed/internal/metrics"
	"github.com/yshimura/magfeed/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	TenantName        string
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface

	// ペーパー
	PaperService PaperServiceInterface

	// コメント
	CommentService CommentServiceInterface

	// マガジン
	MagazineService MagazineServiceInterface

	// ユーザー
	UserService UserServiceInterface

	// アップロード
	MediaStore     MediaStoreInterface
	RemoteImporter media.RemoteImporterService
	Collector      metrics.MetricsCollector

	// ヘルスチェック用のDB疎通確認。nilの場合はプロセス生存のみ返す。
	HealthPinger HealthPinger
}

// HealthPinger はヘルスチェックで使用するDB疎通確認のインターフェース。
// *sql.DBが実装する。
type HealthPinger interface {
	PingContext(ctx context.Context) error
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → SecurityHeaders → Logging → Metrics → Recovery → AuthMiddleware → RateLimitMiddleware(General)
//
// パスポートルート（/passport/*）とメディア配信（/media/*）は認証ミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS ミドルウェアを最上位に適用（全ルートに効く）
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	if deps.Collector != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Collector))
	}
	r.Use(middleware.NewRecoveryMiddleware())

	authHandler := NewAuthHandler(deps.AuthService)
	paperHandler := NewPaperHandler(deps.PaperService)
	commentHandler := NewCommentHandler(deps.CommentService)
	magazineHandler := NewMagazineHandler(deps.MagazineService)
	userHandler := NewUserHandler(deps.UserService)
	uploadHandler := NewUploadHandler(deps.MediaStore, deps.RemoteImporter, deps.Collector)

	// --- 認証不要のルート ---

	// パスポート（認証）ルート
	r.Route("/passport", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
	})

	// メディア配信
	r.Get("/media/*", uploadHandler.ServeMedia)

	// ヘルスチェック（DB疎通確認を含む）
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if deps.HealthPinger != nil {
			if err := deps.HealthPinger.PingContext(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.Write([]byte(`{"status":"ok"}`))
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Route("/sns", func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier, deps.TenantName))
		r.Use(middleware.NewRateLimitMiddleware(deps.RateLimiter, middleware.LimiterClassGeneral))

		// ペーパー管理
		r.Route("/papers", func(r chi.Router) {
			r.Get("/", paperHandler.Feed)
			r.Post("/", paperHandler.CreatePaper)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", paperHandler.GetPaper)
				r.Patch("/", paperHandler.UpdatePaper)
				r.Delete("/", paperHandler.DeletePaper)
				r.Post("/submit", paperHandler.SubmitPaper)
				r.Put("/like", paperHandler.SetLike)
				r.Put("/star", paperHandler.SetStar)
				r.Put("/top", paperHandler.SetTop)
				r.Put("/hidden", paperHandler.SetHidden)
				r.Post("/play", paperHandler.RecordPlay)

				// GET/POST /sns/papers/{id}/comments - ペーパー直下のコメント
				r.Get("/comments", commentHandler.ListComments)
				r.Post("/comments", commentHandler.AddComment)
			})
		})

		// コメント管理
		r.Route("/comments/{id}", func(r chi.Router) {
			r.Get("/replies", commentHandler.ListReplies)
			r.Put("/like", commentHandler.SetLike)
			r.Delete("/", commentHandler.DeleteComment)
		})

		// マガジン管理
		r.Route("/magazines", func(r chi.Router) {
			r.Get("/recommended", magazineHandler.ListRecommended)
			r.Get("/subscribed", magazineHandler.ListSubscribed)
			r.Post("/", magazineHandler.CreateMagazine)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", magazineHandler.GetMagazine)
				r.Patch("/", magazineHandler.UpdateMagazine)
				r.Put("/subscribe", magazineHandler.SetSubscribed)
			})
		})

		// ユーザー管理
		r.Route("/users", func(r chi.Router) {
			r.Patch("/me", userHandler.UpdateProfile)
			r.Delete("/me", userHandler.Withdraw)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/profile", userHandler.GetProfile)
				r.Get("/magazines", magazineHandler.ListByAuthor)
				r.Put("/follow", userHandler.SetFollow)
			})
		})

		// アップロード（アップロード専用レート制限を追加）
		r.Route("/uploads", func(r chi.Router) {
			r.Use(middleware.NewRateLimitMiddleware(deps.RateLimiter, middleware.LimiterClassUpload))
			r.Post("/", uploadHandler.Upload)
			r.Post("/remote", uploadHandler.ImportRemote)
		})
	})

	return r
}
