package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yshimura/magfeed/internal/auth"
	"github.com/yshimura/magfeed/internal/comment"
	"github.com/yshimura/magfeed/internal/config"
	"github.com/yshimura/magfeed/internal/database"
	"github.com/yshimura/magfeed/internal/handler"
	"github.com/yshimura/magfeed/internal/logger"
	"github.com/yshimura/magfeed/internal/magazine"
	"github.com/yshimura/magfeed/internal/media"
	"github.com/yshimura/magfeed/internal/metrics"
	"github.com/yshimura/magfeed/internal/middleware"
	"github.com/yshimura/magfeed/internal/paper"
	"github.com/yshimura/magfeed/internal/repository"
	"github.com/yshimura/magfeed/internal/security"
	"github.com/yshimura/magfeed/internal/user"
	"github.com/yshimura/magfeed/internal/worker/cleanup"
	"github.com/yshimura/magfeed/internal/worker/reconcile"
	"github.com/yshimura/magfeed/internal/worker/review"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	paperRepo := repository.NewPostgresPaperRepo(db)
	magazineRepo := repository.NewPostgresMagazineRepo(db)
	commentRepo := repository.NewPostgresCommentRepo(db)
	followRepo := repository.NewPostgresFollowRepo(db)

	// 3. セキュリティサービスとメトリクスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. メディアストアの初期化
	mediaStore, err := media.NewStore(cfg.MediaDir, cfg.VideoMaxSize, cfg.ImageMaxSize)
	if err != nil {
		return fmt.Errorf("failed to init media store: %w", err)
	}
	remoteImporter := media.NewRemoteImporter(mediaStore, ssrfGuard, cfg.RemoteFetchTimeout)

	// 5. ドメインサービスの初期化
	authService := auth.NewService(userRepo, sessionRepo, auth.ServiceConfig{
		TokenSecret: cfg.TokenSecret,
		TokenTTL:    cfg.TokenTTL,
	})
	paperService := paper.NewService(paperRepo, userRepo, magazineRepo, sanitizer, collector, cfg.FeedPageSize)
	magazineService := magazine.NewService(magazineRepo, paperRepo, userRepo, collector, cfg.FeedPageSize)
	commentService := comment.NewService(commentRepo, paperRepo, userRepo, sanitizer, collector, cfg.FeedPageSize)
	userService := user.NewService(userRepo, sessionRepo, followRepo, collector)

	// 6. レートリミッターの構成
	// configのレート値はreq/min単位なのでreq/secに変換する
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRPS = float64(cfg.RateLimitGeneral) / 60
	rateLimiterCfg.UploadRPS = float64(cfg.RateLimitUpload) / 60
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Close()

	// 7. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		TokenVerifier:     authService,
		TenantName:        cfg.TenantName,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),

		AuthService:     authService,
		PaperService:    paperService,
		CommentService:  commentService,
		MagazineService: magazineService,
		UserService:     userService,

		MediaStore:     mediaStore,
		RemoteImporter: remoteImporter,
		Collector:      collector,

		HealthPinger: db,
	})

	// /metrics はAPIルーターの外に配置する（認証・レート制限の対象外）
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.SetupMetricsRoute(registry))
	mux.Handle("/", router)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 審査スケジューラ・カウンタ再集計ジョブ・クリーンアップジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリとメトリクスの初期化
	paperRepo := repository.NewPostgresPaperRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. 審査スケジューラの初期化
	reviewer := review.NewRuleReviewer(cfg.ReviewBannedWords)
	scheduler := review.NewScheduler(
		paperRepo, reviewer, collector, slog.Default(), cfg.ReviewMaxConcurrent,
	)

	// 4. カウンタ再集計ジョブの初期化
	reconcileJob := reconcile.NewJob(
		paperRepo, collector, slog.Default(), cfg.ReconcileMaxPerCycle,
	)

	// 5. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewJob(db, sessionRepo, slog.Default())
	cleanupJob.RetentionDays = cfg.CleanupRetentionDays

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("review_interval", cfg.ReviewInterval),
		slog.Int("review_max_concurrent", cfg.ReviewMaxConcurrent),
		slog.Duration("reconcile_interval", cfg.ReconcileInterval),
	)

	// 再集計ジョブとクリーンアップジョブをバックグラウンドで起動
	go reconcileJob.Start(ctx, cfg.ReconcileInterval)
	go cleanupJob.Start(ctx, cfg.CleanupInterval)

	// 審査スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.ReviewInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("schema_version", uint64(version)),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
