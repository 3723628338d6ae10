// Package app はアプリケーションの初期化と起動を担当する。
// サブコマンド（serve / worker / migrate / healthcheck）の分岐と、
// 各モードでの依存関係のワイヤリングを行う。
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

	"github.com/hitoshi/lifelog/internal/auth"
	"github.com/hitoshi/lifelog/internal/blog"
	"github.com/hitoshi/lifelog/internal/config"
	"github.com/hitoshi/lifelog/internal/database"
	"github.com/hitoshi/lifelog/internal/filmdiary"
	"github.com/hitoshi/lifelog/internal/handler"
	"github.com/hitoshi/lifelog/internal/logger"
	"github.com/hitoshi/lifelog/internal/mail"
	"github.com/hitoshi/lifelog/internal/metrics"
	"github.com/hitoshi/lifelog/internal/reading"
	"github.com/hitoshi/lifelog/internal/repository"
	"github.com/hitoshi/lifelog/internal/security"
	"github.com/hitoshi/lifelog/internal/worker/refresh"
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
	categoryRepo := repository.NewPostgresCategoryRepo(db)
	postRepo := repository.NewPostgresPostRepo(db)
	otpRepo := repository.NewPostgresOTPRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	readingRepo := repository.NewPostgresReadingRepo(db)
	filmRepo := repository.NewPostgresFilmLogRepo(db)
	statusRepo := repository.NewPostgresSyncStatusRepo(db)

	// 3. メトリクスレジストリの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. セキュリティサービスの初期化
	outboundGuard := security.NewOutboundGuard()
	sanitizer := security.NewContentSanitizer()

	// 5. メール送信の初期化。SMTP未設定の場合、配信は常に失敗し
	// DELIVERY_FAILEDとして呼び出し元へ報告される。
	if !cfg.SMTPConfigured() {
		slog.Warn("SMTPが未設定のためワンタイムコードの配信は常に失敗します")
	}
	sender := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Email:    cfg.SMTPEmail,
		Password: cfg.SMTPPassword,
	})

	// 6. ドメインサービスの初期化
	authService := auth.NewService(otpRepo, sessionRepo, sender, auth.ServiceConfig{
		AdminPassword: cfg.AdminPassword,
		AdminEmail:    cfg.AdminEmail,
		SessionMaxAge: cfg.SessionMaxAge,
		OTPMaxAge:     cfg.OTPMaxAge,
	})

	renderer := blog.NewMarkdownRenderer(sanitizer)
	blogService := blog.NewService(categoryRepo, postRepo, renderer)

	readingClient := reading.NewClient(
		outboundGuard.NewSafeClient(cfg.FetchTimeout, cfg.FetchMaxSize),
		slog.Default(),
	)
	readingService := reading.NewService(readingClient, readingRepo, cfg.HardcoverUsername)

	filmFetcher := filmdiary.NewFetcher(outboundGuard, slog.Default(), cfg.FetchTimeout, cfg.FetchMaxSize)
	filmService := filmdiary.NewService(filmFetcher, filmRepo, cfg.LetterboxdUsername)

	// 7. ハンドラーの構築
	lifelogHandler := handler.NewLifelogHandler(
		readingService, readingService,
		filmService, filmService,
		statusRepo, collector, cfg.SyncMaxAge,
	)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		BlogService:    blogService,
		LifelogHandler: lifelogHandler,
		Collector:      collector,
		Gatherer:       registry,
	})

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
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
// DB接続を開き、ミラー温め直しワーカーを起動する。
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

	// 2. リポジトリの初期化
	readingRepo := repository.NewPostgresReadingRepo(db)
	filmRepo := repository.NewPostgresFilmLogRepo(db)
	statusRepo := repository.NewPostgresSyncStatusRepo(db)

	// 3. メトリクスとセキュリティサービスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	outboundGuard := security.NewOutboundGuard()

	// 4. 同期サービスの初期化
	readingClient := reading.NewClient(
		outboundGuard.NewSafeClient(cfg.FetchTimeout, cfg.FetchMaxSize),
		slog.Default(),
	)
	readingService := reading.NewService(readingClient, readingRepo, cfg.HardcoverUsername)

	filmFetcher := filmdiary.NewFetcher(outboundGuard, slog.Default(), cfg.FetchTimeout, cfg.FetchMaxSize)
	filmService := filmdiary.NewService(filmFetcher, filmRepo, cfg.LetterboxdUsername)

	// 5. 温め直しワーカーの起動
	refresher := refresh.NewRefresher(
		statusRepo, readingService, filmService,
		collector, slog.Default(), cfg.SyncMaxAge,
	)

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
		slog.Duration("refresh_interval", cfg.RefreshInterval),
		slog.Duration("sync_max_age", cfg.SyncMaxAge),
	)

	// 温め直しワーカーをメインgoroutineで実行（ブロッキング）
	refresher.Start(ctx, cfg.RefreshInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
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
