// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/remindcast/internal/config"
	"github.com/hitoshi/remindcast/internal/database"
	"github.com/hitoshi/remindcast/internal/handler"
	"github.com/hitoshi/remindcast/internal/logger"
	"github.com/hitoshi/remindcast/internal/metrics"
	"github.com/hitoshi/remindcast/internal/middleware"
	"github.com/hitoshi/remindcast/internal/notify"
	"github.com/hitoshi/remindcast/internal/repository"
	"github.com/hitoshi/remindcast/internal/security"
	"github.com/hitoshi/remindcast/internal/worker/cleanup"
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
	case CommandDeliver:
		return runDeliver(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// buildRunner は配信パイプラインの依存関係をワイヤリングしてRunnerを返す。
// serveとdeliverの両モードで同じ構成を使う。
func buildRunner(cfg *config.Config, db *sql.DB, collector *metrics.Collector) *notify.Runner {
	accountRepo := repository.NewPostgresAccountRepo(db)
	reminderRepo := repository.NewPostgresReminderRepo(db)

	guard := security.NewEndpointGuard()
	sender := notify.NewWebPushSender(
		guard.NewSafeClient(cfg.PushTimeout),
		cfg.VAPIDPublicKey,
		cfg.VAPIDPrivateKey,
		cfg.VAPIDSubscriber,
		cfg.PushTTL,
	)
	fanout := notify.NewFanout(sender, guard, slog.Default(), cfg.PushTimeout)

	pipeline := notify.NewPipeline(accountRepo, reminderRepo, fanout, collector, slog.Default())

	return notify.NewRunner(
		accountRepo, pipeline, collector, slog.Default(),
		cfg.DeliverMaxConcurrent, cfg.AccountPageSize, cfg.ListTimeout,
	)
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// クリーンアップジョブを日次バックグラウンドで実行する。
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

	// 2. メトリクスと配信パイプラインのワイヤリング
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	runner := buildRunner(cfg, db, collector)

	// 3. ルーターの構築
	rateLimiter := middleware.NewTriggerRateLimiter(cfg.RateLimitTrigger)
	router := handler.NewRouter(&handler.RouterDeps{
		DB:           db,
		Runner:       runner,
		Logger:       slog.Default(),
		Gatherer:     registry,
		TriggerToken: cfg.TriggerToken,
		RateLimiter:  rateLimiter,
	})

	// 4. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// 5. クリーンアップジョブを日次でバックグラウンド実行
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default())
	cleanupJob.RetentionDays = cfg.CleanupRetentionDays
	go func() {
		// 起動直後に1回実行
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}
		cleanupJob.RunDaily(ctx)
	}()

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
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runDeliver は配信サイクルを1回だけ実行して終了する。
// cronなどの外部スケジューラーからのワンショット実行用。
func runDeliver(cfg *config.Config) error {
	// ワンショット実行でも同一プロセス内の再実行（テスト・組み込み利用）では
	// 接続を共有する
	db, err := database.OpenOnce(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (deliver)")

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	runner := buildRunner(cfg, db, collector)

	// SIGINT/SIGTERMで実行中のサイクルをキャンセルする
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	results, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("delivery run failed: %w", err)
	}

	slog.Info("delivery run completed",
		slog.Int("delivered", len(results)),
	)
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
