// Package app はアプリケーションの起動とワイヤリングを提供する。
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
	"golang.org/x/time/rate"

	"github.com/hitoshi/docgate/internal/auth"
	"github.com/hitoshi/docgate/internal/bridge"
	"github.com/hitoshi/docgate/internal/config"
	"github.com/hitoshi/docgate/internal/connector"
	"github.com/hitoshi/docgate/internal/handler"
	"github.com/hitoshi/docgate/internal/logger"
	"github.com/hitoshi/docgate/internal/metrics"
	"github.com/hitoshi/docgate/internal/middleware"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. 設定読み込み
	cfg, err := config.Load()
	if err != nil {
		// 設定が読めなくてもログは出せるようにデフォルトレベルで初期化する
		logger.SetupDefault(w, "info")
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 2. 設定されたレベルでログを初期化
	logger.SetupDefault(w, cfg.LogLevel)

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
		slog.String("auth_mode", cfg.AuthMode),
	)

	return runServe(cfg)
}

// runServe はAPIサーバーモードで起動する。
// コネクタレジストリを構築して疎通を開始し、認証バックエンドを選択し、
// HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. メトリクス
	promRegistry := prometheus.NewRegistry()
	collector := metrics.NewCollector(promRegistry)

	// 2. コネクタレジストリの構築と接続
	// 接続失敗はコネクタごとにログに残すだけで起動は継続する。
	// 状態は/readinessが報告する。
	registry := connector.NewRegistry(cfg.Connectors, slog.Default(), collector)

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 30*time.Second)
	registry.ConnectAll(connectCtx)
	connectCancel()

	// 3. 認証バックエンドの選択
	backend, err := buildAuthBackend(cfg)
	if err != nil {
		return err
	}

	// 4. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		// configのRateLimitGeneralはreq/min単位なのでreq/secに変換する
		rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		Connectors:        registry,
		AuthBackend:       backend,
		AuthMetrics:       collector,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Metrics:           collector,
		Gatherer:          promRegistry,
	}

	router := handler.NewRouter(deps)

	// 5. HTTPサーバーの起動
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

	registry.DisconnectAll(ctx)

	slog.Info("API server stopped gracefully")
	return nil
}

// buildAuthBackend は設定の認証モードに対応するバックエンドを構築する。
func buildAuthBackend(cfg *config.Config) (auth.Backend, error) {
	switch cfg.AuthMode {
	case config.AuthModeJWT:
		return auth.NewJWTBackend(auth.JWTConfig{
			HeaderKey:  cfg.JWTHeader,
			Secret:     cfg.JWTSecret,
			Algorithms: cfg.JWTAlgorithms,
			Strict:     cfg.AuthStrict,
		}, slog.Default()), nil
	case config.AuthModeToken:
		authorizer := bridge.NewClient(
			&http.Client{Timeout: 10 * time.Second},
			slog.Default(),
			cfg.AuthServiceURL,
		)
		return auth.NewTokenBackend(authorizer, cfg.AuthStrict, slog.Default()), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode: %q", cfg.AuthMode)
	}
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
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
