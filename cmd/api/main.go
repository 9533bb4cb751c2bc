// Package main はWebサーバーのエントリーポイントです。
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/session-auth/internal/auth"
	"github.com/yourusername/session-auth/internal/config"
	"github.com/yourusername/session-auth/internal/logger"
	"github.com/yourusername/session-auth/internal/web"
)

const serviceName = "session-auth"

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	gin.SetMode(cfg.GinMode)

	userStore, closeUsers, err := setupUserStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeUsers()

	sessionStore, closeSessions, err := setupSessionStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSessions()

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()

	manager := auth.NewManager(sessionStore, auth.Options{
		TTL:         cfg.SessionTTL(),
		IdleTimeout: cfg.SessionIdleTimeout(),
		Secure:      cfg.GinMode == gin.ReleaseMode,
	}, log)
	router.Use(manager.Middleware(cookie.NewStore(cookieSecret(cfg, log))))

	if cfg.CORSAllowedOrigins != "" {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
		corsConfig.AllowCredentials = true
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
		router.Use(cors.New(corsConfig))
	}

	handler := web.NewHandler(userStore, manager, auth.NewHasher(cfg.BcryptCost), log)
	setupRoutes(router, handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", srv.Addr, "mode", cfg.GinMode,
			"user_store", cfg.UserStore, "session_store", cfg.SessionStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// cookieSecret はクッキー署名鍵を返します。
// 開発モードで未設定の場合は起動ごとの一時鍵を生成します（再起動で全セッションが無効になる）。
func cookieSecret(cfg *config.Config, log *slog.Logger) []byte {
	if cfg.SessionSecret != "" {
		return []byte(cfg.SessionSecret)
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}
	log.Warn("SESSION_SECRET is not set; using a temporary signing key")
	return key
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": serviceName,
		"version": "0.1.0",
	})
}

// setupRoutes はヘルスチェックと画面のルートを登録します。
func setupRoutes(router *gin.Engine, handler *web.Handler) {
	router.GET("/health", handleHealth)
	handler.Mount(router)
}
