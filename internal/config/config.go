// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// ユーザーストアの種別
const (
	UserStoreMongo    = "mongo"
	UserStorePostgres = "postgres"
	UserStoreMemory   = "memory"
)

// セッションストアの種別
const (
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

// minSessionSecretLength はリリースモードで要求する署名鍵の最小バイト数です。
const minSessionSecretLength = 32

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// ユーザーストア設定
	UserStore       string // mongo / postgres / memory
	MongoURI        string // MongoDB接続URI
	MongoDatabase   string // MongoDBのデータベース名
	MongoCollection string // ユーザーを保存するコレクション名
	DatabaseDSN     string // PostgreSQL DSN（USER_STORE=postgres のとき使用）

	// セッション設定
	SessionSecret      string // クッキー署名用の秘密鍵
	SessionStore       string // redis / memory
	SessionRedisURL    string // セッション保存用Redis接続URL
	SessionTTLMinutes  int    // セッションの絶対有効期限（分）
	SessionIdleMinutes int    // 無操作タイムアウト（分）

	// 認証設定
	BcryptCost int // パスワードハッシュのコスト

	// ログ設定
	LogLevel string // debug / info / warn / error
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	loadEnvFile()

	config := &Config{
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:8080"),

		UserStore:       strings.ToLower(getEnv("USER_STORE", UserStoreMongo)),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnv("MONGO_DATABASE", "userAuthDB"),
		MongoCollection: getEnv("MONGO_COLLECTION", "users"),
		DatabaseDSN:     getEnv("DATABASE_DSN", ""),

		SessionSecret:      getEnv("SESSION_SECRET", ""),
		SessionStore:       strings.ToLower(getEnv("SESSION_STORE", SessionStoreRedis)),
		SessionRedisURL:    getEnv("SESSION_REDIS_URL", "redis://127.0.0.1:6379/0"),
		SessionTTLMinutes:  getEnvAsInt("SESSION_TTL_MINUTES", 720), // 12時間
		SessionIdleMinutes: getEnvAsInt("SESSION_IDLE_MINUTES", 30),

		BcryptCost: getEnvAsInt("BCRYPT_COST", bcrypt.DefaultCost),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	switch c.UserStore {
	case UserStoreMongo, UserStorePostgres, UserStoreMemory:
	default:
		return fmt.Errorf("unknown USER_STORE %q", c.UserStore)
	}
	switch c.SessionStore {
	case SessionStoreRedis, SessionStoreMemory:
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore)
	}

	if c.SessionTTLMinutes <= 0 {
		return fmt.Errorf("SESSION_TTL_MINUTES must be positive")
	}
	if c.SessionIdleMinutes <= 0 {
		return fmt.Errorf("SESSION_IDLE_MINUTES must be positive")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	if c.UserStore == UserStorePostgres && c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required when USER_STORE=postgres")
	}

	// ローカル開発では秘密鍵は任意（起動時に一時鍵を生成する）
	if c.GinMode == "release" {
		if len(c.SessionSecret) < minSessionSecretLength {
			return fmt.Errorf("SESSION_SECRET must be at least %d bytes in release mode", minSessionSecretLength)
		}
		if c.UserStore == UserStoreMemory || c.SessionStore == SessionStoreMemory {
			return fmt.Errorf("memory stores are not allowed in release mode")
		}
		if c.UserStore == UserStoreMongo && c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required in release mode")
		}
		if c.SessionRedisURL == "" {
			return fmt.Errorf("SESSION_REDIS_URL is required in release mode")
		}
	}

	return nil
}

// SessionTTL はセッションの絶対有効期限を返します。
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// SessionIdleTimeout は無操作タイムアウトを返します。
func (c *Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
