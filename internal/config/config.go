// Package config は環境変数からのアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hitoshi/docgate/internal/connector"
)

// 認証モードの定義。
const (
	AuthModeJWT   = "jwt"
	AuthModeToken = "token"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Auth
	AuthMode       string
	AuthStrict     bool
	JWTSecret      string
	JWTHeader      string
	JWTAlgorithms  []string
	AuthServiceURL string

	// Connectors（未設定のブロックはnil）
	Connectors connector.RegistryConfig

	// Rate Limit
	RateLimitGeneral int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// 選択された認証モードに必要な環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.AuthMode = getEnvString("AUTH_MODE", AuthModeJWT)
	switch cfg.AuthMode {
	case AuthModeJWT:
		cfg.JWTSecret = os.Getenv("JWT_SECRET")
		if cfg.JWTSecret == "" {
			missing = append(missing, "JWT_SECRET")
		}
	case AuthModeToken:
		cfg.AuthServiceURL = os.Getenv("AUTH_SERVICE_URL")
		if cfg.AuthServiceURL == "" {
			missing = append(missing, "AUTH_SERVICE_URL")
		}
	default:
		return nil, fmt.Errorf("invalid AUTH_MODE: %q (must be %q or %q)",
			cfg.AuthMode, AuthModeJWT, AuthModeToken)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.AuthStrict = getEnvBool("AUTH_STRICT", false)
	cfg.JWTHeader = getEnvString("JWT_HEADER", "authorization")
	cfg.JWTAlgorithms = getEnvCSV("JWT_ALGORITHMS", []string{"HS256"})

	cfg.Connectors = loadConnectorConfig()

	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
}

// loadConnectorConfig はコネクタごとの設定ブロックを読み込む。
// 各ブロックは主キーとなる環境変数が設定されている場合のみ有効になる。
func loadConnectorConfig() connector.RegistryConfig {
	var rc connector.RegistryConfig

	if url := os.Getenv("POSTGRES_URL"); url != "" {
		rc.Postgres = &connector.PostgresConfig{URL: url}
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rc.Redis = &connector.RedisConfig{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		}
	}

	if url := os.Getenv("ELASTICSEARCH_URL"); url != "" {
		rc.Elastic = &connector.ElasticConfig{
			URL:      url,
			Username: os.Getenv("ELASTICSEARCH_USERNAME"),
			Password: os.Getenv("ELASTICSEARCH_PASSWORD"),
		}
	}

	if region := os.Getenv("AWS_REGION"); region != "" {
		rc.AWS = &connector.AWSConfig{
			Region:          region,
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			AssumeRoleARN:   os.Getenv("AWS_ASSUME_ROLE_ARN"),
			Bucket:          os.Getenv("S3_BUCKET"),
		}
	}

	return rc
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvCSV(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
