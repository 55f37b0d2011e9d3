package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Auth
	TokenSecret string
	TokenTTL    time.Duration
	TenantName  string

	// Media
	MediaDir           string
	VideoMaxSize       int64
	ImageMaxSize       int64
	RemoteFetchTimeout time.Duration

	// Rate Limit
	RateLimitGeneral int
	RateLimitUpload  int

	// Worker
	ReviewInterval       time.Duration
	ReviewMaxConcurrent  int
	ReviewBannedWords    []string
	ReconcileInterval    time.Duration
	ReconcileMaxPerCycle int
	CleanupInterval      time.Duration
	CleanupRetentionDays int

	// Feed
	FeedPageSize int

	// Server
	ServerPort string
	BaseURL    string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.TokenSecret = os.Getenv("TOKEN_SECRET")
	if cfg.TokenSecret == "" {
		missing = append(missing, "TOKEN_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", 720*time.Hour)
	cfg.TenantName = getEnvString("TENANT_NAME", "magfeed")
	cfg.MediaDir = getEnvString("MEDIA_DIR", "/var/lib/magfeed/media")
	cfg.VideoMaxSize = getEnvInt64("VIDEO_MAX_SIZE", 209715200)
	cfg.ImageMaxSize = getEnvInt64("IMAGE_MAX_SIZE", 5242880)
	cfg.RemoteFetchTimeout = getEnvDuration("REMOTE_FETCH_TIMEOUT", 10*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 300)
	cfg.RateLimitUpload = getEnvInt("RATE_LIMIT_UPLOAD", 10)
	cfg.ReviewInterval = getEnvDuration("REVIEW_INTERVAL", time.Minute)
	cfg.ReviewMaxConcurrent = getEnvInt("REVIEW_MAX_CONCURRENT", 4)
	cfg.ReviewBannedWords = getEnvList("REVIEW_BANNED_WORDS", nil)
	cfg.ReconcileInterval = getEnvDuration("RECONCILE_INTERVAL", 30*time.Minute)
	cfg.ReconcileMaxPerCycle = getEnvInt("RECONCILE_MAX_PER_CYCLE", 500)
	cfg.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", 24*time.Hour)
	cfg.CleanupRetentionDays = getEnvInt("CLEANUP_RETENTION_DAYS", 30)
	cfg.FeedPageSize = getEnvInt("FEED_PAGE_SIZE", 8)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnvList はカンマ区切りの環境変数を文字列スライスとして読み込む。
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
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

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
