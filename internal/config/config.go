package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Push配信トリガーの共有シークレット（Bearerトークン）
	TriggerToken string

	// Web Push（VAPID）
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubscriber string

	// Delivery
	DeliverMaxConcurrent int
	AccountPageSize      int
	PushTimeout          time.Duration
	PushTTL              int // Pushサービス側の保持秒数
	ListTimeout          time.Duration

	// Cleanup
	CleanupRetentionDays int

	// Rate Limit
	RateLimitTrigger int // トリガーエンドポイントのreq/min

	// Server
	ServerPort string
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

	cfg.TriggerToken = os.Getenv("PUSH_TRIGGER_TOKEN")
	if cfg.TriggerToken == "" {
		missing = append(missing, "PUSH_TRIGGER_TOKEN")
	}

	cfg.VAPIDPublicKey = os.Getenv("VAPID_PUBLIC_KEY")
	if cfg.VAPIDPublicKey == "" {
		missing = append(missing, "VAPID_PUBLIC_KEY")
	}

	cfg.VAPIDPrivateKey = os.Getenv("VAPID_PRIVATE_KEY")
	if cfg.VAPIDPrivateKey == "" {
		missing = append(missing, "VAPID_PRIVATE_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.VAPIDSubscriber = getEnvString("VAPID_SUBSCRIBER", "push@remindcast.app")
	cfg.DeliverMaxConcurrent = getEnvInt("DELIVER_MAX_CONCURRENT", 50)
	cfg.AccountPageSize = getEnvInt("ACCOUNT_PAGE_SIZE", 500)
	cfg.PushTimeout = getEnvDuration("PUSH_TIMEOUT", 10*time.Second)
	cfg.PushTTL = getEnvInt("PUSH_TTL", 86400)
	cfg.ListTimeout = getEnvDuration("LIST_TIMEOUT", 30*time.Second)
	cfg.CleanupRetentionDays = getEnvInt("CLEANUP_RETENTION_DAYS", 90)
	cfg.RateLimitTrigger = getEnvInt("RATE_LIMIT_TRIGGER", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")

	return cfg, nil
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
