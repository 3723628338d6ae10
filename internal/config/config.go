// Package config は環境変数からのアプリケーション設定読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Admin認証
	AdminPassword string
	AdminEmail    string

	// Session
	SessionMaxAge int // セッション有効期間（秒）
	OTPMaxAge     int // ワンタイムコード有効期間（秒）

	// SMTP（未設定の場合はOTP配信が常に失敗する）
	SMTPHost     string
	SMTPPort     string
	SMTPEmail    string
	SMTPPassword string

	// 外部フィード
	HardcoverUsername  string
	LetterboxdUsername string

	// Sync
	FetchTimeout time.Duration // 外部APIのタイムアウト
	SyncMaxAge   time.Duration // ミラーの許容ステイル時間
	FetchMaxSize int64         // レスポンスボディの最大サイズ

	// Worker
	RefreshInterval time.Duration

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string

	// Cookie
	CookieSecure bool
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envファイルがあれば先に読み込む（未存在は無視）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.AdminPassword = os.Getenv("ADMIN_PASSWORD")
	if cfg.AdminPassword == "" {
		missing = append(missing, "ADMIN_PASSWORD")
	}

	cfg.AdminEmail = os.Getenv("ADMIN_EMAIL")
	if cfg.AdminEmail == "" {
		missing = append(missing, "ADMIN_EMAIL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// SMTPは任意設定。未設定の場合、配信失敗として扱われる（auth側で判定）。
	cfg.SMTPHost = os.Getenv("SMTP_SERVER")
	cfg.SMTPPort = getEnvString("SMTP_PORT", "587")
	cfg.SMTPEmail = os.Getenv("SMTP_EMAIL")
	cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")

	cfg.HardcoverUsername = os.Getenv("HARDCOVER_USERNAME")
	cfg.LetterboxdUsername = os.Getenv("LETTERBOXD_USERNAME")

	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.OTPMaxAge = getEnvInt("OTP_MAX_AGE", 600)
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 10*time.Second)
	cfg.SyncMaxAge = getEnvDuration("SYNC_MAX_AGE", 5*time.Minute)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 5242880)
	cfg.RefreshInterval = getEnvDuration("REFRESH_INTERVAL", 5*time.Minute)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.CookieSecure = getEnvBool("COOKIE_SECURE", false)

	return cfg, nil
}

// SMTPConfigured はOTP配信に必要なSMTP設定が揃っているかを返す。
func (c *Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPEmail != "" && c.SMTPPassword != ""
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
