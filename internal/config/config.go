// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	// Server Configuration
	GinMode       string        `mapstructure:"GIN_MODE"`
	ServerHost    string        `mapstructure:"SERVER_HOST"`
	ServerPort    string        `mapstructure:"SERVER_PORT"`
	ServerTimeout time.Duration `mapstructure:"-"` // SERVER_TIMEOUT_SECONDS
	AppBaseURL    string        `mapstructure:"APP_BASE_URL"`

	// Database Configuration
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"-"` // DB_CONN_MAX_LIFETIME_MINUTES
	DBAutoMigrate     bool          `mapstructure:"DB_AUTO_MIGRATE"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Firebase Configuration
	FirebaseServiceAccountKeyPath string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_KEY_PATH"`
	FirebaseProjectID             string `mapstructure:"FIREBASE_PROJECT_ID"`
	FirebaseWebAPIKey             string `mapstructure:"FIREBASE_WEB_API_KEY"`
	PasswordResetRedirectURL      string `mapstructure:"PASSWORD_RESET_REDIRECT_URL"`

	// Google OAuth
	GoogleClientID           string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret       string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI        string `mapstructure:"GOOGLE_REDIRECT_URI"`
	OAuthStateCookieName     string `mapstructure:"OAUTH_STATE_COOKIE_NAME"`
	OAuthCookieDomain        string `mapstructure:"OAUTH_COOKIE_DOMAIN"`
	OAuthCookieSecure        bool   `mapstructure:"OAUTH_COOKIE_SECURE"`
	OAuthCookieHTTPOnly      bool   `mapstructure:"OAUTH_COOKIE_HTTP_ONLY"`
	OAuthCookieSameSite      string `mapstructure:"OAUTH_COOKIE_SAME_SITE"`
	OAuthCookieMaxAgeMinutes int    `mapstructure:"OAUTH_COOKIE_MAX_AGE_MINUTES"`

	// Session controller
	SessionCookieName     string        `mapstructure:"SESSION_COOKIE_NAME"`
	SessionIdleTTL        time.Duration `mapstructure:"-"` // SESSION_IDLE_TTL_MINUTES
	SessionFetchTimeout   time.Duration `mapstructure:"-"` // SESSION_FETCH_TIMEOUT_SECONDS
	SessionFetchRetry     time.Duration `mapstructure:"-"` // SESSION_FETCH_RETRY_DELAY_SECONDS
	SessionFetchAttempts  int           `mapstructure:"SESSION_FETCH_MAX_ATTEMPTS"`
	SessionSignOutTimeout time.Duration `mapstructure:"-"` // SESSION_SIGN_OUT_TIMEOUT_SECONDS

	// Cron Jobs
	SessionRefreshSchedule string `mapstructure:"SESSION_REFRESH_SCHEDULE"`

	// Rate limiting for credential endpoints, requests per minute per client IP. 0 disables it.
	AuthRateLimitPerMinute int `mapstructure:"AUTH_RATE_LIMIT_PER_MINUTE"`

	// Point awards a single profile may claim per hour. 0 disables the cap.
	PointsAwardsPerHour int `mapstructure:"POINTS_AWARDS_PER_HOUR"`

	// Local media (avatars)
	MediaStoragePath string `mapstructure:"MEDIA_STORAGE_PATH"`
	MediaBaseURL     string `mapstructure:"MEDIA_BASE_URL"`

	// Elasticsearch Configuration
	ElasticsearchURL string `mapstructure:"ELASTICSEARCH_URL"`
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg, err := fromViper(newViper())
	if err != nil {
		return nil, err
	}

	// Basic validation for critical configs
	if strings.TrimSpace(cfg.FirebaseServiceAccountKeyPath) == "" {
		return nil, fmt.Errorf("FATAL: FIREBASE_SERVICE_ACCOUNT_KEY_PATH is not set. This is required for Firebase Admin SDK initialization")
	}
	if _, err := os.Stat(cfg.FirebaseServiceAccountKeyPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("FATAL: Firebase service account key file specified in FIREBASE_SERVICE_ACCOUNT_KEY_PATH (%s) not found", cfg.FirebaseServiceAccountKeyPath)
	}
	if strings.TrimSpace(cfg.FirebaseWebAPIKey) == "" {
		return nil, fmt.Errorf("FATAL: FIREBASE_WEB_API_KEY is not set. It is required for password and OAuth sign-in")
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	// Set default values
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)
	v.SetDefault("APP_BASE_URL", "http://localhost:5173")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "desirius_db")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	// Firebase
	v.SetDefault("FIREBASE_PROJECT_ID", "") // Optional
	v.SetDefault("FIREBASE_SERVICE_ACCOUNT_KEY_PATH", "")
	v.SetDefault("FIREBASE_WEB_API_KEY", "")
	v.SetDefault("PASSWORD_RESET_REDIRECT_URL", "http://localhost:5173/reset-password")

	// Google OAuth
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("GOOGLE_REDIRECT_URI", "http://localhost:8080/api/v1/auth/google/callback")
	v.SetDefault("OAUTH_STATE_COOKIE_NAME", "ds_oauth_state")
	v.SetDefault("OAUTH_COOKIE_DOMAIN", "")
	v.SetDefault("OAUTH_COOKIE_SECURE", false)
	v.SetDefault("OAUTH_COOKIE_HTTP_ONLY", true)
	v.SetDefault("OAUTH_COOKIE_SAME_SITE", "Lax")
	v.SetDefault("OAUTH_COOKIE_MAX_AGE_MINUTES", 10)

	// Session controller
	v.SetDefault("SESSION_COOKIE_NAME", "ds_session")
	v.SetDefault("SESSION_IDLE_TTL_MINUTES", 120)
	v.SetDefault("SESSION_FETCH_TIMEOUT_SECONDS", 5)
	v.SetDefault("SESSION_FETCH_RETRY_DELAY_SECONDS", 3)
	v.SetDefault("SESSION_FETCH_MAX_ATTEMPTS", 3)
	v.SetDefault("SESSION_SIGN_OUT_TIMEOUT_SECONDS", 10)
	v.SetDefault("SESSION_REFRESH_SCHEDULE", "@every 30m")

	v.SetDefault("AUTH_RATE_LIMIT_PER_MINUTE", 30)
	v.SetDefault("POINTS_AWARDS_PER_HOUR", 20)

	v.SetDefault("MEDIA_STORAGE_PATH", "./media")
	v.SetDefault("MEDIA_BASE_URL", "/media")

	// Elasticsearch
	v.SetDefault("ELASTICSEARCH_URL", "http://localhost:9200")

	v.AutomaticEnv()
	return v
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Duration fields are configured as plain numbers of seconds or minutes and skipped by Unmarshal.
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute
	cfg.SessionIdleTTL = time.Duration(v.GetInt("SESSION_IDLE_TTL_MINUTES")) * time.Minute
	cfg.SessionFetchTimeout = time.Duration(v.GetInt("SESSION_FETCH_TIMEOUT_SECONDS")) * time.Second
	cfg.SessionFetchRetry = time.Duration(v.GetInt("SESSION_FETCH_RETRY_DELAY_SECONDS")) * time.Second
	cfg.SessionSignOutTimeout = time.Duration(v.GetInt("SESSION_SIGN_OUT_TIMEOUT_SECONDS")) * time.Second

	if cfg.SessionFetchAttempts < 1 {
		return nil, fmt.Errorf("SESSION_FETCH_MAX_ATTEMPTS must be at least 1, got %d", cfg.SessionFetchAttempts)
	}
	if cfg.SessionFetchTimeout <= 0 || cfg.SessionSignOutTimeout <= 0 {
		return nil, fmt.Errorf("session fetch and sign-out timeouts must be positive")
	}

	return &cfg, nil
}

// DSN builds the GORM postgres DSN from the individual DB_* settings.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode, c.DBTimezone)
}
