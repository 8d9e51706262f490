// Package config loads the application configuration from the environment.
//
// A .env file is read first when present (development convenience), then the
// environment is decoded into Config. Every section is its own struct so a
// component only receives the part it needs.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/akinalp/atelier/pkg/i18n"
)

// Config carries every configuration value of the application.
type Config struct {
	Server   ServerConfig
	Site     SiteConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Auth     AuthConfig
	Upload   UploadConfig
	Email    EmailConfig
	Store    StoreConfig
	Press    PressConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port           int           `env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout    time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout   time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout    time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:8080"`
}

// SiteConfig describes the public website.
type SiteConfig struct {
	Name          string `env:"SITE_NAME" envDefault:"Atelier"`
	BaseURL       string `env:"SITE_BASE_URL" envDefault:"http://localhost:8080"`
	DefaultLocale string `env:"SITE_DEFAULT_LOCALE" envDefault:"en"`
	ArtistName    string `env:"SITE_ARTIST_NAME" envDefault:"The Artist"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `env:"DATABASE_PATH" envDefault:"./data/atelier.db"` // e.g. ./data/atelier.db
}

// JWTConfig holds token settings.
type JWTConfig struct {
	Secret             string `env:"JWT_SECRET"`                                // signing key, required
	AccessTokenExpiry  int    `env:"JWT_ACCESS_EXPIRY_MINUTES" envDefault:"15"` // minutes
	RefreshTokenExpiry int    `env:"JWT_REFRESH_EXPIRY_DAYS" envDefault:"14"`   // days
}

// AuthConfig holds account settings.
type AuthConfig struct {
	// AllowRegistration opens POST /api/auth/register to everyone.
	// The very first account can always be created and becomes admin.
	AllowRegistration bool `env:"AUTH_ALLOW_REGISTRATION" envDefault:"false"`
}

// UploadConfig holds image upload settings.
type UploadConfig struct {
	Dir     string `env:"UPLOAD_DIR" envDefault:"./data/uploads"`
	MaxSize int64  `env:"UPLOAD_MAX_SIZE" envDefault:"15728640"` // bytes, 15MB
}

// EmailConfig holds Resend settings. Email is disabled when any field is empty.
type EmailConfig struct {
	ResendAPIKey string `env:"RESEND_API_KEY"`
	FromEmail    string `env:"EMAIL_FROM"`
	ArtistInbox  string `env:"EMAIL_ARTIST_INBOX"`
}

// Enabled reports whether every field needed to send mail is present.
func (c EmailConfig) Enabled() bool {
	return c.ResendAPIKey != "" && c.FromEmail != "" && c.ArtistInbox != ""
}

// StoreConfig holds artwork store settings.
type StoreConfig struct {
	Currency      string        `env:"STORE_CURRENCY" envDefault:"EUR"`
	HoldDuration  time.Duration `env:"STORE_HOLD_DURATION" envDefault:"48h"`
	SweepInterval time.Duration `env:"STORE_SWEEP_INTERVAL" envDefault:"10m"`
	// EncryptionKey is a 64 char hex AES-256 key for buyer addresses/phones.
	// Empty means those fields are stored as plain text.
	EncryptionKey string `env:"STORE_ENCRYPTION_KEY"`
}

// PressConfig holds link preview settings.
type PressConfig struct {
	FetchTimeout       time.Duration `env:"PRESS_FETCH_TIMEOUT" envDefault:"10s"`
	CacheTTL           time.Duration `env:"PRESS_CACHE_TTL" envDefault:"6h"`
	RefreshConcurrency int           `env:"PRESS_REFRESH_CONCURRENCY" envDefault:"4"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Development bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`
}

// Load builds the Config from .env and the process environment.
func Load() (*Config, error) {
	// Missing .env is fine: production uses real environment variables.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks the values env.Parse cannot express with tags.
func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if c.JWT.AccessTokenExpiry <= 0 {
		return fmt.Errorf("invalid JWT_ACCESS_EXPIRY_MINUTES: must be positive")
	}
	if c.JWT.RefreshTokenExpiry <= 0 {
		return fmt.Errorf("invalid JWT_REFRESH_EXPIRY_DAYS: must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: %d", c.Server.Port)
	}

	base, err := url.Parse(c.Site.BaseURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return fmt.Errorf("invalid SITE_BASE_URL: %q", c.Site.BaseURL)
	}
	c.Site.BaseURL = strings.TrimRight(c.Site.BaseURL, "/")

	c.Site.DefaultLocale = strings.ToLower(c.Site.DefaultLocale)
	if !i18n.IsSupported(c.Site.DefaultLocale) {
		return fmt.Errorf("invalid SITE_DEFAULT_LOCALE: %q (supported: %s)",
			c.Site.DefaultLocale, strings.Join(i18n.SupportedLanguages, ", "))
	}

	if len(c.Store.Currency) != 3 {
		return fmt.Errorf("invalid STORE_CURRENCY: %q", c.Store.Currency)
	}
	c.Store.Currency = strings.ToUpper(c.Store.Currency)

	if c.Store.HoldDuration <= 0 || c.Store.SweepInterval <= 0 {
		return fmt.Errorf("STORE_HOLD_DURATION and STORE_SWEEP_INTERVAL must be positive")
	}
	if c.Press.RefreshConcurrency < 1 {
		c.Press.RefreshConcurrency = 1
	}

	return nil
}

// Addr returns the listen address, e.g. "0.0.0.0:8080".
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SecureCookies reports whether cookies must carry the Secure flag.
func (c *SiteConfig) SecureCookies() bool {
	return strings.HasPrefix(c.BaseURL, "https://")
}
