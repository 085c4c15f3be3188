// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
// It is read once at startup and treated as immutable for the process lifetime.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTSecretKey signs access and refresh tokens (HS256). Required.
	JWTSecretKey string `mapstructure:"JWT_SECRET_KEY"`
	// JWTIssuer is the iss claim set on issued tokens.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim set on issued tokens.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "1h").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "720h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// JWTTokenLocation is a comma-separated list of transports for tokens:
	// "headers", "cookies", or both.
	JWTTokenLocation string `mapstructure:"JWT_TOKEN_LOCATION"`
	// BcryptCost is the bcrypt cost factor (4-31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// TokenSalt is the server-held secret for recovery token digests. Rotating it
	// invalidates every outstanding recovery token; that is an operational
	// consequence, not a bug.
	TokenSalt string `mapstructure:"TOKEN_SALT"`
	// TokenLifetime is the recovery token lifetime in seconds; default 86400 (24h).
	TokenLifetime int `mapstructure:"TOKEN_LIFETIME"`

	// SMTP settings for recovery email delivery.
	SMTPServer   string `mapstructure:"SMTP_SERVER"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	// SenderEmail is the From address; falls back to SMTPUsername when empty.
	SenderEmail string `mapstructure:"SENDER_EMAIL"`
	// SMTPTimeout is the SMTP dial/send timeout in seconds.
	SMTPTimeout int `mapstructure:"SMTP_TIMEOUT"`
	// EnableEmail toggles actual delivery. When false the mailer reports success
	// without sending, so missing SMTP config never blocks a request.
	EnableEmail bool `mapstructure:"ENABLE_EMAIL"`
	// FrontendURL is the base URL used in recovery links.
	FrontendURL string `mapstructure:"FRONTEND_URL"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is the zap log level: debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET_KEY", "")
	v.SetDefault("JWT_ISSUER", "auth-template")
	v.SetDefault("JWT_AUDIENCE", "auth-template-api")
	v.SetDefault("JWT_ACCESS_TTL", "1h")
	v.SetDefault("JWT_REFRESH_TTL", "720h") // 30d
	v.SetDefault("JWT_TOKEN_LOCATION", "headers,cookies")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("TOKEN_SALT", "")
	v.SetDefault("TOKEN_LIFETIME", 86400)
	v.SetDefault("SMTP_SERVER", "")
	v.SetDefault("SMTP_PORT", 465)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SENDER_EMAIL", "")
	v.SetDefault("SMTP_TIMEOUT", 10)
	v.SetDefault("ENABLE_EMAIL", true)
	v.SetDefault("FRONTEND_URL", "")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.TokenLifetime <= 0 {
		cfg.TokenLifetime = 86400
	}

	for _, loc := range cfg.TokenLocations() {
		if loc != "headers" && loc != "cookies" {
			return nil, errors.New("config: JWT_TOKEN_LOCATION entries must be headers or cookies")
		}
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 720h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTRefreshTTL)
	if err != nil || d <= 0 {
		return 720 * time.Hour
	}
	return d
}

// RecoveryTokenTTL returns the recovery token lifetime as a duration.
func (c *Config) RecoveryTokenTTL() time.Duration {
	return time.Duration(c.TokenLifetime) * time.Second
}

// TokenLocations returns the configured token transports from the
// comma-separated JWT_TOKEN_LOCATION value.
func (c *Config) TokenLocations() []string {
	if c == nil || c.JWTTokenLocation == "" {
		return nil
	}
	parts := strings.Split(c.JWTTokenLocation, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(strings.ToLower(p)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// UseHeaders reports whether tokens are accepted via the Authorization header.
func (c *Config) UseHeaders() bool {
	for _, loc := range c.TokenLocations() {
		if loc == "headers" {
			return true
		}
	}
	return false
}

// UseCookies reports whether tokens should be set as cookies on responses.
func (c *Config) UseCookies() bool {
	for _, loc := range c.TokenLocations() {
		if loc == "cookies" {
			return true
		}
	}
	return false
}
