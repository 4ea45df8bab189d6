package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig contains server configuration
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	// Environment controls the Secure attribute of the refresh cookie
	Environment string `yaml:"environment"`
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite3 or pgx
	DSN    string `yaml:"dsn"`
}

// AuthConfig contains token, password and second factor settings
type AuthConfig struct {
	AccessTokenSecret      string `yaml:"access_token_secret"`
	RefreshTokenSecret     string `yaml:"refresh_token_secret"`
	AccessTokenTTL         string `yaml:"access_token_ttl"`
	RefreshTokenTTL        string `yaml:"refresh_token_ttl"`
	BcryptCost             int    `yaml:"bcrypt_cost"`
	TOTPIssuer             string `yaml:"totp_issuer"`
	RotateRefreshTokens    bool   `yaml:"rotate_refresh_tokens"`
	AllowAdminRegistration bool   `yaml:"allow_admin_registration"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	// EnvProduction enables the Secure cookie attribute
	EnvProduction = "production"

	minBcryptCost = 4
	maxBcryptCost = 31
)

// Default returns a configuration with every optional field filled in.
// Secrets are left empty on purpose so Validate rejects a config that
// never had them set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:  ":3000",
			Environment: "development",
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "inkwell.db",
		},
		Auth: AuthConfig{
			AccessTokenTTL:  "15m",
			RefreshTokenTTL: "7d",
			BcryptCost:      12,
			TOTPIssuer:      "Inkwell",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}

	// Database validation
	if c.Database.Driver != "sqlite3" && c.Database.Driver != "pgx" {
		return fmt.Errorf("database.driver must be 'sqlite3' or 'pgx'")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	// Token validation
	if c.Auth.AccessTokenSecret == "" {
		return fmt.Errorf("auth.access_token_secret is required")
	}
	if c.Auth.RefreshTokenSecret == "" {
		return fmt.Errorf("auth.refresh_token_secret is required")
	}
	if c.Auth.AccessTokenSecret == c.Auth.RefreshTokenSecret {
		return fmt.Errorf("auth.access_token_secret and auth.refresh_token_secret must differ")
	}
	access, err := ParseDuration(c.Auth.AccessTokenTTL)
	if err != nil {
		return fmt.Errorf("auth.access_token_ttl is invalid: %w", err)
	}
	if access <= 0 {
		return fmt.Errorf("auth.access_token_ttl must be positive")
	}
	refresh, err := ParseDuration(c.Auth.RefreshTokenTTL)
	if err != nil {
		return fmt.Errorf("auth.refresh_token_ttl is invalid: %w", err)
	}
	if refresh <= access {
		return fmt.Errorf("auth.refresh_token_ttl must be longer than auth.access_token_ttl")
	}
	if c.Auth.BcryptCost < minBcryptCost || c.Auth.BcryptCost > maxBcryptCost {
		return fmt.Errorf("auth.bcrypt_cost must be between %d and %d", minBcryptCost, maxBcryptCost)
	}
	if c.Auth.TOTPIssuer == "" {
		return fmt.Errorf("auth.totp_issuer is required")
	}

	// Logging validation
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("logging.format must be 'json' or 'text'")
	}

	return nil
}

// IsProduction reports whether cookies must carry the Secure attribute
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// GetAccessTokenTTL returns the access token lifetime as time.Duration
func (c *Config) GetAccessTokenTTL() time.Duration {
	d, _ := ParseDuration(c.Auth.AccessTokenTTL)
	return d
}

// GetRefreshTokenTTL returns the refresh token lifetime as time.Duration
func (c *Config) GetRefreshTokenTTL() time.Duration {
	d, _ := ParseDuration(c.Auth.RefreshTokenTTL)
	return d
}

// ParseDuration parses a duration with support for days (e.g., "7d")
func ParseDuration(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		d, err := strconv.Atoi(s[:len(s)-1])
		if err != nil || d < 0 {
			return 0, fmt.Errorf("invalid day count in duration %q", s)
		}
		return time.Duration(d) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
