package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file on top of the defaults.
// An empty path skips the file and returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadWithEnv loads configuration from a file, applies environment variable
// overrides and validates the result
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if listenAddr := os.Getenv("INKWELL_LISTEN_ADDR"); listenAddr != "" {
		cfg.Server.ListenAddr = listenAddr
	}

	if env := os.Getenv("INKWELL_ENV"); env != "" {
		cfg.Server.Environment = env
	}

	if driver := os.Getenv("INKWELL_DB_DRIVER"); driver != "" {
		cfg.Database.Driver = driver
	}

	if dsn := os.Getenv("INKWELL_DB_DSN"); dsn != "" {
		cfg.Database.DSN = dsn
	}

	if secret := os.Getenv("INKWELL_ACCESS_TOKEN_SECRET"); secret != "" {
		cfg.Auth.AccessTokenSecret = secret
	}

	if secret := os.Getenv("INKWELL_REFRESH_TOKEN_SECRET"); secret != "" {
		cfg.Auth.RefreshTokenSecret = secret
	}

	if ttl := os.Getenv("INKWELL_ACCESS_TOKEN_TTL"); ttl != "" {
		cfg.Auth.AccessTokenTTL = ttl
	}

	if ttl := os.Getenv("INKWELL_REFRESH_TOKEN_TTL"); ttl != "" {
		cfg.Auth.RefreshTokenTTL = ttl
	}

	if level := os.Getenv("INKWELL_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	if v := os.Getenv("INKWELL_ALLOW_ADMIN_REGISTRATION"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("INKWELL_ALLOW_ADMIN_REGISTRATION: %w", err)
		}
		cfg.Auth.AllowAdminRegistration = b
	}

	if v := os.Getenv("INKWELL_ROTATE_REFRESH_TOKENS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("INKWELL_ROTATE_REFRESH_TOKENS: %w", err)
		}
		cfg.Auth.RotateRefreshTokens = b
	}

	return nil
}
