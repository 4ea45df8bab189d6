package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Auth.AccessTokenSecret = "access-secret"
	cfg.Auth.RefreshTokenSecret = "refresh-secret"
	return cfg
}

func TestDefault_FailsWithoutSecrets(t *testing.T) {
	err := Default().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access_token_secret")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing listen addr", mutate: func(c *Config) { c.Server.ListenAddr = "" }, wantErr: "listen_addr"},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: "database.driver"},
		{name: "missing dsn", mutate: func(c *Config) { c.Database.DSN = "" }, wantErr: "database.dsn"},
		{name: "missing refresh secret", mutate: func(c *Config) { c.Auth.RefreshTokenSecret = "" }, wantErr: "refresh_token_secret"},
		{name: "same secrets", mutate: func(c *Config) { c.Auth.RefreshTokenSecret = c.Auth.AccessTokenSecret }, wantErr: "must differ"},
		{name: "bad access ttl", mutate: func(c *Config) { c.Auth.AccessTokenTTL = "soon" }, wantErr: "access_token_ttl"},
		{name: "refresh shorter than access", mutate: func(c *Config) { c.Auth.RefreshTokenTTL = "1m" }, wantErr: "longer than"},
		{name: "bcrypt cost too low", mutate: func(c *Config) { c.Auth.BcryptCost = 2 }, wantErr: "bcrypt_cost"},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "trace" }, wantErr: "logging.level"},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("7d")
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, d)

	d, err = ParseDuration("15m")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, d)

	for _, bad := range []string{"xd", "1.5d", "7xd", "7 d", "-1d", "7"} {
		_, err = ParseDuration(bad)
		assert.Error(t, err, bad)
	}
}

func TestDurations(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, 15*time.Minute, cfg.GetAccessTokenTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.GetRefreshTokenTTL())
	assert.False(t, cfg.IsProduction())

	cfg.Server.Environment = EnvProduction
	assert.True(t, cfg.IsProduction())
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadWithEnv_FileAndOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_addr: ":8080"
database:
  driver: sqlite3
  dsn: /tmp/inkwell.db
auth:
  access_token_secret: file-access
  refresh_token_secret: file-refresh
  access_token_ttl: 5m
  refresh_token_ttl: 1d
logging:
  level: debug
  format: text
`)

	t.Setenv("INKWELL_REFRESH_TOKEN_SECRET", "env-refresh")
	t.Setenv("INKWELL_ENV", "production")
	t.Setenv("INKWELL_ROTATE_REFRESH_TOKENS", "true")

	cfg, err := LoadWithEnv(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, "/tmp/inkwell.db", cfg.Database.DSN)
	assert.Equal(t, "file-access", cfg.Auth.AccessTokenSecret)
	assert.Equal(t, "env-refresh", cfg.Auth.RefreshTokenSecret)
	assert.Equal(t, 5*time.Minute, cfg.GetAccessTokenTTL())
	assert.Equal(t, 24*time.Hour, cfg.GetRefreshTokenTTL())
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.Auth.RotateRefreshTokens)
	assert.False(t, cfg.Auth.AllowAdminRegistration)
	// untouched defaults survive a partial file
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, "Inkwell", cfg.Auth.TOTPIssuer)
}

func TestLoadWithEnv_EnvOnly(t *testing.T) {
	t.Setenv("INKWELL_ACCESS_TOKEN_SECRET", "a")
	t.Setenv("INKWELL_REFRESH_TOKEN_SECRET", "b")
	t.Setenv("INKWELL_DB_DRIVER", "pgx")
	t.Setenv("INKWELL_DB_DSN", "postgres://localhost/inkwell")

	cfg, err := LoadWithEnv("")
	require.NoError(t, err)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/inkwell", cfg.Database.DSN)

	// TTLs and environment fall back to defaults, secrets never do
	assert.Equal(t, 15*time.Minute, cfg.GetAccessTokenTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.GetRefreshTokenTTL())
	assert.False(t, cfg.IsProduction())
}

func TestLoadWithEnv_MalformedTTL(t *testing.T) {
	t.Setenv("INKWELL_ACCESS_TOKEN_SECRET", "a")
	t.Setenv("INKWELL_REFRESH_TOKEN_SECRET", "b")
	t.Setenv("INKWELL_REFRESH_TOKEN_TTL", "1.5d")

	_, err := LoadWithEnv("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh_token_ttl")
}

func TestLoadWithEnv_FailsFastWithoutSecrets(t *testing.T) {
	t.Setenv("INKWELL_ACCESS_TOKEN_SECRET", "")
	t.Setenv("INKWELL_REFRESH_TOKEN_SECRET", "")

	_, err := LoadWithEnv("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoadWithEnv_BadBool(t *testing.T) {
	t.Setenv("INKWELL_ACCESS_TOKEN_SECRET", "a")
	t.Setenv("INKWELL_REFRESH_TOKEN_SECRET", "b")
	t.Setenv("INKWELL_ALLOW_ADMIN_REGISTRATION", "maybe")

	_, err := LoadWithEnv("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INKWELL_ALLOW_ADMIN_REGISTRATION")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := writeConfig(t, "server: [not a map")
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}
