package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigma-sevilla/sigma-auth/config"
)

func TestLoadRequiresSigningKey(t *testing.T) {
	t.Setenv("SIGMA_JWT_SECRET", "")

	_, err := config.Load(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SIGMA_JWT_SECRET", "env-secret")
	t.Setenv("SIGMA_ACCESS_TOKEN_TTL", "5m")
	t.Setenv("SIGMA_REFRESH_TOKEN_TTL_SECONDS", "3600")
	t.Setenv("SIGMA_SUPERADMIN_MATRICULA", "srchicano")
	t.Setenv("SIGMA_SUPERADMIN_PASSWORD", "admin")
	t.Setenv("SIGMA_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.GetSigningKey())
	assert.Equal(t, 5*time.Minute, cfg.GetAccessTokenTTL())
	assert.Equal(t, time.Hour, cfg.GetRefreshTokenTTL())
	assert.Equal(t, "srchicano", cfg.GetSuperAdminMatricula())
	assert.Equal(t, "admin", cfg.GetSuperAdminPassword())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.GetAllowOrigins())
	assert.Equal(t, "access_token", cfg.GetAccessCookieName())
	assert.Equal(t, "refresh_token", cfg.GetRefreshCookieName())
}

func TestLoadSecretFromFile(t *testing.T) {
	dir := t.TempDir()
	secretPath := filepath.Join(dir, "secret")
	require.NoError(t, os.WriteFile(secretPath, []byte("file-secret\n"), 0o600))

	t.Setenv("SIGMA_JWT_SECRET", "ignored")
	t.Setenv("SIGMA_JWT_SECRET_FILE", secretPath)

	cfg, err := config.Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "file-secret", cfg.GetSigningKey())
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sigma.yaml")
	yamlDoc := `
http_addr: ":9000"
database:
  driver: postgres
  dsn: postgres://sigma@localhost/sigma
auth:
  signing_key: yaml-secret
  access_token_ttl: 10m
  refresh_token_ttl: 24h
log:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))

	t.Setenv("SIGMA_HTTP_ADDR", ":9100")

	cfg, err := config.Load([]string{"--config", path, "--addr", ":9200", "--db-driver", "sqlite"})
	require.NoError(t, err)

	assert.Equal(t, ":9200", cfg.GetHTTPAddr(), "flags win over env and file")
	assert.Equal(t, "sqlite", cfg.GetDatabaseDriver())
	assert.Equal(t, "postgres://sigma@localhost/sigma", cfg.GetDatabaseDSN())
	assert.Equal(t, "yaml-secret", cfg.GetSigningKey())
	assert.Equal(t, 10*time.Minute, cfg.GetAccessTokenTTL())
	assert.Equal(t, 24*time.Hour, cfg.GetRefreshTokenTTL())
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sigma.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: \":9000\"\nauth:\n  signing_key: s\n"), 0o600))

	t.Setenv("SIGMA_HTTP_ADDR", ":9100")

	cfg, err := config.Load([]string{"--config", path})
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.GetHTTPAddr())
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("SIGMA_JWT_SECRET", "s")
	_, err := config.Load([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
}

func TestLoadRejectsUnusableEnvironment(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		variable string
	}{
		{
			name:     "duration",
			env:      map[string]string{"SIGMA_ACCESS_TOKEN_TTL": "fifteen minutes"},
			variable: "SIGMA_ACCESS_TOKEN_TTL",
		},
		{
			name:     "seconds",
			env:      map[string]string{"SIGMA_REFRESH_TOKEN_TTL_SECONDS": "1h"},
			variable: "SIGMA_REFRESH_TOKEN_TTL_SECONDS",
		},
		{
			name:     "secret file",
			env:      map[string]string{"SIGMA_JWT_SECRET_FILE": "/nonexistent/sigma/secret"},
			variable: "SIGMA_JWT_SECRET_FILE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SIGMA_JWT_SECRET", "s")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.Load(nil)
			require.Error(t, err)

			var richErr *errors.Error
			require.True(t, errors.As(err, &richErr))
			assert.Equal(t, "INVALID_CONFIG", richErr.TextCode)
			assert.Equal(t, tt.variable, richErr.Metadata["variable"])
		})
	}
}

func TestValidate(t *testing.T) {
	base := config.Defaults()
	base.Auth.SigningKey = "secret"
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown driver", func(c *config.Config) { c.Database.Driver = "mongo" }},
		{"empty dsn", func(c *config.Config) { c.Database.DSN = "" }},
		{"access not shorter than refresh", func(c *config.Config) { c.Auth.AccessTokenTTL = c.Auth.RefreshTokenTTL }},
		{"zero ttl", func(c *config.Config) { c.Auth.AccessTokenTTL = 0 }},
		{"password without matricula", func(c *config.Config) { c.Auth.SuperAdminPassword = "admin" }},
		{"unknown log format", func(c *config.Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigIsCopiedByValue(t *testing.T) {
	t.Setenv("SIGMA_JWT_SECRET", "s")
	cfg, err := config.Load(nil)
	require.NoError(t, err)

	origins := cfg.GetAllowOrigins()
	origins[0] = "mutated"
	assert.NotEqual(t, "mutated", cfg.GetAllowOrigins()[0])
}
