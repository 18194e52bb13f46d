// Package config builds the process configuration once at startup from a YAML
// file, SIGMA_* environment variables and command line flags, in that order of
// precedence from lowest to highest.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const envPrefix = "SIGMA_"

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type AuthConfig struct {
	SigningKey          string        `yaml:"signing_key"`
	Issuer              string        `yaml:"issuer"`
	AccessTokenTTL      time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL     time.Duration `yaml:"refresh_token_ttl"`
	AccessCookieName    string        `yaml:"access_cookie_name"`
	RefreshCookieName   string        `yaml:"refresh_cookie_name"`
	CookieDomain        string        `yaml:"cookie_domain"`
	SuperAdminMatricula string        `yaml:"super_admin_matricula"`
	SuperAdminPassword  string        `yaml:"super_admin_password"`
}

type CORSConfig struct {
	AllowOrigins []string `yaml:"allow_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the process configuration. It is passed by value so no component
// can change what another one sees after startup.
type Config struct {
	HTTPAddr string         `yaml:"http_addr"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	CORS     CORSConfig     `yaml:"cors"`
	Log      LogConfig      `yaml:"log"`
}

// Defaults returns the configuration used when nothing overrides it
func Defaults() Config {
	return Config{
		HTTPAddr: ":8000",
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "file:sigma.db?cache=shared",
		},
		Auth: AuthConfig{
			Issuer:            "sigma-auth",
			AccessTokenTTL:    15 * time.Minute,
			RefreshTokenTTL:   7 * 24 * time.Hour,
			AccessCookieName:  "access_token",
			RefreshCookieName: "refresh_token",
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"http://localhost:5173"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load parses args, reads the optional YAML file, applies the environment and
// validates the result.
func Load(args []string) (Config, error) {
	cfg := Defaults()

	flagSet := pflag.NewFlagSet("sigma-server", pflag.ContinueOnError)
	configPath := flagSet.String("config", getenv("CONFIG", ""), "path to a YAML configuration file")
	addr := flagSet.String("addr", "", "HTTP listen address")
	driver := flagSet.String("db-driver", "", "database driver: sqlite or postgres")
	dsn := flagSet.String("db-dsn", "", "database connection string")
	logLevel := flagSet.String("log-level", "", "log level: debug, info, warn, error")
	logFormat := flagSet.String("log-format", "", "log format: text or json")

	if err := flagSet.Parse(args); err != nil {
		return Config{}, err
	}

	if *configPath != "" {
		if err := cfg.mergeFile(*configPath); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if flagSet.Changed("addr") {
		cfg.HTTPAddr = *addr
	}
	if flagSet.Changed("db-driver") {
		cfg.Database.Driver = *driver
	}
	if flagSet.Changed("db-dsn") {
		cfg.Database.DSN = *dsn
	}
	if flagSet.Changed("log-level") {
		cfg.Log.Level = *logLevel
	}
	if flagSet.Changed("log-format") {
		cfg.Log.Format = *logFormat
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "read config file").
			WithMetadata(map[string]any{"path": path})
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "parse config file").
			WithMetadata(map[string]any{"path": path})
	}
	return nil
}

// applyEnv overrides c from SIGMA_* variables. A value that is set but cannot
// be used is an error rather than a silent fallback.
func (c *Config) applyEnv() error {
	env := &envReader{}

	c.HTTPAddr = getenv("HTTP_ADDR", c.HTTPAddr)
	c.Database.Driver = getenv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = env.secret("DB_DSN", c.Database.DSN)

	c.Auth.SigningKey = env.secret("JWT_SECRET", c.Auth.SigningKey)
	c.Auth.Issuer = getenv("JWT_ISSUER", c.Auth.Issuer)
	c.Auth.AccessTokenTTL = env.duration("ACCESS_TOKEN_TTL", c.Auth.AccessTokenTTL)
	c.Auth.RefreshTokenTTL = env.duration("REFRESH_TOKEN_TTL", c.Auth.RefreshTokenTTL)
	c.Auth.CookieDomain = getenv("COOKIE_DOMAIN", c.Auth.CookieDomain)
	c.Auth.SuperAdminMatricula = getenv("SUPERADMIN_MATRICULA", c.Auth.SuperAdminMatricula)
	c.Auth.SuperAdminPassword = env.secret("SUPERADMIN_PASSWORD", c.Auth.SuperAdminPassword)

	if origins := getenv("CORS_ORIGINS", ""); origins != "" {
		c.CORS.AllowOrigins = splitList(origins)
	}

	c.Log.Level = getenv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getenv("LOG_FORMAT", c.Log.Format)

	return env.err
}

// Validate reports the first configuration problem found
func (c Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Auth.SigningKey) == "" {
		problems = append(problems, "auth.signing_key is required (SIGMA_JWT_SECRET)")
	}

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("database.driver %q must be sqlite or postgres", c.Database.Driver))
	}

	if c.Database.DSN == "" {
		problems = append(problems, "database.dsn is required")
	}

	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		problems = append(problems, "token lifetimes must be positive")
	} else if c.Auth.AccessTokenTTL >= c.Auth.RefreshTokenTTL {
		problems = append(problems, "access_token_ttl must be shorter than refresh_token_ttl")
	}

	if c.Auth.SuperAdminPassword != "" && strings.TrimSpace(c.Auth.SuperAdminMatricula) == "" {
		problems = append(problems, "super_admin_matricula is required when a super admin password is set")
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration", errors.CategoryValidation).
			WithTextCode("INVALID_CONFIG").
			WithMetadata(map[string]any{"problems": problems})
	}

	return nil
}

func (c Config) GetSigningKey() string             { return c.Auth.SigningKey }
func (c Config) GetIssuer() string                 { return c.Auth.Issuer }
func (c Config) GetAccessTokenTTL() time.Duration  { return c.Auth.AccessTokenTTL }
func (c Config) GetRefreshTokenTTL() time.Duration { return c.Auth.RefreshTokenTTL }
func (c Config) GetAccessCookieName() string       { return c.Auth.AccessCookieName }
func (c Config) GetRefreshCookieName() string      { return c.Auth.RefreshCookieName }
func (c Config) GetCookieDomain() string           { return c.Auth.CookieDomain }
func (c Config) GetSuperAdminMatricula() string    { return c.Auth.SuperAdminMatricula }
func (c Config) GetSuperAdminPassword() string     { return c.Auth.SuperAdminPassword }
func (c Config) GetDatabaseDriver() string         { return c.Database.Driver }
func (c Config) GetDatabaseDSN() string            { return c.Database.DSN }
func (c Config) GetHTTPAddr() string               { return c.HTTPAddr }
func (c Config) GetAllowOrigins() []string         { return append([]string(nil), c.CORS.AllowOrigins...) }

func getenv(key, fallback string) string {
	if val := os.Getenv(envPrefix + key); val != "" {
		return val
	}
	return fallback
}

// envReader keeps the first error found while reading typed variables
type envReader struct {
	err error
}

func (r *envReader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *envReader) duration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(envPrefix + key); val != "" {
		parsed, err := time.ParseDuration(val)
		if err != nil {
			r.fail(errors.Wrap(err, errors.CategoryValidation, "parse duration variable").
				WithTextCode("INVALID_CONFIG").
				WithMetadata(map[string]any{"variable": envPrefix + key, "value": val}))
			return fallback
		}
		return parsed
	}
	if val := os.Getenv(envPrefix + key + "_SECONDS"); val != "" {
		seconds, err := strconv.Atoi(val)
		if err != nil {
			r.fail(errors.Wrap(err, errors.CategoryValidation, "parse seconds variable").
				WithTextCode("INVALID_CONFIG").
				WithMetadata(map[string]any{"variable": envPrefix + key + "_SECONDS", "value": val}))
			return fallback
		}
		return time.Duration(seconds) * time.Second
	}
	return fallback
}

// secret prefers the content of the file named by KEY_FILE
func (r *envReader) secret(key, fallback string) string {
	if file := os.Getenv(envPrefix + key + "_FILE"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			// the path is reported, never the content
			r.fail(errors.Wrap(err, errors.CategoryInternal, "read secret file").
				WithTextCode("INVALID_CONFIG").
				WithMetadata(map[string]any{"variable": envPrefix + key + "_FILE", "path": file}))
			return fallback
		}
		return strings.TrimSpace(string(data))
	}
	return getenv(key, fallback)
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
