// Package config loads and validates the application configuration.
//
// Values are layered, lowest precedence first:
//   - built-in defaults (Default)
//   - an optional YAML file named by SERVICEKIT_CONFIG
//   - environment variables prefixed with SERVICEKIT_ (a `.env` file is
//     loaded into the environment first)
//
// Nested keys use a double underscore in env var names:
// SERVICEKIT_DATABASE__MAX_CONNS -> database.max_conns.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	// EnvPrefix is the prefix of every environment variable read by LoadConfig.
	EnvPrefix = "SERVICEKIT_"

	// FileEnvVar names the optional YAML config file.
	FileEnvVar = EnvPrefix + "CONFIG"

	// ServiceName tags logs and metrics.
	ServiceName = "servicekit"
)

// Environment names understood by the application.
const (
	EnvDevelopment = "development"
	EnvLocal       = "local"
	EnvProduction  = "production"
)

// Config is the root configuration object for the application.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Redis         RedisConfig          `koanf:"redis"`
	Docs          DocsConfig           `koanf:"docs"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds the runtime environment name.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server. Timeouts are in seconds.
type ServerConfig struct {
	Port               string          `koanf:"port" validate:"required"`
	ReadTimeout        int             `koanf:"read_timeout" validate:"required,min=1"`
	WriteTimeout       int             `koanf:"write_timeout" validate:"required,min=1"`
	IdleTimeout        int             `koanf:"idle_timeout" validate:"required,min=1"`
	CORSAllowedOrigins []string        `koanf:"cors_allowed_origins" validate:"required"`
	RateLimit          RateLimitConfig `koanf:"rate_limit"`
}

// RateLimitConfig throttles clients by IP. A zero rate disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gte=0"`
	Burst             int     `koanf:"burst" validate:"gte=0"`
	// ExpiresInSeconds drops idle client buckets.
	ExpiresInSeconds int `koanf:"expires_in" validate:"gte=0"`
}

// Enabled reports whether a rate is configured.
func (r RateLimitConfig) Enabled() bool {
	return r.RequestsPerSecond > 0
}

// ExpiresIn returns the idle bucket lifetime, defaulting to three minutes.
func (r RateLimitConfig) ExpiresIn() time.Duration {
	if r.ExpiresInSeconds <= 0 {
		return 3 * time.Minute
	}
	return time.Duration(r.ExpiresInSeconds) * time.Second
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
// Lifetimes are in seconds.
type DatabaseConfig struct {
	Host            string `koanf:"host" validate:"required"`
	Port            int    `koanf:"port" validate:"required"`
	User            string `koanf:"user" validate:"required"`
	Password        string `koanf:"password"`
	Name            string `koanf:"name" validate:"required"`
	SSLMode         string `koanf:"ssl_mode" validate:"required,oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns        int32  `koanf:"max_conns" validate:"min=1"`
	MinConns        int32  `koanf:"min_conns" validate:"min=0,ltefield=MaxConns"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"min=0"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"min=0"`
}

// RedisConfig contains Redis connection details. An empty Address disables
// the cache extension.
type RedisConfig struct {
	Address  string `koanf:"address"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db" validate:"min=0"`
	// TTL of cached entries, in seconds.
	TTL int `koanf:"ttl" validate:"min=0"`
}

// DocsConfig controls the generated API documentation.
type DocsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Title   string `koanf:"title"`
	Version string `koanf:"version"`
	Path    string `koanf:"path" validate:"omitempty,startswith=/"`
}

// Enabled reports whether the cache extension is configured.
func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

// IsDevelopment reports whether error bodies may carry stack traces.
func (c *Config) IsDevelopment() bool {
	return c.Primary.Env == EnvDevelopment
}

// Default returns the configuration used before any file or env var is read.
func Default() *Config {
	return &Config{
		Primary: Primary{Env: EnvDevelopment},
		Server: ServerConfig{
			Port:               "8080",
			ReadTimeout:        30,
			WriteTimeout:       30,
			IdleTimeout:        60,
			CORSAllowedOrigins: []string{"*"},
			RateLimit:          RateLimitConfig{Burst: 20},
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Name:            ServiceName,
			SSLMode:         "disable",
			MaxConns:        10,
			MinConns:        1,
			ConnMaxLifetime: 3600,
			ConnMaxIdleTime: 300,
		},
		Redis: RedisConfig{TTL: 300},
		Docs: DocsConfig{
			Enabled: true,
			Title:   ServiceName,
			Version: "1.0.0",
			Path:    "/docs",
		},
		Observability: DefaultObservabilityConfig(),
	}
}

// LoadConfig builds a Config from defaults, the optional file and the
// environment, then validates it.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(FileEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "loading config file %s", path)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envEntry), nil); err != nil {
		return nil, errors.Wrap(err, "loading env variables")
	}

	// Unmarshal on top of the defaults so unset keys keep their values.
	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}

	if cfg.Observability == nil {
		cfg.Observability = DefaultObservabilityConfig()
	}
	cfg.Observability.ServiceName = ServiceName
	cfg.Observability.Environment = cfg.Primary.Env

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	if err := cfg.Observability.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid observability config")
	}

	return cfg, nil
}

// listKeys hold comma-separated values in the environment.
var listKeys = map[string]bool{
	"server.cors_allowed_origins": true,
}

// envKey maps SERVICEKIT_DATABASE__MAX_CONNS to database.max_conns.
func envKey(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ToLower(strings.ReplaceAll(key, "__", "."))
}

func envEntry(key, value string) (string, any) {
	if key == FileEnvVar {
		return "", nil
	}

	name := envKey(key)
	if !listKeys[name] {
		return name, value
	}

	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return name, parts
}
