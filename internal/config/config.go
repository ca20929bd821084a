// Package config loads service configuration from an optional YAML file
// with environment variables layered on top.
//
// Load order: explicit --config path, then CONFIG_PATH, then ./local.yaml,
// then environment variables alone.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root service configuration.
type Config struct {
	Env    string       `yaml:"env" env:"TUNEWAVE_ENV" env-default:"local"`
	HTTP   HTTPConfig   `yaml:"http"`
	GRPC   GRPCConfig   `yaml:"grpc"`
	Auth   AuthConfig   `yaml:"auth"`
	DB     DBConfig     `yaml:"db"`
	Limits LimitsConfig `yaml:"limits"`
}

// HTTPConfig holds HTTP server network settings.
type HTTPConfig struct {
	Host string `yaml:"host" env:"TUNEWAVE_HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"TUNEWAVE_HTTP_PORT" env-default:"8080"`
}

// GRPCConfig holds gRPC health endpoint settings. Empty port disables it.
type GRPCConfig struct {
	Host string `yaml:"host" env:"TUNEWAVE_GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"TUNEWAVE_GRPC_PORT" env-default:""`
}

// Addr returns host:port.
func (c HTTPConfig) Addr() string { return net.JoinHostPort(c.Host, c.Port) }

// Addr returns host:port; empty when the endpoint is disabled.
func (c GRPCConfig) Addr() string {
	if c.Port == "" {
		return ""
	}
	return net.JoinHostPort(c.Host, c.Port)
}

// AuthConfig holds token issuance and validation parameters. The two
// signing secrets must differ so a leaked access-signing secret cannot
// forge refresh tokens and vice versa.
type AuthConfig struct {
	AccessSecret  string        `yaml:"access_secret" env:"TUNEWAVE_ACCESS_SECRET" env-required:"true"`
	RefreshSecret string        `yaml:"refresh_secret" env:"TUNEWAVE_REFRESH_SECRET" env-required:"true"`
	AccessTTL     time.Duration `yaml:"access_ttl" env:"TUNEWAVE_ACCESS_TTL" env-default:"15m"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl" env:"TUNEWAVE_REFRESH_TTL" env-default:"720h"`
	Issuer        string        `yaml:"issuer" env:"TUNEWAVE_ISSUER" env-default:"tunewave"`
	RotateRefresh bool          `yaml:"rotate_refresh" env:"TUNEWAVE_ROTATE_REFRESH" env-default:"false"`
}

// DBConfig holds database connection settings.
type DBConfig struct {
	DSN string `yaml:"dsn" env:"TUNEWAVE_PG_DSN" env-required:"true"`
}

// LimitsConfig holds request throttling settings.
type LimitsConfig struct {
	RatePerSecond int   `yaml:"rate_per_second" env:"TUNEWAVE_RATE_PER_SECOND" env-default:"20"`
	RateBurst     int   `yaml:"rate_burst" env:"TUNEWAVE_RATE_BURST" env-default:"40"`
	MaxBodyBytes  int64 `yaml:"max_body_bytes" env:"TUNEWAVE_MAX_BODY_BYTES" env-default:"1048576"`
}

// MustLoad wraps Load and panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration according to the documented priority.
func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("overlay env: %w", err)
		}
		return &cfg, nil
	}

	load := func() (*Config, error) {
		if path != "" {
			return tryRead(path)
		}
		if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
			return tryRead(envPath)
		}
		if _, err := os.Stat("local.yaml"); err == nil {
			return tryRead("local.yaml")
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("read env: %w", err)
		}
		return &cfg, nil
	}

	loaded, err := load()
	if err != nil {
		return nil, err
	}
	if err := loaded.Validate(); err != nil {
		return nil, err
	}
	return loaded, nil
}

// Validate enforces cross-field constraints cleanenv cannot express.
func (c *Config) Validate() error {
	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return errors.New("config: access and refresh signing secrets must differ")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		return errors.New("config: token lifetimes must be positive")
	}
	if c.Auth.RefreshTTL <= c.Auth.AccessTTL {
		return errors.New("config: refresh lifetime must exceed access lifetime")
	}
	return nil
}
