// Package config loads application settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// DevSecret is the session secret used when none is configured. It is
// refused in production.
const DevSecret = "dev-secret-change-me"

type Config struct {
	HTTPServer
	Database
	Session
	Logging
	Env string `env:"APP_ENV" env-default:"development"`
}

type HTTPServer struct {
	BindAddress     string        `env:"BIND_ADDRESS" env-default:""`
	BindPort        string        `env:"BIND_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" env-default:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" env-default:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"5s"`
}

func (h HTTPServer) Addr() string {
	return h.BindAddress + ":" + h.BindPort
}

type Database struct {
	Path string `env:"DB_PATH" env-default:"instance/blog.sqlite"`
}

type Session struct {
	Secret       string        `env:"SESSION_SECRET" env-default:"dev-secret-change-me"`
	TTL          time.Duration `env:"SESSION_TTL" env-default:"24h"`
	CookieName   string        `env:"SESSION_COOKIE" env-default:"session"`
	CookieSecure bool          `env:"COOKIE_SECURE" env-default:"false"`
}

type Logging struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"text"`
}

// New reads envFile, if it exists, without overriding variables already set,
// then fills Config from the environment.
func New(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("godotenv.Load: %w", err)
		}
	}

	conf := &Config{}
	if err := cleanenv.ReadEnv(conf); err != nil {
		return nil, fmt.Errorf("cleanenv.ReadEnv: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return conf, nil
}

func (c *Config) Production() bool {
	return c.Env == "production" || c.Env == "prod"
}

func (c *Config) Validate() error {
	if c.BindPort == "" {
		return errors.New("BIND_PORT is required")
	}
	if c.Path == "" {
		return errors.New("DB_PATH is required")
	}
	if c.Secret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	if c.TTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.Production() {
		if c.Secret == DevSecret {
			return errors.New("SESSION_SECRET must be changed from the default value in production")
		}
		if len(c.Secret) < 32 {
			return errors.New("SESSION_SECRET must be at least 32 characters in production")
		}
	}
	return nil
}
