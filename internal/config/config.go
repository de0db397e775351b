package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

type StoreKind string

const (
	StorePostgres StoreKind = "postgres"
	StoreFirebase StoreKind = "firebase"
	StoreMemory   StoreKind = "memory"
)

type Config struct {
	App struct {
		Name string `env:"APP_NAME" envDefault:"mentorship-service"`
		Env  string `env:"APP_ENV" envDefault:"local"`
	}

	HTTP struct {
		Port            string        `env:"PORT" envDefault:"8080"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	}

	Store StoreKind `env:"STORE" envDefault:"postgres"`

	Postgres struct {
		URL     string `env:"DATABASE_URL"`
		Migrate bool   `env:"DATABASE_MIGRATE" envDefault:"true"`
	}

	Firebase struct {
		CredentialsFile string `env:"FIREBASE_CREDENTIALS_FILE"`
		DatabaseURL     string `env:"FIREBASE_DATABASE_URL"`
	}

	Auth struct {
		JWTSecret    string `env:"JWT_HMAC_SECRET"`
		StaticTokens string `env:"STATIC_TOKENS"`
	}

	Google struct {
		ClientID     string `env:"GOOGLE_CLIENT_ID"`
		ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
		RedirectURL  string `env:"GOOGLE_REDIRECT_URL"`
	}

	Kafka struct {
		Brokers string `env:"KAFKA_BROKERS"`
	}

	RateLimit struct {
		RedisAddr string        `env:"REDIS_ADDR"`
		Limit     int           `env:"RATE_LIMIT_REQUESTS" envDefault:"60"`
		Window    time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	}

	Otel struct {
		Enabled      bool    `env:"OTEL_ENABLED" envDefault:"false"`
		OTLPEndpoint string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
		SampleRatio  float64 `env:"OTEL_SAMPLING_RATIO" envDefault:"1"`
	}
}

func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Store = StoreKind(strings.ToLower(strings.TrimSpace(string(cfg.Store))))
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case StorePostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE=%s", c.Store)
		}
	case StoreFirebase:
		if c.Firebase.DatabaseURL == "" {
			return fmt.Errorf("FIREBASE_DATABASE_URL is required when STORE=%s", c.Store)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}
	if c.Otel.SampleRatio < 0 || c.Otel.SampleRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLING_RATIO must be within [0,1], got %v", c.Otel.SampleRatio)
	}
	return nil
}

func (c *Config) Addr() string {
	return ":" + c.HTTP.Port
}

func (c *Config) IsLocal() bool {
	return c.App.Env == "local"
}
