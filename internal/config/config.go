package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string `yaml:"env" env:"APP_ENV" env-default:"local"`
	HTTP     `yaml:"http"`
	Log      `yaml:"log"`
	Session  `yaml:"session"`
	Redis    `yaml:"redis"`
	Catalog  `yaml:"catalog"`
	Delivery `yaml:"delivery"`
	Kafka    `yaml:"kafka"`
}

type HTTP struct {
	Addr                    string        `yaml:"addr" env:"HTTP_ADDR" env-default:":8080"`
	ReadTimeout             time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout            time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"90s"`
	RequestTimeout          time.Duration `yaml:"request_timeout" env:"HTTP_REQUEST_TIMEOUT" env-default:"60s"`
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"15s"`
}

type Log struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

type Session struct {
	// Store is "memory" or "redis".
	Store   string        `yaml:"store" env:"SESSION_STORE" env-default:"memory"`
	TTL     time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"30m"`
	IdleTTL time.Duration `yaml:"idle_ttl" env:"SESSION_IDLE_TTL" env-default:"30m"`
}

type Redis struct {
	Addr          string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password      string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB            int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	RetryAttempts uint          `yaml:"retry_attempts" env:"REDIS_RETRY_ATTEMPTS" env-default:"5"`
	RetryDelay    time.Duration `yaml:"retry_delay" env:"REDIS_RETRY_DELAY" env-default:"200ms"`
	RetryMaxDelay time.Duration `yaml:"retry_max_delay" env:"REDIS_RETRY_MAX_DELAY" env-default:"2s"`
}

type Catalog struct {
	// Source is "sqlite" or "builtin".
	Source         string `yaml:"source" env:"CATALOG_SOURCE" env-default:"sqlite"`
	DBPath         string `yaml:"db_path" env:"CATALOG_DB_PATH" env-default:":memory:"`
	MigrationsPath string `yaml:"migrations_path" env:"CATALOG_MIGRATIONS_PATH" env-default:"internal/repository/migrations"`
}

type Delivery struct {
	MinLatency  time.Duration `yaml:"min_latency" env:"DELIVERY_MIN_LATENCY" env-default:"900ms"`
	MaxLatency  time.Duration `yaml:"max_latency" env:"DELIVERY_MAX_LATENCY" env-default:"1800ms"`
	SuccessRate float64       `yaml:"success_rate" env:"DELIVERY_SUCCESS_RATE" env-default:"0.85"`
	CertWidth   int           `yaml:"certificate_width" env:"CERTIFICATE_WIDTH" env-default:"800"`
	CertHeight  int           `yaml:"certificate_height" env:"CERTIFICATE_HEIGHT" env-default:"560"`
	Breaker     Breaker       `yaml:"breaker"`
}

type Breaker struct {
	FailureThreshold uint32        `yaml:"failure_threshold" env:"BREAKER_FAILURE_THRESHOLD" env-default:"5"`
	OpenTimeout      time.Duration `yaml:"open_timeout" env:"BREAKER_OPEN_TIMEOUT" env-default:"30s"`
}

type Kafka struct {
	// No brokers disables the delivery publisher.
	Brokers   []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	QueueSize int      `yaml:"queue_size" env:"KAFKA_QUEUE_SIZE" env-default:"256"`
}

// Load reads the YAML file named by CONFIG_PATH when it is set, otherwise the environment.
// Environment variables override file values.
func Load() (*Config, error) {
	var cfg Config

	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("config file %s: %w", configPath, err)
		}
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("error loading config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Session.Store != "memory" && c.Session.Store != "redis" {
		errs = append(errs, fmt.Errorf("session.store must be memory or redis, got %q", c.Session.Store))
	}
	if c.Catalog.Source != "sqlite" && c.Catalog.Source != "builtin" {
		errs = append(errs, fmt.Errorf("catalog.source must be sqlite or builtin, got %q", c.Catalog.Source))
	}
	if c.Delivery.SuccessRate < 0 || c.Delivery.SuccessRate > 1 {
		errs = append(errs, fmt.Errorf("delivery.success_rate must be within [0, 1], got %v", c.Delivery.SuccessRate))
	}
	if c.Delivery.MinLatency < 0 || c.Delivery.MaxLatency < c.Delivery.MinLatency {
		errs = append(errs, errors.New("delivery latency range is invalid"))
	}
	if c.Delivery.CertWidth <= 0 || c.Delivery.CertHeight <= 0 {
		errs = append(errs, errors.New("certificate size must be positive"))
	}
	return errors.Join(errs...)
}

// UsesRepository reports whether the catalog comes from the SQLite database.
func (c *Config) UsesRepository() bool {
	return c.Catalog.Source == "sqlite"
}
