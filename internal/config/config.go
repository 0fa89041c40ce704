package config

import (
	"fmt"
	"time"

	"ticketboss/internal/cache"
	"ticketboss/internal/database"
	"ticketboss/internal/messaging"

	"github.com/caarlos0/env/v11"
)

// Config содержит конфигурацию приложения
type Config struct {
	Port              string `env:"PORT" envDefault:"8081"`
	GinMode           string `env:"GIN_MODE" envDefault:"debug"`
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat         string `env:"LOG_FORMAT" envDefault:"json"`
	RequestTimeoutSec int    `env:"REQUEST_TIMEOUT_SEC" envDefault:"30"`

	// Performance monitoring
	PprofEnabled bool   `env:"PPROF_ENABLED" envDefault:"false"`
	PprofPort    string `env:"PPROF_PORT" envDefault:"6060"`

	// Prometheus endpoint of the consumers process
	ConsumersMetricsPort string `env:"CONSUMERS_METRICS_PORT" envDefault:"9091"`

	// Maintenance endpoint for test environments
	ResetEnabled bool `env:"RESET_ENABLED" envDefault:"false"`

	Event     EventConfig
	Database  database.Config
	Messaging messaging.Config
	Cache     cache.Config
	Search    ElasticsearchConfig
}

// EventConfig describes the single event seeded on first boot
type EventConfig struct {
	ID         string `env:"EVENT_ID" envDefault:"node-meetup-2025"`
	Name       string `env:"EVENT_NAME" envDefault:"Node.js Meet-up"`
	TotalSeats int    `env:"EVENT_TOTAL_SEATS" envDefault:"500"`
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Event.ID == "" {
		return fmt.Errorf("EVENT_ID must not be empty")
	}
	if c.Event.TotalSeats <= 0 {
		return fmt.Errorf("EVENT_TOTAL_SEATS must be positive, got %d", c.Event.TotalSeats)
	}
	switch c.Database.Driver {
	case database.DriverPostgres, database.DriverPGX, database.DriverMySQL, database.DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.Messaging.Driver {
	case messaging.DriverNone, messaging.DriverNATS, messaging.DriverAMQP:
	default:
		return fmt.Errorf("unsupported MESSAGING_DRIVER %q", c.Messaging.Driver)
	}
	return nil
}
