package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variable names before they are
// mapped onto Config, so TASKS_DATABASE_DSN sets database_dsn.
const EnvPrefix = "TASKS_"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"

	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

type Config struct {
	AppHost string `koanf:"app_host" validate:"required"`
	AppPort int    `koanf:"app_port" validate:"gt=0,lte=65535"`

	DatabaseDriver          string        `koanf:"database_driver" validate:"oneof=sqlite postgres mysql"`
	DatabaseDSN             string        `koanf:"database_dsn" validate:"required"`
	DatabaseMaxOpenConns    int           `koanf:"database_max_open_conns" validate:"gt=0"`
	DatabaseMaxIdleConns    int           `koanf:"database_max_idle_conns" validate:"gte=0"`
	DatabaseConnMaxLifetime time.Duration `koanf:"database_conn_max_lifetime" validate:"gte=0"`
	DatabaseConnMaxIdleTime time.Duration `koanf:"database_conn_max_idle_time" validate:"gte=0"`
	DatabaseSlowQuery       time.Duration `koanf:"database_slow_query" validate:"gte=0"`

	LogLevel  string `koanf:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat string `koanf:"log_format" validate:"oneof=json console"`

	RateLimit        int    `koanf:"rate_limit_per_minute" validate:"gt=0"`
	RateLimitBackend string `koanf:"rate_limit_backend" validate:"oneof=memory redis"`
	RedisAddr        string `koanf:"redis_addr" validate:"required_if=RateLimitBackend redis"`
	RedisKeyPrefix   string `koanf:"redis_key_prefix" validate:"required_if=RateLimitBackend redis"`

	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

func Default() Config {
	return Config{
		AppHost:                 "127.0.0.1",
		AppPort:                 8080,
		DatabaseDriver:          DriverSQLite,
		DatabaseDSN:             "tasks.db",
		DatabaseMaxOpenConns:    10,
		DatabaseMaxIdleConns:    5,
		DatabaseConnMaxLifetime: 30 * time.Minute,
		DatabaseConnMaxIdleTime: 5 * time.Minute,
		DatabaseSlowQuery:       200 * time.Millisecond,
		LogLevel:                "info",
		LogFormat:               "console",
		RateLimit:               60,
		RateLimitBackend:        RateLimitMemory,
		RedisAddr:               "127.0.0.1:6379",
		RedisKeyPrefix:          "task_tracker:rate_limit",
		ShutdownTimeout:         20 * time.Second,
	}
}

// Load overlays TASKS_* environment variables on Default and validates the
// result.
func Load() (Config, error) {
	k := koanf.New(".")

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c Config) AppURL() string {
	return net.JoinHostPort(c.AppHost, strconv.Itoa(c.AppPort))
}
