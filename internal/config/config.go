package config

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
)

type Config struct {
	Primary     Primary           `koanf:"primary"`
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Connector   ConnectorConfig   `koanf:"connector"`
	ErpAdapter  ErpAdapterConfig  `koanf:"erp_adapter"`
	Retry       RetryConfig       `koanf:"retry"`
	Coordinator CoordinatorConfig `koanf:"coordinator"`
	Scheduler   SchedulerConfig   `koanf:"scheduler"`
	Logger      LoggerConfig      `koanf:"logger"`
	Worker      WorkerConfig      `koanf:"worker"`
}

type Primary struct {
	Env      string `koanf:"env" validate:"required"`
	OwnBpnl  string `koanf:"own_bpnl" validate:"required"`
	SiteName string `koanf:"site_name"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

// ConnectorConfig addresses the dataspace connector's management API.
type ConnectorConfig struct {
	ManagementURL      string        `koanf:"management_url" validate:"required"`
	APIKey             string        `koanf:"api_key"`
	ConnTimeout        time.Duration `koanf:"conn_timeout" validate:"required"`
	PollInterval       time.Duration `koanf:"poll_interval" validate:"required"`
	NegotiationTimeout time.Duration `koanf:"negotiation_timeout" validate:"required"`
	TransferTimeout    time.Duration `koanf:"transfer_timeout" validate:"required"`
}

// ErpAdapterConfig addresses the backend-of-record adapter.
type ErpAdapterConfig struct {
	URL           string        `koanf:"url" validate:"required"`
	APIKey        string        `koanf:"api_key"`
	ConnTimeout   time.Duration `koanf:"conn_timeout" validate:"required"`
	AnswerTimeout time.Duration `koanf:"answer_timeout" validate:"required"`
}

type RetryConfig struct {
	BaseDelay   time.Duration `koanf:"base_delay"`
	MaxAttempts int           `koanf:"max_attempts"`
}

// CoordinatorConfig sizes the worker pool that processes exchange requests.
type CoordinatorConfig struct {
	Workers        int           `koanf:"workers" validate:"required"`
	QueueSize      int           `koanf:"queue_size" validate:"required"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"required"`
}

// SchedulerConfig controls how often the backend-of-record is pulled per
// partner/material/direction key.
type SchedulerConfig struct {
	RefreshInterval   time.Duration `koanf:"refresh_interval" validate:"required"`
	StalenessLimit    time.Duration `koanf:"staleness_limit" validate:"required"`
	ScheduleRetention time.Duration `koanf:"schedule_retention" validate:"required"`
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

type WorkerConfig struct {
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"required"`
	PruneInterval time.Duration `koanf:"prune_interval" validate:"required"`
}

// NewLogger builds the process-wide slog logger from the configured level.
func (c LoggerConfig) NewLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	err := k.Load(env.Provider("GATEWAY_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "GATEWAY_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	if mainConfig.Scheduler.StalenessLimit < mainConfig.Scheduler.RefreshInterval {
		err = errors.New("scheduler staleness_limit must be >= refresh_interval")
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}
