package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Значения по умолчанию.
const (
	DefaultIdleInterval      = 10 * time.Second
	DefaultBatchInterval     = 5 * time.Second
	DefaultErrorBackoff      = 5 * time.Second
	DefaultLivenessThreshold = 60 * time.Second
	DefaultMinDelay          = 5 * time.Second
	DefaultMaxDelay          = 10 * time.Second
	DefaultSuccessRatio      = 0.8
	DefaultSeedCount         = 15
	DefaultPort              = "8080"
	DefaultSQLitePath        = "data/tasks.db"
)

// Config — конфигурация экземпляра.
type Config struct {
	// InstanceIndex — индекс экземпляра (CF_INSTANCE_INDEX), >= 0.
	InstanceIndex int

	Store  StoreConfig
	Worker WorkerConfig
	Seed   SeedConfig

	// Port — порт HTTP surface.
	Port string

	// RabbitMQURL — брокер событий; пусто — события отключены.
	RabbitMQURL string
}

// StoreConfig — параметры хранилища.
type StoreConfig struct {
	Driver      string
	DSN         string
	SQLitePath  string
	Credentials DBCredentials
}

// Target — адрес хранилища для статуса (без пароля).
func (s StoreConfig) Target() string {
	if s.Driver == "sqlite" {
		return "sqlite:" + s.SQLitePath
	}
	return s.Credentials.Target()
}

// WorkerConfig — тайминги цикла обработки.
type WorkerConfig struct {
	IdleInterval      time.Duration
	BatchInterval     time.Duration
	ErrorBackoff      time.Duration
	LivenessThreshold time.Duration
	MinDelay          time.Duration
	MaxDelay          time.Duration
	SuccessRatio      float64
}

// SeedConfig — синтетический seed при старте.
type SeedConfig struct {
	Enabled bool
	Count   int
}

// Default возвращает конфигурацию по умолчанию.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Driver:     "postgres",
			SQLitePath: DefaultSQLitePath,
		},
		Worker: WorkerConfig{
			IdleInterval:      DefaultIdleInterval,
			BatchInterval:     DefaultBatchInterval,
			ErrorBackoff:      DefaultErrorBackoff,
			LivenessThreshold: DefaultLivenessThreshold,
			MinDelay:          DefaultMinDelay,
			MaxDelay:          DefaultMaxDelay,
			SuccessRatio:      DefaultSuccessRatio,
		},
		Seed: SeedConfig{
			Enabled: true,
			Count:   DefaultSeedCount,
		},
		Port: DefaultPort,
	}
}

// Load читает конфигурацию из окружения процесса.
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom читает конфигурацию через getenv (подменяется в тестах).
func LoadFrom(getenv func(string) string) (Config, error) {
	cfg := Default()

	if path := getenv("TRANCHE_CONFIG"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	index, err := parseInstanceIndex(getenv("CF_INSTANCE_INDEX"))
	if err != nil {
		return Config{}, err
	}
	cfg.InstanceIndex = index

	vcap := getenv("VCAP_SERVICES")
	if vcap == "" {
		vcap = FallbackVCAP
	}
	creds, err := ParseVCAP(vcap)
	if err != nil {
		return Config{}, err
	}
	cfg.Store.Credentials = creds
	cfg.Store.DSN = creds.DSN()
	if dsn := getenv("DB_URL"); dsn != "" {
		cfg.Store.DSN = dsn
	}

	if driver := getenv("STORE_DRIVER"); driver != "" {
		cfg.Store.Driver = strings.ToLower(driver)
	}
	if path := getenv("SQLITE_PATH"); path != "" {
		cfg.Store.SQLitePath = path
	}
	if port := getenv("PORT"); port != "" {
		cfg.Port = port
	}
	cfg.RabbitMQURL = getenv("RABBITMQ_URL")

	if v := getenv("SEED_ON_START"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: SEED_ON_START: %q", ErrConfigurationInvalid, v)
		}
		cfg.Seed.Enabled = enabled
	}
	if v := getenv("SEED_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("%w: SEED_COUNT: %q", ErrConfigurationInvalid, v)
		}
		cfg.Seed.Count = n
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность значений.
func (c Config) Validate() error {
	if c.InstanceIndex < 0 {
		return fmt.Errorf("%w: instance index must be >= 0", ErrConfigurationInvalid)
	}
	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrConfigurationInvalid, c.Store.Driver)
	}

	w := c.Worker
	for name, d := range map[string]time.Duration{
		"idle_interval":      w.IdleInterval,
		"batch_interval":     w.BatchInterval,
		"error_backoff":      w.ErrorBackoff,
		"liveness_threshold": w.LivenessThreshold,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: worker.%s must be > 0", ErrConfigurationInvalid, name)
		}
	}
	if w.MinDelay < 0 || w.MaxDelay < w.MinDelay {
		return fmt.Errorf("%w: worker delay range [%s, %s] is invalid", ErrConfigurationInvalid, w.MinDelay, w.MaxDelay)
	}
	if w.SuccessRatio < 0 || w.SuccessRatio > 1 {
		return fmt.Errorf("%w: worker.success_ratio must be within [0, 1]", ErrConfigurationInvalid)
	}
	if c.Seed.Count < 0 {
		return fmt.Errorf("%w: seed.count must be >= 0", ErrConfigurationInvalid)
	}
	return nil
}

func parseInstanceIndex(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	index, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || index < 0 {
		return 0, fmt.Errorf("%w: CF_INSTANCE_INDEX must be a non-negative integer, got %q", ErrConfigurationInvalid, raw)
	}
	return index, nil
}
