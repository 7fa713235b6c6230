package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// fileConfig — структура YAML файла настройки.
//
//	worker:
//	  idle_interval: 10s
//	  batch_interval: 5s
//	  error_backoff: 5s
//	  liveness_threshold: 60s
//	  min_delay: 5s
//	  max_delay: 10s
//	  success_ratio: 0.8
//	seed:
//	  enabled: true
//	  count: 15
//	store:
//	  driver: sqlite
//	  sqlite_path: data/tasks.db
type fileConfig struct {
	Worker struct {
		IdleInterval      string   `yaml:"idle_interval"`
		BatchInterval     string   `yaml:"batch_interval"`
		ErrorBackoff      string   `yaml:"error_backoff"`
		LivenessThreshold string   `yaml:"liveness_threshold"`
		MinDelay          string   `yaml:"min_delay"`
		MaxDelay          string   `yaml:"max_delay"`
		SuccessRatio      *float64 `yaml:"success_ratio"`
	} `yaml:"worker"`

	Seed struct {
		Enabled *bool `yaml:"enabled"`
		Count   *int  `yaml:"count"`
	} `yaml:"seed"`

	Store struct {
		Driver     string `yaml:"driver"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"store"`
}

// applyFile накладывает YAML файл на cfg. Пустые поля не меняют значения.
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrConfigurationInvalid, path, err)
	}
	return applyYAML(cfg, data)
}

func applyYAML(cfg *Config, data []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("%w: yaml: %w", ErrConfigurationInvalid, err)
	}

	durations := []struct {
		path string
		raw  string
		dst  *time.Duration
	}{
		{"worker.idle_interval", fc.Worker.IdleInterval, &cfg.Worker.IdleInterval},
		{"worker.batch_interval", fc.Worker.BatchInterval, &cfg.Worker.BatchInterval},
		{"worker.error_backoff", fc.Worker.ErrorBackoff, &cfg.Worker.ErrorBackoff},
		{"worker.liveness_threshold", fc.Worker.LivenessThreshold, &cfg.Worker.LivenessThreshold},
		{"worker.min_delay", fc.Worker.MinDelay, &cfg.Worker.MinDelay},
		{"worker.max_delay", fc.Worker.MaxDelay, &cfg.Worker.MaxDelay},
	}
	for _, d := range durations {
		v, err := parseDurationOrDefault(d.path, d.raw, *d.dst)
		if err != nil {
			return err
		}
		*d.dst = v
	}

	if fc.Worker.SuccessRatio != nil {
		cfg.Worker.SuccessRatio = *fc.Worker.SuccessRatio
	}
	if fc.Seed.Enabled != nil {
		cfg.Seed.Enabled = *fc.Seed.Enabled
	}
	if fc.Seed.Count != nil {
		cfg.Seed.Count = *fc.Seed.Count
	}
	if fc.Store.Driver != "" {
		cfg.Store.Driver = strings.ToLower(fc.Store.Driver)
	}
	if fc.Store.SQLitePath != "" {
		cfg.Store.SQLitePath = fc.Store.SQLitePath
	}
	return nil
}

// parseDurationOrDefault разбирает Go duration; пустая строка — def.
func parseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: invalid duration %q", ErrConfigurationInvalid, path, raw)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %s: duration must be >= 0", ErrConfigurationInvalid, path)
	}
	return d, nil
}
