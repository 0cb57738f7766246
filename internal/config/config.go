// Package config loads relaydemo settings from defaults, an optional YAML
// file and TASKRELAY_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. TASKRELAY_RELAY_TASKS.
const EnvPrefix = "TASKRELAY"

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Relay   RelayConfig   `mapstructure:"relay"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
}

type RelayConfig struct {
	// Tasks is the number of handles each producer enqueues. Sequence
	// numbers are packed into 32 bits of a handle.
	Tasks int `mapstructure:"tasks"`
	// Producers is the number of goroutines enqueuing concurrently.
	Producers int `mapstructure:"producers"`
	// DrainTimeout bounds how long the demo pumps the loop.
	DrainTimeout time.Duration `mapstructure:"drain_timeout"`
}

type MetricsConfig struct {
	// Addr serves /metrics when non-empty, e.g. ":2112".
	Addr         string        `mapstructure:"addr"`
	Namespace    string        `mapstructure:"namespace"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// Linger keeps the endpoint up after the run so it can be scraped.
	Linger time.Duration `mapstructure:"linger"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "relaydemo")
	v.SetDefault("relay.tasks", 10)
	v.SetDefault("relay.producers", 4)
	v.SetDefault("relay.drain_timeout", 5*time.Second)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.namespace", "taskrelay")
	v.SetDefault("metrics.poll_interval", time.Second)
	v.SetDefault("metrics.linger", time.Duration(0))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads path (if non-empty) on top of the defaults, then applies
// environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the demo cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Relay.Tasks < 0 || int64(c.Relay.Tasks) > math.MaxUint32 {
		errs = append(errs, fmt.Errorf("relay.tasks must be in [0, %d], got %d", uint32(math.MaxUint32), c.Relay.Tasks))
	}
	if c.Relay.Producers < 1 {
		errs = append(errs, fmt.Errorf("relay.producers must be >= 1, got %d", c.Relay.Producers))
	}
	if c.Relay.DrainTimeout <= 0 {
		errs = append(errs, fmt.Errorf("relay.drain_timeout must be positive, got %s", c.Relay.DrainTimeout))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
