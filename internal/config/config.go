package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"segsieve/internal/metrics"
	"segsieve/internal/sysinfo"
)

const EnvPrefix = "SEGSIEVE"

// Keys shared by the config file, the environment and the command line.
const (
	KeyWorkers        = "workers"
	KeyStrategy       = "strategy"
	KeyFormat         = "format"
	KeyLogLevel       = "log_level"
	KeyRecord         = "record"
	KeyClusterAddr    = "cluster.addr"
	KeyClusterTimeout = "cluster.timeout"
)

type Config struct {
	// Workers is the pool size or cluster size; 0 picks the physical core count.
	Workers  int           `mapstructure:"workers" yaml:"workers"`
	Strategy string        `mapstructure:"strategy" yaml:"strategy"`
	Format   string        `mapstructure:"format" yaml:"format"`
	LogLevel string        `mapstructure:"log_level" yaml:"log_level"`
	Record   string        `mapstructure:"record" yaml:"record,omitempty"`
	Cluster  ClusterConfig `mapstructure:"cluster" yaml:"cluster"`
}

type ClusterConfig struct {
	Addr    string        `mapstructure:"addr" yaml:"addr"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyWorkers, 0)
	v.SetDefault(KeyStrategy, "pool")
	v.SetDefault(KeyFormat, string(metrics.FormatText))
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyRecord, "")
	v.SetDefault(KeyClusterAddr, "127.0.0.1:7946")
	v.SetDefault(KeyClusterTimeout, "30s")
}

// Load resolves the configuration from, lowest precedence first: defaults,
// the YAML file at path (if any), SEGSIEVE_* environment variables and any
// flags already bound to v.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Workers == 0 {
		cfg.Workers = sysinfo.PhysicalCores()
	}
	cfg.Strategy = strings.ToLower(strings.TrimSpace(cfg.Strategy))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}

	switch c.Strategy {
	case "pool", "cluster", "serial":
	default:
		errs = append(errs, fmt.Errorf("strategy must be pool, cluster or serial, got %q", c.Strategy))
	}

	if _, err := metrics.ParseFormat(c.Format); err != nil {
		errs = append(errs, err)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel))
	}

	if c.Cluster.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("cluster.timeout must be positive, got %s", c.Cluster.Timeout))
	}

	return errors.Join(errs...)
}
