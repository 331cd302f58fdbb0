// Package config layers defaults, an optional YAML file, environment
// variables and flags into one Config.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/headline-goat/sigtable/internal/source"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	EnvPrefix  = "SIGT"
	configName = ".sigtable"

	SinkStore = "store"
	SinkGCS   = "gcs"
)

// DataSource is a database metric queries can run against.
type DataSource struct {
	ID     int    `mapstructure:"id"`
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Sink selects where tables are published.
type Sink struct {
	Kind        string `mapstructure:"kind"`
	Bucket      string `mapstructure:"bucket"`
	Prefix      string `mapstructure:"prefix"`
	Credentials string `mapstructure:"credentials"`
}

type Config struct {
	DBPath      string        `mapstructure:"db"`
	LogLevel    string        `mapstructure:"log-level"`
	LogFormat   string        `mapstructure:"log-format"`
	Port        int           `mapstructure:"port"`
	BaseURL     string        `mapstructure:"base-url"`
	Plan        string        `mapstructure:"plan"`
	Interval    time.Duration `mapstructure:"interval"`
	MetricsFile string        `mapstructure:"metrics-file"`
	Sink        Sink          `mapstructure:"sink"`
	DataSources []DataSource  `mapstructure:"data-sources"`
}

// New returns a viper instance with defaults and environment binding set.
func New() *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("db", "./sigtable.db")
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "console")
	v.SetDefault("port", 8080)
	v.SetDefault("base-url", "")
	v.SetDefault("plan", "")
	v.SetDefault("interval", "0s")
	v.SetDefault("metrics-file", "")
	v.SetDefault("sink.kind", SinkStore)
	v.SetDefault("sink.bucket", "")
	v.SetDefault("sink.prefix", "experiments")
	v.SetDefault("sink.credentials", "")

	return v
}

// Load reads configFile, or .sigtable.yaml from the working or home
// directory when configFile is empty, then decodes and validates the result.
// A missing default config file is not an error.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("%w: db path is required", ErrInvalidConfig)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log-level: %v", ErrInvalidConfig, err)
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("%w: log-format must be json or console", ErrInvalidConfig)
	}
	if c.Interval < 0 {
		return fmt.Errorf("%w: interval must not be negative", ErrInvalidConfig)
	}

	switch c.Sink.Kind {
	case SinkStore:
	case SinkGCS:
		if c.Sink.Bucket == "" {
			return fmt.Errorf("%w: sink.bucket is required for the gcs sink", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown sink kind %q", ErrInvalidConfig, c.Sink.Kind)
	}

	seen := make(map[int]bool)
	for _, ds := range c.DataSources {
		if seen[ds.ID] {
			return fmt.Errorf("%w: duplicate data source id %d", ErrInvalidConfig, ds.ID)
		}
		seen[ds.ID] = true
		if _, err := source.DriverName(ds.Driver); err != nil {
			return fmt.Errorf("%w: data source %d: %v", ErrInvalidConfig, ds.ID, err)
		}
		if ds.DSN == "" {
			return fmt.Errorf("%w: data source %d has no dsn", ErrInvalidConfig, ds.ID)
		}
	}
	return nil
}

// Sources converts the configured data sources for the fetcher.
func (c *Config) Sources() []source.DataSource {
	out := make([]source.DataSource, len(c.DataSources))
	for i, ds := range c.DataSources {
		out[i] = source.DataSource{ID: ds.ID, Driver: ds.Driver, DSN: ds.DSN}
	}
	return out
}
