// Package config loads, validates, and sanitizes the configuration for a
// clustercore client process: which buckets to manage, where to reach the
// cluster, and how the refresher and observer cores should pace themselves.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the top-level configuration for a clustercore client process.
type Config struct {
	Nodes   []string       `mapstructure:"nodes" validate:"required,min=1,dive,required"`
	Buckets []BucketConfig `mapstructure:"buckets" validate:"required,min=1,dive"`
	Refresh RefreshConfig  `mapstructure:"refresh" validate:"required"`
	Observe ObserveConfig  `mapstructure:"observe" validate:"required"`
	Log     LogConfig      `mapstructure:"log" validate:"required"`
	Metrics MetricsConfig  `mapstructure:"metrics" validate:"required"`
}

// BucketConfig is one bucket this client registers with RefresherCore at
// startup.
type BucketConfig struct {
	Name     string `mapstructure:"name" validate:"required"`
	Password string `mapstructure:"password"`
}

// RefreshConfig tunes RefresherCore's polling cadence.
type RefreshConfig struct {
	TickInterval    time.Duration `mapstructure:"tick_interval" validate:"required,gt=0"`
	BootstrapDelay  time.Duration `mapstructure:"bootstrap_delay" validate:"gte=0"`
	BootstrapMaxTry int           `mapstructure:"bootstrap_max_attempts" validate:"required,gt=0"`
	RateLimitPerSec float64       `mapstructure:"rate_limit_per_sec" validate:"gte=0"`
}

// ObserveConfig supplies the default Delay and RetryStrategy used by callers
// of ObserverCore that don't build their own. Observe itself never exhausts
// on its own round count; FailFastOnTransportError only controls whether a
// single request's transport error ends the call immediately instead of
// being retried on the next round.
type ObserveConfig struct {
	DelayBase               time.Duration `mapstructure:"delay_base" validate:"required,gt=0"`
	DelayMax                time.Duration `mapstructure:"delay_max" validate:"required,gtfield=DelayBase"`
	DelayMultiplier         float64       `mapstructure:"delay_multiplier" validate:"required,gt=1"`
	FailFastOnTransportError bool         `mapstructure:"fail_fast_on_transport_error"`
	RateLimitPerSec         float64       `mapstructure:"rate_limit_per_sec" validate:"gte=0"`
}

// LogConfig holds logging configuration, in the shape pkg/logger.Config
// expects.
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"required,oneof=json text"`
	Output     string `mapstructure:"output" validate:"required,oneof=stdout stderr file"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig controls whether ClusterMetrics is wired up.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Port    int    `mapstructure:"port" validate:"omitempty,gt=0,lte=65535"`
}

var validate = validator.New()

// LoadConfig loads configuration from configPath (if non-empty) layered
// under defaults and CLUSTERCORE_-prefixed environment variables, then
// validates the result.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("clustercore")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("refresh.tick_interval", "1s")
	v.SetDefault("refresh.bootstrap_delay", "200ms")
	v.SetDefault("refresh.bootstrap_max_attempts", 5)

	v.SetDefault("observe.delay_base", "10ms")
	v.SetDefault("observe.delay_max", "2s")
	v.SetDefault("observe.delay_multiplier", 2.0)
	v.SetDefault("observe.fail_fast_on_transport_error", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", true)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.port", 9090)
}

// Validate runs struct-tag validation over the whole config.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Log.Output == "file" && c.Log.Filename == "" {
		return fmt.Errorf("log.filename is required when log.output is \"file\"")
	}
	seen := make(map[string]struct{}, len(c.Buckets))
	for _, b := range c.Buckets {
		if _, dup := seen[b.Name]; dup {
			return fmt.Errorf("bucket %q registered more than once", b.Name)
		}
		seen[b.Name] = struct{}{}
	}
	return nil
}
