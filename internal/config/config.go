// Package config handles configuration loading from YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalidPrefix is returned when the subnet prefix length is outside 1-31.
var ErrInvalidPrefix = errors.New("subnet prefix must be between 1 and 31")

// DefaultPorts is the fixed set of web ports probed on every host.
var DefaultPorts = []int{80, 443, 8008, 3000, 5000, 9080, 9443, 8000, 8001, 8080, 8443, 9000, 9001}

// Config holds all configuration for httpmap.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Scan    ScanConfig    `mapstructure:"scan"`
	AMQP    AMQPConfig    `mapstructure:"amqp"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds HTTP control API configuration for serve mode.
type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// ScanConfig holds the parameters of a single subnet scan.
type ScanConfig struct {
	SubnetPrefix int    `mapstructure:"subnet_prefix"`
	Ports        []int  `mapstructure:"ports"`
	Concurrency  int    `mapstructure:"concurrency"`
	RateLimit    int    `mapstructure:"rate_limit"`
	Timeout      int    `mapstructure:"timeout"` // per-probe timeout in milliseconds
	UserAgent    string `mapstructure:"user_agent"`
}

// AMQPConfig holds the optional RabbitMQ connection configuration.
// An empty URL disables event publishing entirely.
type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ProbeTimeout returns the per-probe timeout as a duration.
func (c ScanConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// Validate checks scan parameters before any scanning begins.
func (c ScanConfig) Validate() error {
	if c.SubnetPrefix < 1 || c.SubnetPrefix > 31 {
		return fmt.Errorf("%w: got %d", ErrInvalidPrefix, c.SubnetPrefix)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("rate limit must be positive, got %d", c.RateLimit)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("probe timeout must be positive, got %dms", c.Timeout)
	}
	if len(c.Ports) == 0 {
		return errors.New("port list must not be empty")
	}
	return nil
}

// Load reads configuration from files and environment variables.
// path, when non-empty, names an explicit config file to use instead of
// the default search locations.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigName("httpmap")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/httpmap/")
		v.AddConfigPath(".")

		// Config file is optional; defaults and env vars suffice.
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, err
			}
		}
	}

	v.SetEnvPrefix("HTTPMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8001)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 30)

	// Scan defaults
	v.SetDefault("scan.subnet_prefix", 24)
	v.SetDefault("scan.ports", DefaultPorts)
	v.SetDefault("scan.concurrency", 100)
	v.SetDefault("scan.rate_limit", 300)
	v.SetDefault("scan.timeout", 6000)
	v.SetDefault("scan.user_agent", "httpmap/1.0")

	// AMQP defaults: publishing is opt-in, so no URL by default.
	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", "discovery.events")

	// Logging defaults
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
}
