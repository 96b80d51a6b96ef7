package timeline

import "time"

// Config is the root configuration for a Timeline instance, loaded by the
// embedding application (typically via viper) and passed to New.
type Config struct {
	Redis   RedisConfig   `yaml:"redis"`
	Metrics MetricsConfig `yaml:"metrics"`

	// ClassifierProbabilitiesEnabled turns on the trip-consumes-trip
	// probability plug point (spec.md §4.3, §9). Off by default, matching
	// the source's disabled branch.
	ClassifierProbabilitiesEnabled bool `yaml:"classifier_probabilities_enabled"`
}

// RedisConfig configures the store.Engine backend.
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	WriteRetries int           `yaml:"write_retries"`
}

// MetricsConfig configures the debugserver's metrics endpoint.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// RegisterDefaults fills in the zero-value fields with the values the
// source hardcodes.
func (c *Config) RegisterDefaults() {
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.WriteRetries == 0 {
		c.Redis.WriteRetries = 3
	}
	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":3101"
	}
}
