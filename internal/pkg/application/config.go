package application

import (
	"io"
	"time"

	"github.com/favmaps/places/internal/pkg/application/events"
	yaml "gopkg.in/yaml.v2"
)

type CacheConfig struct {
	// Retention is how long an entry nobody subscribes to is kept.
	Retention     time.Duration `yaml:"retention"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
	SnapshotTTL   time.Duration `yaml:"snapshotTTL"`
}

type TransportConfig struct {
	MaxAttempts int           `yaml:"maxAttempts"`
	Backoff     time.Duration `yaml:"backoff"`
}

type Config struct {
	events.Config `yaml:",inline"`

	Cache     CacheConfig     `yaml:"cache"`
	Transport TransportConfig `yaml:"transport"`
}

func DefaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			Retention:     60 * time.Second,
			SweepInterval: 10 * time.Second,
			SnapshotTTL:   24 * time.Hour,
		},
		Transport: TransportConfig{
			MaxAttempts: 1,
			Backoff:     200 * time.Millisecond,
		},
	}
}

// LoadConfiguration reads a yaml configuration. Settings that are left out
// keep their defaults.
func LoadConfiguration(data io.Reader) (*Config, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
