package gamepad

import (
	"errors"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDeadzone     float64       = 0.1
	DefaultPollInterval time.Duration = 16 * time.Millisecond
)

type Config struct {
	Deadzone     float64
	PollInterval time.Duration
}

// DefaultConfig is the configuration used when no config file is present.
func DefaultConfig() *Config {
	return &Config{
		Deadzone:     DefaultDeadzone,
		PollInterval: DefaultPollInterval,
	}
}

func (cfg *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Deadzone     *float64 `yaml:"deadzone"`
		PollInterval *int     `yaml:"pollInterval"`
	}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	cfg.Deadzone = DefaultDeadzone
	if raw.Deadzone != nil {
		cfg.Deadzone = *raw.Deadzone
	}

	// pollInterval is configured in milliseconds
	cfg.PollInterval = DefaultPollInterval
	if raw.PollInterval != nil {
		cfg.PollInterval = time.Duration(*raw.PollInterval) * time.Millisecond
	}

	return cfg.Validate()
}

func (cfg *Config) Validate() error {
	if cfg.Deadzone < 0 || cfg.Deadzone > 1 {
		return errors.New("deadzone must be between 0 and 1")
	}

	if cfg.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}

	return nil
}
