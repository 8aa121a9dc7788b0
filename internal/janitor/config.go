package janitor

import "time"

// Config holds the user-configurable options for the artifact janitor.
type Config struct {
	// SweepIntervalMinutes controls how often the sweep runs. Each sweep
	// examines every managed directory.
	SweepIntervalMinutes int `yaml:"sweep_interval_minutes" env:"JANITOR_SWEEP_INTERVAL_MINUTES" env-default:"10"`

	// RetentionMinutes is how long a file is left alone after its last
	// modification before a sweep is allowed to remove it.
	RetentionMinutes int `yaml:"retention_minutes" env:"JANITOR_RETENTION_MINUTES" env-default:"30"`
}

func (config *Config) SweepIntervalDuration() time.Duration {
	return time.Duration(config.SweepIntervalMinutes) * time.Minute
}

func (config *Config) RetentionDuration() time.Duration {
	return time.Duration(config.RetentionMinutes) * time.Minute
}
