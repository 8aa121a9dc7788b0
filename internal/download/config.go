package download

import "time"

// Config contains configuration options that allow
// customization of how Hermes runs and resolves downloads.
type Config struct {
	// The directory yt-dlp writes its in-flight
	// output to. Every file it produces for a given download carries
	// that download's staging prefix.
	StagingDirPath string `yaml:"staging_dir" env:"STAGING_DIR"`

	// The directory resolved artifacts are relocated to, ready to
	// be served to clients.
	ServingDirPath string `yaml:"serving_dir" env:"SERVING_DIR"`

	// Controls the number of workers that can run downloads. A submitted
	// download waits in the queue until a worker is free; reducing to 1
	// means one download at a time.
	DownloadParallelism int `yaml:"parallelism" env:"DOWNLOAD_PARALLELISM" env-default:"3"`

	// yt-dlp output may not be visible on disk immediately
	// after it exits. Resolution polls the staging directory up to this
	// many times before declaring the artifact missing.
	ResolveAttempts int `yaml:"resolve_attempts" env:"RESOLVE_ATTEMPTS" env-default:"10"`

	// The delay between resolution attempts.
	ResolveDelaySeconds int `yaml:"resolve_delay_seconds" env:"RESOLVE_DELAY_SECONDS" env-default:"1"`
}

func (config *Config) ResolveDelayDuration() time.Duration {
	return time.Duration(config.ResolveDelaySeconds) * time.Second
}
