package ytdlp

import "time"

// Config contains configuration options for the yt-dlp wrapper.
type Config struct {
	// The path to the yt-dlp binary. When left empty, the binary is
	// looked up on the PATH instead.
	BinaryPath string `yaml:"binary_path" env:"YTDLP_BINARY_PATH"`

	// Metadata extraction is interactive (a client is waiting on the
	// response), so unlike downloads it runs under a deadline.
	InfoTimeoutSeconds int `yaml:"info_timeout_seconds" env:"YTDLP_INFO_TIMEOUT_SECONDS" env-default:"120"`
}

func (config *Config) InfoTimeoutDuration() time.Duration {
	return time.Duration(config.InfoTimeoutSeconds) * time.Second
}

// Binary returns the configured yt-dlp binary path, falling back to the
// default binary name (resolved via the PATH) when none is set.
func (config *Config) Binary() string {
	if config.BinaryPath != "" {
		return config.BinaryPath
	}

	return defaultBinaryName
}
