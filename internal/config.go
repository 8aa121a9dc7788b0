package internal

import (
	"fmt"
	"path/filepath"

	"github.com/hbomb79/Hermes/internal/api"
	"github.com/hbomb79/Hermes/internal/download"
	"github.com/hbomb79/Hermes/internal/janitor"
	"github.com/hbomb79/Hermes/internal/ytdlp"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/mitchellh/go-homedir"
)

// HermesConfig is the struct used to contain the
// various user config supplied by file, or
// manually inside the code.
type HermesConfig struct {
	RestConfig  api.RestConfig  `yaml:"api"`
	Downloads   download.Config `yaml:"downloads"`
	Janitor     janitor.Config  `yaml:"janitor"`
	YtDlp       ytdlp.Config    `yaml:"ytdlp"`
	DataDirPath string          `yaml:"data_dir" env:"DATA_DIR"`
}

// LoadFromFile loads a configuration file formatted in YAML in to a
// HermesConfig struct ready to be passed to the Hermes constructor.
func (config *HermesConfig) LoadFromFile(configPath string) error {
	err := cleanenv.ReadConfig(configPath, config)
	if err != nil {
		return fmt.Errorf("failed to load configuration for HermesConfig - %v", err.Error())
	}

	return nil
}

// LoadFromEnv populates the config from environment variables alone, used
// when no config file is present on disk.
func (config *HermesConfig) LoadFromEnv() error {
	err := cleanenv.ReadEnv(config)
	if err != nil {
		return fmt.Errorf("failed to load configuration for HermesConfig - %v", err.Error())
	}

	return nil
}

// getDataDir will return the directory path used for storing download
// artifacts. It will first look to the config for a value, but if none is
// found, a default under the users home directory is returned. If the default
// cannot be derived due to an error, a panic will occur.
func (config *HermesConfig) getDataDir() string {
	if config.DataDirPath != "" {
		return config.DataDirPath
	}

	// Derive default
	dir, err := homedir.Dir()
	if err != nil {
		panic(fmt.Sprintf("FAILURE to derive user home dir %s", err))
	}

	return filepath.Join(dir, HERMES_USER_DIR_SUFFIX)
}

// getStagingDir returns the directory that yt-dlp
// writes in-flight artifacts to.
func (config *HermesConfig) getStagingDir() string {
	if config.Downloads.StagingDirPath != "" {
		return config.Downloads.StagingDirPath
	}

	return filepath.Join(config.getDataDir(), "staging")
}

// getServingDir returns the directory holding resolved, ready-to-download
// artifacts.
func (config *HermesConfig) getServingDir() string {
	if config.Downloads.ServingDirPath != "" {
		return config.Downloads.ServingDirPath
	}

	return filepath.Join(config.getDataDir(), "downloads")
}
