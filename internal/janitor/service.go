// Package janitor periodically removes aged files from the directories
// Hermes writes downloads in to. Both the staging area and the serving
// area accumulate files that nothing will ever clean up otherwise:
// abandoned partial output from failed downloads, and completed artifacts
// whose submitter never came back for them.
package janitor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hbomb79/Hermes/pkg/logger"
	"github.com/robfig/cron/v3"
)

var log = logger.Get("Janitor")

type janitorService struct {
	config        Config
	sweepDirPaths []string
	cron          *cron.Cron
}

// New creates a janitor service which sweeps each of the directories
// provided on the interval the config specifies.
func New(config Config, sweepDirPaths ...string) *janitorService {
	return &janitorService{
		config:        config,
		sweepDirPaths: sweepDirPaths,
		cron:          cron.New(),
	}
}

// Run performs an initial sweep, then schedules recurring sweeps until
// the context provided is cancelled. A file which survives one sweep is
// only at most one interval away from the next, so a freshly started
// instance never carries stale files for long.
func (service *janitorService) Run(ctx context.Context) error {
	service.Sweep()

	expression := fmt.Sprintf("@every %s", service.config.SweepIntervalDuration())
	if _, err := service.cron.AddFunc(expression, service.Sweep); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	service.cron.Start()
	log.Emit(logger.INFO, "Sweeping %v every %s (retention %s)\n", service.sweepDirPaths, service.config.SweepIntervalDuration(), service.config.RetentionDuration())

	<-ctx.Done()
	log.Emit(logger.STOP, "Shutting down (context cancelled). Waiting for in-flight sweep...\n")

	stopCtx := service.cron.Stop()
	<-stopCtx.Done()
	return nil
}

// Sweep examines every managed directory and removes the files whose age
// exceeds the retention window. Each file is handled independently; a
// failure to inspect or remove one file is logged and does not disturb
// the rest of the sweep.
func (service *janitorService) Sweep() {
	cutoff := time.Now().Add(-service.config.RetentionDuration())
	for _, dirPath := range service.sweepDirPaths {
		service.sweepDir(dirPath, cutoff)
	}
}

func (service *janitorService) sweepDir(dirPath string, cutoff time.Time) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		log.Warnf("Unable to sweep directory '%s': %v\n", dirPath, err)
		return
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			log.Warnf("Unable to inspect '%s' during sweep: %v\n", entry.Name(), err)
			continue
		}

		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(dirPath, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Warnf("Unable to remove expired file '%s': %v\n", path, err)
			continue
		}

		log.Debugf("Removed expired file '%s' (last modified %s)\n", path, info.ModTime().Format(time.RFC3339))
		removed++
	}

	if removed > 0 {
		log.Emit(logger.INFO, "Removed %d expired file(s) from '%s'\n", removed, dirPath)
	}
}
