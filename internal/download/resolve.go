package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hbomb79/Hermes/pkg/logger"
)

var ErrArtifactNotFound = errors.New("no matching artifact found in staging area")

// mediaExtensions is the fixed allow-list of container extensions the
// resolver recognises as plausible download output. Anything else sharing
// a download's staging prefix (thumbnails written during metadata embedding,
// partial fragments) is an incidental byproduct.
var mediaExtensions = map[string]struct{}{
	".mp3":  {},
	".mp4":  {},
	".m4a":  {},
	".webm": {},
}

// resolver locates the artifact yt-dlp produced for a download.
// The final file name yt-dlp picks is only approximately predictable (it
// depends on the source's media ID and any post-processing renames), so
// resolution scans the staging area for the download's unique prefix rather
// than computing an exact name.
type resolver struct {
	stagingDirPath string
	servingDirPath string
	attempts       int
	delay          time.Duration
}

func newResolver(config Config) resolver {
	return resolver{
		stagingDirPath: config.StagingDirPath,
		servingDirPath: config.ServingDirPath,
		attempts:       config.ResolveAttempts,
		delay:          config.ResolveDelayDuration(),
	}
}

// resolve finds the staged artifact for the download provided, relocates it
// in to the serving area under its stable name, and removes any leftover
// files sharing the download's prefix. The returned string is the stable
// file name (not a path).
//
// The staging scan is retried on a short interval to absorb filesystem
// flush latency; if no candidate appears within the retry ceiling,
// ErrArtifactNotFound is returned.
func (resolver *resolver) resolve(ctx context.Context, download *Download) (string, error) {
	prefix := download.StagingPrefix()
	for attempt := 0; attempt < resolver.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(resolver.delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		candidates, byproducts, err := resolver.scanStaging(prefix)
		if err != nil {
			return "", err
		}

		if len(candidates) == 0 {
			log.Emit(logger.DEBUG, "No artifact for %s yet (attempt %d/%d)\n", download, attempt+1, resolver.attempts)
			continue
		}

		// Directory listings are sorted by file name, so taking the head is
		// a deterministic tie-break. There is no stronger signal available
		// to disambiguate multiple plausible outputs.
		chosen := candidates[0]
		if len(candidates) > 1 {
			log.Warnf("Multiple plausible artifacts for %s %v, selecting '%s'\n", download, candidates, chosen)
		}

		stableName, err := resolver.relocate(download, chosen)
		if err != nil {
			return "", err
		}

		resolver.removeLeftovers(append(candidates[1:], byproducts...))
		return stableName, nil
	}

	return "", ErrArtifactNotFound
}

// scanStaging lists the staging files carrying the prefix provided,
// partitioned in to media candidates and incidental byproducts.
func (resolver *resolver) scanStaging(prefix string) ([]string, []string, error) {
	entries, err := os.ReadDir(resolver.stagingDirPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan staging area: %w", err)
	}

	candidates := make([]string, 0)
	byproducts := make([]string, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if len(name) < len(prefix) || name[:len(prefix)] != prefix {
			continue
		}

		if _, ok := mediaExtensions[filepath.Ext(name)]; ok {
			candidates = append(candidates, name)
		} else {
			byproducts = append(byproducts, name)
		}
	}

	return candidates, byproducts, nil
}

// relocate moves the chosen staging file in to the serving area under the
// download's stable name. From this point the artifact belongs to the
// janitor's age-based reclamation, nothing else deletes it.
func (resolver *resolver) relocate(download *Download, chosen string) (string, error) {
	stableName := download.StableFileName(filepath.Ext(chosen))
	source := filepath.Join(resolver.stagingDirPath, chosen)
	destination := filepath.Join(resolver.servingDirPath, stableName)

	if err := os.Rename(source, destination); err != nil {
		return "", fmt.Errorf("failed to relocate artifact '%s': %w", chosen, err)
	}

	return stableName, nil
}

// removeLeftovers deletes the staging files provided. A failed removal is
// logged and skipped; anything left behind is reclaimed by the janitor
// eventually.
func (resolver *resolver) removeLeftovers(names []string) {
	for _, name := range names {
		if err := os.Remove(filepath.Join(resolver.stagingDirPath, name)); err != nil {
			log.Warnf("Failed to remove staging leftover '%s': %v\n", name, err)
		}
	}
}
