package janitor_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hbomb79/Hermes/internal/janitor"
	"github.com/hbomb79/Hermes/tests/helpers"
	"github.com/stretchr/testify/assert"
)

func startService(t *testing.T, config janitor.Config, sweepDirPaths ...string) {
	srv := janitor.New(config, sweepDirPaths...)

	wg := sync.WaitGroup{}
	wg.Add(1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer wg.Done()
		assert.Nil(t, srv.Run(ctx))
	}()

	t.Cleanup(func() {
		fmt.Println("Waiting for service to close...")
		cancel()
		wg.Wait()
	})
}

func Test_Sweep_RemovesOnlyExpiredFiles(t *testing.T) {
	t.Parallel()
	dirPath, paths := helpers.TempDirWithFiles(t, []string{"final_old.mp4", "final_fresh.mp4"})
	helpers.AgeFile(t, paths[0], time.Hour)

	config := janitor.Config{SweepIntervalMinutes: 10, RetentionMinutes: 30}
	janitor.New(config, dirPath).Sweep()

	_, err := os.Stat(paths[0])
	assert.True(t, os.IsNotExist(err), "expected expired file to be removed")
	_, err = os.Stat(paths[1])
	assert.Nil(t, err, "expected fresh file to survive the sweep")
}

func Test_Sweep_SpansEveryManagedDirectory(t *testing.T) {
	t.Parallel()
	stagingDirPath, stagingPaths := helpers.TempDirWithFiles(t, []string{"dl_abc_partial.part"})
	servingDirPath, servingPaths := helpers.TempDirWithFiles(t, []string{"final_abc.mp3"})
	helpers.AgeFile(t, stagingPaths[0], time.Hour)
	helpers.AgeFile(t, servingPaths[0], time.Hour)

	config := janitor.Config{SweepIntervalMinutes: 10, RetentionMinutes: 30}
	janitor.New(config, stagingDirPath, servingDirPath).Sweep()

	_, err := os.Stat(stagingPaths[0])
	assert.True(t, os.IsNotExist(err), "expected expired staging file to be removed")
	_, err = os.Stat(servingPaths[0])
	assert.True(t, os.IsNotExist(err), "expected expired serving file to be removed")
}

func Test_Sweep_IgnoresDirectories(t *testing.T) {
	t.Parallel()
	dirPath := t.TempDir()
	nestedDirPath := filepath.Join(dirPath, "nested")
	assert.Nil(t, os.Mkdir(nestedDirPath, 0o755))

	nestedFilePath := filepath.Join(nestedDirPath, "inner.mp4")
	assert.Nil(t, os.WriteFile(nestedFilePath, []byte("inner"), 0o644))
	helpers.AgeFile(t, nestedDirPath, time.Hour)
	helpers.AgeFile(t, nestedFilePath, time.Hour)

	config := janitor.Config{SweepIntervalMinutes: 10, RetentionMinutes: 30}
	janitor.New(config, dirPath).Sweep()

	_, err := os.Stat(nestedFilePath)
	assert.Nil(t, err, "files inside nested directories must never be swept")
}

func Test_Sweep_RespectsRetentionBoundary(t *testing.T) {
	t.Parallel()
	dirPath, paths := helpers.TempDirWithFiles(t, []string{"final_stale.mp4", "final_near.mp4"})
	helpers.AgeFile(t, paths[0], time.Minute*30+time.Second*30)
	helpers.AgeFile(t, paths[1], time.Minute*30-time.Second*30)

	config := janitor.Config{SweepIntervalMinutes: 10, RetentionMinutes: 30}
	janitor.New(config, dirPath).Sweep()

	_, err := os.Stat(paths[0])
	assert.True(t, os.IsNotExist(err), "expected file just past the retention window to be removed")
	_, err = os.Stat(paths[1])
	assert.Nil(t, err, "expected file just inside the retention window to survive")
}

func Test_Sweep_ToleratesMissingDirectory(t *testing.T) {
	t.Parallel()
	servingDirPath, servingPaths := helpers.TempDirWithFiles(t, []string{"final_expired.mp4"})
	helpers.AgeFile(t, servingPaths[0], time.Hour)

	// The directory which does not exist is logged and skipped; the
	// directories listed after it are still swept.
	config := janitor.Config{SweepIntervalMinutes: 10, RetentionMinutes: 30}
	janitor.New(config, filepath.Join(t.TempDir(), "never-created"), servingDirPath).Sweep()

	_, err := os.Stat(servingPaths[0])
	assert.True(t, os.IsNotExist(err), "expected sweep to continue past the missing directory")
}

func Test_Run_PerformsInitialSweepImmediately(t *testing.T) {
	t.Parallel()
	dirPath, paths := helpers.TempDirWithFiles(t, []string{"final_stale.mp4", "final_recent.mp4"})
	helpers.AgeFile(t, paths[0], time.Hour)

	config := janitor.Config{SweepIntervalMinutes: 10, RetentionMinutes: 30}
	startService(t, config, dirPath)

	assert.EventuallyWithT(t, func(c *assert.CollectT) {
		_, err := os.Stat(paths[0])
		assert.True(c, os.IsNotExist(err), "expected stale file to be removed by startup sweep")
	}, time.Second*2, time.Millisecond*100)

	_, err := os.Stat(paths[1])
	assert.Nil(t, err, "expected recent file to survive the startup sweep")
}
