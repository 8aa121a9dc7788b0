package helpers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TempDirWithFiles creates a temporary test directory containing the exact
// file names provided. Each file is written with its own name as content,
// so a test moving files around can verify which one ended up where.
func TempDirWithFiles(t *testing.T, files []string) (string, []string) {
	dirPath := t.TempDir()
	filePaths := make([]string, 0, len(files))
	for _, filename := range files {
		path := filepath.Join(dirPath, filename)
		assert.Nil(t, os.WriteFile(path, []byte(filename), 0o644), "failed to create file in temporary dir")
		filePaths = append(filePaths, path)
	}

	assert.Len(t, filePaths, len(files), "Expected file paths recorded to match length of requested files")
	return dirPath, filePaths
}

// AgeFile rewinds the modification time of the path provided by the
// duration given.
func AgeFile(t *testing.T, path string, age time.Duration) {
	past := time.Now().Add(-age)
	assert.Nil(t, os.Chtimes(path, past, past), "failed to age file")
}
