package ytdlp

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assertFlagValue(t *testing.T, args []string, flag string, expectedValue string) {
	for i, arg := range args {
		if arg == flag {
			if assert.Less(t, i+1, len(args), "flag %s has no value", flag) {
				assert.Equal(t, expectedValue, args[i+1], "flag %s carries unexpected value", flag)
			}

			return
		}
	}

	t.Errorf("flag %s not present in args %v", flag, args)
}

func Test_BuildDownloadArgs_AudioRequest(t *testing.T) {
	t.Parallel()
	extractor := &Extractor{binaryPath: "/usr/bin/yt-dlp", outputDirPath: "/tmp/staging"}
	args := extractor.buildDownloadArgs(DownloadRequest{
		URL:          "https://example.com/watch?v=abc",
		AudioOnly:    true,
		OutputPrefix: "dl_123_",
		Token:        "123",
	})

	assert.Contains(t, args, "-x")
	assertFlagValue(t, args, "--audio-format", "mp3")
	assertFlagValue(t, args, "--audio-quality", "192K")
	assert.Contains(t, args, "--embed-thumbnail")
	assert.Contains(t, args, "--embed-metadata")
	assert.NotContains(t, args, "--recode-video")

	assertFlagValue(t, args, "-o", filepath.Join("/tmp/staging", "dl_123_%(id)s.%(ext)s"))
	assertFlagValue(t, args, "--progress-template", buildProgressTemplate("123"))
	assert.Equal(t, "https://example.com/watch?v=abc", args[len(args)-1], "source URL must be the final argument")
}

func Test_BuildDownloadArgs_VideoRequest(t *testing.T) {
	t.Parallel()
	extractor := &Extractor{binaryPath: "/usr/bin/yt-dlp", outputDirPath: "/tmp/staging"}
	args := extractor.buildDownloadArgs(DownloadRequest{
		URL:          "https://example.com/watch?v=abc",
		AudioOnly:    false,
		OutputPrefix: "dl_123_",
		Token:        "123",
	})

	assertFlagValue(t, args, "--recode-video", "mp4")
	assertFlagValue(t, args, "-f", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best")
	assert.NotContains(t, args, "-x")
	assert.Equal(t, "https://example.com/watch?v=abc", args[len(args)-1], "source URL must be the final argument")
}

func Test_Tail_ReturnsFinalLine(t *testing.T) {
	t.Parallel()
	tests := []struct {
		summary  string
		output   string
		expected string
	}{
		{
			summary:  "multi-line error output",
			output:   "WARNING: unable to obtain file audio codec\nERROR: unsupported URL",
			expected: "ERROR: unsupported URL",
		},
		{
			summary:  "single line",
			output:   "ERROR: This video is unavailable",
			expected: "ERROR: This video is unavailable",
		},
		{
			summary:  "trailing newline ignored",
			output:   "ERROR: network unreachable\n",
			expected: "ERROR: network unreachable",
		},
		{
			summary:  "empty output",
			output:   "",
			expected: "",
		},
	}

	for _, test := range tests {
		t.Run(test.summary, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, test.expected, tail(test.output))
		})
	}
}

func Test_ConfigBinary_FallsBackToDefault(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "yt-dlp", (&Config{}).Binary())
	assert.Equal(t, "/opt/tools/yt-dlp", (&Config{BinaryPath: "/opt/tools/yt-dlp"}).Binary())
}
