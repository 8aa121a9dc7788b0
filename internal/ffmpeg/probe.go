// Package ffmpeg wraps the ffprobe integration Hermes uses to inspect
// finished artifacts. Probing is informational only; download handling
// never depends on it succeeding.
package ffmpeg

import (
	"fmt"
	"strings"

	"github.com/floostack/transcoder"
	"github.com/floostack/transcoder/ffmpeg"
)

func ProbeFile(path string) (transcoder.Metadata, error) {
	cfg := ffmpeg.Config{}
	transcoder := ffmpeg.New(&cfg).Input(path)
	metadata, err := transcoder.GetMetadata()
	if err != nil {
		return nil, fmt.Errorf("failed to extract file metadata information using ffprobe: %s", err.Error())
	}

	return metadata, nil
}

// Describe renders probed metadata as a short human-readable summary:
// the container format, its duration, and the resolution of the first
// video stream (if any).
func Describe(metadata transcoder.Metadata) string {
	format := metadata.GetFormat()
	parts := []string{format.GetFormatName(), fmt.Sprintf("%ss", format.GetDuration())}

	for _, stream := range metadata.GetStreams() {
		if stream.GetWidth() != 0 && stream.GetHeight() != 0 {
			parts = append(parts, fmt.Sprintf("%dx%d", stream.GetWidth(), stream.GetHeight()))
			break
		}
	}

	return strings.Join(parts, ", ")
}
