package ytdlp

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

type (
	// ProgressUpdate is a single correlated progress sample parsed from
	// yt-dlp's output. Finished indicates yt-dlp considers its own
	// retrieval work done; post-processing may still be running, so this
	// is NOT a completion signal for the download itself.
	ProgressUpdate struct {
		Token    string
		Percent  float64
		Finished bool
	}

	ProgressHook func(ProgressUpdate)

	// progressLine is the wire shape of the lines produced by the progress
	// template below.
	progressLine struct {
		Token   string `mapstructure:"token"`
		Percent string `mapstructure:"percent"`
		Status  string `mapstructure:"status"`
	}
)

const statusFinished = "finished"

// progressTemplatePattern is given to yt-dlp via --progress-template. The
// caller's correlation token is baked into every line emitted, and the
// remaining fields are substituted by yt-dlp at emit time.
const progressTemplatePattern = `download:{"token":"%s","percent":"%%(progress._percent_str)s","status":"%%(progress.status)s"}`

// The percent strings emitted by yt-dlp are decorated with ANSI colour
// sequences unless explicitly disabled, and they appear in raw form
// anywhere in the line.
var ansiEscapePattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func buildProgressTemplate(token string) string {
	return fmt.Sprintf(progressTemplatePattern, token)
}

// parseProgressLine attempts to decode a single line of yt-dlp output
// in to a ProgressUpdate. Output interleaves progress lines with other
// chatter (post-processor notices, informational messages), so a line
// failing to parse is expected and is simply not a progress sample; no
// parse failure here is allowed to disrupt the stream.
func parseProgressLine(line string) (ProgressUpdate, bool) {
	line = strings.TrimSpace(ansiEscapePattern.ReplaceAllString(line, ""))
	if !strings.HasPrefix(line, "{") {
		return ProgressUpdate{}, false
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return ProgressUpdate{}, false
	}

	var decoded progressLine
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{ErrorUnused: true, Result: &decoded})
	if err != nil {
		return ProgressUpdate{}, false
	}
	if err := decoder.Decode(raw); err != nil {
		return ProgressUpdate{}, false
	}

	update := ProgressUpdate{Token: decoded.Token, Finished: decoded.Status == statusFinished}
	percent, err := parsePercent(decoded.Percent)
	if err != nil {
		// A finished line is meaningful even when its percent field is
		// blank or N/A; anything else without a percent is useless.
		return update, update.Finished
	}

	update.Percent = percent
	return update, true
}

func parsePercent(value string) (float64, error) {
	cleaned := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "%"))
	return strconv.ParseFloat(cleaned, 64)
}
