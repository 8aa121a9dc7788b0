// Package ytdlp wraps the yt-dlp binary, which Hermes uses for all media
// extraction and transcoding. The wrapper exposes the two operations the
// engine needs: a synchronous metadata probe, and a blocking download
// invocation which reports correlated progress samples back to the caller
// as it runs.
package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/hbomb79/Hermes/pkg/logger"
	"github.com/mitchellh/mapstructure"
)

var log = logger.Get("YtDlp")

const defaultBinaryName = "yt-dlp"

type (
	// MediaInfo is the subset of yt-dlp's metadata output that Hermes
	// cares about. The raw output carries hundreds of fields which are
	// deliberately ignored.
	MediaInfo struct {
		ID         string  `mapstructure:"id"`
		Title      string  `mapstructure:"title"`
		Uploader   string  `mapstructure:"uploader"`
		Duration   float64 `mapstructure:"duration"`
		Thumbnail  string  `mapstructure:"thumbnail"`
		WebpageURL string  `mapstructure:"webpage_url"`
		Extractor  string  `mapstructure:"extractor"`
	}

	// DownloadRequest describes one download invocation. The OutputPrefix
	// must be unique to the download so its staged files can be found
	// afterwards regardless of how yt-dlp names them internally; the
	// Token is threaded into the progress template so every progress
	// line yt-dlp emits can be correlated back to the download.
	DownloadRequest struct {
		URL          string
		AudioOnly    bool
		OutputPrefix string
		Token        string
	}

	// Extractor invokes the yt-dlp binary. All staged output is written
	// beneath the configured output directory.
	Extractor struct {
		config        Config
		binaryPath    string
		outputDirPath string
	}
)

// NewExtractor resolves the yt-dlp binary (from the config, falling back to
// the PATH) and returns an Extractor writing to the output directory
// provided. An error is returned if the binary cannot be found.
func NewExtractor(config Config, outputDirPath string) (*Extractor, error) {
	binary := config.Binary()
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp binary '%s' could not be found: %w", binary, err)
	}

	return &Extractor{
		config:        config,
		binaryPath:    resolved,
		outputDirPath: outputDirPath,
	}, nil
}

// ExtractInfo runs a metadata-only probe against the URL provided. The probe
// runs under the configured deadline as a client is typically blocked on
// the result.
func (extractor *Extractor) ExtractInfo(parent context.Context, url string) (*MediaInfo, error) {
	ctx, cancel := context.WithTimeout(parent, extractor.config.InfoTimeoutDuration())
	defer cancel()

	cmd := exec.CommandContext(ctx, extractor.binaryPath, "-J", "--no-warnings", "--skip-download", url)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("metadata extraction failed: %w (stderr: %s)", err, tail(stderr.String()))
	}

	var raw map[string]any
	if err := json.Unmarshal(output, &raw); err != nil {
		return nil, fmt.Errorf("metadata extraction produced illegal JSON: %w", err)
	}

	var info MediaInfo
	if err := mapstructure.Decode(raw, &info); err != nil {
		return nil, fmt.Errorf("failed to decode media metadata: %w", err)
	}

	return &info, nil
}

// Download invokes yt-dlp for the request provided and blocks until it
// exits. Progress lines emitted on stdout are parsed and forwarded to
// onProgress as they arrive; lines which cannot be parsed are dropped.
// No deadline is imposed: media downloads have no sensible upper bound,
// so cancellation is the caller's responsibility (via the context).
func (extractor *Extractor) Download(ctx context.Context, request DownloadRequest, onProgress ProgressHook) error {
	args := extractor.buildDownloadArgs(request)
	cmd := exec.CommandContext(ctx, extractor.binaryPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to attach to yt-dlp stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start yt-dlp: %w", err)
	}

	log.Emit(logger.DEBUG, "Spawned %s (pid %d) for token %s\n", extractor.binaryPath, cmd.Process.Pid, request.Token)
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		update, ok := parseProgressLine(scanner.Text())
		if !ok {
			continue
		}

		if onProgress != nil {
			onProgress(update)
		}
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("yt-dlp exited abnormally: %w (stderr: %s)", err, tail(stderr.String()))
	}

	return nil
}

// buildDownloadArgs assembles the argument list for a download invocation.
// The output template fixes the caller's unique prefix in the staging
// directory; the remainder of the name is left to yt-dlp.
func (extractor *Extractor) buildDownloadArgs(request DownloadRequest) []string {
	outputTemplate := filepath.Join(extractor.outputDirPath, request.OutputPrefix+"%(id)s.%(ext)s")
	args := []string{
		"--newline",
		"--no-warnings",
		"--progress",
		"--progress-template", buildProgressTemplate(request.Token),
		"-o", outputTemplate,
	}

	if request.AudioOnly {
		args = append(args,
			"-f", "bestaudio/best",
			"-x",
			"--audio-format", "mp3",
			"--audio-quality", "192K",
			"--embed-thumbnail",
			"--embed-metadata",
		)
	} else {
		args = append(args,
			"-f", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
			"--recode-video", "mp4",
		)
	}

	return append(args, request.URL)
}

// tail trims stderr output down to its final line, which is where yt-dlp
// reports the actual cause of a failure.
func tail(output string) string {
	lines := bytes.Split(bytes.TrimSpace([]byte(output)), []byte("\n"))
	if len(lines) == 0 {
		return ""
	}

	return string(lines[len(lines)-1])
}
