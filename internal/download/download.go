package download

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type DownloadStatus int

const (
	SUBMITTED DownloadStatus = iota
	RUNNING
	COMPLETED
	FAILED
)

type Format int

const (
	MP3 Format = iota
	MP4
)

const (
	// ProgressFailed is the sentinel recorded against a download which has
	// terminally failed. It sits outside the normal [0, 100] range so a
	// poller can distinguish failure from any legitimate progress value.
	ProgressFailed float64 = -1

	// progressSubmitted is the placeholder written at submission time,
	// distinguishing an accepted-but-not-started download from an unknown
	// one (which reports zero).
	progressSubmitted float64 = 0.1
)

type (
	// Artifact is the user-facing retrieval descriptor for a completed
	// download: the stable file name inside the serving directory, and the
	// display title scraped from the source media.
	Artifact struct {
		FileName string
		Title    string
	}

	// Download represents one submitted fetch operation. The ID held inside
	// is the sole key correlating all state for the operation, and is what
	// clients use to poll for progress.
	Download struct {
		ID          uuid.UUID
		SourceURL   string
		Format      Format
		Status      DownloadStatus
		Progress    float64
		Result      *Artifact
		SubmittedAt time.Time
		UpdatedAt   time.Time
	}
)

// NewDownload constructs a submitted download for the source URL and format
// provided. The staging prefix for the download is fixed from this point;
// yt-dlp is always invoked with an output template carrying it.
func NewDownload(sourceURL string, format Format) *Download {
	now := time.Now()
	return &Download{
		ID:          uuid.New(),
		SourceURL:   sourceURL,
		Format:      format,
		Status:      SUBMITTED,
		Progress:    progressSubmitted,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
}

// StagingPrefix is the per-download file name prefix that all of the
// yt-dlp output for this download will carry inside the staging
// directory.
func (download *Download) StagingPrefix() string {
	return fmt.Sprintf("dl_%s_", download.ID)
}

// StableFileName derives the collision-free name the resolved artifact is
// relocated to inside the serving directory.
func (download *Download) StableFileName(ext string) string {
	return fmt.Sprintf("final_%s%s", download.ID, ext)
}

func (download *Download) String() string {
	return fmt.Sprintf("Download{ID=%s Format=%s Status=%s}", download.ID, download.Format, download.Status)
}

func (f Format) String() string {
	switch f {
	case MP3:
		return "mp3"
	case MP4:
		return "mp4"
	}

	return fmt.Sprintf("UNKNOWN[%d]", f)
}

func (s DownloadStatus) String() string {
	switch s {
	case SUBMITTED:
		return fmt.Sprintf("SUBMITTED[%d]", s)
	case RUNNING:
		return fmt.Sprintf("RUNNING[%d]", s)
	case COMPLETED:
		return fmt.Sprintf("COMPLETED[%d]", s)
	case FAILED:
		return fmt.Sprintf("FAILED[%d]", s)
	}

	return fmt.Sprintf("UNKNOWN[%d]", s)
}

// terminal reports whether the status is final; terminal downloads never
// regress and never accept further progress writes.
func (s DownloadStatus) terminal() bool {
	return s == COMPLETED || s == FAILED
}
