package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/hbomb79/Hermes/internal/event"
	"github.com/hbomb79/Hermes/internal/ffmpeg"
	"github.com/hbomb79/Hermes/internal/ytdlp"
	"github.com/hbomb79/Hermes/pkg/logger"
	"github.com/hbomb79/Hermes/pkg/worker"
)

var log = logger.Get("DownloadServ")

type (
	extractor interface {
		ExtractInfo(context.Context, string) (*ytdlp.MediaInfo, error)
		Download(context.Context, ytdlp.DownloadRequest, ytdlp.ProgressHook) error
	}

	// downloadService drives submitted downloads end-to-end. It is
	// responsible for some key aspects of Hermes:
	//   - Accepting submissions and scheduling them on the worker pool
	//     without ever blocking the submitter
	//   - Invoking yt-dlp and consuming the progress samples it reports
	//     over the event bus
	//   - Resolving, relocating and recording the produced artifact
	//   - Recording failure via the store's sentinel, never via a panic
	//     or error crossing the poll boundary
	downloadService struct {
		*sync.Mutex
		config    Config
		resolver  resolver
		store     *Store
		eventBus  event.EventCoordinator
		extractor extractor

		workerPool *worker.WorkerPool
		pending    []uuid.UUID

		// runCtx is set once by Run before the worker pool starts, and is
		// the context in-flight yt-dlp invocations run under.
		runCtx context.Context
	}
)

// New creates a new downloadService using the config provided. The staging
// and serving directories are validated to be existing directories, and
// created when missing; an error is returned if either path points at an
// existing file.
func New(config Config, eventBus event.EventCoordinator, store *Store, extractor extractor) (*downloadService, error) {
	if err := ensureDirectory(config.StagingDirPath); err != nil {
		return nil, err
	}
	if err := ensureDirectory(config.ServingDirPath); err != nil {
		return nil, err
	}

	service := &downloadService{
		Mutex:      &sync.Mutex{},
		config:     config,
		resolver:   newResolver(config),
		store:      store,
		eventBus:   eventBus,
		extractor:  extractor,
		workerPool: worker.NewWorkerPool(),
		pending:    make([]uuid.UUID, 0),
		runCtx:     context.Background(),
	}

	for i := 0; i < config.DownloadParallelism; i++ {
		label := fmt.Sprintf("download-worker-%d", i)
		worker := worker.NewWorker(label, service.PerformNextDownload)

		service.workerPool.PushWorker(worker)
	}

	return service, nil
}

// Run is the main entry point for this service. It starts the download
// worker pool and consumes progress signals from the event bus, applying
// them to the store. This method will block until the provided context
// is cancelled.
func (service *downloadService) Run(ctx context.Context) error {
	service.runCtx = ctx

	progressChannel := make(event.HandlerChannel, 128)
	service.eventBus.RegisterHandlerChannel(progressChannel, event.DownloadProgressEvent)

	if err := service.workerPool.Start(); err != nil {
		return err
	}
	defer service.workerPool.Close()

	for {
		select {
		case message := <-progressChannel:
			if signal, ok := message.Payload.(event.ProgressSignal); ok {
				service.handleProgressSignal(signal)
			} else {
				log.Emit(logger.ERROR, "failed to extract ProgressSignal from %s event (payload %#v)\n", message.Event, message.Payload)
			}
		case <-ctx.Done():
			log.Emit(logger.STOP, "Shutting down (context cancelled). Waiting for download workers to finish.\n")
			return nil
		}
	}
}

// NewDownload registers a submitted download and schedules it for
// execution. The returned ID is the sole handle the submitter has on the
// operation. This method never waits on the download itself; it returns as
// soon as the store entry exists.
func (service *downloadService) NewDownload(sourceURL string, format Format) (uuid.UUID, error) {
	download := NewDownload(sourceURL, format)
	if err := service.store.Register(download); err != nil {
		return uuid.Nil, err
	}

	service.Lock()
	service.pending = append(service.pending, download.ID)
	service.Unlock()

	log.Emit(logger.NEW, "Accepted %s for '%s'\n", download, download.SourceURL)
	service.eventBus.Dispatch(event.DownloadUpdateEvent, download.ID)
	if err := service.workerPool.WakeupWorkers(); err != nil {
		// Pool not started yet; the workers drain the pending queue as
		// soon as they do start.
		log.Emit(logger.DEBUG, "Could not wake workers: %v\n", err)
	}

	return download.ID, nil
}

// Download returns a snapshot of the download with the ID provided, or nil
// if no such download is known.
func (service *downloadService) Download(id uuid.UUID) *Download {
	return service.store.Get(id)
}

// AllDownloads returns a snapshot of every download known to the service.
func (service *downloadService) AllDownloads() []*Download {
	return service.store.All()
}

// Progress returns the progress indicator for the ID provided; unknown IDs
// report zero.
func (service *downloadService) Progress(id uuid.UUID) float64 {
	return service.store.Progress(id)
}

// Result returns the retrieval descriptor for the ID provided, or nil if
// the download has not completed successfully.
func (service *downloadService) Result(id uuid.UUID) *Artifact {
	return service.store.Result(id)
}

// PerformNextDownload is the worker function for this service, which is
// called by the service's WorkerPool. It claims the oldest pending download
// and drives it to a terminal state; any error along the way is recorded
// against the download rather than returned.
func (service *downloadService) PerformNextDownload(w worker.Worker) (bool, error) {
	download := service.claimPendingDownload()
	if download == nil {
		return false, nil
	}

	service.runDownload(download)
	return true, nil
}

// claimPendingDownload pops the oldest pending submission.
//
// Note: This function takes ownership of the mutex, and releases it when returning
func (service *downloadService) claimPendingDownload() *Download {
	service.Lock()
	defer service.Unlock()

	for len(service.pending) > 0 {
		id := service.pending[0]
		service.pending = service.pending[1:]

		if download := service.store.Get(id); download != nil {
			return download
		}
	}

	return nil
}

// runDownload owns one download's full lifecycle on the calling worker
// goroutine. Terminal state is always recorded here: COMPLETED only once
// the artifact has been resolved and relocated, FAILED on any error from
// extraction, post-processing, resolution or relocation.
func (service *downloadService) runDownload(download *Download) {
	if err := service.store.Start(download.ID); err != nil {
		log.Errorf("Cannot start %s: %v\n", download, err)
		return
	}
	service.eventBus.Dispatch(event.DownloadUpdateEvent, download.ID)

	artifact, err := service.performDownload(service.runCtx, download)
	if err != nil {
		log.Errorf("Download %s failed: %v\n", download, err)
		if err := service.store.Fail(download.ID); err != nil {
			log.Warnf("Failed to record failure of %s: %v\n", download, err)
		}

		service.eventBus.Dispatch(event.DownloadCompleteEvent, download.ID)
		return
	}

	if err := service.store.Complete(download.ID, *artifact); err != nil {
		log.Errorf("Failed to record completion of %s: %v\n", download, err)
		return
	}

	log.Emit(logger.SUCCESS, "Download %s complete (artifact '%s')\n", download, artifact.FileName)
	service.eventBus.Dispatch(event.DownloadCompleteEvent, download.ID)
}

// performDownload invokes yt-dlp for the download provided and
// resolves its output. The download's ID is threaded through the invocation
// as the correlation token for progress reporting, and its staging prefix
// fixes where the output can later be found.
func (service *downloadService) performDownload(ctx context.Context, download *Download) (*Artifact, error) {
	info, err := service.extractor.ExtractInfo(ctx, download.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("extraction rejected source: %w", err)
	}

	request := ytdlp.DownloadRequest{
		URL:          download.SourceURL,
		AudioOnly:    download.Format == MP3,
		OutputPrefix: download.StagingPrefix(),
		Token:        download.ID.String(),
	}

	if err := service.extractor.Download(ctx, request, service.forwardProgress); err != nil {
		return nil, err
	}

	stableName, err := service.resolver.resolve(ctx, download)
	if err != nil {
		return nil, err
	}

	service.annotateArtifact(stableName)
	return &Artifact{FileName: stableName, Title: info.Title}, nil
}

// forwardProgress converts a yt-dlp progress sample in to a bus
// event for the Run loop to consume. Samples whose correlation token is
// missing or malformed cannot be attributed to any download and are
// silently discarded.
func (service *downloadService) forwardProgress(update ytdlp.ProgressUpdate) {
	id, err := uuid.Parse(update.Token)
	if err != nil {
		log.Emit(logger.DEBUG, "Discarding progress sample with illegal correlation token '%s'\n", update.Token)
		return
	}

	service.eventBus.Dispatch(event.DownloadProgressEvent, event.ProgressSignal{
		DownloadID: id,
		Percent:    update.Percent,
		Finished:   update.Finished,
	})
}

// handleProgressSignal applies one progress sample to the store. A
// finished signal marks yt-dlp's own retrieval as done (reported
// as 100), but post-processing may still follow, so the download is not
// concluded here; writes against already-terminal downloads are ignored by
// the store.
func (service *downloadService) handleProgressSignal(signal event.ProgressSignal) {
	if signal.Finished {
		service.store.SetProgress(signal.DownloadID, 100)
		return
	}

	service.store.SetProgress(signal.DownloadID, signal.Percent)
}

// annotateArtifact probes the relocated artifact and reports its container
// metadata. Probing is purely informational, a probe failure never fails
// the download.
func (service *downloadService) annotateArtifact(stableName string) {
	path := filepath.Join(service.config.ServingDirPath, stableName)
	metadata, err := ffmpeg.ProbeFile(path)
	if err != nil {
		log.Warnf("Unable to probe artifact '%s': %v\n", stableName, err)
		return
	}

	log.Emit(logger.INFO, "Artifact '%s' ready (%s)\n", stableName, ffmpeg.Describe(metadata))
}

// ensureDirectory validates that the path provided is an existing
// directory, creating it if it's missing.
func ensureDirectory(path string) error {
	if info, err := os.Stat(path); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("path '%s' is not a directory", path)
		}

		return nil
	} else if errors.Is(err, os.ErrNotExist) {
		return os.MkdirAll(path, os.ModeDir|os.ModePerm)
	} else {
		return fmt.Errorf("path '%s' could not be accessed: %s", path, err.Error())
	}
}
