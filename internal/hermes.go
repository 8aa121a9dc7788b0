package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/hbomb79/Hermes/internal/api"
	"github.com/hbomb79/Hermes/internal/download"
	"github.com/hbomb79/Hermes/internal/event"
	"github.com/hbomb79/Hermes/internal/janitor"
	"github.com/hbomb79/Hermes/internal/ytdlp"
	"github.com/hbomb79/Hermes/pkg/logger"
)

var log = logger.Get("Core")

type (
	RunnableService interface {
		Run(context.Context) error
	}

	DownloadService interface {
		RunnableService
		NewDownload(string, download.Format) (uuid.UUID, error)
		Download(uuid.UUID) *download.Download
		AllDownloads() []*download.Download
		Progress(uuid.UUID) float64
		Result(uuid.UUID) *download.Artifact
	}

	JanitorService interface {
		RunnableService
		Sweep()
	}
)

// Hermes represents the top-level object for the server, and is responsible
// for initialising embedded services, stores, event
// handling, et cetera...
type hermesImpl struct {
	eventBus event.EventCoordinator
	config   HermesConfig

	downloadStore *download.Store

	restGateway     RunnableService
	downloadService DownloadService
	janitorService  JanitorService
}

const HERMES_USER_DIR_SUFFIX = "/hermes/"

func New(config HermesConfig) *hermesImpl {
	log.Emit(logger.DEBUG, "Bootstrapping Hermes services using config: %#v\n", config)
	hermes := &hermesImpl{
		eventBus:      event.New(),
		config:        config,
		downloadStore: download.NewStore(),
	}

	// The directory defaults are resolved once, here, so every service
	// observes the same paths regardless of which config fields were set.
	downloadConfig := config.Downloads
	downloadConfig.StagingDirPath = config.getStagingDir()
	downloadConfig.ServingDirPath = config.getServingDir()

	extractor, err := ytdlp.NewExtractor(config.YtDlp, downloadConfig.StagingDirPath)
	if err != nil {
		panic(fmt.Sprintf("failed to construct yt-dlp extractor due to error: %s", err.Error()))
	}

	if serv, err := download.New(downloadConfig, hermes.eventBus, hermes.downloadStore, extractor); err == nil {
		hermes.downloadService = serv
	} else {
		panic(fmt.Sprintf("failed to construct download service due to error: %s", err.Error()))
	}

	hermes.janitorService = janitor.New(config.Janitor, downloadConfig.StagingDirPath, downloadConfig.ServingDirPath)
	hermes.restGateway = api.NewRestGateway(
		&config.RestConfig,
		hermes.downloadService,
		extractor,
		downloadConfig.ServingDirPath,
		config.YtDlp.Binary(), "ffmpeg", "ffprobe",
	)

	hermes.eventBus.RegisterAsyncHandlerFunction(event.DownloadCompleteEvent, hermes.logDownloadCompletion)

	return hermes
}

// Run will start all of Hermes by bringing up all required services, and will
// not return until Hermes is stopped. To stop Hermes, the provided context
// must be cancelled. Errors from which Hermes cannot recover will also cause
// Hermes to stop.
func (hermes *hermesImpl) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	crashHandler := func(label string, err error) {
		log.Emit(logger.FATAL, "Service crash (%s)! %s\n", label, err.Error())
		cancel()
	}

	wg := &sync.WaitGroup{}
	hermes.spawnAsyncService(ctx, wg, hermes.downloadService, "download-service", crashHandler)
	hermes.spawnAsyncService(ctx, wg, hermes.janitorService, "janitor-service", crashHandler)
	hermes.spawnAsyncService(ctx, wg, hermes.restGateway, "rest-gateway", crashHandler)
	log.Emit(logger.SUCCESS, "Hermes services spawned!\n")

	wg.Wait()
	return nil
}

// spawnAsyncService will run the provided function/service as it's own
// go-routine, ensuring that the Hermes service waitgroup is updated correctly
func (hermes *hermesImpl) spawnAsyncService(context context.Context, wg *sync.WaitGroup, service RunnableService, serviceLabel string, crashHandler func(string, error)) {
	log.Emit(logger.NEW, "Spawning %s\n", serviceLabel)
	wg.Add(1)

	go func(wg *sync.WaitGroup, label string, crash func(string, error)) {
		defer func() {
			if r := recover(); r != nil {
				crash(label, fmt.Errorf("panic %v", r))
			}
		}()

		defer wg.Done()
		if err := service.Run(context); err != nil {
			crash(label, err)
		}
	}(wg, serviceLabel, crashHandler)
}

// logDownloadCompletion is the bus handler reporting terminal downloads in
// the server log, regardless of which part of the system drove them there.
func (hermes *hermesImpl) logDownloadCompletion(ev event.Event, payload event.Payload) {
	id, ok := payload.(uuid.UUID)
	if !ok {
		return
	}

	if dl := hermes.downloadService.Download(id); dl != nil {
		log.Emit(logger.INFO, "Download %s reached terminal state\n", dl)
	}
}
