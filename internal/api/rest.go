package api

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/hbomb79/Hermes/internal/api/downloads"
	"github.com/hbomb79/Hermes/internal/api/files"
	"github.com/hbomb79/Hermes/internal/api/health"
	"github.com/hbomb79/Hermes/internal/api/medias"
	"github.com/hbomb79/Hermes/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

var log = logger.Get("API")

type (
	RestConfig struct {
		HostAddr string `yaml:"host_address" env:"API_HOST_ADDR" env-default:"0.0.0.0:8080"`

		// SubmissionsPerSecond bounds how quickly one client can submit
		// downloads or metadata probes. Every such request spawns a
		// yt-dlp process, so this is as much a host protection as an
		// abuse guard. Values below 1 are not supported.
		SubmissionsPerSecond float64 `yaml:"submissions_per_second" env:"API_SUBMISSIONS_PER_SECOND" env-default:"2"`
	}

	controller interface {
		SetRoutes(*echo.Group)
	}

	// The RestGateway is a thin-wrapper around the Echo HTTP router. Its sole
	// responsibility is to create the routes Hermes exposes, and to enforce
	// the cross-cutting middleware (logging, recovery, rate limiting) those
	// routes sit behind.
	RestGateway struct {
		config              *RestConfig
		ec                  *echo.Echo
		downloadsController controller
		mediasController    controller
		filesController     controller
		healthController    controller
	}
)

// NewRestGateway constructs the Echo router and populates it with all the
// routes defined by the various controllers. Request validation is owned
// here: a single validator instance is shared by every controller.
func NewRestGateway(
	config *RestConfig,
	downloadService downloads.Service,
	infoProvider medias.InfoProvider,
	servingDirPath string,
	requiredTools ...string,
) *RestGateway {
	ec := newEcho()
	validate := validator.New()
	gateway := &RestGateway{
		config:              config,
		ec:                  ec,
		downloadsController: downloads.New(validate, downloadService),
		mediasController:    medias.New(validate, infoProvider),
		filesController:     files.New(servingDirPath),
		healthController:    health.New(requiredTools...),
	}

	// The submission endpoints share one limiter so the combined rate a
	// client can spawn yt-dlp processes at stays bounded; read-only
	// endpoints (polling in particular) are deliberately exempt.
	spawnLimiter := middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(ec echo.Context) bool { return ec.Request().Method != http.MethodPost },
		Store:   middleware.NewRateLimiterMemoryStore(rate.Limit(config.SubmissionsPerSecond)),
	})

	gateway.downloadsController.SetRoutes(ec.Group("/api/hermes/v1/downloads", spawnLimiter))
	gateway.mediasController.SetRoutes(ec.Group("/api/hermes/v1/medias", spawnLimiter))
	gateway.filesController.SetRoutes(ec.Group("/api/hermes/v1/files"))
	gateway.healthController.SetRoutes(ec.Group("/api/hermes/v1/health"))

	return gateway
}

func newEcho() *echo.Echo {
	ec := echo.New()
	ec.HideBanner = true
	ec.HidePort = true
	ec.OnAddRouteHandler = func(_ string, route echo.Route, _ echo.HandlerFunc, _ []echo.MiddlewareFunc) {
		log.Emit(logger.DEBUG, "Registered new route %s %s\n", route.Method, route.Path)
	}

	ec.Use(middleware.Logger(), middleware.Recover())
	ec.Pre(middleware.AddTrailingSlash())

	return ec
}

// Run serves the API until the given context is cancelled or the server
// fails. Echo's Start blocks, so cancellation is watched from a second
// goroutine which closes the server once the context ends.
func (gateway *RestGateway) Run(parentCtx context.Context) error {
	ctx, ctxCancel := context.WithCancelCause(parentCtx)

	serverClosed := make(chan struct{})
	go func() {
		defer close(serverClosed)
		if err := gateway.ec.Start(gateway.config.HostAddr); err != nil {
			ctxCancel(err)
		}
	}()

	go func() {
		<-ctx.Done()
		gateway.ec.Close()
	}()

	<-serverClosed

	// A cancelled parent context is an orderly shutdown rather than a
	// failure, so only a cause beyond the context's own error is returned.
	if cause := context.Cause(ctx); cause != ctx.Err() {
		return cause
	}

	return nil
}
