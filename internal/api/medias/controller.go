package medias

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/hbomb79/Hermes/internal/ytdlp"
	"github.com/hbomb79/Hermes/pkg/logger"
	"github.com/labstack/echo/v4"
)

type (
	InfoRequest struct {
		URL string `json:"url" validate:"required"`
	}

	// MediaInfoDto is the response for metadata probes. It mirrors the
	// fields Hermes extracts from the source, nothing more; clients
	// wanting the full yt-dlp metadata dump should invoke it themselves.
	MediaInfoDto struct {
		SourceID   string  `json:"source_id"`
		Title      string  `json:"title"`
		Uploader   string  `json:"uploader"`
		Duration   float64 `json:"duration"`
		Thumbnail  string  `json:"thumbnail"`
		WebpageURL string  `json:"webpage_url"`
		Extractor  string  `json:"extractor"`
	}

	InfoProvider interface {
		ExtractInfo(context.Context, string) (*ytdlp.MediaInfo, error)
	}

	Controller struct {
		provider InfoProvider
		validate *validator.Validate
	}
)

var controllerLogger = logger.Get("MediasController")

func New(validate *validator.Validate, provider InfoProvider) *Controller {
	return &Controller{provider: provider, validate: validate}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.POST("/info/", controller.info)
}

// info probes the URL provided without downloading anything, letting a
// client preview the media (title, duration, thumbnail) before committing
// to a full download. The caller blocks while the probe runs.
//
// Probe failures are collapsed in to a single generic response: the real
// cause (geo-block, age wall, dead URL, unsupported site) is logged but
// never returned, as yt-dlp error output can embed details of the server
// environment.
func (controller *Controller) info(ec echo.Context) error {
	var infoRequest InfoRequest
	if err := ec.Bind(&infoRequest); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid body: %s", err.Error()))
	}

	if err := controller.validate.Struct(infoRequest); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid body: %s", err.Error()))
	}

	info, err := controller.provider.ExtractInfo(ec.Request().Context(), infoRequest.URL)
	if err != nil {
		controllerLogger.Emit(logger.WARNING, "Metadata probe for '%s' rejected: %v\n", infoRequest.URL, err)
		return echo.NewHTTPError(http.StatusBadRequest, "URL is not retrievable")
	}

	return ec.JSON(http.StatusOK, NewMediaInfoDto(info))
}

// NewMediaInfoDto creates a MediaInfoDto using the MediaInfo model.
func NewMediaInfoDto(model *ytdlp.MediaInfo) MediaInfoDto {
	return MediaInfoDto{
		SourceID:   model.ID,
		Title:      model.Title,
		Uploader:   model.Uploader,
		Duration:   model.Duration,
		Thumbnail:  model.Thumbnail,
		WebpageURL: model.WebpageURL,
		Extractor:  model.Extractor,
	}
}
