package downloads

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hbomb79/Hermes/internal/api/util"
	"github.com/hbomb79/Hermes/internal/download"
	"github.com/hbomb79/Hermes/pkg/logger"
	"github.com/labstack/echo/v4"
)

type (
	FormatWrapper struct{ Value download.Format }

	// SubmitRequest is the body for download submissions. The URL is an
	// opaque string as far as Hermes is concerned; whether it points at
	// retrievable media is yt-dlp's call, made asynchronously. Format is
	// optional, defaulting to a full video download.
	SubmitRequest struct {
		URL    string         `json:"url" validate:"required"`
		Format *FormatWrapper `json:"format"`
	}

	SubmissionDto struct {
		ID uuid.UUID `json:"id"`
	}

	// ProgressDto is the poll response clients consume while a download
	// runs. Progress is always present (-1 indicates terminal failure);
	// the file name and title only appear once the download completes.
	ProgressDto struct {
		Progress float64 `json:"progress"`
		FileName *string `json:"filename,omitempty"`
		Title    *string `json:"title,omitempty"`
	}

	// DownloadDto is the full representation used by endpoints returning
	// entire downloads (e.g., list).
	DownloadDto struct {
		ID          uuid.UUID      `json:"id"`
		SourceURL   string         `json:"source_url"`
		Format      *FormatWrapper `json:"format"`
		Status      StatusDto      `json:"status"`
		Progress    float64        `json:"progress"`
		FileName    *string        `json:"filename,omitempty"`
		Title       *string        `json:"title,omitempty"`
		SubmittedAt time.Time      `json:"submitted_at"`
		UpdatedAt   time.Time      `json:"updated_at"`
	}

	StatusDto string

	Service interface {
		NewDownload(sourceURL string, format download.Format) (uuid.UUID, error)
		Download(uuid.UUID) *download.Download
		AllDownloads() []*download.Download
		Progress(uuid.UUID) float64
		Result(uuid.UUID) *download.Artifact
	}

	// Controller is the struct which is responsible for defining the
	// routes for this controller. Additionally, it holds the reference to
	// the service used to submit and inspect downloads.
	Controller struct {
		service  Service
		validate *validator.Validate
	}
)

var controllerLogger = logger.Get("DownloadsController")

const (
	SUBMITTED StatusDto = "SUBMITTED"
	RUNNING   StatusDto = "RUNNING"
	COMPLETED StatusDto = "COMPLETED"
	FAILED    StatusDto = "FAILED"
)

func New(validate *validator.Validate, serv Service) *Controller {
	return &Controller{service: serv, validate: validate}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.POST("/", controller.create)
	eg.GET("/", controller.list)
	eg.GET("/:id/", controller.get)
}

// create accepts a new download submission, registers it and returns the
// ID immediately; the download itself runs in the background and its fate
// is observable only by polling with the returned ID.
func (controller *Controller) create(ec echo.Context) error {
	var submitRequest SubmitRequest
	if err := ec.Bind(&submitRequest); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid body: %s", err.Error()))
	}

	if err := controller.validate.Struct(submitRequest); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid body: %s", err.Error()))
	}

	format := util.NotNilOrDefault(submitRequest.Format, FormatWrapper{Value: download.MP4})
	id, err := controller.service.NewDownload(submitRequest.URL, format.Value)
	if err != nil {
		controllerLogger.Emit(logger.ERROR, "Failed to accept download submission: %v\n", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to accept submission")
	}

	return ec.JSON(http.StatusCreated, SubmissionDto{ID: id})
}

// list returns all the downloads - represented as DTOs - known to the
// underlying service.
func (controller *Controller) list(ec echo.Context) error {
	dtos := util.ApplyConversion(controller.service.AllDownloads(), NewDownloadDto)
	return ec.JSON(http.StatusOK, dtos)
}

// get is the progress polling endpoint. An ID which is not known to the
// service reports zero progress rather than a 404: polling an expired or
// never-submitted ID is indistinguishable from polling one that has not
// started, and clients treat both the same way.
func (controller *Controller) get(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Download ID is not a valid UUID")
	}

	dto := ProgressDto{Progress: controller.service.Progress(id)}
	if artifact := controller.service.Result(id); artifact != nil {
		dto.FileName = &artifact.FileName
		dto.Title = &artifact.Title
	}

	return ec.JSON(http.StatusOK, dto)
}

func (wrapper *FormatWrapper) UnmarshalJSON(data []byte) error {
	var strValue string
	if err := json.Unmarshal(data, &strValue); err != nil {
		return err
	}

	switch strValue {
	case "mp3":
		wrapper.Value = download.MP3
	case "mp4":
		wrapper.Value = download.MP4
	default:
		return fmt.Errorf("invalid enum value: %s for download format", strValue)
	}

	return nil
}

func (wrapper *FormatWrapper) MarshalJSON() ([]byte, error) {
	switch wrapper.Value {
	case download.MP3:
		return json.Marshal("mp3")
	case download.MP4:
		return json.Marshal("mp4")
	}

	return nil, fmt.Errorf("invalid enum value: %v for download format has no known marshalling", wrapper.Value)
}

// NewDownloadDto creates a DownloadDto using the Download model.
func NewDownloadDto(model *download.Download) DownloadDto {
	dto := DownloadDto{
		ID:          model.ID,
		SourceURL:   model.SourceURL,
		Format:      &FormatWrapper{Value: model.Format},
		Status:      StatusModelToDto(model.Status),
		Progress:    model.Progress,
		SubmittedAt: model.SubmittedAt,
		UpdatedAt:   model.UpdatedAt,
	}

	if model.Result != nil {
		dto.FileName = &model.Result.FileName
		dto.Title = &model.Result.Title
	}

	return dto
}

func StatusModelToDto(modelStatus download.DownloadStatus) StatusDto {
	switch modelStatus {
	case download.SUBMITTED:
		return SUBMITTED
	case download.RUNNING:
		return RUNNING
	case download.COMPLETED:
		return COMPLETED
	case download.FAILED:
		return FAILED
	}

	panic(fmt.Sprintf("download status %s is not recognized by API layer, DTO cannot be created. Please report this error.", modelStatus))
}
