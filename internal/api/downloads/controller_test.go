package downloads_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hbomb79/Hermes/internal/api/downloads"
	"github.com/hbomb79/Hermes/internal/download"
	"github.com/hbomb79/Hermes/tests/helpers"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

var errExpected = errors.New("test: expected error")

type serviceMock struct {
	newDownloadFunc  func(sourceURL string, format download.Format) (uuid.UUID, error)
	downloadFunc     func(id uuid.UUID) *download.Download
	allDownloadsFunc func() []*download.Download
	progressFunc     func(id uuid.UUID) float64
	resultFunc       func(id uuid.UUID) *download.Artifact
}

func (mock *serviceMock) NewDownload(sourceURL string, format download.Format) (uuid.UUID, error) {
	return mock.newDownloadFunc(sourceURL, format)
}

func (mock *serviceMock) Download(id uuid.UUID) *download.Download {
	if mock.downloadFunc == nil {
		return nil
	}

	return mock.downloadFunc(id)
}

func (mock *serviceMock) AllDownloads() []*download.Download {
	if mock.allDownloadsFunc == nil {
		return nil
	}

	return mock.allDownloadsFunc()
}

func (mock *serviceMock) Progress(id uuid.UUID) float64 {
	if mock.progressFunc == nil {
		return 0
	}

	return mock.progressFunc(id)
}

func (mock *serviceMock) Result(id uuid.UUID) *download.Artifact {
	if mock.resultFunc == nil {
		return nil
	}

	return mock.resultFunc(id)
}

func newTestServer(service downloads.Service) *echo.Echo {
	server := echo.New()
	controller := downloads.New(validator.New(), service)
	controller.SetRoutes(server.Group("/api/hermes/v1/downloads"))
	return server
}

func performRequest(server *echo.Echo, method string, target string, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	request := httptest.NewRequest(method, target, reader)
	if body != "" {
		request.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, request)
	return recorder
}

func Test_SubmitDownload_AcceptedWithDefaultFormat(t *testing.T) {
	t.Parallel()
	expectedID := uuid.New()

	var capturedURL string
	var capturedFormat download.Format
	server := newTestServer(&serviceMock{
		newDownloadFunc: func(sourceURL string, format download.Format) (uuid.UUID, error) {
			capturedURL = sourceURL
			capturedFormat = format
			return expectedID, nil
		},
	})

	rec := performRequest(server, http.MethodPost, "/api/hermes/v1/downloads/", `{"url":"https://example.com/watch?v=abc"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	submission := helpers.DecodeJSONBody[downloads.SubmissionDto](t, rec)
	assert.Equal(t, expectedID, submission.ID)
	assert.Equal(t, "https://example.com/watch?v=abc", capturedURL)
	assert.Equal(t, download.MP4, capturedFormat, "format should default to mp4 when omitted")
}

func Test_SubmitDownload_ExplicitFormatHonoured(t *testing.T) {
	t.Parallel()
	var capturedFormat download.Format
	server := newTestServer(&serviceMock{
		newDownloadFunc: func(_ string, format download.Format) (uuid.UUID, error) {
			capturedFormat = format
			return uuid.New(), nil
		},
	})

	rec := performRequest(server, http.MethodPost, "/api/hermes/v1/downloads/", `{"url":"https://example.com/watch?v=abc","format":"mp3"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, download.MP3, capturedFormat)
}

func Test_SubmitDownload_IllegalBodiesRejected(t *testing.T) {
	t.Parallel()
	tests := []struct {
		summary string
		body    string
	}{
		{summary: "empty body", body: `{}`},
		{summary: "blank url", body: `{"url":""}`},
		{summary: "unknown format", body: `{"url":"https://example.com/watch?v=abc","format":"flac"}`},
		{summary: "malformed json", body: `{"url":`},
	}

	for _, test := range tests {
		t.Run(test.summary, func(t *testing.T) {
			t.Parallel()
			server := newTestServer(&serviceMock{
				newDownloadFunc: func(string, download.Format) (uuid.UUID, error) {
					t.Error("service should never see an illegal submission")
					return uuid.Nil, nil
				},
			})

			rec := performRequest(server, http.MethodPost, "/api/hermes/v1/downloads/", test.body)
			helpers.AssertErrorResponse(t, rec, http.StatusBadRequest, "Invalid body")
		})
	}
}

func Test_SubmitDownload_ServiceFailureReported(t *testing.T) {
	t.Parallel()
	server := newTestServer(&serviceMock{
		newDownloadFunc: func(string, download.Format) (uuid.UUID, error) {
			return uuid.Nil, errExpected
		},
	})

	rec := performRequest(server, http.MethodPost, "/api/hermes/v1/downloads/", `{"url":"https://example.com/watch?v=abc"}`)
	helpers.AssertErrorResponse(t, rec, http.StatusInternalServerError, "Failed to accept submission")
}

func Test_GetDownload_UnknownIDReportsZeroProgress(t *testing.T) {
	t.Parallel()
	server := newTestServer(&serviceMock{})

	rec := performRequest(server, http.MethodGet, "/api/hermes/v1/downloads/"+uuid.NewString()+"/", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	progress := helpers.DecodeJSONBody[downloads.ProgressDto](t, rec)
	assert.Zero(t, progress.Progress)
	assert.Nil(t, progress.FileName)
	assert.Nil(t, progress.Title)
}

func Test_GetDownload_IllegalIDRejected(t *testing.T) {
	t.Parallel()
	server := newTestServer(&serviceMock{})

	rec := performRequest(server, http.MethodGet, "/api/hermes/v1/downloads/not-a-uuid/", "")
	helpers.AssertErrorResponse(t, rec, http.StatusBadRequest, "not a valid UUID")
}

func Test_GetDownload_CompletedCarriesArtifact(t *testing.T) {
	t.Parallel()
	id := uuid.New()
	server := newTestServer(&serviceMock{
		progressFunc: func(uuid.UUID) float64 { return 100 },
		resultFunc: func(requested uuid.UUID) *download.Artifact {
			assert.Equal(t, id, requested)
			return &download.Artifact{FileName: "final_" + id.String() + ".mp3", Title: "My Test Media"}
		},
	})

	rec := performRequest(server, http.MethodGet, "/api/hermes/v1/downloads/"+id.String()+"/", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	progress := helpers.DecodeJSONBody[downloads.ProgressDto](t, rec)
	assert.Equal(t, float64(100), progress.Progress)
	if assert.NotNil(t, progress.FileName) {
		assert.Equal(t, "final_"+id.String()+".mp3", *progress.FileName)
	}
	if assert.NotNil(t, progress.Title) {
		assert.Equal(t, "My Test Media", *progress.Title)
	}
}

func Test_GetDownload_FailureSentinelExposed(t *testing.T) {
	t.Parallel()
	server := newTestServer(&serviceMock{
		progressFunc: func(uuid.UUID) float64 { return download.ProgressFailed },
	})

	rec := performRequest(server, http.MethodGet, "/api/hermes/v1/downloads/"+uuid.NewString()+"/", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	progress := helpers.DecodeJSONBody[downloads.ProgressDto](t, rec)
	assert.Equal(t, download.ProgressFailed, progress.Progress)
	assert.Nil(t, progress.FileName)
	assert.Nil(t, progress.Title)
}

func Test_ListDownloads_ModelsConvertedToDtos(t *testing.T) {
	t.Parallel()
	running := download.NewDownload("https://example.com/watch?v=abc", download.MP3)
	running.Status = download.RUNNING
	running.Progress = 42.5

	completed := download.NewDownload("https://example.com/watch?v=def", download.MP4)
	completed.Status = download.COMPLETED
	completed.Progress = 100
	completed.Result = &download.Artifact{FileName: "final_def.mp4", Title: "Finished Media"}

	server := newTestServer(&serviceMock{
		allDownloadsFunc: func() []*download.Download {
			return []*download.Download{running, completed}
		},
	})

	rec := performRequest(server, http.MethodGet, "/api/hermes/v1/downloads/", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	dtos := helpers.DecodeJSONBody[[]downloads.DownloadDto](t, rec)
	if !assert.Len(t, dtos, 2) {
		return
	}

	assert.Equal(t, running.ID, dtos[0].ID)
	assert.Equal(t, downloads.RUNNING, dtos[0].Status)
	assert.Equal(t, 42.5, dtos[0].Progress)
	assert.Nil(t, dtos[0].FileName)

	assert.Equal(t, completed.ID, dtos[1].ID)
	assert.Equal(t, downloads.COMPLETED, dtos[1].Status)
	if assert.NotNil(t, dtos[1].Format) {
		assert.Equal(t, download.MP4, dtos[1].Format.Value)
	}
	if assert.NotNil(t, dtos[1].FileName) {
		assert.Equal(t, "final_def.mp4", *dtos[1].FileName)
	}
	if assert.NotNil(t, dtos[1].Title) {
		assert.Equal(t, "Finished Media", *dtos[1].Title)
	}
}
