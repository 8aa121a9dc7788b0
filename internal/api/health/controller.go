package health

import (
	"net/http"
	"os/exec"

	"github.com/labstack/echo/v4"
)

type (
	ToolDto struct {
		Name      string `json:"name"`
		Path      string `json:"path,omitempty"`
		Available bool   `json:"available"`
	}

	ReportDto struct {
		Status string    `json:"status"`
		Tools  []ToolDto `json:"tools"`
	}

	// Controller reports on the external tools Hermes shells out to.
	// Downloads cannot succeed without them, so a deployment can probe
	// this endpoint to catch a broken environment before users do.
	Controller struct {
		tools []string
	}
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

func New(tools ...string) *Controller {
	return &Controller{tools: tools}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.get)
}

// get resolves each required tool on the PATH. Any miss degrades the
// report and the response status code, so load balancer health checks
// fail without needing to understand the body.
func (controller *Controller) get(ec echo.Context) error {
	report := ReportDto{Status: statusHealthy, Tools: make([]ToolDto, 0, len(controller.tools))}
	code := http.StatusOK

	for _, tool := range controller.tools {
		path, err := exec.LookPath(tool)
		if err != nil {
			report.Status = statusDegraded
			code = http.StatusServiceUnavailable
		}

		report.Tools = append(report.Tools, ToolDto{Name: tool, Path: path, Available: err == nil})
	}

	return ec.JSON(code, report)
}
