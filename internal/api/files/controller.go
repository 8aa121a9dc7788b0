package files

import (
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
)

type (
	// Controller serves completed artifacts out of the serving directory.
	// It deals purely in stable file names; clients learn those names from
	// the download poll endpoint.
	Controller struct {
		servingDirPath string
	}
)

const (
	maxTitleLength = 100
	defaultTitle   = "video"
)

var (
	// Characters which are unsafe in a download file name on at least one
	// common platform (Windows reserves most of these).
	unsafeTitlePattern = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

func New(servingDirPath string) *Controller {
	return &Controller{servingDirPath: servingDirPath}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/:name/", controller.get)
}

// get streams the named artifact as an attachment. The optional 'title'
// query param controls the file name offered to the downloading browser;
// the extension always comes from the artifact itself so the advertised
// name matches the real container format.
//
// The name param must be a bare file name. Anything which could address
// outside the serving directory is rejected before touching the disk.
func (controller *Controller) get(ec echo.Context) error {
	name := ec.Param("name")
	if name != filepath.Base(name) || name == "." || name == ".." {
		return echo.NewHTTPError(http.StatusBadRequest, "File name is illegal")
	}

	path := filepath.Join(controller.servingDirPath, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return echo.NewHTTPError(http.StatusNotFound, "File does not exist")
	}

	downloadName := SanitizeTitle(ec.QueryParam("title")) + filepath.Ext(name)
	return ec.Attachment(path, downloadName)
}

// SanitizeTitle reduces an arbitrary media title to a string safe to use
// as a cross-platform file name: reserved characters are stripped, runs of
// whitespace become single underscores, and overlong titles are truncated.
// A title with nothing left after cleaning falls back to a fixed default.
func SanitizeTitle(title string) string {
	title = unsafeTitlePattern.ReplaceAllString(title, "")
	title = whitespacePattern.ReplaceAllString(strings.TrimSpace(title), "_")
	if title == "" {
		return defaultTitle
	}

	if runes := []rune(title); len(runes) > maxTitleLength {
		return string(runes[:maxTitleLength])
	}

	return title
}
