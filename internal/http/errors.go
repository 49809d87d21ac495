package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/repolens/internal/archive"
	"github.com/fyrsmithlabs/repolens/internal/assistant"
	"github.com/fyrsmithlabs/repolens/internal/ghclient"
	"github.com/fyrsmithlabs/repolens/internal/ingest"
	"github.com/fyrsmithlabs/repolens/internal/project"
	"github.com/labstack/echo/v4"
)

// httpError maps a service error onto a status and a client-safe message.
func httpError(err error) *echo.HTTPError {
	var (
		rl     *ghclient.RateLimitError
		noText *ingest.NoTextFilesError
		ghErr  *ghclient.ProviderError
		aiErr  *assistant.ProviderError
		tooBig *http.MaxBytesError
	)

	switch {
	case errors.Is(err, ghclient.ErrRepoNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "repository not found or not accessible")
	case errors.Is(err, project.ErrProjectNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "project not found")
	case errors.Is(err, project.ErrFileNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "file not found in project")

	case errors.As(err, &rl):
		msg := "GitHub API rate limit exceeded; provide a GitHub token for a higher limit"
		if !rl.Reset.IsZero() {
			msg = fmt.Sprintf("%s (resets at %s)", msg, rl.Reset.UTC().Format(time.RFC3339))
		}
		return echo.NewHTTPError(http.StatusTooManyRequests, msg)
	case errors.Is(err, ghclient.ErrRateLimitExceeded):
		return echo.NewHTTPError(http.StatusTooManyRequests,
			"GitHub API rate limit exceeded; provide a GitHub token for a higher limit")

	case errors.As(err, &noText):
		return echo.NewHTTPError(http.StatusUnprocessableEntity,
			fmt.Sprintf("no text files found: %d files seen, %d text-eligible", noText.Total, noText.TextEligible))

	case errors.As(err, &tooBig),
		errors.Is(err, archive.ErrTooLarge),
		errors.Is(err, archive.ErrTooManyEntries):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, archive.ErrInvalidArchive):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid ZIP archive")
	case errors.Is(err, project.ErrEmptyProjectName):
		return echo.NewHTTPError(http.StatusBadRequest, "project name is required")

	case errors.As(err, &ghErr):
		return echo.NewHTTPError(http.StatusBadGateway, "GitHub API request failed")
	case errors.As(err, &aiErr):
		return echo.NewHTTPError(http.StatusBadGateway, "completion backend failed")

	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "request timed out")
	case errors.Is(err, context.Canceled):
		// The client went away; nginx's 499 is the closest convention.
		return echo.NewHTTPError(499, "request cancelled")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
