package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/omx-labs/storage-browser/internal/services"
	"github.com/omx-labs/storage-browser/internal/utils"
)

// rootError maps a root-store lookup failure to an HTTP error.
func rootError(err error) error {
	if errors.Is(err, services.ErrRootNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Storage root not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load storage root")
}

// subjectOf returns the authenticated subject the middleware stored on the
// context, or "" for unauthenticated routes.
func subjectOf(c echo.Context) string {
	if v, ok := c.Get(utils.ContextKeySubject).(string); ok {
		return v
	}
	return ""
}
