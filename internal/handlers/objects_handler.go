package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/omx-labs/storage-browser/internal/models"
	"github.com/omx-labs/storage-browser/internal/services"
)

// ObjectsHandler serves listing, signed-URL grants and proxied deletion.
type ObjectsHandler struct {
	store   *services.RootStore
	storage *services.StorageService
	log     zerolog.Logger
}

func NewObjectsHandler(store *services.RootStore, storage *services.StorageService, log zerolog.Logger) *ObjectsHandler {
	return &ObjectsHandler{store: store, storage: storage, log: log.With().Str("handler", "objects").Logger()}
}

// ListObjects returns one level of a storage root. The prefix query is
// relative to the root's base prefix.
func (h *ObjectsHandler) ListObjects(c echo.Context) error {
	projectID := c.Param("projectID")
	rootID := c.QueryParam("root")
	if rootID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "root query parameter is required")
	}

	root, err := h.store.Get(projectID, rootID)
	if err != nil {
		return rootError(err)
	}

	listing, err := h.storage.ListLevel(c.Request().Context(), *root, c.QueryParam("prefix"))
	if err != nil {
		if errors.Is(err, services.ErrBadPrefix) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid listing prefix")
		}
		h.log.Error().Err(err).Str("root", rootID).Msg("listing failed")
		return echo.NewHTTPError(http.StatusBadGateway, "Failed to list objects")
	}
	return c.JSON(http.StatusOK, listing)
}

// CreateUploadURL issues a signed upload grant for one object.
func (h *ObjectsHandler) CreateUploadURL(c echo.Context) error {
	root, req, err := h.signedURLRequest(c)
	if err != nil {
		return err
	}

	grant, err := h.storage.UploadGrant(c.Request().Context(), *root, req.ObjectKey, req.ContentType, req.ExpiresIn)
	if err != nil {
		if errors.Is(err, services.ErrKeyOutsideRoot) {
			return echo.NewHTTPError(http.StatusBadRequest, "Object key is outside the storage root")
		}
		h.log.Error().Err(err).Str("key", req.ObjectKey).Msg("upload grant failed")
		return echo.NewHTTPError(http.StatusBadGateway, "Failed to sign upload URL")
	}
	return c.JSON(http.StatusOK, grant)
}

// CreateDownloadURL issues a signed download grant for one object.
func (h *ObjectsHandler) CreateDownloadURL(c echo.Context) error {
	root, req, err := h.signedURLRequest(c)
	if err != nil {
		return err
	}

	grant, err := h.storage.DownloadGrant(c.Request().Context(), *root, req.ObjectKey, req.ExpiresIn)
	if err != nil {
		if errors.Is(err, services.ErrKeyOutsideRoot) {
			return echo.NewHTTPError(http.StatusBadRequest, "Object key is outside the storage root")
		}
		h.log.Error().Err(err).Str("key", req.ObjectKey).Msg("download grant failed")
		return echo.NewHTTPError(http.StatusBadGateway, "Failed to sign download URL")
	}
	return c.JSON(http.StatusOK, grant)
}

// DeleteObject removes one object through the backend.
func (h *ObjectsHandler) DeleteObject(c echo.Context) error {
	projectID := c.Param("projectID")

	var req models.DeleteObjectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.RootID == "" || req.ObjectKey == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "root_id and object_key are required")
	}

	root, err := h.store.Get(projectID, req.RootID)
	if err != nil {
		return rootError(err)
	}

	if err := h.storage.DeleteObject(c.Request().Context(), *root, req.ObjectKey); err != nil {
		if errors.Is(err, services.ErrKeyOutsideRoot) {
			return echo.NewHTTPError(http.StatusBadRequest, "Object key is outside the storage root")
		}
		h.log.Error().Err(err).Str("key", req.ObjectKey).Msg("delete object failed")
		return echo.NewHTTPError(http.StatusBadGateway, "Failed to delete object")
	}
	return c.JSON(http.StatusOK, models.MessageResponse{Message: "Object deleted"})
}

// signedURLRequest binds and validates the shared grant request shape.
func (h *ObjectsHandler) signedURLRequest(c echo.Context) (*models.StorageRoot, *models.SignedURLRequest, error) {
	projectID := c.Param("projectID")

	var req models.SignedURLRequest
	if err := c.Bind(&req); err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.RootID == "" || req.ObjectKey == "" {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "root_id and object_key are required")
	}

	root, err := h.store.Get(projectID, req.RootID)
	if err != nil {
		return nil, nil, rootError(err)
	}
	return root, &req, nil
}
