// Package handlers maps the storage capability contract onto HTTP routes.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/omx-labs/storage-browser/internal/models"
	"github.com/omx-labs/storage-browser/internal/services"
)

// RootsHandler serves storage-root CRUD and bucket enumeration.
type RootsHandler struct {
	store   *services.RootStore
	storage *services.StorageService
	log     zerolog.Logger
}

func NewRootsHandler(store *services.RootStore, storage *services.StorageService, log zerolog.Logger) *RootsHandler {
	return &RootsHandler{store: store, storage: storage, log: log.With().Str("handler", "roots").Logger()}
}

// ListRoots returns the project's linked storage roots.
func (h *RootsHandler) ListRoots(c echo.Context) error {
	projectID := c.Param("projectID")
	roots, err := h.store.ListByProject(projectID)
	if err != nil {
		h.log.Error().Err(err).Str("project", projectID).Msg("list roots failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list storage roots")
	}
	return c.JSON(http.StatusOK, models.RootListResponse{Roots: roots, Total: len(roots)})
}

// CreateRoot links a bucket (and optional base prefix) to the project.
func (h *RootsHandler) CreateRoot(c echo.Context) error {
	projectID := c.Param("projectID")

	var req models.CreateRootRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.BucketName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Bucket name is required")
	}
	if len(req.BucketName) < 3 || len(req.BucketName) > 63 {
		return echo.NewHTTPError(http.StatusBadRequest, "Bucket name must be between 3 and 63 characters")
	}

	root := models.StorageRoot{
		ProjectID:         projectID,
		BucketName:        req.BucketName,
		ProviderProjectID: req.ProviderProjectID,
		Prefix:            strings.Trim(req.Prefix, "/"),
		Description:       req.Description,
		CreatedBy:         subjectOf(c),
	}
	if err := h.store.Create(&root); err != nil {
		if errors.Is(err, services.ErrDuplicateRoot) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		h.log.Error().Err(err).Str("project", projectID).Msg("create root failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create storage root")
	}
	return c.JSON(http.StatusCreated, root)
}

// UpdateRoot changes a root's description, the only mutable field.
func (h *RootsHandler) UpdateRoot(c echo.Context) error {
	projectID := c.Param("projectID")
	rootID := c.Param("rootID")

	var req models.UpdateRootRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	root, err := h.store.UpdateDescription(projectID, rootID, req.Description)
	if err != nil {
		if errors.Is(err, services.ErrRootNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Storage root not found")
		}
		h.log.Error().Err(err).Str("root", rootID).Msg("update root failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update storage root")
	}
	return c.JSON(http.StatusOK, root)
}

// DeleteRoot unlinks a storage root. Objects in the bucket are untouched.
func (h *RootsHandler) DeleteRoot(c echo.Context) error {
	projectID := c.Param("projectID")
	rootID := c.Param("rootID")

	if err := h.store.Delete(projectID, rootID); err != nil {
		if errors.Is(err, services.ErrRootNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Storage root not found")
		}
		h.log.Error().Err(err).Str("root", rootID).Msg("delete root failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete storage root")
	}
	return c.JSON(http.StatusOK, models.MessageResponse{Message: "Storage root deleted"})
}

// ListBuckets enumerates buckets visible to the provider credentials, to
// assist root creation.
func (h *RootsHandler) ListBuckets(c echo.Context) error {
	buckets, err := h.storage.ListBuckets(c.Request().Context(), c.QueryParam("provider_project_id"))
	if err != nil {
		h.log.Error().Err(err).Msg("list buckets failed")
		return echo.NewHTTPError(http.StatusBadGateway, "Failed to list buckets")
	}
	return c.JSON(http.StatusOK, models.BucketListResponse{Buckets: buckets, Total: len(buckets)})
}
