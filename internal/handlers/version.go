package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/velabs/studioforge-backend/internal/logger"
	"github.com/velabs/studioforge-backend/internal/middleware"
	"github.com/velabs/studioforge-backend/internal/services"
)

type VersionHandler struct {
	log      *logger.Logger
	versions services.VersionService
}

func NewVersionHandler(log *logger.Logger, versions services.VersionService) *VersionHandler {
	return &VersionHandler{
		log:      log.With("handler", "VersionHandler"),
		versions: versions,
	}
}

// POST /api/assets/:id/versions (multipart: file, change_note)
func (h *VersionHandler) UploadVersion(c *gin.Context) {
	assetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_asset_id", err)
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer file.Close()

	result, err := h.versions.UploadNewVersion(c.Request.Context(), services.UploadVersionInput{
		AssetID:    assetID,
		StudioID:   middleware.StudioID(c),
		UserID:     middleware.UserID(c),
		Role:       middleware.Role(c),
		FileName:   fileHeader.Filename,
		MimeType:   fileHeader.Header.Get("Content-Type"),
		Size:       fileHeader.Size,
		File:       file,
		ChangeNote: c.PostForm("change_note"),
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondCreated(c, result)
}

// GET /api/assets/:id/versions
func (h *VersionHandler) ListVersions(c *gin.Context) {
	assetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_asset_id", err)
		return
	}
	versions, err := h.versions.ListVersions(c.Request.Context(), assetID, middleware.StudioID(c))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"versions": versions})
}

// GET /api/assets/:id/versions/:version
func (h *VersionHandler) GetVersion(c *gin.Context) {
	assetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_asset_id", err)
		return
	}
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil || version < 1 {
		RespondError(c, http.StatusBadRequest, "invalid_version", err)
		return
	}
	row, err := h.versions.GetVersion(c.Request.Context(), assetID, middleware.StudioID(c), version)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"version": row})
}

// GET /api/assets/:id/versions/:version/pipeline
func (h *VersionHandler) GetPipelineStatus(c *gin.Context) {
	assetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_asset_id", err)
		return
	}
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil || version < 1 {
		RespondError(c, http.StatusBadRequest, "invalid_version", err)
		return
	}
	run, err := h.versions.GetPipelineRun(c.Request.Context(), assetID, version)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"pipeline_run": run})
}

type rollbackRequest struct {
	Version int `json:"version" binding:"required"`
}

// POST /api/assets/:id/rollback
func (h *VersionHandler) RollbackVersion(c *gin.Context) {
	assetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_asset_id", err)
		return
	}
	var req rollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	asset, err := h.versions.RollbackVersion(c.Request.Context(), assetID, middleware.StudioID(c), middleware.Role(c), req.Version)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"asset": asset})
}
