package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/velabs/studioforge-backend/internal/logger"
	"github.com/velabs/studioforge-backend/internal/middleware"
	"github.com/velabs/studioforge-backend/internal/services"
)

type RenderHandler struct {
	log    *logger.Logger
	render services.RenderService
}

func NewRenderHandler(log *logger.Logger, render services.RenderService) *RenderHandler {
	return &RenderHandler{
		log:    log.With("handler", "RenderHandler"),
		render: render,
	}
}

type startRenderRequest struct {
	Version int `json:"version" binding:"required"`
}

// POST /api/assets/:id/render
// Manual trigger; the pipeline enqueues renders automatically after
// READY_FOR_RENDER, this endpoint re-renders an existing version on demand.
func (h *RenderHandler) StartRender(c *gin.Context) {
	assetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_asset_id", err)
		return
	}
	var req startRenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	job, err := h.render.EnqueueRenderJob(c.Request.Context(), middleware.StudioID(c), assetID, req.Version, "")
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondCreated(c, gin.H{"render_job": job})
}

// GET /api/render-jobs/:id
func (h *RenderHandler) GetRenderJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_render_job_id", err)
		return
	}
	job, err := h.render.GetRenderJob(c.Request.Context(), jobID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"render_job": job})
}
