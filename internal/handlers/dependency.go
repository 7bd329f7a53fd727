package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/velabs/studioforge-backend/internal/logger"
	"github.com/velabs/studioforge-backend/internal/services"
)

type DependencyHandler struct {
	log  *logger.Logger
	deps services.DependencyService
}

func NewDependencyHandler(log *logger.Logger, deps services.DependencyService) *DependencyHandler {
	return &DependencyHandler{
		log:  log.With("handler", "DependencyHandler"),
		deps: deps,
	}
}

type linkAssetsRequest struct {
	ParentAssetID string `json:"parent_asset_id" binding:"required"`
	ParentVersion int    `json:"parent_version" binding:"required"`
	ChildAssetID  string `json:"child_asset_id" binding:"required"`
	ChildVersion  int    `json:"child_version" binding:"required"`
	Type          string `json:"type"`
}

// POST /api/dependencies
func (h *DependencyHandler) LinkAssets(c *gin.Context) {
	var req linkAssetsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	parentID, err := uuid.Parse(req.ParentAssetID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_parent_asset_id", err)
		return
	}
	childID, err := uuid.Parse(req.ChildAssetID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_child_asset_id", err)
		return
	}
	dep, err := h.deps.LinkAssets(c.Request.Context(), services.LinkAssetsInput{
		ParentAssetID: parentID,
		ParentVersion: req.ParentVersion,
		ChildAssetID:  childID,
		ChildVersion:  req.ChildVersion,
		Type:          req.Type,
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondCreated(c, gin.H{"dependency": dep})
}

// GET /api/assets/:id/versions/:version/children
func (h *DependencyHandler) ListChildren(c *gin.Context) {
	assetID, version, ok := h.assetVersionParams(c)
	if !ok {
		return
	}
	children, err := h.deps.FindChildren(c.Request.Context(), assetID, version)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"children": children})
}

// GET /api/assets/:id/versions/:version/parents
func (h *DependencyHandler) ListParents(c *gin.Context) {
	assetID, version, ok := h.assetVersionParams(c)
	if !ok {
		return
	}
	parents, err := h.deps.FindParents(c.Request.Context(), assetID, version)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"parents": parents})
}

// GET /api/assets/:id/versions/:version/impact
func (h *DependencyHandler) ImpactAnalysis(c *gin.Context) {
	assetID, version, ok := h.assetVersionParams(c)
	if !ok {
		return
	}
	impacted, err := h.deps.FindImpactedAssets(c.Request.Context(), assetID, version)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"impacted": impacted, "count": len(impacted)})
}

func (h *DependencyHandler) assetVersionParams(c *gin.Context) (uuid.UUID, int, bool) {
	assetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_asset_id", err)
		return uuid.Nil, 0, false
	}
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil || version < 1 {
		RespondError(c, http.StatusBadRequest, "invalid_version", err)
		return uuid.Nil, 0, false
	}
	return assetID, version, true
}
