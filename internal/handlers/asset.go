package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/velabs/studioforge-backend/internal/logger"
	"github.com/velabs/studioforge-backend/internal/middleware"
	"github.com/velabs/studioforge-backend/internal/services"
)

type AssetHandler struct {
	log    *logger.Logger
	assets services.AssetService
}

func NewAssetHandler(log *logger.Logger, assets services.AssetService) *AssetHandler {
	return &AssetHandler{
		log:    log.With("handler", "AssetHandler"),
		assets: assets,
	}
}

type createAssetRequest struct {
	Name     string         `json:"name" binding:"required"`
	Type     string         `json:"type" binding:"required"`
	Metadata datatypes.JSON `json:"metadata"`
}

// POST /api/assets
func (h *AssetHandler) CreateAsset(c *gin.Context) {
	var req createAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	asset, err := h.assets.CreateAsset(c.Request.Context(), services.CreateAssetInput{
		StudioID: middleware.StudioID(c),
		UserID:   middleware.UserID(c),
		Name:     req.Name,
		Type:     req.Type,
		Metadata: req.Metadata,
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondCreated(c, gin.H{"asset": asset})
}

// GET /api/assets/:id
func (h *AssetHandler) GetAsset(c *gin.Context) {
	assetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_asset_id", err)
		return
	}
	asset, err := h.assets.GetAsset(c.Request.Context(), assetID, middleware.StudioID(c))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"asset": asset})
}

// GET /api/assets?page=1&limit=20
func (h *AssetHandler) ListAssets(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	assets, err := h.assets.ListAssets(c.Request.Context(), middleware.StudioID(c), page, limit)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"assets": assets, "page": page, "limit": limit})
}
