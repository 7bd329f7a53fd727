package types

import (
	"time"

	"github.com/google/uuid"
)

// Pipeline statuses are part of the API contract and must match these strings
// exactly in responses and SSE payloads.
const (
	PipelineStatusUploaded          = "UPLOADED"
	PipelineStatusValidating        = "VALIDATING"
	PipelineStatusProcessingPreview = "PROCESSING_PREVIEW"
	PipelineStatusReadyForRender    = "READY_FOR_RENDER"
	PipelineStatusRenderQueued      = "RENDER_QUEUED"
	PipelineStatusFailed            = "FAILED"
)

// PipelineRun tracks post-upload processing for one (asset, version). One row
// per uploaded version; transitions move strictly forward except into FAILED.
type PipelineRun struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AssetID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_pipeline_asset_version,priority:1" json:"asset_id"`
	Version   int       `gorm:"column:version;not null;uniqueIndex:idx_pipeline_asset_version,priority:2" json:"version"`
	Status    string    `gorm:"column:status;not null;default:'UPLOADED'" json:"status"`
	Error     string    `gorm:"column:error" json:"error,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (PipelineRun) TableName() string { return "pipeline_run" }

// PipelineTerminal reports whether status permits no further transitions.
func PipelineTerminal(status string) bool {
	return status == PipelineStatusRenderQueued || status == PipelineStatusFailed
}
