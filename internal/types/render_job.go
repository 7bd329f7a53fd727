package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	RenderStatusQueued     = "QUEUED"
	RenderStatusProcessing = "PROCESSING"
	RenderStatusCompleted  = "COMPLETED"
	RenderStatusFailed     = "FAILED"
)

// RenderJob progress is a 0-100 integer, monotonically non-decreasing while
// PROCESSING and exactly 100 only once COMPLETED.
type RenderJob struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StudioID  uuid.UUID `gorm:"type:uuid;not null;index" json:"studio_id"`
	AssetID   uuid.UUID `gorm:"type:uuid;not null;index" json:"asset_id"`
	Version   int       `gorm:"column:version;not null" json:"version"`
	Status    string    `gorm:"column:status;not null;default:'QUEUED'" json:"status"`
	Progress  int       `gorm:"column:progress;not null;default:0" json:"progress"`
	Error     string    `gorm:"column:error" json:"error,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (RenderJob) TableName() string { return "render_job" }
