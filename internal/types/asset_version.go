package types

import (
	"time"

	"github.com/google/uuid"
)

// AssetVersion rows are immutable: they are created once and never updated,
// only superseded by a higher version number.
type AssetVersion struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AssetID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_asset_version,priority:1" json:"asset_id"`
	Version    int       `gorm:"column:version;not null;uniqueIndex:idx_asset_version,priority:2" json:"version"`
	CreatedBy  uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
	FilePath   string    `gorm:"column:file_path;not null" json:"file_path"`
	FileSize   int64     `gorm:"column:file_size" json:"file_size"`
	FileMime   string    `gorm:"column:file_mime" json:"file_mime"`
	ChangeNote string    `gorm:"column:change_note" json:"change_note,omitempty"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (AssetVersion) TableName() string { return "asset_version" }
