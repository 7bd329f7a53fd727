package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	AssetTypeCharacter   = "CHARACTER"
	AssetTypeProp        = "PROP"
	AssetTypeEnvironment = "ENVIRONMENT"
)

func ValidAssetType(t string) bool {
	switch t {
	case AssetTypeCharacter, AssetTypeProp, AssetTypeEnvironment:
		return true
	}
	return false
}

type Asset struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StudioID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"studio_id"`
	CreatedBy      uuid.UUID      `gorm:"type:uuid;not null" json:"created_by"`
	Name           string         `gorm:"column:name;not null" json:"name"`
	Type           string         `gorm:"column:type;not null" json:"type"` // CHARACTER|PROP|ENVIRONMENT
	Metadata       datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CurrentVersion int            `gorm:"column:current_version;not null;default:0" json:"current_version"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Asset) TableName() string { return "asset" }
