package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	DependencyUses          = "USES"
	DependencyDependsOn     = "DEPENDS_ON"
	DependencyGeneratedFrom = "GENERATED_FROM"
)

func ValidDependencyType(t string) bool {
	switch t {
	case DependencyUses, DependencyDependsOn, DependencyGeneratedFrom:
		return true
	}
	return false
}

// AssetDependency is a versioned snapshot edge: the same parent asset may carry
// a different edge set per parent version. The unique index on
// (parent_asset_id, child_asset_id, child_version) is the write-race backstop.
type AssetDependency struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ParentAssetID uuid.UUID `gorm:"type:uuid;not null;index:idx_dep_parent;uniqueIndex:idx_dep_edge,priority:1" json:"parent_asset_id"`
	ParentVersion int       `gorm:"column:parent_version;not null;index:idx_dep_parent" json:"parent_version"`
	ChildAssetID  uuid.UUID `gorm:"type:uuid;not null;index:idx_dep_child;uniqueIndex:idx_dep_edge,priority:2" json:"child_asset_id"`
	ChildVersion  int       `gorm:"column:child_version;not null;index:idx_dep_child;uniqueIndex:idx_dep_edge,priority:3" json:"child_version"`
	Type          string    `gorm:"column:type;not null;default:'DEPENDS_ON'" json:"type"` // USES|DEPENDS_ON|GENERATED_FROM
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (AssetDependency) TableName() string { return "asset_dependency" }
