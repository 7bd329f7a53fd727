package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles exposed in JWT claims and checked by PermissionService.
const (
	RoleArtist   = "ARTIST"
	RoleDirector = "DIRECTOR"
	RoleProducer = "PRODUCER"
)

type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StudioID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"studio_id"`
	Email     string         `gorm:"column:email;not null;uniqueIndex" json:"email"`
	Name      string         `gorm:"column:name" json:"name"`
	Role      string         `gorm:"column:role;not null;default:'ARTIST'" json:"role"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }
