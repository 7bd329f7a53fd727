package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Queue row statuses. "failed" rows stay claimable until attempts reach
// max_attempts, then move to "dead" and the handler's exhaustion hook fires.
const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
	JobStatusDead      = "dead"
)

// JobRun is the durable work queue. Delivery is at-least-once: a stale running
// row (dead heartbeat) is reclaimed, so handlers must tolerate duplicate
// delivery of an already-terminal run.
type JobRun struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	JobType        string         `gorm:"column:job_type;not null;index" json:"job_type"`
	Status         string         `gorm:"column:status;not null;index;default:'queued'" json:"status"`
	Attempts       int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	MaxAttempts    int            `gorm:"column:max_attempts;not null;default:1" json:"max_attempts"`
	BackoffSeconds int            `gorm:"column:backoff_seconds;not null;default:5" json:"backoff_seconds"`
	Error          string         `gorm:"column:error" json:"error,omitempty"`
	LockedAt       *time.Time     `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	HeartbeatAt    *time.Time     `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	LastErrorAt    *time.Time     `gorm:"column:last_error_at;index" json:"last_error_at,omitempty"`
	Payload        datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	CreatedAt      time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (JobRun) TableName() string { return "job_run" }
