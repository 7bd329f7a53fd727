package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/velabs/studioforge-backend/internal/logger"
	"github.com/velabs/studioforge-backend/internal/types"
)

type JobRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, job *types.JobRun) (*types.JobRun, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.JobRun, error)
	// ClaimNextRunnable picks one runnable row and marks it running under
	// FOR UPDATE SKIP LOCKED, so concurrent workers never double-claim.
	ClaimNextRunnable(ctx context.Context, tx *gorm.DB, staleRunning time.Duration) (*types.JobRun, error)
	MarkSucceeded(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	// MarkFailed records the attempt error. When attempts have reached
	// max_attempts the row moves to dead and exhausted is true; otherwise the
	// row stays failed and becomes claimable again after its backoff window.
	MarkFailed(ctx context.Context, tx *gorm.DB, job *types.JobRun, errorMessage string) (exhausted bool, err error)
	Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type jobRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return &jobRunRepo{db: db, log: baseLog.With("repo", "JobRunRepo")}
}

func (r *jobRunRepo) Create(ctx context.Context, tx *gorm.DB, job *types.JobRun) (*types.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if job == nil {
		return nil, nil
	}
	if job.Status == "" {
		job.Status = types.JobStatusQueued
	}
	if job.MaxAttempts < 1 {
		job.MaxAttempts = 1
	}
	if err := transaction.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *jobRunRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var job types.JobRun
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Runnable rows are: freshly queued, failed rows whose exponential backoff
// window (backoff_seconds * 2^(attempts-1)) has elapsed, and running rows
// whose heartbeat went stale (crashed worker). At-least-once delivery falls
// out of the stale-reclaim branch.
func (r *jobRunRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, staleRunning time.Duration) (*types.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	staleCutoff := now.Add(-staleRunning)
	var claimed *types.JobRun
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var job types.JobRun
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
				(
					status = ?
					OR (
						status = ?
						AND attempts < max_attempts
						AND (
							last_error_at IS NULL
							OR last_error_at <= now() - (backoff_seconds * power(2, greatest(attempts - 1, 0)) * interval '1 second')
						)
					)
					OR (
						status = ?
						AND heartbeat_at IS NOT NULL
						AND heartbeat_at < ?
					)
				)
			`, types.JobStatusQueued, types.JobStatusFailed, types.JobStatusRunning, staleCutoff).
			Order("created_at ASC")
		qErr := q.First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.JobRun{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"status":       types.JobStatusRunning,
				"attempts":     gorm.Expr("attempts + 1"),
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error
		if uErr != nil {
			return uErr
		}
		job.Status = types.JobStatusRunning
		job.Attempts++
		job.LockedAt = &now
		job.HeartbeatAt = &now
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *jobRunRepo) MarkSucceeded(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.JobRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     types.JobStatusSucceeded,
			"error":      "",
			"locked_at":  nil,
			"updated_at": now,
		}).Error
}

func (r *jobRunRepo) MarkFailed(ctx context.Context, tx *gorm.DB, job *types.JobRun, errorMessage string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if job == nil || job.ID == uuid.Nil {
		return false, nil
	}
	now := time.Now()
	exhausted := job.Attempts >= job.MaxAttempts
	status := types.JobStatusFailed
	if exhausted {
		status = types.JobStatusDead
	}
	err := transaction.WithContext(ctx).
		Model(&types.JobRun{}).
		Where("id = ?", job.ID).
		Updates(map[string]interface{}{
			"status":        status,
			"error":         errorMessage,
			"last_error_at": now,
			"locked_at":     nil,
			"updated_at":    now,
		}).Error
	if err != nil {
		return false, err
	}
	job.Status = status
	job.Error = errorMessage
	job.LastErrorAt = &now
	job.LockedAt = nil
	return exhausted, nil
}

func (r *jobRunRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.JobRun{}).
		Where("id = ? AND status = ?", id, types.JobStatusRunning).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}
