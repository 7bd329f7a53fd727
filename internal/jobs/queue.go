package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/velabs/studioforge-backend/internal/logger"
	"github.com/velabs/studioforge-backend/internal/repos"
	"github.com/velabs/studioforge-backend/internal/types"
)

// EnqueueOptions carries the per-job retry policy. Backoff is the base delay
// before the first retry; subsequent retries double it.
type EnqueueOptions struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Enqueuer is the producer side of the durable queue. Services depend on this
// interface so tests can swap a recording fake for the DB-backed queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType string, payload map[string]interface{}, opts EnqueueOptions) (*types.JobRun, error)
}

type Queue struct {
	log  *logger.Logger
	runs repos.JobRunRepo
}

func NewQueue(baseLog *logger.Logger, runs repos.JobRunRepo) *Queue {
	return &Queue{log: baseLog.With("component", "JobQueue"), runs: runs}
}

func (q *Queue) Enqueue(ctx context.Context, jobType string, payload map[string]interface{}, opts EnqueueOptions) (*types.JobRun, error) {
	if jobType == "" {
		return nil, fmt.Errorf("job type is required")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	backoffSeconds := int(opts.Backoff / time.Second)
	if backoffSeconds < 1 {
		backoffSeconds = 5
	}
	job := &types.JobRun{
		JobType:        jobType,
		Status:         types.JobStatusQueued,
		MaxAttempts:    maxAttempts,
		BackoffSeconds: backoffSeconds,
		Payload:        datatypes.JSON(raw),
	}
	created, err := q.runs.Create(ctx, nil, job)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue %s job: %w", jobType, err)
	}
	q.log.Debug("Enqueued job", "job_id", created.ID, "job_type", jobType, "max_attempts", maxAttempts)
	return created, nil
}
