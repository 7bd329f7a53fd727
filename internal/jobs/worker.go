package jobs

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"

	"github.com/velabs/studioforge-backend/internal/logger"
	"github.com/velabs/studioforge-backend/internal/repos"
	"github.com/velabs/studioforge-backend/internal/types"
)

const (
	defaultPollInterval      = 1 * time.Second
	defaultHeartbeatInterval = 15 * time.Second
	defaultStaleRunning      = 2 * time.Minute
)

// Worker polls the job_run table and dispatches claimed runs to registered
// handlers, at most Concurrency at a time.
type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	runs     repos.JobRunRepo
	registry *Registry

	concurrency  int64
	pollInterval time.Duration
	staleRunning time.Duration
}

type WorkerOptions struct {
	Concurrency  int
	PollInterval time.Duration
	StaleRunning time.Duration
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, runs repos.JobRunRepo, registry *Registry, opts WorkerOptions) *Worker {
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 2
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	staleRunning := opts.StaleRunning
	if staleRunning <= 0 {
		staleRunning = defaultStaleRunning
	}
	return &Worker{
		db:           db,
		log:          baseLog.With("component", "JobWorker"),
		runs:         runs,
		registry:     registry,
		concurrency:  int64(concurrency),
		pollInterval: pollInterval,
		staleRunning: staleRunning,
	}
}

// Start blocks until ctx is cancelled, then waits for in-flight runs to
// finish.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Job worker starting", "concurrency", w.concurrency, "poll_interval", w.pollInterval)
	sem := semaphore.NewWeighted(w.concurrency)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			// Drain: acquiring the full weight waits for every in-flight run.
			_ = sem.Acquire(context.Background(), w.concurrency)
			w.log.Info("Job worker stopped")
			return
		case <-ticker.C:
		}
		// Claim greedily until the table is empty or every slot is busy.
		for {
			if !sem.TryAcquire(1) {
				break
			}
			job, err := w.runs.ClaimNextRunnable(ctx, nil, w.staleRunning)
			if err != nil {
				sem.Release(1)
				w.log.Error("Failed to claim job run", "error", err)
				break
			}
			if job == nil {
				sem.Release(1)
				break
			}
			go func(job *types.JobRun) {
				defer sem.Release(1)
				w.execute(ctx, job)
			}(job)
		}
	}
}

func (w *Worker) execute(ctx context.Context, job *types.JobRun) {
	jc, err := NewContext(ctx, w.db, job, w.log)
	if err != nil {
		w.failJob(ctx, nil, job, err)
		return
	}
	handler, ok := w.registry.Get(job.JobType)
	if !ok {
		w.failJob(ctx, jc, job, fmt.Errorf("no handler registered for job type %q", job.JobType))
		return
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go w.heartbeatLoop(hbCtx, job)

	runErr := w.safeRun(handler, jc)
	stopHeartbeat()
	if runErr != nil {
		w.failJob(ctx, jc, job, runErr)
		return
	}
	if err := w.runs.MarkSucceeded(ctx, nil, job.ID); err != nil {
		w.log.Error("Failed to mark job succeeded", "job_id", job.ID, "error", err)
		return
	}
	jc.Log.Info("Job succeeded")
}

func (w *Worker) safeRun(handler Handler, jc *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			jc.Log.Error("Job handler panicked", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler.Run(jc)
}

func (w *Worker) failJob(ctx context.Context, jc *Context, job *types.JobRun, runErr error) {
	exhausted, err := w.runs.MarkFailed(ctx, nil, job, runErr.Error())
	if err != nil {
		w.log.Error("Failed to mark job failed", "job_id", job.ID, "error", err)
		return
	}
	w.log.Warn("Job attempt failed",
		"job_id", job.ID,
		"job_type", job.JobType,
		"attempt", job.Attempts,
		"max_attempts", job.MaxAttempts,
		"exhausted", exhausted,
		"error", runErr)
	if !exhausted || jc == nil {
		return
	}
	handler, ok := w.registry.Get(job.JobType)
	if !ok {
		return
	}
	if eh, ok := handler.(ExhaustionHandler); ok {
		w.safeExhausted(eh, jc, runErr)
	}
}

func (w *Worker) safeExhausted(eh ExhaustionHandler, jc *Context, runErr error) {
	defer func() {
		if r := recover(); r != nil {
			jc.Log.Error("Exhaustion hook panicked", "panic", r)
		}
	}()
	eh.OnExhausted(jc, runErr)
}

func (w *Worker) heartbeatLoop(ctx context.Context, job *types.JobRun) {
	ticker := time.NewTicker(defaultHeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.runs.Heartbeat(ctx, nil, job.ID); err != nil {
				w.log.Warn("Job heartbeat failed", "job_id", job.ID, "error", err)
			}
		}
	}
}
