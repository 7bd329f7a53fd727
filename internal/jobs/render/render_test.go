package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/velabs/studioforge-backend/internal/jobs"
	"github.com/velabs/studioforge-backend/internal/logger"
	"github.com/velabs/studioforge-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("failed to build logger: %v", err)
	}
	return log
}

// recordingJobRepo keeps one render job row and the sequence of persisted
// progress values.
type recordingJobRepo struct {
	mu       sync.Mutex
	job      *types.RenderJob
	progress []int
}

func (r *recordingJobRepo) Create(ctx context.Context, tx *gorm.DB, job *types.RenderJob) (*types.RenderJob, error) {
	return job, nil
}

func (r *recordingJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.RenderJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.job != nil && r.job.ID == id {
		cp := *r.job
		return &cp, nil
	}
	return nil, nil
}

func (r *recordingJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.job == nil || r.job.ID != id {
		return fmt.Errorf("render job %s not found", id)
	}
	if v, ok := updates["status"].(string); ok {
		r.job.Status = v
	}
	if v, ok := updates["progress"].(int); ok {
		r.job.Progress = v
		r.progress = append(r.progress, v)
	}
	if v, ok := updates["error"].(string); ok {
		r.job.Error = v
	}
	return nil
}

type renderEvents struct {
	mu        sync.Mutex
	progress  []int
	completed int
	failed    int
}

func (n *renderEvents) PipelineUpdate(studioID uuid.UUID, run *types.PipelineRun) {}
func (n *renderEvents) RenderProgress(studioID uuid.UUID, job *types.RenderJob) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.progress = append(n.progress, job.Progress)
}
func (n *renderEvents) RenderCompleted(studioID uuid.UUID, job *types.RenderJob) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed++
}
func (n *renderEvents) RenderFailed(studioID uuid.UUID, job *types.RenderJob) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed++
}

func noopStep(ctx context.Context, job *types.RenderJob, step int) error { return nil }

func newJobContext(t *testing.T, renderJobID uuid.UUID, attempts, maxAttempts int) *jobs.Context {
	t.Helper()
	payload := fmt.Sprintf(`{"render_job_id":%q}`, renderJobID)
	jc, err := jobs.NewContext(context.Background(), nil, &types.JobRun{
		ID:          uuid.New(),
		JobType:     jobs.JobTypeRenderJobs,
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
		Payload:     datatypes.JSON([]byte(payload)),
	}, testLogger(t))
	if err != nil {
		t.Fatalf("failed to build job context: %v", err)
	}
	return jc
}

func seedJob() *types.RenderJob {
	return &types.RenderJob{
		ID:       uuid.New(),
		StudioID: uuid.New(),
		AssetID:  uuid.New(),
		Version:  1,
		Status:   types.RenderStatusQueued,
	}
}

func TestRender_ProgressReachesHundred(t *testing.T) {
	repo := &recordingJobRepo{job: seedJob()}
	events := &renderEvents{}
	h := NewHandler(testLogger(t), repo, events, noopStep)

	if err := h.Run(newJobContext(t, repo.job.ID, 1, 3)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if repo.job.Status != types.RenderStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", repo.job.Status)
	}
	if repo.job.Progress != 100 {
		t.Fatalf("completed job must sit at exactly 100, got %d", repo.job.Progress)
	}
	// Persisted progress is monotonically non-decreasing and ends at 100.
	last := -1
	for _, p := range repo.progress {
		if p < last {
			t.Fatalf("progress went backward: %v", repo.progress)
		}
		last = p
	}
	if last != 100 {
		t.Fatalf("final persisted progress must be 100, got %d", last)
	}
	if events.completed != 1 {
		t.Fatalf("expected exactly one completion event, got %d", events.completed)
	}
	if events.failed != 0 {
		t.Fatalf("successful render must not emit failure events, got %d", events.failed)
	}
}

func TestRender_StepFailureLeavesJobProcessing(t *testing.T) {
	repo := &recordingJobRepo{job: seedJob()}
	events := &renderEvents{}
	stepErr := errors.New("frame buffer overflow")
	step := func(ctx context.Context, job *types.RenderJob, stepNum int) error {
		if stepNum == 3 {
			return stepErr
		}
		return nil
	}
	h := NewHandler(testLogger(t), repo, events, step)

	err := h.Run(newJobContext(t, repo.job.ID, 1, 3))
	if err == nil {
		t.Fatal("expected step failure to surface")
	}
	// FAILED is reserved for retry exhaustion; a mid-flight failure leaves
	// the row PROCESSING for the next attempt.
	if repo.job.Status != types.RenderStatusProcessing {
		t.Fatalf("expected PROCESSING after attempt failure, got %s", repo.job.Status)
	}
	if events.failed != 0 {
		t.Fatalf("attempt failure must not emit RenderFailed, got %d", events.failed)
	}
}

func TestRender_OnExhaustedMarksFailed(t *testing.T) {
	repo := &recordingJobRepo{job: seedJob()}
	repo.job.Status = types.RenderStatusProcessing
	events := &renderEvents{}
	h := NewHandler(testLogger(t), repo, events, noopStep)

	runErr := errors.New("scene graph corrupt")
	h.OnExhausted(newJobContext(t, repo.job.ID, 3, 3), runErr)

	if repo.job.Status != types.RenderStatusFailed {
		t.Fatalf("expected FAILED after exhaustion, got %s", repo.job.Status)
	}
	if repo.job.Error != runErr.Error() {
		t.Fatalf("expected error %q, got %q", runErr, repo.job.Error)
	}
	if events.failed != 1 {
		t.Fatalf("expected exactly one RenderFailed event, got %d", events.failed)
	}
}

func TestRender_MissingJobDrops(t *testing.T) {
	repo := &recordingJobRepo{}
	h := NewHandler(testLogger(t), repo, &renderEvents{}, noopStep)

	if err := h.Run(newJobContext(t, uuid.New(), 1, 3)); err != nil {
		t.Fatalf("missing render job should drop the run, got %v", err)
	}
}

func TestRender_CompletedJobDropsDuplicate(t *testing.T) {
	repo := &recordingJobRepo{job: seedJob()}
	repo.job.Status = types.RenderStatusCompleted
	repo.job.Progress = 100
	events := &renderEvents{}
	h := NewHandler(testLogger(t), repo, events, noopStep)

	if err := h.Run(newJobContext(t, repo.job.ID, 2, 3)); err != nil {
		t.Fatalf("duplicate delivery should drop, got %v", err)
	}
	if len(repo.progress) != 0 || events.completed != 0 {
		t.Fatal("duplicate delivery must be a no-op")
	}
}
