package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
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

var errDuplicate = errors.New(`duplicate key value violates unique constraint`)

// fakeDepRepo is an in-memory AssetDependencyRepo with the same unique-edge
// behavior as the postgres index.
type fakeDepRepo struct {
	mu    sync.Mutex
	edges []*types.AssetDependency
}

func (f *fakeDepRepo) Create(ctx context.Context, tx *gorm.DB, dep *types.AssetDependency) (*types.AssetDependency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.edges {
		if e.ParentAssetID == dep.ParentAssetID && e.ChildAssetID == dep.ChildAssetID && e.ChildVersion == dep.ChildVersion {
			return nil, errDuplicate
		}
	}
	cp := *dep
	cp.ID = uuid.New()
	f.edges = append(f.edges, &cp)
	return &cp, nil
}

func (f *fakeDepRepo) FindChildren(ctx context.Context, tx *gorm.DB, parentAssetID uuid.UUID, parentVersion int) ([]*types.AssetDependency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.AssetDependency
	for _, e := range f.edges {
		if e.ParentAssetID == parentAssetID && e.ParentVersion == parentVersion {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeDepRepo) FindParents(ctx context.Context, tx *gorm.DB, childAssetID uuid.UUID, childVersion int) ([]*types.AssetDependency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.AssetDependency
	for _, e := range f.edges {
		if e.ChildAssetID == childAssetID && e.ChildVersion == childVersion {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeAssetRepo struct {
	mu     sync.Mutex
	assets map[uuid.UUID]*types.Asset
}

func newFakeAssetRepo() *fakeAssetRepo {
	return &fakeAssetRepo{assets: map[uuid.UUID]*types.Asset{}}
}

func (f *fakeAssetRepo) Create(ctx context.Context, tx *gorm.DB, asset *types.Asset) (*types.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *asset
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	f.assets[cp.ID] = &cp
	return &cp, nil
}

func (f *fakeAssetRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.assets[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeAssetRepo) GetByIDAndStudio(ctx context.Context, tx *gorm.DB, id, studioID uuid.UUID) (*types.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.assets[id]; ok && a.StudioID == studioID {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeAssetRepo) GetByStudio(ctx context.Context, tx *gorm.DB, studioID uuid.UUID, offset, limit int) ([]*types.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Asset
	for _, a := range f.assets {
		if a.StudioID == studioID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeAssetRepo) UpdateCurrentVersion(ctx context.Context, tx *gorm.DB, id uuid.UUID, version int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assets[id]
	if !ok {
		return fmt.Errorf("asset %s not found", id)
	}
	a.CurrentVersion = version
	a.UpdatedAt = time.Now()
	return nil
}

// fakeVersionRepo enforces the (asset_id, version) unique index. createHook,
// when set, runs before each insert and can return an error to simulate a
// concurrent writer having taken the version number.
type fakeVersionRepo struct {
	mu         sync.Mutex
	rows       []*types.AssetVersion
	createHook func(v *types.AssetVersion) error
}

func (f *fakeVersionRepo) Create(ctx context.Context, tx *gorm.DB, version *types.AssetVersion) (*types.AssetVersion, error) {
	f.mu.Lock()
	hook := f.createHook
	f.mu.Unlock()
	if hook != nil {
		if err := hook(version); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.AssetID == version.AssetID && r.Version == version.Version {
			return nil, errDuplicate
		}
	}
	cp := *version
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now()
	f.rows = append(f.rows, &cp)
	return &cp, nil
}

func (f *fakeVersionRepo) insert(v *types.AssetVersion) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *v
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	f.rows = append(f.rows, &cp)
}

func (f *fakeVersionRepo) GetLatest(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) (*types.AssetVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *types.AssetVersion
	for _, r := range f.rows {
		if r.AssetID != assetID {
			continue
		}
		if latest == nil || r.Version > latest.Version {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeVersionRepo) GetByAsset(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) ([]*types.AssetVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.AssetVersion
	for _, r := range f.rows {
		if r.AssetID == assetID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeVersionRepo) GetVersion(ctx context.Context, tx *gorm.DB, assetID uuid.UUID, version int) (*types.AssetVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.AssetID == assetID && r.Version == version {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

type fakePipelineRunRepo struct {
	mu   sync.Mutex
	runs []*types.PipelineRun
}

func (f *fakePipelineRunRepo) Create(ctx context.Context, tx *gorm.DB, run *types.PipelineRun) (*types.PipelineRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.runs {
		if r.AssetID == run.AssetID && r.Version == run.Version {
			return nil, errDuplicate
		}
	}
	cp := *run
	cp.ID = uuid.New()
	if cp.Status == "" {
		cp.Status = types.PipelineStatusUploaded
	}
	f.runs = append(f.runs, &cp)
	return &cp, nil
}

func (f *fakePipelineRunRepo) GetByAssetVersion(ctx context.Context, tx *gorm.DB, assetID uuid.UUID, version int) (*types.PipelineRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.runs {
		if r.AssetID == assetID && r.Version == version {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakePipelineRunRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.runs {
		if r.ID == id {
			r.Status = status
			r.Error = errorMessage
			return nil
		}
	}
	return fmt.Errorf("pipeline run %s not found", id)
}

type fakeRenderJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*types.RenderJob
}

func newFakeRenderJobRepo() *fakeRenderJobRepo {
	return &fakeRenderJobRepo{jobs: map[uuid.UUID]*types.RenderJob{}}
}

func (f *fakeRenderJobRepo) Create(ctx context.Context, tx *gorm.DB, job *types.RenderJob) (*types.RenderJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *job
	cp.ID = uuid.New()
	if cp.Status == "" {
		cp.Status = types.RenderStatusQueued
	}
	f.jobs[cp.ID] = &cp
	return &cp, nil
}

func (f *fakeRenderJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.RenderJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if j, ok := f.jobs[id]; ok {
		cp := *j
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeRenderJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return fmt.Errorf("render job %s not found", id)
	}
	if v, ok := updates["status"].(string); ok {
		j.Status = v
	}
	if v, ok := updates["progress"].(int); ok {
		j.Progress = v
	}
	if v, ok := updates["error"].(string); ok {
		j.Error = v
	}
	return nil
}

type enqueuedJob struct {
	JobType string
	Payload map[string]interface{}
	Opts    jobs.EnqueueOptions
}

// fakeQueue records enqueues instead of writing job_run rows.
type fakeQueue struct {
	mu       sync.Mutex
	enqueued []enqueuedJob
	failWith error
}

func (f *fakeQueue) Enqueue(ctx context.Context, jobType string, payload map[string]interface{}, opts jobs.EnqueueOptions) (*types.JobRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.enqueued = append(f.enqueued, enqueuedJob{JobType: jobType, Payload: payload, Opts: opts})
	return &types.JobRun{ID: uuid.New(), JobType: jobType, Status: types.JobStatusQueued}, nil
}

type savedObject struct {
	Destination string
	Filename    string
	Size        int64
}

type fakeStorage struct {
	mu    sync.Mutex
	saved []savedObject
}

func (f *fakeStorage) Save(ctx context.Context, destination, filename string, file io.Reader) (*StorageResult, error) {
	var buf bytes.Buffer
	size, err := io.Copy(&buf, file)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, savedObject{Destination: destination, Filename: filename, Size: size})
	return &StorageResult{Path: destination + "/" + filename, Size: size}, nil
}
