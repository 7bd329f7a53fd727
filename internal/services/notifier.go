package services

import (
	"github.com/google/uuid"

	"github.com/velabs/studioforge-backend/internal/sse"
	"github.com/velabs/studioforge-backend/internal/types"
)

// StudioNotifier fans state changes out to the studio room. Delivery is
// best-effort: orchestrators persist first and notify after, so a dropped
// event can never hide a state change, only delay its observation.
type StudioNotifier interface {
	PipelineUpdate(studioID uuid.UUID, run *types.PipelineRun)
	RenderProgress(studioID uuid.UUID, job *types.RenderJob)
	RenderCompleted(studioID uuid.UUID, job *types.RenderJob)
	RenderFailed(studioID uuid.UUID, job *types.RenderJob)
}

type studioNotifier struct {
	hub *sse.SSEHub
}

func NewStudioNotifier(hub *sse.SSEHub) StudioNotifier {
	return &studioNotifier{hub: hub}
}

func (n *studioNotifier) PipelineUpdate(studioID uuid.UUID, run *types.PipelineRun) {
	if n == nil || n.hub == nil || run == nil || studioID == uuid.Nil {
		return
	}
	n.hub.Broadcast(sse.SSEMessage{
		Channel: sse.StudioChannel(studioID),
		Event:   sse.SSEEventPipelineUpdate,
		Data: map[string]any{
			"asset_id": run.AssetID,
			"version":  run.Version,
			"status":   run.Status,
			"error":    run.Error,
		},
	})
}

func (n *studioNotifier) RenderProgress(studioID uuid.UUID, job *types.RenderJob) {
	if n == nil || n.hub == nil || job == nil || studioID == uuid.Nil {
		return
	}
	n.hub.Broadcast(sse.SSEMessage{
		Channel: sse.StudioChannel(studioID),
		Event:   sse.SSEEventRenderProgress,
		Data: map[string]any{
			"render_job_id": job.ID,
			"asset_id":      job.AssetID,
			"version":       job.Version,
			"status":        job.Status,
			"progress":      job.Progress,
		},
	})
}

func (n *studioNotifier) RenderCompleted(studioID uuid.UUID, job *types.RenderJob) {
	if n == nil || n.hub == nil || job == nil || studioID == uuid.Nil {
		return
	}
	n.hub.Broadcast(sse.SSEMessage{
		Channel: sse.StudioChannel(studioID),
		Event:   sse.SSEEventRenderCompleted,
		Data: map[string]any{
			"render_job_id": job.ID,
			"asset_id":      job.AssetID,
			"version":       job.Version,
			"status":        job.Status,
			"progress":      job.Progress,
		},
	})
}

func (n *studioNotifier) RenderFailed(studioID uuid.UUID, job *types.RenderJob) {
	if n == nil || n.hub == nil || job == nil || studioID == uuid.Nil {
		return
	}
	n.hub.Broadcast(sse.SSEMessage{
		Channel: sse.StudioChannel(studioID),
		Event:   sse.SSEEventRenderFailed,
		Data: map[string]any{
			"render_job_id": job.ID,
			"asset_id":      job.AssetID,
			"version":       job.Version,
			"status":        job.Status,
			"error":         job.Error,
		},
	})
}
