package jobs

// Job type names shared by producers (services) and the handler packages.
const (
	JobTypeAssetPipeline = "asset-pipeline"
	JobTypeRenderJobs    = "render-jobs"
)
