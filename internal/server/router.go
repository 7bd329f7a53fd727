package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/velabs/studioforge-backend/internal/handlers"
	"github.com/velabs/studioforge-backend/internal/logger"
	"github.com/velabs/studioforge-backend/internal/middleware"
	"github.com/velabs/studioforge-backend/internal/utils"
)

type RouterConfig struct {
	Log               *logger.Logger
	AssetHandler      *handlers.AssetHandler
	VersionHandler    *handlers.VersionHandler
	DependencyHandler *handlers.DependencyHandler
	RenderHandler     *handlers.RenderHandler
	SSEHandler        *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("studioforge-api"))

	origins := strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:5174", cfg.Log), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(middleware.Auth(cfg.Log))
	// Assets
	api.POST("/assets", cfg.AssetHandler.CreateAsset)
	api.GET("/assets", cfg.AssetHandler.ListAssets)
	api.GET("/assets/:id", cfg.AssetHandler.GetAsset)
	// Versions
	api.POST("/assets/:id/versions", cfg.VersionHandler.UploadVersion)
	api.GET("/assets/:id/versions", cfg.VersionHandler.ListVersions)
	api.GET("/assets/:id/versions/:version", cfg.VersionHandler.GetVersion)
	api.GET("/assets/:id/versions/:version/pipeline", cfg.VersionHandler.GetPipelineStatus)
	api.POST("/assets/:id/rollback", cfg.VersionHandler.RollbackVersion)
	// Dependencies
	api.POST("/dependencies", cfg.DependencyHandler.LinkAssets)
	api.GET("/assets/:id/versions/:version/children", cfg.DependencyHandler.ListChildren)
	api.GET("/assets/:id/versions/:version/parents", cfg.DependencyHandler.ListParents)
	api.GET("/assets/:id/versions/:version/impact", cfg.DependencyHandler.ImpactAnalysis)
	// Rendering
	api.POST("/assets/:id/render", cfg.RenderHandler.StartRender)
	api.GET("/render-jobs/:id", cfg.RenderHandler.GetRenderJob)
	// SSE
	api.GET("/events", cfg.SSEHandler.Stream)

	return router
}
