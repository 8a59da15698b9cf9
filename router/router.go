package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vincentrandon/freelance-project-saas/config"
	"github.com/vincentrandon/freelance-project-saas/handlers"
	"github.com/vincentrandon/freelance-project-saas/middleware"
)

// Dependencies struct holds all dependencies required for setting up routes.
type Dependencies struct {
	Config          *config.Config
	PreviewHandler  *handlers.PreviewHandler
	BatchHandler    *handlers.BatchHandler
	DocumentHandler *handlers.DocumentHandler
	HealthHandler   *handlers.HealthHandler
	Logger          *zap.SugaredLogger
}

// SetupRouter configures and returns the main Gin engine with all routes defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.Default()

	// Global Middleware
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))

	// Health and Metrics Routes (no owner scope)
	r.GET("/health", deps.HealthHandler.DetailedHealth)
	r.GET("/health/liveness", deps.HealthHandler.LivenessCheck)
	r.GET("/health/readiness", deps.HealthHandler.ReadinessCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Versioned API Group (v1). Every route is owner-scoped via the
	// gateway-provided identity header.
	v1 := r.Group("/v1")
	v1.Use(middleware.RequireOwner())

	documents := v1.Group("/documents")
	{
		documents.POST("/:id/extract", deps.DocumentHandler.Extract)
		documents.GET("/:id/preview", deps.PreviewHandler.GetByDocument)
	}

	previews := v1.Group("/previews")
	{
		previews.POST("/bulk-approve", deps.BatchHandler.BulkApprove)
		previews.POST("/bulk-reject", deps.BatchHandler.BulkReject)
		previews.POST("/patterns", deps.BatchHandler.DetectPatterns)
		previews.GET("/batch-summary", deps.BatchHandler.GetBatchSummary)

		previews.GET("/:id", deps.PreviewHandler.Get)
		previews.PATCH("/:id", deps.PreviewHandler.Update)
		previews.POST("/:id/approve", deps.PreviewHandler.Approve)
		previews.POST("/:id/reject", deps.PreviewHandler.Reject)
		previews.GET("/:id/clarifications", deps.PreviewHandler.GetClarifications)
		previews.POST("/:id/clarifications/refine", deps.PreviewHandler.RefineTasks)
		previews.POST("/:id/clarifications/skip", deps.PreviewHandler.SkipClarification)
	}

	return r
}
