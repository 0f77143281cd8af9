package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gift-approval-api/internal/middleware"
	"github.com/noah-isme/gift-approval-api/internal/workflow"
)

// Handlers groups the route targets.
type Handlers struct {
	Gifts   *GiftHandler
	Batches *GiftBatchHandler
	Metrics *MetricsHandler
}

// RegisterRoutes mounts the probes at the root and the gift API under prefix.
// auth must place JWT claims on the context.
func RegisterRoutes(r *gin.Engine, prefix, module string, auth gin.HandlerFunc, h Handlers) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)
	api.Use(auth, middleware.RequireActor())
	view := middleware.RequireCapability(module, workflow.CapView)

	gifts := api.Group("/gifts")
	gifts.POST("", middleware.RequireCapability(module, workflow.CapView, workflow.CapAdd), h.Gifts.Create)
	gifts.GET("", view, h.Gifts.List)
	gifts.GET("/:id", view, h.Gifts.Get)
	gifts.GET("/:id/timeline", view, h.Gifts.Timeline)
	gifts.POST("/:id/transitions", middleware.RequireCapability(module, workflow.CapView, workflow.CapEdit), h.Gifts.Transition)

	// Bulk writes carry their own capability sets; rollback is gated per tab by the service.
	batches := api.Group("/gift-batches")
	batches.POST("/import", middleware.RequireCapability(module, workflow.CapImport, workflow.CapAdd), h.Batches.Import)
	batches.POST("/update", middleware.RequireCapability(module, workflow.CapEdit), h.Batches.BulkUpdate)
	batches.POST("/rollback", h.Batches.Rollback)
	batches.GET("", view, h.Batches.List)
	batches.GET("/:id", view, h.Batches.Get)
	batches.GET("/:id/export", view, h.Batches.Export)
}
