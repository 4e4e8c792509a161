// Package api exposes the pipeline over HTTP with gin.
package api

import (
	"dataloom/internal/service"

	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes.
func SetupRoutes(r *gin.Engine, svc *service.Service) {
	h := NewHandler(svc)
	mh := NewMappingHandler(svc)

	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		api.GET("/stats", h.GetStats)

		sources := api.Group("/sources")
		{
			sources.POST("", h.CreateSource)
			sources.GET("", h.ListSources)
			sources.GET("/:id", h.GetSource)
			sources.PUT("/:id", h.UpdateSource)
			sources.DELETE("/:id", h.DeleteSource)
			sources.POST("/:id/active", h.ActivateSource)
			sources.DELETE("/:id/active", h.DeactivateSource)
			sources.POST("/:id/archive", h.ArchiveSource)
			sources.POST("/:id/data", h.SubmitData)
			sources.POST("/:id/reprocess", h.Reprocess)
			sources.GET("/:id/imports", h.ListImports)
			sources.GET("/:id/staged", h.ListStagedRecords)
			sources.GET("/:id/mappings", mh.ListMappings)
		}

		api.GET("/imports/:id", h.GetImport)
		api.GET("/staged/:id", h.GetStagedRecord)

		mappings := api.Group("/mappings")
		{
			mappings.GET("/:id", mh.GetMapping)
			mappings.PUT("/:id/active", mh.ActivateMapping)
			mappings.DELETE("/:id/active", mh.DeactivateMapping)
			mappings.POST("/:id/transformations", mh.AddTransformation)
			mappings.POST("/upgrade", mh.UpgradeMappings)
		}

		transformations := api.Group("/transformations")
		{
			transformations.PUT("/:id", mh.UpdateTransformation)
			transformations.DELETE("/:id", mh.RemoveTransformation)
		}
	}
}
