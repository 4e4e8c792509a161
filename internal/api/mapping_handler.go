package api

import (
	"net/http"

	"dataloom/internal/domain"
	"dataloom/internal/service"

	"github.com/gin-gonic/gin"
)

// MappingHandler handles type mapping and transformation requests.
type MappingHandler struct {
	svc *service.Service
}

// NewMappingHandler creates a new mapping handler.
func NewMappingHandler(svc *service.Service) *MappingHandler {
	return &MappingHandler{svc: svc}
}

// ListMappings handles GET /api/sources/:id/mappings.
func (h *MappingHandler) ListMappings(c *gin.Context) {
	mappings, err := h.svc.Registry().ListBySource(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": mappings})
}

// GetMapping handles GET /api/mappings/:id.
func (h *MappingHandler) GetMapping(c *gin.Context) {
	mapping, err := h.svc.Registry().Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": mapping})
}

// ActivateMapping handles PUT /api/mappings/:id/active.
func (h *MappingHandler) ActivateMapping(c *gin.Context) {
	if err := h.svc.Registry().SetActive(c.Request.Context(), c.Param("id"), true); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": "active"})
}

// DeactivateMapping handles DELETE /api/mappings/:id/active.
func (h *MappingHandler) DeactivateMapping(c *gin.Context) {
	if err := h.svc.Registry().SetActive(c.Request.Context(), c.Param("id"), false); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": "inactive"})
}

// AddTransformation handles POST /api/mappings/:id/transformations.
func (h *MappingHandler) AddTransformation(c *gin.Context) {
	var t domain.Transformation
	if err := c.ShouldBindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}

	created, err := h.svc.Registry().AddTransformation(c.Request.Context(), c.Param("id"), t)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"value": created})
}

// UpdateTransformation handles PUT /api/transformations/:id. The owning
// mapping is identified by the mapping_id query parameter.
func (h *MappingHandler) UpdateTransformation(c *gin.Context) {
	mappingID := c.Query("mapping_id")
	if mappingID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mapping_id query parameter is required"})
		return
	}

	var t domain.Transformation
	if err := c.ShouldBindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}
	t.ID = c.Param("id")

	if err := h.svc.Registry().UpdateTransformation(c.Request.Context(), mappingID, t); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": t})
}

// RemoveTransformation handles DELETE /api/transformations/:id.
func (h *MappingHandler) RemoveTransformation(c *gin.Context) {
	mappingID := c.Query("mapping_id")
	if mappingID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mapping_id query parameter is required"})
		return
	}

	if err := h.svc.Registry().RemoveTransformation(c.Request.Context(), mappingID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": "deleted"})
}

// UpgradeMappings handles POST /api/mappings/upgrade.
func (h *MappingHandler) UpgradeMappings(c *gin.Context) {
	var req struct {
		MappingIDs    []string `json:"mapping_ids"`
		TargetVersion string   `json:"target_version"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}
	if len(req.MappingIDs) == 0 || req.TargetVersion == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mapping_ids and target_version are required"})
		return
	}

	if err := h.svc.Registry().Upgrade(c.Request.Context(), req.MappingIDs, req.TargetVersion); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": "upgraded"})
}
