package api

import (
	"net/http"
	"strconv"

	"dataloom/internal/domain"
	"dataloom/internal/service"
	"dataloom/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// Handler handles source, data and import requests.
type Handler struct {
	svc *service.Service
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetStats handles GET /api/stats.
func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"value": h.svc.StatsSnapshot()})
}

// CreateSource handles POST /api/sources.
func (h *Handler) CreateSource(c *gin.Context) {
	var source domain.DataSource
	if err := c.ShouldBindJSON(&source); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}

	kind, err := domain.ParseAdapterKind(string(source.Kind))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	source.Kind = kind

	if err := h.svc.CreateSource(c.Request.Context(), &source); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"value": source})
}

// ListSources handles GET /api/sources.
func (h *Handler) ListSources(c *gin.Context) {
	includeArchived := c.Query("archived") == "true"
	sources, err := h.svc.ListSources(c.Request.Context(), includeArchived)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": sources})
}

// GetSource handles GET /api/sources/:id.
func (h *Handler) GetSource(c *gin.Context) {
	source, err := h.svc.GetSource(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": source})
}

// UpdateSource handles PUT /api/sources/:id.
func (h *Handler) UpdateSource(c *gin.Context) {
	var source domain.DataSource
	if err := c.ShouldBindJSON(&source); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}
	source.ID = c.Param("id")

	if err := h.svc.UpdateSource(c.Request.Context(), &source); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": source})
}

// DeleteSource handles DELETE /api/sources/:id.
func (h *Handler) DeleteSource(c *gin.Context) {
	if err := h.svc.DeleteSource(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": "deleted"})
}

// ActivateSource handles POST /api/sources/:id/active.
func (h *Handler) ActivateSource(c *gin.Context) {
	if err := h.svc.SetSourceActive(c.Request.Context(), c.Param("id"), true); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": "active"})
}

// DeactivateSource handles DELETE /api/sources/:id/active.
func (h *Handler) DeactivateSource(c *gin.Context) {
	if err := h.svc.SetSourceActive(c.Request.Context(), c.Param("id"), false); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": "inactive"})
}

// ArchiveSource handles POST /api/sources/:id/archive.
func (h *Handler) ArchiveSource(c *gin.Context) {
	if err := h.svc.ArchiveSource(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": "archived"})
}

// SubmitData handles POST /api/sources/:id/data.
func (h *Handler) SubmitData(c *gin.Context) {
	summary, err := h.svc.Receive(c.Request.Context(), c.Param("id"), c.Request.Body, c.ContentType())
	if err != nil {
		logger.Errorf("receiving data for source %s: %v", c.Param("id"), err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": summary})
}

// Reprocess handles POST /api/sources/:id/reprocess.
func (h *Handler) Reprocess(c *gin.Context) {
	summary, err := h.svc.Reprocess(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": summary})
}

// ListImports handles GET /api/sources/:id/imports.
func (h *Handler) ListImports(c *gin.Context) {
	imports, err := h.svc.ListImports(c.Request.Context(), c.Param("id"), getIntParam(c, "limit", 100))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": imports})
}

// GetImport handles GET /api/imports/:id.
func (h *Handler) GetImport(c *gin.Context) {
	imp, err := h.svc.GetImport(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": imp})
}

// ListStagedRecords handles GET /api/sources/:id/staged.
func (h *Handler) ListStagedRecords(c *gin.Context) {
	status := domain.RecordStatus(c.DefaultQuery("status", string(domain.RecordErrored)))
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown record status"})
		return
	}

	records, err := h.svc.ListStagedRecords(c.Request.Context(), c.Param("id"), status, getIntParam(c, "limit", 100))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": records})
}

// GetStagedRecord handles GET /api/staged/:id.
func (h *Handler) GetStagedRecord(c *gin.Context) {
	record, err := h.svc.GetStagedRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": record})
}

func getIntParam(c *gin.Context, name string, fallback int64) int64 {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

// respondError maps domain errors to HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidConfig):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrSourceArchived), errors.Is(err, domain.ErrSourceInactive), errors.Is(err, domain.ErrInactiveMapping):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
