package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/crossmark-io/crossmark-api/internal/dto"
	"github.com/crossmark-io/crossmark-api/internal/models"
	"github.com/crossmark-io/crossmark-api/pkg/config"
	appErrors "github.com/crossmark-io/crossmark-api/pkg/errors"
	"github.com/crossmark-io/crossmark-api/pkg/response"
)

type auditService interface {
	Query(ctx context.Context, req dto.AuditQueryRequest) ([]models.AuditLogEntry, error)
	FindByRequestID(ctx context.Context, requestID string) (*models.AuditLogEntry, error)
	RecentFailures(ctx context.Context, limit int) ([]models.AuditLogEntry, error)
	Summary(ctx context.Context, windowHours int) (*dto.AuditSummary, error)
}

type auditExportService interface {
	AuditCSV(ctx context.Context, req dto.AuditQueryRequest) ([]byte, string, error)
	AuditPDF(ctx context.Context, req dto.AuditQueryRequest) ([]byte, string, error)
	SchemaCoverageCSV(ctx context.Context) ([]byte, string, error)
}

// AuditHandler exposes audit trail query and compliance export endpoints.
// Query and export row counts are capped by configuration.
type AuditHandler struct {
	audit   auditService
	exports auditExportService
	limits  config.AuditConfig
}

// NewAuditHandler builds a new handler.
func NewAuditHandler(audit auditService, exports auditExportService, limits config.AuditConfig) *AuditHandler {
	if limits.QueryLimit <= 0 {
		limits.QueryLimit = 100
	}
	if limits.ExportLimit <= 0 {
		limits.ExportLimit = 5000
	}
	return &AuditHandler{audit: audit, exports: exports, limits: limits}
}

func (h *AuditHandler) capLimit(requested, max int) int {
	if requested <= 0 || requested > max {
		return max
	}
	return requested
}

// List godoc
// @Summary Query audit entries
// @Tags Audit
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	var req dto.AuditQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid audit query"))
		return
	}

	req.Limit = h.capLimit(req.Limit, h.limits.QueryLimit)
	entries, err := h.audit.Query(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// GetByRequestID godoc
// @Summary Get the audit entry for one request
// @Tags Audit
// @Produce json
// @Param request_id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /audit/requests/{request_id} [get]
func (h *AuditHandler) GetByRequestID(c *gin.Context) {
	entry, err := h.audit.FindByRequestID(c.Request.Context(), c.Param("request_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Failures godoc
// @Summary List recent failed operations
// @Tags Audit
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /audit/failures [get]
func (h *AuditHandler) Failures(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	entries, err := h.audit.RecentFailures(c.Request.Context(), h.capLimit(limit, h.limits.QueryLimit))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Summary godoc
// @Summary Summarize audit outcomes over a trailing window
// @Tags Audit
// @Produce json
// @Param window_hours query int false "Window in hours"
// @Success 200 {object} response.Envelope
// @Router /audit/summary [get]
func (h *AuditHandler) Summary(c *gin.Context) {
	windowHours, _ := strconv.Atoi(c.DefaultQuery("window_hours", "24"))
	summary, err := h.audit.Summary(c.Request.Context(), windowHours)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// ExportCSV godoc
// @Summary Export matching audit entries as CSV
// @Tags Audit
// @Produce text/csv
// @Success 200 {file} binary
// @Router /audit/export/csv [get]
func (h *AuditHandler) ExportCSV(c *gin.Context) {
	var req dto.AuditQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid audit query"))
		return
	}

	req.Limit = h.capLimit(req.Limit, h.limits.ExportLimit)
	payload, filename, err := h.exports.AuditCSV(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv", payload)
}

// ExportPDF godoc
// @Summary Export matching audit entries as a banner-marked PDF
// @Tags Audit
// @Produce application/pdf
// @Success 200 {file} binary
// @Router /audit/export/pdf [get]
func (h *AuditHandler) ExportPDF(c *gin.Context) {
	var req dto.AuditQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid audit query"))
		return
	}

	req.Limit = h.capLimit(req.Limit, h.limits.ExportLimit)
	payload, filename, err := h.exports.AuditPDF(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", payload)
}

// SchemaCoverage godoc
// @Summary Export per-nation schema coverage as CSV
// @Tags Audit
// @Produce text/csv
// @Success 200 {file} binary
// @Router /audit/export/schema-coverage [get]
func (h *AuditHandler) SchemaCoverage(c *gin.Context) {
	payload, filename, err := h.exports.SchemaCoverageCSV(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv", payload)
}
