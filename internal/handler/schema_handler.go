package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crossmark-io/crossmark-api/internal/dto"
	"github.com/crossmark-io/crossmark-api/internal/models"
	appErrors "github.com/crossmark-io/crossmark-api/pkg/errors"
	"github.com/crossmark-io/crossmark-api/pkg/response"
)

type schemaService interface {
	Register(ctx context.Context, creatorID string, req dto.RegisterSchemaRequest) (*models.ClassificationSchema, error)
	ResolveActiveAt(ctx context.Context, nationCode string, at time.Time) (*models.ClassificationSchema, error)
	Get(ctx context.Context, nationCode, version string) (*models.ClassificationSchema, error)
	List(ctx context.Context, filter models.SchemaFilter) ([]models.ClassificationSchema, int, error)
	Expire(ctx context.Context, id string, req dto.ExpireSchemaRequest) (*models.ClassificationSchema, error)
	Nations(ctx context.Context) ([]string, error)
}

// SchemaHandler exposes classification schema endpoints.
type SchemaHandler struct {
	service schemaService
}

// NewSchemaHandler builds a new handler.
func NewSchemaHandler(service schemaService) *SchemaHandler {
	return &SchemaHandler{service: service}
}

// Register godoc
// @Summary Register a classification schema version
// @Tags Schemas
// @Accept json
// @Produce json
// @Param payload body dto.RegisterSchemaRequest true "Schema payload"
// @Success 201 {object} response.Envelope
// @Router /schemas [post]
func (h *SchemaHandler) Register(c *gin.Context) {
	var req dto.RegisterSchemaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schema payload"))
		return
	}

	claims := claimsFromContext(c)
	creatorID := ""
	if claims != nil {
		creatorID = claims.UserID
	}

	schema, err := h.service.Register(c.Request.Context(), creatorID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schema)
}

// List godoc
// @Summary List schema versions
// @Tags Schemas
// @Produce json
// @Param nation_code query string false "Filter by nation code"
// @Success 200 {object} response.Envelope
// @Router /schemas [get]
func (h *SchemaHandler) List(c *gin.Context) {
	filter := models.SchemaFilter{
		NationCode:  c.Query("nation_code"),
		AuthorityID: c.Query("authority_id"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	schemas, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	pagination := &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	}
	response.JSON(c, http.StatusOK, schemas, pagination)
}

// Active godoc
// @Summary Resolve the active schema for a nation
// @Tags Schemas
// @Produce json
// @Param nation_code path string true "Nation code"
// @Param at query string false "Resolve as of this RFC 3339 instant instead of now"
// @Success 200 {object} response.Envelope
// @Router /schemas/{nation_code}/active [get]
func (h *SchemaHandler) Active(c *gin.Context) {
	var at time.Time
	if raw := c.Query("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "at must be an RFC 3339 timestamp"))
			return
		}
		at = parsed.UTC()
	}

	schema, err := h.service.ResolveActiveAt(c.Request.Context(), c.Param("nation_code"), at)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schema, nil)
}

// Get godoc
// @Summary Get one exact schema version
// @Tags Schemas
// @Produce json
// @Param nation_code path string true "Nation code"
// @Param version path string true "Schema version"
// @Success 200 {object} response.Envelope
// @Router /schemas/{nation_code}/versions/{version} [get]
func (h *SchemaHandler) Get(c *gin.Context) {
	schema, err := h.service.Get(c.Request.Context(), c.Param("nation_code"), c.Param("version"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schema, nil)
}

// Expire godoc
// @Summary Expire a schema version
// @Tags Schemas
// @Accept json
// @Produce json
// @Param id path string true "Schema ID"
// @Success 200 {object} response.Envelope
// @Router /schemas/{id}/expire [post]
func (h *SchemaHandler) Expire(c *gin.Context) {
	var req dto.ExpireSchemaRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid expire payload"))
		return
	}

	schema, err := h.service.Expire(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schema, nil)
}

// Nations godoc
// @Summary List nations with registered schemas
// @Tags Schemas
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schemas/nations [get]
func (h *SchemaHandler) Nations(c *gin.Context) {
	codes, err := h.service.Nations(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, codes, nil)
}
