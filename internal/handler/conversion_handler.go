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
	"github.com/crossmark-io/crossmark-api/pkg/middleware/requestid"
	"github.com/crossmark-io/crossmark-api/pkg/response"
)

type conversionService interface {
	Convert(ctx context.Context, actor *models.JWTClaims, requestID string, req dto.ConvertRequest) (*models.ConversionResult, error)
	FindRequest(ctx context.Context, id string) (*models.ConversionRequest, *models.ConversionResponse, error)
	ListRequests(ctx context.Context, filter models.ConversionFilter) ([]models.ConversionRequest, int, error)
}

type conversionDataObjectService interface {
	Create(ctx context.Context, creatorID string, req dto.CreateDataObjectRequest) (*models.DataObject, error)
	Get(ctx context.Context, id string) (*models.DataObject, *models.Metadata, error)
	ListMine(ctx context.Context, creatorID string, limit int) ([]models.DataObject, error)
}

// ConversionHandler exposes conversion and data object endpoints.
type ConversionHandler struct {
	conversions conversionService
	dataObjects conversionDataObjectService
}

// NewConversionHandler builds a new handler.
func NewConversionHandler(conversions conversionService, dataObjects conversionDataObjectService) *ConversionHandler {
	return &ConversionHandler{conversions: conversions, dataObjects: dataObjects}
}

// Convert godoc
// @Summary Convert a classification marking for target nations
// @Tags Conversions
// @Accept json
// @Produce json
// @Param payload body dto.ConvertRequest true "Conversion payload"
// @Success 200 {object} response.Envelope
// @Router /conversions [post]
func (h *ConversionHandler) Convert(c *gin.Context) {
	var req dto.ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid conversion payload"))
		return
	}

	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result, err := h.conversions.Convert(c.Request.Context(), claims, requestid.Value(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.ConvertResponse{
		RequestID:             result.RequestID,
		NATOEquivalent:        result.PivotEquivalent.NATOMarking(),
		TargetClassifications: result.Targets,
		Failures:              result.Failures,
		Status:                result.Status,
		ExpiresAt:             result.ExpiresAt,
		CompletedAt:           result.CompletedAt.Format(time.RFC3339),
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// GetRequest godoc
// @Summary Get a conversion request with its response
// @Tags Conversions
// @Produce json
// @Param id path string true "Conversion request ID"
// @Success 200 {object} response.Envelope
// @Router /conversions/{id} [get]
func (h *ConversionHandler) GetRequest(c *gin.Context) {
	record, resp, err := h.conversions.FindRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"request": record, "response": resp}, nil)
}

// ListRequests godoc
// @Summary List conversion requests
// @Tags Conversions
// @Produce json
// @Param pending query bool false "Only pending or only completed requests"
// @Success 200 {object} response.Envelope
// @Router /conversions [get]
func (h *ConversionHandler) ListRequests(c *gin.Context) {
	filter := models.ConversionFilter{
		CreatorID:        c.Query("creator_id"),
		AuthorityID:      c.Query("authority_id"),
		SourceNationCode: c.Query("source_nation_code"),
		TargetNationCode: c.Query("target_nation_code"),
	}
	if raw := c.Query("pending"); raw != "" {
		pending, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "pending must be a boolean"))
			return
		}
		filter.Pending = &pending
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	requests, total, err := h.conversions.ListRequests(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	pagination := &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// CreateDataObject godoc
// @Summary Register a data object
// @Tags DataObjects
// @Accept json
// @Produce json
// @Param payload body dto.CreateDataObjectRequest true "Data object payload"
// @Success 201 {object} response.Envelope
// @Router /data-objects [post]
func (h *ConversionHandler) CreateDataObject(c *gin.Context) {
	var req dto.CreateDataObjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid data object payload"))
		return
	}

	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	obj, err := h.dataObjects.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, obj)
}

// GetDataObject godoc
// @Summary Get a data object with metadata
// @Tags DataObjects
// @Produce json
// @Param id path string true "Data object ID"
// @Success 200 {object} response.Envelope
// @Router /data-objects/{id} [get]
func (h *ConversionHandler) GetDataObject(c *gin.Context) {
	obj, meta, err := h.dataObjects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"data_object": obj, "metadata": meta}, nil)
}

// ListDataObjects godoc
// @Summary List the caller's data objects
// @Tags DataObjects
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /data-objects [get]
func (h *ConversionHandler) ListDataObjects(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	objs, err := h.dataObjects.ListMine(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, objs, nil)
}
