package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crossmark-io/crossmark-api/internal/models"
	appErrors "github.com/crossmark-io/crossmark-api/pkg/errors"
	"github.com/crossmark-io/crossmark-api/pkg/response"
)

type nationService interface {
	CreateNation(ctx context.Context, nation *models.Nation) (*models.Nation, error)
	GetNation(ctx context.Context, code string) (*models.Nation, error)
	ListNations(ctx context.Context) ([]models.Nation, error)
	CreateAuthority(ctx context.Context, authority *models.Authority) (*models.Authority, error)
	ListAuthorities(ctx context.Context, nationCode string) ([]models.Authority, error)
}

// NationHandler exposes nation and authority reference endpoints.
type NationHandler struct {
	service nationService
}

// NewNationHandler builds a new handler.
func NewNationHandler(service nationService) *NationHandler {
	return &NationHandler{service: service}
}

// Create godoc
// @Summary Register a nation
// @Tags Nations
// @Accept json
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /nations [post]
func (h *NationHandler) Create(c *gin.Context) {
	var nation models.Nation
	if err := c.ShouldBindJSON(&nation); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid nation payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		nation.CreatorID = claims.UserID
	}

	created, err := h.service.CreateNation(c.Request.Context(), &nation)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Get godoc
// @Summary Get a nation by code
// @Tags Nations
// @Produce json
// @Param code path string true "Nation code"
// @Success 200 {object} response.Envelope
// @Router /nations/{code} [get]
func (h *NationHandler) Get(c *gin.Context) {
	nation, err := h.service.GetNation(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, nation, nil)
}

// List godoc
// @Summary List nations
// @Tags Nations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /nations [get]
func (h *NationHandler) List(c *gin.Context) {
	nations, err := h.service.ListNations(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, nations, nil)
}

// CreateAuthority godoc
// @Summary Register an authority
// @Tags Nations
// @Accept json
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /authorities [post]
func (h *NationHandler) CreateAuthority(c *gin.Context) {
	var authority models.Authority
	if err := c.ShouldBindJSON(&authority); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid authority payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		authority.CreatorID = claims.UserID
	}

	created, err := h.service.CreateAuthority(c.Request.Context(), &authority)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// ListAuthorities godoc
// @Summary List authorities for a nation
// @Tags Nations
// @Produce json
// @Param code path string true "Nation code"
// @Success 200 {object} response.Envelope
// @Router /nations/{code}/authorities [get]
func (h *NationHandler) ListAuthorities(c *gin.Context) {
	authorities, err := h.service.ListAuthorities(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, authorities, nil)
}
