package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossmark-io/crossmark-api/internal/dto"
	"github.com/crossmark-io/crossmark-api/internal/middleware"
	"github.com/crossmark-io/crossmark-api/internal/models"
	appErrors "github.com/crossmark-io/crossmark-api/pkg/errors"
)

type conversionServiceMock struct {
	result *models.ConversionResult
	err    error
}

func (m *conversionServiceMock) Convert(ctx context.Context, actor *models.JWTClaims, requestID string, req dto.ConvertRequest) (*models.ConversionResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *conversionServiceMock) FindRequest(ctx context.Context, id string) (*models.ConversionRequest, *models.ConversionResponse, error) {
	return &models.ConversionRequest{ID: id}, nil, nil
}

func (m *conversionServiceMock) ListRequests(ctx context.Context, filter models.ConversionFilter) ([]models.ConversionRequest, int, error) {
	return nil, 0, nil
}

type dataObjectServiceMock struct{}

func (m *dataObjectServiceMock) Create(ctx context.Context, creatorID string, req dto.CreateDataObjectRequest) (*models.DataObject, error) {
	return &models.DataObject{ID: "d1", CreatorID: creatorID, Title: req.Title}, nil
}

func (m *dataObjectServiceMock) Get(ctx context.Context, id string) (*models.DataObject, *models.Metadata, error) {
	return &models.DataObject{ID: id}, nil, nil
}

func (m *dataObjectServiceMock) ListMine(ctx context.Context, creatorID string, limit int) ([]models.DataObject, error) {
	return nil, nil
}

func convertPayload() []byte {
	body, _ := json.Marshal(dto.ConvertRequest{
		DataObjectID:         "6ba7b810-9dad-41d1-80b4-00c04fd430c8",
		SourceClassification: "SECRET",
		SourceNationCode:     "USA",
		TargetNationCodes:    []string{"GBR"},
	})
	return body
}

func TestConversionHandlerConvert(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &conversionServiceMock{result: &models.ConversionResult{
		RequestID:       "req-1",
		PivotEquivalent: models.PivotSecret,
		Targets:         map[string]string{"GBR": "UK SECRET"},
		Status:          models.ConversionStatusSuccess,
		CompletedAt:     time.Now().UTC(),
	}}
	handler := NewConversionHandler(mock, &dataObjectServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/conversions", bytes.NewReader(convertPayload()))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleAnalyst})

	handler.Convert(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.ConvertResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "NATO SECRET", envelope.Data.NATOEquivalent)
	assert.Equal(t, "UK SECRET", envelope.Data.TargetClassifications["GBR"])
}

func TestConversionHandlerConvertUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewConversionHandler(&conversionServiceMock{}, &dataObjectServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/conversions", bytes.NewReader(convertPayload()))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Convert(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestConversionHandlerConvertInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewConversionHandler(&conversionServiceMock{}, &dataObjectServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/conversions", bytes.NewReader([]byte(`not-json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1"})

	handler.Convert(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConversionHandlerConvertMapsTaxonomyStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &conversionServiceMock{err: appErrors.Clone(appErrors.ErrUnknownMarking, "marking not recognized")}
	handler := NewConversionHandler(mock, &dataObjectServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/conversions", bytes.NewReader(convertPayload()))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1"})

	handler.Convert(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var envelope struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrUnknownMarking.Code, envelope.Error.Code)
}

func TestConversionHandlerListRequestsRejectsBadPending(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewConversionHandler(&conversionServiceMock{}, &dataObjectServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/conversions?pending=maybe", nil)
	c.Request = req

	handler.ListRequests(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
