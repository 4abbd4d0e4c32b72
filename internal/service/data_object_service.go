package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/crossmark-io/crossmark-api/internal/dto"
	"github.com/crossmark-io/crossmark-api/internal/models"
	appErrors "github.com/crossmark-io/crossmark-api/pkg/errors"
)

type dataObjectRepository interface {
	Create(ctx context.Context, obj *models.DataObject) error
	FindByID(ctx context.Context, id string) (*models.DataObject, error)
	ListByCreator(ctx context.Context, creatorID string, limit int) ([]models.DataObject, error)
	CreateMetadata(ctx context.Context, meta *models.Metadata) error
	FindMetadataByDataObject(ctx context.Context, dataObjectID string) (*models.Metadata, error)
}

// DataObjectService manages the classified artifacts conversion requests
// refer to.
type DataObjectService struct {
	repo      dataObjectRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDataObjectService constructs a DataObjectService.
func NewDataObjectService(repo dataObjectRepository, validate *validator.Validate, logger *zap.Logger) *DataObjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataObjectService{repo: repo, validator: validate, logger: logger}
}

// Create registers a data object, with metadata when supplied.
func (s *DataObjectService) Create(ctx context.Context, creatorID string, req dto.CreateDataObjectRequest) (*models.DataObject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid data object payload")
	}

	obj := &models.DataObject{
		CreatorID:   creatorID,
		Title:       req.Title,
		Description: req.Description,
	}
	if err := s.repo.Create(ctx, obj); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create data object")
	}

	if req.Metadata != nil {
		meta := &models.Metadata{
			DataObjectID:             obj.ID,
			Identifier:               req.Metadata.Identifier,
			AuthorizationReference:   req.Metadata.AuthorizationReference,
			OriginatorOrganizationID: req.Metadata.OriginatorOrganizationID,
			CustodianOrganizationID:  req.Metadata.CustodianOrganizationID,
			Format:                   req.Metadata.Format,
			FormatSize:               req.Metadata.FormatSize,
			SecurityClassification:   req.Metadata.SecurityClassification,
			ReleasableToCountries:    models.StringList(req.Metadata.ReleasableToCountries),
			HandlingRestrictions:     models.StringList(req.Metadata.HandlingRestrictions),
			HandlingAuthority:        req.Metadata.HandlingAuthority,
			Domain:                   req.Metadata.Domain,
			Tags:                     models.StringList(req.Metadata.Tags),
		}
		if err := s.repo.CreateMetadata(ctx, meta); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create metadata")
		}
	}

	s.logger.Info("data object created", zap.String("data_object_id", obj.ID), zap.String("creator_id", creatorID))
	return obj, nil
}

// Get returns a data object with its metadata when present.
func (s *DataObjectService) Get(ctx context.Context, id string) (*models.DataObject, *models.Metadata, error) {
	obj, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "data object not found")
		}
		return nil, nil, err
	}

	meta, err := s.repo.FindMetadataByDataObject(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return obj, nil, nil
		}
		return nil, nil, err
	}
	return obj, meta, nil
}

// ListMine returns the caller's data objects.
func (s *DataObjectService) ListMine(ctx context.Context, creatorID string, limit int) ([]models.DataObject, error) {
	objs, err := s.repo.ListByCreator(ctx, creatorID, limit)
	if err != nil {
		return nil, err
	}
	return objs, nil
}
