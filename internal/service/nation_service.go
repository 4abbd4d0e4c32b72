package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/crossmark-io/crossmark-api/internal/models"
	appErrors "github.com/crossmark-io/crossmark-api/pkg/errors"
)

type nationRepository interface {
	CreateNation(ctx context.Context, nation *models.Nation) error
	FindNationByCode(ctx context.Context, code string) (*models.Nation, error)
	ListNations(ctx context.Context) ([]models.Nation, error)
	CreateAuthority(ctx context.Context, authority *models.Authority) error
	FindAuthorityByID(ctx context.Context, id string) (*models.Authority, error)
	ListAuthoritiesByNation(ctx context.Context, nationCode string) ([]models.Authority, error)
}

// NationService manages nation and authority reference data.
type NationService struct {
	repo      nationRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNationService constructs a NationService.
func NewNationService(repo nationRepository, validate *validator.Validate, logger *zap.Logger) *NationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NationService{repo: repo, validator: validate, logger: logger}
}

// CreateNation registers a nation reference row.
func (s *NationService) CreateNation(ctx context.Context, nation *models.Nation) (*models.Nation, error) {
	if len(nation.NationCode) != 3 || nation.NationName == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nation requires an alpha-3 code and a name")
	}
	if err := s.repo.CreateNation(ctx, nation); err != nil {
		if appErrors.Is(err, appErrors.ErrConflict) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create nation")
	}
	s.logger.Info("nation registered", zap.String("nation_code", nation.NationCode))
	return nation, nil
}

// GetNation returns a nation by alpha-3 code.
func (s *NationService) GetNation(ctx context.Context, code string) (*models.Nation, error) {
	nation, err := s.repo.FindNationByCode(ctx, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("nation %s not found", code))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load nation")
	}
	return nation, nil
}

// ListNations returns all nations.
func (s *NationService) ListNations(ctx context.Context) ([]models.Nation, error) {
	nations, err := s.repo.ListNations(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list nations")
	}
	return nations, nil
}

// CreateAuthority registers an authority under a nation.
func (s *NationService) CreateAuthority(ctx context.Context, authority *models.Authority) (*models.Authority, error) {
	if authority.NationID == "" || authority.Name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "authority requires a nation and a name")
	}
	if err := s.repo.CreateAuthority(ctx, authority); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create authority")
	}
	s.logger.Info("authority registered", zap.String("authority_id", authority.ID), zap.String("nation_id", authority.NationID))
	return authority, nil
}

// ListAuthorities returns the authorities accredited under a nation.
func (s *NationService) ListAuthorities(ctx context.Context, nationCode string) ([]models.Authority, error) {
	authorities, err := s.repo.ListAuthoritiesByNation(ctx, nationCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list authorities")
	}
	return authorities, nil
}
