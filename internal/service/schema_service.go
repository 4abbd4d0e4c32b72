package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/crossmark-io/crossmark-api/internal/dto"
	"github.com/crossmark-io/crossmark-api/internal/models"
	appErrors "github.com/crossmark-io/crossmark-api/pkg/errors"
)

type schemaRepository interface {
	Create(ctx context.Context, schema *models.ClassificationSchema) error
	FindByID(ctx context.Context, id string) (*models.ClassificationSchema, error)
	FindByNationAndVersion(ctx context.Context, nationCode, version string) (*models.ClassificationSchema, error)
	FindCandidatesByNation(ctx context.Context, nationCode string) ([]models.ClassificationSchema, error)
	List(ctx context.Context, filter models.SchemaFilter) ([]models.ClassificationSchema, int, error)
	Expire(ctx context.Context, id string, expiresAt time.Time) error
	DistinctNationCodes(ctx context.Context) ([]string, error)
}

type schemaCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type schemaCacheMetrics interface {
	RecordCacheOperation(hit bool, duration time.Duration)
	ObserveDBQuery(label string, duration time.Duration)
}

// SchemaServiceConfig tunes runtime behaviour.
type SchemaServiceConfig struct {
	CacheTTL      time.Duration
	LookupTimeout time.Duration
}

// SchemaService orchestrates schema registration, resolution, and lifecycle.
// Resolution reads through a Redis cache keyed per nation; any write for a
// nation invalidates that nation's cached resolution so a freshly registered
// or expired version takes effect immediately.
type SchemaService struct {
	repo          schemaRepository
	cache         schemaCache
	metrics       schemaCacheMetrics
	validator     *validator.Validate
	logger        *zap.Logger
	cacheTTL      time.Duration
	lookupTimeout time.Duration
}

// NewSchemaService constructs a SchemaService.
func NewSchemaService(repo schemaRepository, cache schemaCache, metrics schemaCacheMetrics, validate *validator.Validate, logger *zap.Logger, cfg SchemaServiceConfig) *SchemaService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 5 * time.Second
	}
	return &SchemaService{
		repo:          repo,
		cache:         cache,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
		cacheTTL:      ttl,
		lookupTimeout: cfg.LookupTimeout,
	}
}

func schemaCacheKey(nationCode string) string {
	return "schema:active:" + nationCode
}

// Register validates and persists a new schema version for a nation.
func (s *SchemaService) Register(ctx context.Context, creatorID string, req dto.RegisterSchemaRequest) (*models.ClassificationSchema, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schema payload")
	}

	schema := &models.ClassificationSchema{
		CreatorID:             creatorID,
		NationCode:            req.NationCode,
		ToPivotUnclassified:   req.ToPivotUnclassified,
		ToPivotRestricted:     req.ToPivotRestricted,
		ToPivotConfidential:   req.ToPivotConfidential,
		ToPivotSecret:         req.ToPivotSecret,
		ToPivotTopSecret:      req.ToPivotTopSecret,
		FromPivotUnclassified: req.FromPivotUnclassified,
		FromPivotRestricted:   req.FromPivotRestricted,
		FromPivotConfidential: req.FromPivotConfidential,
		FromPivotSecret:       req.FromPivotSecret,
		FromPivotTopSecret:    req.FromPivotTopSecret,
		Caveats:               req.Caveats,
		Version:               req.Version,
		AuthorityID:           req.AuthorityID,
		ExpiresAt:             req.ExpiresAt,
	}

	if missing := schema.MissingMappings(); len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrIncompleteMapping,
			fmt.Sprintf("schema is missing mappings: %s", strings.Join(missing, ", ")))
	}

	if err := s.repo.Create(ctx, schema); err != nil {
		if appErrors.Is(err, appErrors.ErrDuplicateVersion) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register schema")
	}

	s.invalidate(ctx, schema.NationCode)
	s.logger.Info("schema registered",
		zap.String("nation_code", schema.NationCode),
		zap.String("version", schema.Version),
		zap.String("schema_id", schema.ID))
	return schema, nil
}

// ResolveActive returns the schema serving conversions for a nation right
// now: highest non-expired version, created_at breaking ties. A nation with
// no schemas at all and a nation whose schemas have all expired are distinct
// failures.
func (s *SchemaService) ResolveActive(ctx context.Context, nationCode string) (*models.ClassificationSchema, error) {
	return s.ResolveActiveAt(ctx, nationCode, time.Time{})
}

// ResolveActiveAt resolves the schema that was (or is) active for a nation at
// the given instant. A zero instant means the current moment and is served
// through the cache; a pinned instant always goes to the database, since the
// cache only ever holds the current winner.
func (s *SchemaService) ResolveActiveAt(ctx context.Context, nationCode string, at time.Time) (*models.ClassificationSchema, error) {
	pinned := !at.IsZero()
	if !pinned {
		at = time.Now().UTC()
	}

	key := schemaCacheKey(nationCode)
	if s.cache != nil && !pinned {
		start := time.Now()
		var cached models.ClassificationSchema
		err := s.cache.Get(ctx, key, &cached)
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(err == nil, time.Since(start))
		}
		if err == nil {
			if cached.ActiveAt(at) {
				return &cached, nil
			}
			// Cached row expired mid-TTL; fall through to the database.
		} else if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("schema cache read failed", zap.String("nation_code", nationCode), zap.Error(err))
		}
	}

	queryStart := time.Now()
	candidates, err := s.loadCandidates(ctx, nationCode)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("schema_candidates", time.Since(queryStart))
	}
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, appErrors.Clone(appErrors.ErrSchemaUnavailable,
			fmt.Sprintf("no classification schema available for nation %s", nationCode))
	}

	active := models.PickActiveSchema(candidates, at)
	if active == nil {
		return nil, appErrors.Clone(appErrors.ErrNoActiveSchema,
			fmt.Sprintf("all schemas for nation %s have expired", nationCode))
	}

	if s.cache != nil && !pinned {
		if err := s.cache.Set(ctx, key, active, s.cacheTTL); err != nil {
			s.logger.Warn("schema cache write failed", zap.String("nation_code", nationCode), zap.Error(err))
		}
	}
	return active, nil
}

// loadCandidates runs the registry lookup under the configured timeout so a
// stalled database surfaces as a timeout instead of hanging the conversion.
func (s *SchemaService) loadCandidates(ctx context.Context, nationCode string) ([]models.ClassificationSchema, error) {
	lctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	candidates, err := s.repo.FindCandidatesByNation(lctx, nationCode)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, appErrors.Wrap(err, appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, "schema lookup deadline exceeded")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schemas")
	}
	return candidates, nil
}

// Get returns one exact schema version.
func (s *SchemaService) Get(ctx context.Context, nationCode, version string) (*models.ClassificationSchema, error) {
	schema, err := s.repo.FindByNationAndVersion(ctx, nationCode, version)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound,
				fmt.Sprintf("schema version %s not found for nation %s", version, nationCode))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schema")
	}
	return schema, nil
}

// List returns schemas matching the filter with a total count.
func (s *SchemaService) List(ctx context.Context, filter models.SchemaFilter) ([]models.ClassificationSchema, int, error) {
	schemas, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schemas")
	}
	return schemas, total, nil
}

// Expire stamps an expiry on a schema version. Defaults to immediate expiry
// when the request carries no timestamp.
func (s *SchemaService) Expire(ctx context.Context, id string, req dto.ExpireSchemaRequest) (*models.ClassificationSchema, error) {
	schema, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schema not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schema")
	}

	expiresAt := time.Now().UTC()
	if req.ExpiresAt != nil {
		expiresAt = req.ExpiresAt.UTC()
	}

	if err := s.repo.Expire(ctx, id, expiresAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expire schema")
	}

	s.invalidate(ctx, schema.NationCode)
	schema.ExpiresAt = &expiresAt
	s.logger.Info("schema expired",
		zap.String("nation_code", schema.NationCode),
		zap.String("version", schema.Version),
		zap.Time("expires_at", expiresAt))
	return schema, nil
}

// Nations lists nation codes with at least one registered schema.
func (s *SchemaService) Nations(ctx context.Context) ([]string, error) {
	codes, err := s.repo.DistinctNationCodes(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schema nations")
	}
	return codes, nil
}

func (s *SchemaService) invalidate(ctx context.Context, nationCode string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, schemaCacheKey(nationCode)); err != nil {
		s.logger.Warn("schema cache invalidation failed", zap.String("nation_code", nationCode), zap.Error(err))
	}
}
