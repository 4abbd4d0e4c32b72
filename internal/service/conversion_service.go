package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crossmark-io/crossmark-api/internal/dto"
	"github.com/crossmark-io/crossmark-api/internal/models"
	"github.com/crossmark-io/crossmark-api/pkg/config"
	appErrors "github.com/crossmark-io/crossmark-api/pkg/errors"
)

type conversionRepository interface {
	CreateRequest(ctx context.Context, req *models.ConversionRequest) error
	CreateResponse(ctx context.Context, resp *models.ConversionResponse) error
	MarkCompleted(ctx context.Context, id string, completedAt time.Time) error
	FindRequestByID(ctx context.Context, id string) (*models.ConversionRequest, error)
	FindResponseByRequest(ctx context.Context, requestID string) (*models.ConversionResponse, error)
	ListRequests(ctx context.Context, filter models.ConversionFilter) ([]models.ConversionRequest, int, error)
}

type dataObjectReader interface {
	FindByID(ctx context.Context, id string) (*models.DataObject, error)
}

type schemaResolver interface {
	ResolveActiveAt(ctx context.Context, nationCode string, at time.Time) (*models.ClassificationSchema, error)
}

type auditRecorder interface {
	Record(ctx context.Context, entry *models.AuditLogEntry, sealVariables bool) error
}

type conversionMetrics interface {
	RecordConversion(status string, duration time.Duration)
	RecordTargetFailure(code string)
}

const convertOperationName = "convert_security_classification"

// ConversionService runs the two-hop conversion: source marking to pivot
// level against the source nation's schema, then pivot level to each target
// nation's marking. Per-target failures never abort the whole request; the
// audit write does. Exactly one audit entry is written per conversion, and
// the conversion does not return success until that entry is durable.
type ConversionService struct {
	repo        conversionRepository
	dataObjects dataObjectReader
	schemas     schemaResolver
	audit       auditRecorder
	metrics     conversionMetrics
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         config.ConversionConfig
}

// NewConversionService constructs a ConversionService.
func NewConversionService(repo conversionRepository, dataObjects dataObjectReader, schemas schemaResolver, audit auditRecorder, metrics conversionMetrics, validate *validator.Validate, logger *zap.Logger, cfg config.ConversionConfig) *ConversionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 5 * time.Second
	}
	if cfg.FanOutLimit <= 0 {
		cfg.FanOutLimit = 8
	}
	if cfg.DuplicateTargets == "" {
		cfg.DuplicateTargets = config.DuplicateTargetsReject
	}
	return &ConversionService{
		repo:        repo,
		dataObjects: dataObjects,
		schemas:     schemas,
		audit:       audit,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
	}
}

// Convert executes one conversion request end to end. requestID is the
// caller's idempotency key; a retried request lands on the same audit entry.
func (s *ConversionService) Convert(ctx context.Context, actor *models.JWTClaims, requestID string, req dto.ConvertRequest) (*models.ConversionResult, error) {
	started := time.Now().UTC()

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conversion payload")
	}

	targets, dupErr := s.normalizeTargets(req.TargetNationCodes)
	if dupErr != nil {
		// A rejected duplicate is still a conversion attempt: it gets its
		// audit entry before the caller hears the refusal.
		result := &models.ConversionResult{
			Status:  models.ConversionStatusError,
			Targets: map[string]string{},
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.recordAudit(ctx, actor, requestID, req, result, dupErr); err != nil {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.RecordConversion(result.Status, time.Since(started))
		}
		return nil, dupErr
	}

	var asOf time.Time
	if req.AsOf != nil {
		asOf = req.AsOf.UTC()
	}

	if _, err := s.dataObjects.FindByID(ctx, req.DataObjectID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("data object %s not found", req.DataObjectID))
		}
		return nil, err
	}

	record := &models.ConversionRequest{
		CreatorID:            actor.UserID,
		AuthorityID:          actor.AuthorityID,
		DataObjectID:         req.DataObjectID,
		SourceClassification: req.SourceClassification,
		SourceNationCode:     req.SourceNationCode,
		TargetNationCodes:    models.StringList(targets),
	}
	if err := s.persist(ctx, func(pctx context.Context) error {
		return s.repo.CreateRequest(pctx, record)
	}); err != nil {
		return nil, err
	}

	result := &models.ConversionResult{
		RequestID: record.ID,
		Targets:   make(map[string]string, len(targets)),
	}

	pivot, sourceSchema, convErr := s.resolvePivot(ctx, req.SourceNationCode, req.SourceClassification, asOf)
	if convErr == nil {
		result.PivotEquivalent = pivot
		result.SourceSchemaID = sourceSchema.ID
		var targetExpiry *time.Time
		result.Failures, targetExpiry = s.fanOut(ctx, pivot, asOf, targets, result.Targets)
		result.ExpiresAt = earliestExpiry(sourceSchema.ExpiresAt, targetExpiry)

		switch {
		case len(result.Failures) == 0:
			result.Status = models.ConversionStatusSuccess
		case len(result.Targets) > 0:
			result.Status = models.ConversionStatusPartial
		default:
			result.Status = models.ConversionStatusError
		}

		if err := s.persistOutcome(ctx, record, result); err != nil {
			return nil, err
		}
	} else {
		result.Status = models.ConversionStatusError
	}

	// The audit write is the serialization point: nothing is reported to the
	// caller, success or failure, until the trail is durable. A caller that
	// walked away before this point gets no audit entry and no result.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.recordAudit(ctx, actor, requestID, req, result, convErr); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordConversion(result.Status, time.Since(started))
	}
	if convErr != nil {
		return nil, convErr
	}

	result.CompletedAt = time.Now().UTC()
	s.logger.Info("conversion completed",
		zap.String("request_id", result.RequestID),
		zap.String("source_nation", req.SourceNationCode),
		zap.String("status", result.Status),
		zap.Int("targets_resolved", len(result.Targets)),
		zap.Int("targets_failed", len(result.Failures)))
	return result, nil
}

// normalizeTargets applies the duplicate target policy. Reject is the
// default: a repeated code usually means a malformed request, and silently
// collapsing it would hide that from the caller.
func (s *ConversionService) normalizeTargets(codes []string) ([]string, error) {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		if _, dup := seen[code]; dup {
			if s.cfg.DuplicateTargets == config.DuplicateTargetsDedupe {
				continue
			}
			return nil, appErrors.Clone(appErrors.ErrDuplicateTarget, fmt.Sprintf("duplicate target nation code %s", code))
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out, nil
}

func (s *ConversionService) resolvePivot(ctx context.Context, nationCode, marking string, asOf time.Time) (models.PivotLevel, *models.ClassificationSchema, error) {
	schema, err := s.schemas.ResolveActiveAt(ctx, nationCode, asOf)
	if err != nil {
		return "", nil, err
	}
	pivot, ok := schema.ToPivot(marking)
	if !ok {
		return "", nil, appErrors.Clone(appErrors.ErrUnknownMarking,
			fmt.Sprintf("marking %q is not recognized by schema %s v%s", marking, nationCode, schema.Version))
	}
	return pivot, schema, nil
}

// fanOut resolves every target nation concurrently. A failed target becomes
// a TargetFailure instead of an error so one missing ally schema cannot sink
// the rest of the request. The second return value is the earliest expiry
// among the target schemas that resolved, for mirroring onto the response.
func (s *ConversionService) fanOut(ctx context.Context, pivot models.PivotLevel, asOf time.Time, targets []string, out map[string]string) ([]models.TargetFailure, *time.Time) {
	var mu sync.Mutex
	var failures []models.TargetFailure
	var expiry *time.Time

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.FanOutLimit)

	for _, code := range targets {
		code := code
		g.Go(func() error {
			schema, err := s.schemas.ResolveActiveAt(gctx, code, asOf)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failure := models.TargetFailure{NationCode: code, Code: appErrors.FromError(err).Code, Message: err.Error()}
				failures = append(failures, failure)
				if s.metrics != nil {
					s.metrics.RecordTargetFailure(failure.Code)
				}
				return nil
			}
			out[code] = schema.FromPivot(pivot)
			expiry = earliestExpiry(expiry, schema.ExpiresAt)
			return nil
		})
	}
	// Workers only return nil; Wait is for completion, not error collection.
	_ = g.Wait()

	sort.Slice(failures, func(i, j int) bool { return failures[i].NationCode < failures[j].NationCode })
	return failures, expiry
}

// earliestExpiry returns the sooner of two optional expiry instants.
func earliestExpiry(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.Before(*a):
		return b
	default:
		return a
	}
}

func (s *ConversionService) persistOutcome(ctx context.Context, record *models.ConversionRequest, result *models.ConversionResult) error {
	resp := &models.ConversionResponse{
		ConversionRequestID:   record.ID,
		SubjectDataID:         record.DataObjectID,
		PivotEquivalent:       result.PivotEquivalent.NATOMarking(),
		TargetClassifications: models.JSONMap(result.Targets),
		ExpiresAt:             result.ExpiresAt,
	}
	if err := s.persist(ctx, func(pctx context.Context) error {
		if err := s.repo.CreateResponse(pctx, resp); err != nil {
			return err
		}
		return s.repo.MarkCompleted(pctx, record.ID, time.Now().UTC())
	}); err != nil {
		return err
	}
	return nil
}

// persist runs a storage operation under the configured persistence timeout
// and maps a blown deadline onto the timeout taxonomy.
func (s *ConversionService) persist(ctx context.Context, fn func(context.Context) error) error {
	pctx, cancel := context.WithTimeout(ctx, s.cfg.PersistTimeout)
	defer cancel()

	if err := fn(pctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return appErrors.Wrap(err, appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, "persistence deadline exceeded")
		}
		if appErrors.Is(err, appErrors.ErrTimeout) {
			return err
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist conversion")
	}
	return nil
}

func (s *ConversionService) recordAudit(ctx context.Context, actor *models.JWTClaims, requestID string, req dto.ConvertRequest, result *models.ConversionResult, convErr error) error {
	status := models.AuditStatusSuccess
	var errMsg *string
	switch {
	case convErr != nil:
		status = models.AuditStatusError
		msg := convErr.Error()
		errMsg = &msg
	case result.Status == models.ConversionStatusPartial:
		status = models.AuditStatusPartial
	}

	variables, err := json.Marshal(req)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrAuditWriteFailed.Code, appErrors.ErrAuditWriteFailed.Status, "failed to encode audit variables")
	}

	opName := convertOperationName
	classifications := models.StringList{req.SourceClassification}
	for _, marking := range result.Targets {
		classifications = append(classifications, marking)
	}
	sort.Strings(classifications[1:])

	entry := &models.AuditLogEntry{
		UserID:                  &actor.UserID,
		UserRole:                strPointer(string(actor.Role)),
		UserAccessLevel:         strPointer(actor.AccessLevel),
		AuthorityID:             strPointer(actor.AuthorityID),
		NationCode:              strPointer(actor.NationCode),
		OperationType:           models.OperationMutation,
		OperationName:           &opName,
		OperationText:           convertOperationName,
		VariablesJSON:           variables,
		RequestID:               requestID,
		ResponseStatus:          status,
		ErrorMessage:            errMsg,
		AccessedDataObjects:     models.StringList{req.DataObjectID},
		AccessedClassifications: classifications,
	}

	// Source markings can themselves be classified, so the captured
	// variables are sealed at rest.
	return s.audit.Record(ctx, entry, true)
}

// FindRequest returns a conversion request with its response when completed.
func (s *ConversionService) FindRequest(ctx context.Context, id string) (*models.ConversionRequest, *models.ConversionResponse, error) {
	record, err := s.repo.FindRequestByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "conversion request not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conversion request")
	}
	if !record.Completed() {
		return record, nil, nil
	}
	resp, err := s.repo.FindResponseByRequest(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return record, nil, nil
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conversion response")
	}
	return record, resp, nil
}

// ListRequests returns conversion requests matching the filter.
func (s *ConversionService) ListRequests(ctx context.Context, filter models.ConversionFilter) ([]models.ConversionRequest, int, error) {
	requests, total, err := s.repo.ListRequests(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list conversion requests")
	}
	return requests, total, nil
}

func strPointer(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
