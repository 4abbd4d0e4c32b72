package service

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/crossmark-io/crossmark-api/internal/dto"
	"github.com/crossmark-io/crossmark-api/internal/models"
	"github.com/crossmark-io/crossmark-api/pkg/crypto/fieldcrypt"
	appErrors "github.com/crossmark-io/crossmark-api/pkg/errors"
)

type auditRepository interface {
	Create(ctx context.Context, entry *models.AuditLogEntry) error
	FindByRequestID(ctx context.Context, requestID string) (*models.AuditLogEntry, error)
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLogEntry, error)
	ListFailed(ctx context.Context, limit int) ([]models.AuditLogEntry, error)
	CountByStatus(ctx context.Context, since time.Time) (map[string]int, error)
}

type auditWriteMetrics interface {
	RecordAuditWrite(ok bool)
}

// AuditService records and queries the append-only audit trail. A failed
// write is never swallowed: callers that require the audit guarantee must
// fail their own operation when Record returns an error.
type AuditService struct {
	repo    auditRepository
	codec   *fieldcrypt.Codec
	metrics auditWriteMetrics
	logger  *zap.Logger
}

// NewAuditService constructs an AuditService.
func NewAuditService(repo auditRepository, codec *fieldcrypt.Codec, metrics auditWriteMetrics, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, codec: codec, metrics: metrics, logger: logger}
}

// Record writes one audit entry. When sealVariables is set the captured
// operation variables are encrypted before they touch the database, for
// operations whose inputs are themselves classified.
func (s *AuditService) Record(ctx context.Context, entry *models.AuditLogEntry, sealVariables bool) error {
	if !entry.OperationType.Valid() {
		entry.OperationType = models.OperationQuery
	}

	if sealVariables && len(entry.VariablesJSON) > 0 && s.codec != nil {
		sealed, err := s.codec.Seal(string(entry.VariablesJSON))
		if err != nil {
			s.logger.Error("audit variable sealing failed",
				zap.String("marker", "security"),
				zap.String("request_id", entry.RequestID),
				zap.String("operation", entry.OperationText),
				zap.Error(err))
			return appErrors.Wrap(err, appErrors.ErrAuditWriteFailed.Code, appErrors.ErrAuditWriteFailed.Status, "failed to seal audit variables")
		}
		entry.VariablesJSON = []byte(sealed)
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		if s.metrics != nil {
			s.metrics.RecordAuditWrite(false)
		}
		s.logger.Error("audit write failed",
			zap.String("marker", "security"),
			zap.String("request_id", entry.RequestID),
			zap.String("operation", entry.OperationText),
			zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrAuditWriteFailed.Code, appErrors.ErrAuditWriteFailed.Status, "audit trail could not be written")
	}
	if s.metrics != nil {
		s.metrics.RecordAuditWrite(true)
	}
	return nil
}

// FindByRequestID returns the single entry recorded for a request.
func (s *AuditService) FindByRequestID(ctx context.Context, requestID string) (*models.AuditLogEntry, error) {
	entry, err := s.repo.FindByRequestID(ctx, requestID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no audit entry for request")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit entry")
	}
	return entry, nil
}

// Query returns audit entries matching the request filters, newest first.
func (s *AuditService) Query(ctx context.Context, req dto.AuditQueryRequest) ([]models.AuditLogEntry, error) {
	filter := models.AuditFilter{
		UserID:      req.UserID,
		AuthorityID: req.AuthorityID,
		NationCode:  req.NationCode,
		RequestID:   req.RequestID,
		Status:      req.Status,
		Limit:       req.Limit,
	}
	if req.OperationType != "" {
		opType := models.OperationType(req.OperationType)
		if !opType.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown operation type")
		}
		filter.OperationType = &opType
	}

	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to query audit entries")
	}
	return entries, nil
}

// RecentFailures returns the latest entries whose operations errored.
func (s *AuditService) RecentFailures(ctx context.Context, limit int) ([]models.AuditLogEntry, error) {
	entries, err := s.repo.ListFailed(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to query failed audit entries")
	}
	return entries, nil
}

// Summary aggregates entry counts per outcome over the trailing window.
func (s *AuditService) Summary(ctx context.Context, windowHours int) (*dto.AuditSummary, error) {
	if windowHours <= 0 {
		windowHours = 24
	}
	since := time.Now().UTC().Add(-time.Duration(windowHours) * time.Hour)
	counts, err := s.repo.CountByStatus(ctx, since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarize audit entries")
	}
	return &dto.AuditSummary{WindowHours: windowHours, Totals: counts}, nil
}
