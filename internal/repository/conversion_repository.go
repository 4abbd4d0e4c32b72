package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/crossmark-io/crossmark-api/internal/models"
)

const conversionRequestColumns = `id, creator_id, authority_id, data_object_id, source_classification,
	source_nation_code, target_nation_codes, created_at, updated_at, completed_at`

// ConversionRepository provides database access for conversion requests and
// their responses. Both tables are append-only from the application's point
// of view; the only mutation is stamping completed_at on the request.
type ConversionRepository struct {
	db *sqlx.DB
}

// NewConversionRepository creates a new instance of ConversionRepository.
func NewConversionRepository(db *sqlx.DB) *ConversionRepository {
	return &ConversionRepository{db: db}
}

// CreateRequest inserts the record of intent before any mapping work starts.
func (r *ConversionRepository) CreateRequest(ctx context.Context, req *models.ConversionRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now

	const query = `INSERT INTO conversion_requests (id, creator_id, authority_id, data_object_id, source_classification,
		source_nation_code, target_nation_codes, created_at, updated_at, completed_at)
		VALUES (:id, :creator_id, :authority_id, :data_object_id, :source_classification,
		:source_nation_code, :target_nation_codes, :created_at, :updated_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create conversion request: %w", err)
	}
	return nil
}

// FindRequestByID returns a conversion request by identifier.
func (r *ConversionRepository) FindRequestByID(ctx context.Context, id string) (*models.ConversionRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM conversion_requests WHERE id = $1 LIMIT 1`, conversionRequestColumns)
	var req models.ConversionRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find conversion request by id: %w", err)
	}
	return &req, nil
}

// MarkCompleted stamps completed_at once every target has been resolved or
// failed terminally.
func (r *ConversionRepository) MarkCompleted(ctx context.Context, id string, completedAt time.Time) error {
	const query = `UPDATE conversion_requests SET completed_at = $2, updated_at = $3 WHERE id = $1 AND completed_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, completedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark conversion request completed: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateResponse inserts the persisted outcome for a request.
func (r *ConversionRepository) CreateResponse(ctx context.Context, resp *models.ConversionResponse) error {
	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if resp.CreatedAt.IsZero() {
		resp.CreatedAt = now
	}
	resp.UpdatedAt = now

	const query = `INSERT INTO conversion_responses (id, conversion_request_id, subject_data_id, pivot_equivalent,
		target_classifications, created_at, updated_at, expires_at)
		VALUES (:id, :conversion_request_id, :subject_data_id, :pivot_equivalent,
		:target_classifications, :created_at, :updated_at, :expires_at)`
	if _, err := r.db.NamedExecContext(ctx, query, resp); err != nil {
		return fmt.Errorf("create conversion response: %w", err)
	}
	return nil
}

// FindResponseByRequest returns the response recorded for a request.
func (r *ConversionRepository) FindResponseByRequest(ctx context.Context, requestID string) (*models.ConversionResponse, error) {
	const query = `SELECT id, conversion_request_id, subject_data_id, pivot_equivalent, target_classifications,
		created_at, updated_at, expires_at FROM conversion_responses WHERE conversion_request_id = $1 LIMIT 1`
	var resp models.ConversionResponse
	if err := r.db.GetContext(ctx, &resp, query, requestID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find conversion response by request: %w", err)
	}
	return &resp, nil
}

// ListRequests returns conversion requests based on filters with total count.
func (r *ConversionRepository) ListRequests(ctx context.Context, filter models.ConversionFilter) ([]models.ConversionRequest, int, error) {
	baseQuery := `FROM conversion_requests WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.CreatorID != "" {
		conditions = append(conditions, fmt.Sprintf("creator_id = $%d", len(args)+1))
		args = append(args, filter.CreatorID)
	}
	if filter.AuthorityID != "" {
		conditions = append(conditions, fmt.Sprintf("authority_id = $%d", len(args)+1))
		args = append(args, filter.AuthorityID)
	}
	if filter.SourceNationCode != "" {
		conditions = append(conditions, fmt.Sprintf("source_nation_code = $%d", len(args)+1))
		args = append(args, filter.SourceNationCode)
	}
	if filter.TargetNationCode != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(target_nation_codes)", len(args)+1))
		args = append(args, filter.TargetNationCode)
	}
	if filter.Pending != nil {
		if *filter.Pending {
			conditions = append(conditions, "completed_at IS NULL")
		} else {
			conditions = append(conditions, "completed_at IS NOT NULL")
		}
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", conversionRequestColumns, baseQuery, pageSize, offset)

	var requests []models.ConversionRequest
	if err := r.db.SelectContext(ctx, &requests, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list conversion requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count conversion requests: %w", err)
	}

	return requests, total, nil
}
