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

const auditColumns = `id, user_id, user_role, user_access_level, authority_id, nation_code,
	operation_type, operation_name, operation_text, variables_json, request_id, client_ip, user_agent,
	execution_time_ms, response_status, error_message, accessed_data_objects, accessed_classifications,
	executed_at, session_id`

// AuditRepository provides database access for the append-only audit log.
// The application only ever inserts and selects; updates and deletes are
// revoked at the database role level.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new instance of AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts an audit entry. request_id carries a unique constraint and
// the insert is ON CONFLICT DO NOTHING, so retried requests produce exactly
// one entry without failing the retry.
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.ExecutedAt.IsZero() {
		entry.ExecutedAt = time.Now().UTC()
	}

	const query = `INSERT INTO audit_log_entries (id, user_id, user_role, user_access_level, authority_id, nation_code,
		operation_type, operation_name, operation_text, variables_json, request_id, client_ip, user_agent,
		execution_time_ms, response_status, error_message, accessed_data_objects, accessed_classifications,
		executed_at, session_id)
		VALUES (:id, :user_id, :user_role, :user_access_level, :authority_id, :nation_code,
		:operation_type, :operation_name, :operation_text, :variables_json, :request_id, :client_ip, :user_agent,
		:execution_time_ms, :response_status, :error_message, :accessed_data_objects, :accessed_classifications,
		:executed_at, :session_id)
		ON CONFLICT (request_id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create audit entry: %w", err)
	}
	return nil
}

// FindByRequestID returns the audit entry recorded for a request.
func (r *AuditRepository) FindByRequestID(ctx context.Context, requestID string) (*models.AuditLogEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM audit_log_entries WHERE request_id = $1 LIMIT 1`, auditColumns)
	var entry models.AuditLogEntry
	if err := r.db.GetContext(ctx, &entry, query, requestID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find audit entry by request id: %w", err)
	}
	return &entry, nil
}

// List returns audit entries based on filters, newest first.
func (r *AuditRepository) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLogEntry, error) {
	baseQuery := `FROM audit_log_entries WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.AuthorityID != "" {
		conditions = append(conditions, fmt.Sprintf("authority_id = $%d", len(args)+1))
		args = append(args, filter.AuthorityID)
	}
	if filter.NationCode != "" {
		conditions = append(conditions, fmt.Sprintf("nation_code = $%d", len(args)+1))
		args = append(args, filter.NationCode)
	}
	if filter.RequestID != "" {
		conditions = append(conditions, fmt.Sprintf("request_id = $%d", len(args)+1))
		args = append(args, filter.RequestID)
	}
	if filter.OperationType != nil {
		conditions = append(conditions, fmt.Sprintf("operation_type = $%d", len(args)+1))
		args = append(args, *filter.OperationType)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("response_status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY executed_at DESC LIMIT %d", auditColumns, baseQuery, limit)

	var entries []models.AuditLogEntry
	if err := r.db.SelectContext(ctx, &entries, listQuery, args...); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}

// ListFailed returns recent entries whose operations ended in error.
func (r *AuditRepository) ListFailed(ctx context.Context, limit int) ([]models.AuditLogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT %s FROM audit_log_entries WHERE response_status = $1 ORDER BY executed_at DESC LIMIT %d`, auditColumns, limit)
	var entries []models.AuditLogEntry
	if err := r.db.SelectContext(ctx, &entries, query, models.AuditStatusError); err != nil {
		return nil, fmt.Errorf("list failed audit entries: %w", err)
	}
	return entries, nil
}

// CountByStatus aggregates entry counts per response status within a window.
func (r *AuditRepository) CountByStatus(ctx context.Context, since time.Time) (map[string]int, error) {
	const query = `SELECT response_status, COUNT(*) AS total FROM audit_log_entries WHERE executed_at >= $1 GROUP BY response_status`
	rows := []struct {
		Status string `db:"response_status"`
		Total  int    `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("count audit entries by status: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
