package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossmark-io/crossmark-api/internal/models"
)

func newAuditRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestAuditRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newAuditRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	mock.ExpectExec("INSERT INTO audit_log_entries").
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.AuditLogEntry{
		OperationType:  models.OperationMutation,
		OperationText:  "convert_security_classification",
		RequestID:      "req-1",
		ResponseStatus: models.AuditStatusSuccess,
	}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.ExecutedAt.IsZero())
}

func TestAuditRepositoryCreateDuplicateRequestID(t *testing.T) {
	db, mock, cleanup := newAuditRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	// ON CONFLICT DO NOTHING: the retry inserts zero rows but does not fail.
	mock.ExpectExec("INSERT INTO audit_log_entries").
		WillReturnResult(sqlmock.NewResult(0, 0))

	entry := &models.AuditLogEntry{
		OperationType:  models.OperationMutation,
		OperationText:  "convert_security_classification",
		RequestID:      "req-1",
		ResponseStatus: models.AuditStatusSuccess,
	}
	require.NoError(t, repo.Create(context.Background(), entry))
}

func TestAuditRepositoryListFiltersByUser(t *testing.T) {
	db, mock, cleanup := newAuditRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	now := time.Now().UTC()
	userID := "user-1"
	role := "ANALYST"
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "user_role", "user_access_level", "authority_id", "nation_code",
		"operation_type", "operation_name", "operation_text", "variables_json", "request_id", "client_ip", "user_agent",
		"execution_time_ms", "response_status", "error_message", "accessed_data_objects", "accessed_classifications",
		"executed_at", "session_id",
	}).AddRow(
		"a1", &userID, &role, nil, nil, nil,
		"mutation", nil, "convert_security_classification", nil, "req-1", nil, nil,
		nil, "success", nil, nil, nil,
		now, nil,
	)
	mock.ExpectQuery("SELECT (.+) FROM audit_log_entries WHERE 1=1 AND user_id").
		WithArgs(userID).
		WillReturnRows(rows)

	entries, err := repo.List(context.Background(), models.AuditFilter{UserID: userID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-1", entries[0].RequestID)
	assert.Equal(t, "ANALYST", *entries[0].UserRole)
}

func TestAuditRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newAuditRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	rows := sqlmock.NewRows([]string{"response_status", "total"}).
		AddRow("success", 40).
		AddRow("partial", 7).
		AddRow("error", 3)
	mock.ExpectQuery("SELECT response_status, COUNT").
		WillReturnRows(rows)

	counts, err := repo.CountByStatus(context.Background(), time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 40, counts["success"])
	assert.Equal(t, 7, counts["partial"])
	assert.Equal(t, 3, counts["error"])
}
