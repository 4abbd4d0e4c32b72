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

func newConversionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestConversionRepositoryCreateRequest(t *testing.T) {
	db, mock, cleanup := newConversionRepoMock(t)
	defer cleanup()

	repo := NewConversionRepository(db)
	mock.ExpectExec("INSERT INTO conversion_requests").
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := &models.ConversionRequest{
		CreatorID:            "u1",
		AuthorityID:          "auth-1",
		DataObjectID:         "d1",
		SourceClassification: "SECRET",
		SourceNationCode:     "USA",
		TargetNationCodes:    models.StringList{"GBR", "FRA"},
	}
	require.NoError(t, repo.CreateRequest(context.Background(), req))
	assert.NotEmpty(t, req.ID)
	assert.Nil(t, req.CompletedAt)
}

func TestConversionRepositoryCreateResponse(t *testing.T) {
	db, mock, cleanup := newConversionRepoMock(t)
	defer cleanup()

	repo := NewConversionRepository(db)
	mock.ExpectExec("INSERT INTO conversion_responses").
		WillReturnResult(sqlmock.NewResult(1, 1))

	resp := &models.ConversionResponse{
		ConversionRequestID:   "req-1",
		SubjectDataID:         "d1",
		PivotEquivalent:       "NATO SECRET",
		TargetClassifications: models.JSONMap{"GBR": "UK SECRET"},
	}
	require.NoError(t, repo.CreateResponse(context.Background(), resp))
	assert.NotEmpty(t, resp.ID)
}

func TestConversionRepositoryMarkCompleted(t *testing.T) {
	db, mock, cleanup := newConversionRepoMock(t)
	defer cleanup()

	repo := NewConversionRepository(db)
	completedAt := time.Now().UTC()
	mock.ExpectExec("UPDATE conversion_requests SET completed_at").
		WithArgs("req-1", completedAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkCompleted(context.Background(), "req-1", completedAt))
}

func TestConversionRepositoryMarkCompletedIsIdempotentGuarded(t *testing.T) {
	db, mock, cleanup := newConversionRepoMock(t)
	defer cleanup()

	repo := NewConversionRepository(db)
	// A second completion attempt matches zero rows because the WHERE clause
	// requires completed_at IS NULL.
	mock.ExpectExec("UPDATE conversion_requests SET completed_at").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkCompleted(context.Background(), "req-1", time.Now().UTC())
	require.Error(t, err)
}

func TestConversionRepositoryListRequestsPendingFilter(t *testing.T) {
	db, mock, cleanup := newConversionRepoMock(t)
	defer cleanup()

	repo := NewConversionRepository(db)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "creator_id", "authority_id", "data_object_id", "source_classification",
		"source_nation_code", "target_nation_codes", "created_at", "updated_at", "completed_at",
	}).AddRow("req-1", "u1", "auth-1", "d1", "SECRET", "USA", "{GBR,FRA}", now, now, nil)

	mock.ExpectQuery("SELECT (.+) FROM conversion_requests WHERE 1=1 AND completed_at IS NULL").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	pending := true
	requests, total, err := repo.ListRequests(context.Background(), models.ConversionFilter{Pending: &pending})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, requests, 1)
	assert.Equal(t, models.StringList{"GBR", "FRA"}, requests[0].TargetNationCodes)
	assert.False(t, requests[0].Completed())
}
