package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossmark-io/crossmark-api/internal/models"
	appErrors "github.com/crossmark-io/crossmark-api/pkg/errors"
)

func newSchemaRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func schemaRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "creator_id", "nation_code",
		"to_pivot_unclassified", "to_pivot_restricted", "to_pivot_confidential", "to_pivot_secret", "to_pivot_top_secret",
		"from_pivot_unclassified", "from_pivot_restricted", "from_pivot_confidential", "from_pivot_secret", "from_pivot_top_secret",
		"caveats", "version", "authority_id", "created_at", "updated_at", "expires_at",
	})
}

func TestSchemaRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newSchemaRepoMock(t)
	defer cleanup()

	repo := NewSchemaRepository(db)
	mock.ExpectExec("INSERT INTO classification_schemas").
		WillReturnResult(sqlmock.NewResult(1, 1))

	schema := &models.ClassificationSchema{
		NationCode:            "USA",
		ToPivotUnclassified:   "UNCLASSIFIED",
		ToPivotRestricted:     "RESTRICTED",
		ToPivotConfidential:   "CONFIDENTIAL",
		ToPivotSecret:         "SECRET",
		ToPivotTopSecret:      "TOP SECRET",
		FromPivotUnclassified: "UNCLASSIFIED",
		FromPivotRestricted:   "RESTRICTED",
		FromPivotConfidential: "CONFIDENTIAL",
		FromPivotSecret:       "SECRET",
		FromPivotTopSecret:    "TOP SECRET",
		Version:               "1.0",
		AuthorityID:           "auth-1",
	}
	require.NoError(t, repo.Create(context.Background(), schema))
	assert.NotEmpty(t, schema.ID)
	assert.False(t, schema.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaRepositoryCreateDuplicateVersion(t *testing.T) {
	db, mock, cleanup := newSchemaRepoMock(t)
	defer cleanup()

	repo := NewSchemaRepository(db)
	mock.ExpectExec("INSERT INTO classification_schemas").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "classification_schemas_nation_code_version_key"})

	err := repo.Create(context.Background(), &models.ClassificationSchema{NationCode: "USA", Version: "1.0"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateVersion))
}

func TestSchemaRepositoryFindCandidatesByNation(t *testing.T) {
	db, mock, cleanup := newSchemaRepoMock(t)
	defer cleanup()

	repo := NewSchemaRepository(db)
	now := time.Now().UTC()
	rows := schemaRows().
		AddRow("s2", "u1", "USA",
			"UNCLASSIFIED", "RESTRICTED", "CONFIDENTIAL", "SECRET", "TOP SECRET",
			"UNCLASSIFIED", "RESTRICTED", "CONFIDENTIAL", "SECRET", "TOP SECRET",
			"", "2.0", "auth-1", now, now, nil).
		AddRow("s1", "u1", "USA",
			"UNCLASSIFIED", "RESTRICTED", "CONFIDENTIAL", "SECRET", "TOP SECRET",
			"UNCLASSIFIED", "RESTRICTED", "CONFIDENTIAL", "SECRET", "TOP SECRET",
			"", "1.0", "auth-1", now.Add(-time.Hour), now.Add(-time.Hour), nil)
	mock.ExpectQuery("SELECT (.+) FROM classification_schemas WHERE nation_code").
		WithArgs("USA").
		WillReturnRows(rows)

	schemas, err := repo.FindCandidatesByNation(context.Background(), "USA")
	require.NoError(t, err)
	require.Len(t, schemas, 2)
	assert.Equal(t, "2.0", schemas[0].Version)
}

func TestSchemaRepositoryExpire(t *testing.T) {
	db, mock, cleanup := newSchemaRepoMock(t)
	defer cleanup()

	repo := NewSchemaRepository(db)
	expiresAt := time.Now().UTC()
	mock.ExpectExec("UPDATE classification_schemas SET expires_at").
		WithArgs("s1", expiresAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Expire(context.Background(), "s1", expiresAt))
}

func TestSchemaRepositoryExpireMissing(t *testing.T) {
	db, mock, cleanup := newSchemaRepoMock(t)
	defer cleanup()

	repo := NewSchemaRepository(db)
	mock.ExpectExec("UPDATE classification_schemas SET expires_at").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Expire(context.Background(), "missing", time.Now().UTC())
	require.Error(t, err)
}

func TestSchemaRepositoryList(t *testing.T) {
	db, mock, cleanup := newSchemaRepoMock(t)
	defer cleanup()

	repo := NewSchemaRepository(db)
	now := time.Now().UTC()
	rows := schemaRows().
		AddRow("s1", "u1", "GBR",
			"UK UNCLASSIFIED", "UK OFFICIAL", "UK CONFIDENTIAL", "UK SECRET", "UK TOP SECRET",
			"UK UNCLASSIFIED", "UK OFFICIAL", "UK CONFIDENTIAL", "UK SECRET", "UK TOP SECRET",
			"", "1.0", "auth-2", now, now, nil)
	mock.ExpectQuery("SELECT (.+) FROM classification_schemas WHERE 1=1 AND nation_code").
		WithArgs("GBR").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("GBR").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	schemas, total, err := repo.List(context.Background(), models.SchemaFilter{NationCode: "GBR"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, schemas, 1)
	assert.Equal(t, "UK SECRET", schemas[0].FromPivotSecret)
}
