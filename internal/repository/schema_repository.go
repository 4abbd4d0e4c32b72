package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/crossmark-io/crossmark-api/internal/models"
	appErrors "github.com/crossmark-io/crossmark-api/pkg/errors"
)

const schemaColumns = `id, creator_id, nation_code,
	to_pivot_unclassified, to_pivot_restricted, to_pivot_confidential, to_pivot_secret, to_pivot_top_secret,
	from_pivot_unclassified, from_pivot_restricted, from_pivot_confidential, from_pivot_secret, from_pivot_top_secret,
	caveats, version, authority_id, created_at, updated_at, expires_at`

// SchemaRepository provides database access for classification schemas.
type SchemaRepository struct {
	db *sqlx.DB
}

// NewSchemaRepository creates a new instance of SchemaRepository.
func NewSchemaRepository(db *sqlx.DB) *SchemaRepository {
	return &SchemaRepository{db: db}
}

// Create inserts a new schema version. The (nation_code, version) pair is
// unique; a collision surfaces as a duplicate version error rather than a
// silent overwrite, because existing schemas are immutable.
func (r *SchemaRepository) Create(ctx context.Context, schema *models.ClassificationSchema) error {
	if schema.ID == "" {
		schema.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if schema.CreatedAt.IsZero() {
		schema.CreatedAt = now
	}
	schema.UpdatedAt = now

	const query = `INSERT INTO classification_schemas (id, creator_id, nation_code,
		to_pivot_unclassified, to_pivot_restricted, to_pivot_confidential, to_pivot_secret, to_pivot_top_secret,
		from_pivot_unclassified, from_pivot_restricted, from_pivot_confidential, from_pivot_secret, from_pivot_top_secret,
		caveats, version, authority_id, created_at, updated_at, expires_at)
		VALUES (:id, :creator_id, :nation_code,
		:to_pivot_unclassified, :to_pivot_restricted, :to_pivot_confidential, :to_pivot_secret, :to_pivot_top_secret,
		:from_pivot_unclassified, :from_pivot_restricted, :from_pivot_confidential, :from_pivot_secret, :from_pivot_top_secret,
		:caveats, :version, :authority_id, :created_at, :updated_at, :expires_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schema); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return appErrors.Clone(appErrors.ErrDuplicateVersion,
				fmt.Sprintf("schema version %s already exists for nation %s", schema.Version, schema.NationCode))
		}
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// FindByID returns a schema by identifier.
func (r *SchemaRepository) FindByID(ctx context.Context, id string) (*models.ClassificationSchema, error) {
	query := fmt.Sprintf(`SELECT %s FROM classification_schemas WHERE id = $1 LIMIT 1`, schemaColumns)
	var schema models.ClassificationSchema
	if err := r.db.GetContext(ctx, &schema, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find schema by id: %w", err)
	}
	return &schema, nil
}

// FindByNationAndVersion returns one exact schema version for a nation.
func (r *SchemaRepository) FindByNationAndVersion(ctx context.Context, nationCode, version string) (*models.ClassificationSchema, error) {
	query := fmt.Sprintf(`SELECT %s FROM classification_schemas WHERE nation_code = $1 AND version = $2 LIMIT 1`, schemaColumns)
	var schema models.ClassificationSchema
	if err := r.db.GetContext(ctx, &schema, query, nationCode, version); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find schema by nation and version: %w", err)
	}
	return &schema, nil
}

// FindCandidatesByNation returns every schema version registered for a
// nation, expired ones included. Version precedence is resolved in Go, not
// SQL, so the ordering rule lives in exactly one place.
func (r *SchemaRepository) FindCandidatesByNation(ctx context.Context, nationCode string) ([]models.ClassificationSchema, error) {
	query := fmt.Sprintf(`SELECT %s FROM classification_schemas WHERE nation_code = $1 ORDER BY created_at DESC`, schemaColumns)
	var schemas []models.ClassificationSchema
	if err := r.db.SelectContext(ctx, &schemas, query, nationCode); err != nil {
		return nil, fmt.Errorf("find schemas by nation: %w", err)
	}
	return schemas, nil
}

// List returns schemas based on filters with total count.
func (r *SchemaRepository) List(ctx context.Context, filter models.SchemaFilter) ([]models.ClassificationSchema, int, error) {
	baseQuery := `FROM classification_schemas WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.NationCode != "" {
		conditions = append(conditions, fmt.Sprintf("nation_code = $%d", len(args)+1))
		args = append(args, filter.NationCode)
	}
	if filter.AuthorityID != "" {
		conditions = append(conditions, fmt.Sprintf("authority_id = $%d", len(args)+1))
		args = append(args, filter.AuthorityID)
	}
	if filter.ActiveAt != nil {
		conditions = append(conditions, fmt.Sprintf("(expires_at IS NULL OR expires_at > $%d)", len(args)+1))
		args = append(args, *filter.ActiveAt)
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY nation_code ASC, created_at DESC LIMIT %d OFFSET %d", schemaColumns, baseQuery, pageSize, offset)

	var schemas []models.ClassificationSchema
	if err := r.db.SelectContext(ctx, &schemas, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list schemas: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schemas: %w", err)
	}

	return schemas, total, nil
}

// Expire stamps expires_at on a schema. The row itself is never deleted so
// historical conversions keep a resolvable schema reference.
func (r *SchemaRepository) Expire(ctx context.Context, id string, expiresAt time.Time) error {
	const query = `UPDATE classification_schemas SET expires_at = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, expiresAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("expire schema: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DistinctNationCodes lists nation codes that have at least one schema.
func (r *SchemaRepository) DistinctNationCodes(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT nation_code FROM classification_schemas ORDER BY nation_code ASC`
	var codes []string
	if err := r.db.SelectContext(ctx, &codes, query); err != nil {
		return nil, fmt.Errorf("list schema nations: %w", err)
	}
	return codes, nil
}
