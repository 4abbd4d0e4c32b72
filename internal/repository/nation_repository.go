package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/crossmark-io/crossmark-api/internal/models"
	appErrors "github.com/crossmark-io/crossmark-api/pkg/errors"
)

// NationRepository provides database access for nations and authorities.
type NationRepository struct {
	db *sqlx.DB
}

// NewNationRepository creates a new instance of NationRepository.
func NewNationRepository(db *sqlx.DB) *NationRepository {
	return &NationRepository{db: db}
}

// CreateNation inserts a nation reference row.
func (r *NationRepository) CreateNation(ctx context.Context, nation *models.Nation) error {
	if nation.ID == "" {
		nation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if nation.CreatedAt.IsZero() {
		nation.CreatedAt = now
	}
	nation.UpdatedAt = now

	const query = `INSERT INTO nations (id, creator_id, nation_code, nation_name, created_at, updated_at)
		VALUES (:id, :creator_id, :nation_code, :nation_name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, nation); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("nation %s already registered", nation.NationCode))
		}
		return fmt.Errorf("create nation: %w", err)
	}
	return nil
}

// FindNationByCode returns a nation by its alpha-3 code.
func (r *NationRepository) FindNationByCode(ctx context.Context, code string) (*models.Nation, error) {
	const query = `SELECT id, creator_id, nation_code, nation_name, created_at, updated_at FROM nations WHERE nation_code = $1 LIMIT 1`
	var nation models.Nation
	if err := r.db.GetContext(ctx, &nation, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find nation by code: %w", err)
	}
	return &nation, nil
}

// ListNations returns all nations ordered by code.
func (r *NationRepository) ListNations(ctx context.Context) ([]models.Nation, error) {
	const query = `SELECT id, creator_id, nation_code, nation_name, created_at, updated_at FROM nations ORDER BY nation_code ASC`
	var nations []models.Nation
	if err := r.db.SelectContext(ctx, &nations, query); err != nil {
		return nil, fmt.Errorf("list nations: %w", err)
	}
	return nations, nil
}

// CreateAuthority inserts an authority.
func (r *NationRepository) CreateAuthority(ctx context.Context, authority *models.Authority) error {
	if authority.ID == "" {
		authority.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if authority.CreatedAt.IsZero() {
		authority.CreatedAt = now
	}
	authority.UpdatedAt = now

	const query = `INSERT INTO authorities (id, creator_id, nation_id, name, email, phone, created_at, updated_at, expires_at)
		VALUES (:id, :creator_id, :nation_id, :name, :email, :phone, :created_at, :updated_at, :expires_at)`
	if _, err := r.db.NamedExecContext(ctx, query, authority); err != nil {
		return fmt.Errorf("create authority: %w", err)
	}
	return nil
}

// FindAuthorityByID returns an authority by identifier.
func (r *NationRepository) FindAuthorityByID(ctx context.Context, id string) (*models.Authority, error) {
	const query = `SELECT id, creator_id, nation_id, name, email, phone, created_at, updated_at, expires_at FROM authorities WHERE id = $1 LIMIT 1`
	var authority models.Authority
	if err := r.db.GetContext(ctx, &authority, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find authority by id: %w", err)
	}
	return &authority, nil
}

// ListAuthoritiesByNation returns the authorities accredited for a nation,
// addressed by its ISO alpha-3 code.
func (r *NationRepository) ListAuthoritiesByNation(ctx context.Context, nationCode string) ([]models.Authority, error) {
	const query = `SELECT a.id, a.creator_id, a.nation_id, a.name, a.email, a.phone, a.created_at, a.updated_at, a.expires_at FROM authorities a JOIN nations n ON n.id = a.nation_id WHERE n.code = $1 ORDER BY a.name ASC`
	var authorities []models.Authority
	if err := r.db.SelectContext(ctx, &authorities, query, nationCode); err != nil {
		return nil, fmt.Errorf("list authorities by nation: %w", err)
	}
	return authorities, nil
}
