package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/crossmark-io/crossmark-api/internal/models"
	"github.com/crossmark-io/crossmark-api/pkg/crypto/fieldcrypt"
)

// DataObjectRepository provides database access for data objects and their
// metadata. Sensitive columns cross this boundary sealed: SealFields runs
// before every insert and OpenFields after every scan, so plaintext never
// reaches the driver.
type DataObjectRepository struct {
	db    *sqlx.DB
	codec *fieldcrypt.Codec
}

// NewDataObjectRepository creates a new instance of DataObjectRepository.
func NewDataObjectRepository(db *sqlx.DB, codec *fieldcrypt.Codec) *DataObjectRepository {
	return &DataObjectRepository{db: db, codec: codec}
}

// Create inserts a new data object.
func (r *DataObjectRepository) Create(ctx context.Context, obj *models.DataObject) error {
	if obj.ID == "" {
		obj.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if obj.CreatedAt.IsZero() {
		obj.CreatedAt = now
	}
	obj.UpdatedAt = now

	sealed := *obj
	if err := sealed.SealFields(r.codec); err != nil {
		return err
	}

	const query = `INSERT INTO data_objects (id, creator_id, title, description, created_at, updated_at)
		VALUES (:id, :creator_id, :title, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, &sealed); err != nil {
		return fmt.Errorf("create data object: %w", err)
	}
	return nil
}

// FindByID returns a data object by identifier with fields opened.
func (r *DataObjectRepository) FindByID(ctx context.Context, id string) (*models.DataObject, error) {
	const query = `SELECT id, creator_id, title, description, created_at, updated_at FROM data_objects WHERE id = $1 LIMIT 1`
	var obj models.DataObject
	if err := r.db.GetContext(ctx, &obj, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find data object by id: %w", err)
	}
	if err := obj.OpenFields(r.codec); err != nil {
		return nil, err
	}
	return &obj, nil
}

// ListByCreator returns the creator's data objects, newest first.
func (r *DataObjectRepository) ListByCreator(ctx context.Context, creatorID string, limit int) ([]models.DataObject, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	const query = `SELECT id, creator_id, title, description, created_at, updated_at FROM data_objects WHERE creator_id = $1 ORDER BY created_at DESC LIMIT $2`
	var objs []models.DataObject
	if err := r.db.SelectContext(ctx, &objs, query, creatorID, limit); err != nil {
		return nil, fmt.Errorf("list data objects: %w", err)
	}
	for i := range objs {
		if err := objs[i].OpenFields(r.codec); err != nil {
			return nil, err
		}
	}
	return objs, nil
}

// CreateMetadata inserts a metadata record for a data object.
func (r *DataObjectRepository) CreateMetadata(ctx context.Context, meta *models.Metadata) error {
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}
	meta.UpdatedAt = now

	sealed := *meta
	if err := sealed.SealFields(r.codec); err != nil {
		return err
	}

	const query = `INSERT INTO metadata (id, data_object_id, identifier, authorization_reference, authorization_reference_date,
		originator_organization_id, custodian_organization_id, format, format_size, security_classification,
		releasable_to_countries, handling_restrictions, handling_authority, domain, tags, created_at, updated_at)
		VALUES (:id, :data_object_id, :identifier, :authorization_reference, :authorization_reference_date,
		:originator_organization_id, :custodian_organization_id, :format, :format_size, :security_classification,
		:releasable_to_countries, :handling_restrictions, :handling_authority, :domain, :tags, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, &sealed); err != nil {
		return fmt.Errorf("create metadata: %w", err)
	}
	return nil
}

// FindMetadataByDataObject returns the metadata attached to a data object.
func (r *DataObjectRepository) FindMetadataByDataObject(ctx context.Context, dataObjectID string) (*models.Metadata, error) {
	const query = `SELECT id, data_object_id, identifier, authorization_reference, authorization_reference_date,
		originator_organization_id, custodian_organization_id, format, format_size, security_classification,
		releasable_to_countries, handling_restrictions, handling_authority, domain, tags, created_at, updated_at
		FROM metadata WHERE data_object_id = $1 LIMIT 1`
	var meta models.Metadata
	if err := r.db.GetContext(ctx, &meta, query, dataObjectID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find metadata by data object: %w", err)
	}
	if err := meta.OpenFields(r.codec); err != nil {
		return nil, err
	}
	return &meta, nil
}
