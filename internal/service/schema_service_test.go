package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossmark-io/crossmark-api/internal/dto"
	"github.com/crossmark-io/crossmark-api/internal/models"
	appErrors "github.com/crossmark-io/crossmark-api/pkg/errors"
)

type schemaRepoStub struct {
	schemas         []models.ClassificationSchema
	createErr       error
	created         []*models.ClassificationSchema
	expired         map[string]time.Time
	candidatesStall bool
}

func (s *schemaRepoStub) Create(ctx context.Context, schema *models.ClassificationSchema) error {
	if s.createErr != nil {
		return s.createErr
	}
	if schema.ID == "" {
		schema.ID = "schema-created"
	}
	s.created = append(s.created, schema)
	s.schemas = append(s.schemas, *schema)
	return nil
}

func (s *schemaRepoStub) FindByID(ctx context.Context, id string) (*models.ClassificationSchema, error) {
	for i := range s.schemas {
		if s.schemas[i].ID == id {
			return &s.schemas[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *schemaRepoStub) FindByNationAndVersion(ctx context.Context, nationCode, version string) (*models.ClassificationSchema, error) {
	for i := range s.schemas {
		if s.schemas[i].NationCode == nationCode && s.schemas[i].Version == version {
			return &s.schemas[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *schemaRepoStub) FindCandidatesByNation(ctx context.Context, nationCode string) ([]models.ClassificationSchema, error) {
	if s.candidatesStall {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	var out []models.ClassificationSchema
	for _, schema := range s.schemas {
		if schema.NationCode == nationCode {
			out = append(out, schema)
		}
	}
	return out, nil
}

func (s *schemaRepoStub) List(ctx context.Context, filter models.SchemaFilter) ([]models.ClassificationSchema, int, error) {
	return s.schemas, len(s.schemas), nil
}

func (s *schemaRepoStub) Expire(ctx context.Context, id string, expiresAt time.Time) error {
	if s.expired == nil {
		s.expired = map[string]time.Time{}
	}
	s.expired[id] = expiresAt
	return nil
}

func (s *schemaRepoStub) DistinctNationCodes(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	var codes []string
	for _, schema := range s.schemas {
		if _, ok := seen[schema.NationCode]; !ok {
			seen[schema.NationCode] = struct{}{}
			codes = append(codes, schema.NationCode)
		}
	}
	return codes, nil
}

type cacheStub struct {
	values  map[string][]byte
	gets    int
	sets    int
	deletes int
}

func (c *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	c.gets++
	return appErrors.ErrCacheMiss
}

func (c *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.sets++
	return nil
}

func (c *cacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	c.deletes++
	return nil
}

func registerReq(nation, version string) dto.RegisterSchemaRequest {
	return dto.RegisterSchemaRequest{
		NationCode:            nation,
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
		Version:               version,
		AuthorityID:           "6ba7b810-9dad-41d1-80b4-00c04fd430c8",
	}
}

func TestSchemaServiceRegister(t *testing.T) {
	repo := &schemaRepoStub{}
	cache := &cacheStub{}
	svc := NewSchemaService(repo, cache, nil, nil, nil, SchemaServiceConfig{})

	schema, err := svc.Register(context.Background(), "user-1", registerReq("USA", "1.0"))
	require.NoError(t, err)
	assert.Equal(t, "USA", schema.NationCode)
	assert.Equal(t, "user-1", schema.CreatorID)
	// A new version invalidates the nation's cached resolution.
	assert.Equal(t, 1, cache.deletes)
}

func TestSchemaServiceRegisterIncompleteMapping(t *testing.T) {
	repo := &schemaRepoStub{}
	svc := NewSchemaService(repo, nil, nil, nil, nil, SchemaServiceConfig{})

	req := registerReq("USA", "1.0")
	req.FromPivotSecret = "   "
	_, err := svc.Register(context.Background(), "user-1", req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrIncompleteMapping))
	assert.Empty(t, repo.created)
}

func TestSchemaServiceRegisterDuplicateVersionPassthrough(t *testing.T) {
	repo := &schemaRepoStub{createErr: appErrors.Clone(appErrors.ErrDuplicateVersion, "")}
	svc := NewSchemaService(repo, nil, nil, nil, nil, SchemaServiceConfig{})

	_, err := svc.Register(context.Background(), "user-1", registerReq("USA", "1.0"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateVersion))
}

func TestSchemaServiceResolveActivePrefersHighestVersion(t *testing.T) {
	now := time.Now().UTC()
	repo := &schemaRepoStub{schemas: []models.ClassificationSchema{
		{ID: "v1", NationCode: "USA", Version: "1.0", CreatedAt: now.Add(-48 * time.Hour)},
		{ID: "v2", NationCode: "USA", Version: "2.0", CreatedAt: now.Add(-24 * time.Hour)},
	}}
	cache := &cacheStub{}
	svc := NewSchemaService(repo, cache, nil, nil, nil, SchemaServiceConfig{})

	schema, err := svc.ResolveActive(context.Background(), "USA")
	require.NoError(t, err)
	assert.Equal(t, "v2", schema.ID)
	assert.Equal(t, 1, cache.gets)
	assert.Equal(t, 1, cache.sets)
}

func TestSchemaServiceResolveActiveNoSchemas(t *testing.T) {
	svc := NewSchemaService(&schemaRepoStub{}, nil, nil, nil, nil, SchemaServiceConfig{})

	_, err := svc.ResolveActive(context.Background(), "FRA")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrSchemaUnavailable))
}

func TestSchemaServiceResolveActiveAllExpired(t *testing.T) {
	expired := time.Now().UTC().Add(-time.Hour)
	repo := &schemaRepoStub{schemas: []models.ClassificationSchema{
		{ID: "v1", NationCode: "USA", Version: "1.0", ExpiresAt: &expired},
	}}
	svc := NewSchemaService(repo, nil, nil, nil, nil, SchemaServiceConfig{})

	_, err := svc.ResolveActive(context.Background(), "USA")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNoActiveSchema))
}

func TestSchemaServiceResolveActiveAtPinnedInstant(t *testing.T) {
	now := time.Now().UTC()
	retired := now.Add(-24 * time.Hour)
	repo := &schemaRepoStub{schemas: []models.ClassificationSchema{
		{ID: "v1", NationCode: "USA", Version: "1.0", CreatedAt: now.Add(-72 * time.Hour), ExpiresAt: &retired},
		{ID: "v2", NationCode: "USA", Version: "2.0", CreatedAt: now.Add(-12 * time.Hour)},
	}}
	cache := &cacheStub{}
	svc := NewSchemaService(repo, cache, nil, nil, nil, SchemaServiceConfig{})

	// At an instant before v1 retired and before v2 existed, v1 wins.
	schema, err := svc.ResolveActiveAt(context.Background(), "USA", now.Add(-48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "v1", schema.ID)
	// Pinned lookups never touch the cache; it only holds the current winner.
	assert.Equal(t, 0, cache.gets)
	assert.Equal(t, 0, cache.sets)

	// Resolving the same nation now still lands on v2.
	schema, err = svc.ResolveActive(context.Background(), "USA")
	require.NoError(t, err)
	assert.Equal(t, "v2", schema.ID)
}

func TestSchemaServiceResolveLookupTimeout(t *testing.T) {
	repo := &schemaRepoStub{candidatesStall: true}
	svc := NewSchemaService(repo, nil, nil, nil, nil, SchemaServiceConfig{
		LookupTimeout: 10 * time.Millisecond,
	})

	_, err := svc.ResolveActive(context.Background(), "USA")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrTimeout))
}

func TestSchemaServiceExpire(t *testing.T) {
	repo := &schemaRepoStub{schemas: []models.ClassificationSchema{
		{ID: "v1", NationCode: "USA", Version: "1.0"},
	}}
	cache := &cacheStub{}
	svc := NewSchemaService(repo, cache, nil, nil, nil, SchemaServiceConfig{})

	schema, err := svc.Expire(context.Background(), "v1", dto.ExpireSchemaRequest{})
	require.NoError(t, err)
	require.NotNil(t, schema.ExpiresAt)
	assert.Contains(t, repo.expired, "v1")
	assert.Equal(t, 1, cache.deletes)
}

func TestSchemaServiceExpireNotFound(t *testing.T) {
	svc := NewSchemaService(&schemaRepoStub{}, nil, nil, nil, nil, SchemaServiceConfig{})

	_, err := svc.Expire(context.Background(), "missing", dto.ExpireSchemaRequest{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
