package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/crossmark-io/crossmark-api/internal/dto"
	"github.com/crossmark-io/crossmark-api/internal/models"
	"github.com/crossmark-io/crossmark-api/pkg/config"
	"github.com/crossmark-io/crossmark-api/pkg/crypto/fieldcrypt"
	appErrors "github.com/crossmark-io/crossmark-api/pkg/errors"
)

type auditRepoStub struct {
	entries   []*models.AuditLogEntry
	createErr error
	counts    map[string]int
}

func (s *auditRepoStub) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *auditRepoStub) FindByRequestID(ctx context.Context, requestID string) (*models.AuditLogEntry, error) {
	for _, entry := range s.entries {
		if entry.RequestID == requestID {
			return entry, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *auditRepoStub) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLogEntry, error) {
	out := make([]models.AuditLogEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, *entry)
	}
	return out, nil
}

func (s *auditRepoStub) ListFailed(ctx context.Context, limit int) ([]models.AuditLogEntry, error) {
	var out []models.AuditLogEntry
	for _, entry := range s.entries {
		if entry.ResponseStatus == models.AuditStatusError {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (s *auditRepoStub) CountByStatus(ctx context.Context, since time.Time) (map[string]int, error) {
	return s.counts, nil
}

func testCodec(t *testing.T) *fieldcrypt.Codec {
	t.Helper()
	codec, err := fieldcrypt.New(config.EncryptionConfig{Key: bytes.Repeat([]byte{0x17}, config.MasterKeySize)})
	require.NoError(t, err)
	return codec
}

func TestAuditServiceRecordSealsVariables(t *testing.T) {
	repo := &auditRepoStub{}
	codec := testCodec(t)
	svc := NewAuditService(repo, codec, nil, nil)

	variables, _ := json.Marshal(map[string]string{"source_classification": "SECRET"})
	entry := &models.AuditLogEntry{
		OperationType:  models.OperationMutation,
		OperationText:  "convert_security_classification",
		RequestID:      "req-1",
		ResponseStatus: models.AuditStatusSuccess,
		VariablesJSON:  variables,
	}
	require.NoError(t, svc.Record(context.Background(), entry, true))

	require.Len(t, repo.entries, 1)
	stored := repo.entries[0].VariablesJSON
	assert.NotEqual(t, variables, stored)

	opened, err := codec.Open(string(stored))
	require.NoError(t, err)
	assert.JSONEq(t, string(variables), opened)
}

func TestAuditServiceRecordPlainVariables(t *testing.T) {
	repo := &auditRepoStub{}
	svc := NewAuditService(repo, testCodec(t), nil, nil)

	variables, _ := json.Marshal(map[string]string{"limit": "10"})
	entry := &models.AuditLogEntry{
		OperationType:  models.OperationQuery,
		OperationText:  "list_schemas",
		RequestID:      "req-2",
		ResponseStatus: models.AuditStatusSuccess,
		VariablesJSON:  variables,
	}
	require.NoError(t, svc.Record(context.Background(), entry, false))
	assert.Equal(t, variables, repo.entries[0].VariablesJSON)
}

func TestAuditServiceRecordWriteFailure(t *testing.T) {
	repo := &auditRepoStub{createErr: errors.New("relation does not exist")}
	core, logs := observer.New(zapcore.ErrorLevel)
	svc := NewAuditService(repo, nil, nil, zap.New(core))

	entry := &models.AuditLogEntry{
		OperationType:  models.OperationMutation,
		OperationText:  "convert_security_classification",
		RequestID:      "req-3",
		ResponseStatus: models.AuditStatusSuccess,
	}
	err := svc.Record(context.Background(), entry, false)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrAuditWriteFailed))

	// A dropped trail entry is a security event, not a quiet retry.
	marked := logs.FilterMessage("audit write failed").FilterField(zap.String("marker", "security"))
	require.Equal(t, 1, marked.Len())
	assert.Equal(t, zapcore.ErrorLevel, marked.All()[0].Level)
}

func TestAuditServiceQueryRejectsUnknownOperationType(t *testing.T) {
	svc := NewAuditService(&auditRepoStub{}, nil, nil, nil)

	_, err := svc.Query(context.Background(), dto.AuditQueryRequest{OperationType: "upsert"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAuditServiceSummary(t *testing.T) {
	repo := &auditRepoStub{counts: map[string]int{"success": 12, "error": 2}}
	svc := NewAuditService(repo, nil, nil, nil)

	summary, err := svc.Summary(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 24, summary.WindowHours)
	assert.Equal(t, 12, summary.Totals["success"])
}

func TestAuditServiceFindByRequestID(t *testing.T) {
	repo := &auditRepoStub{}
	svc := NewAuditService(repo, nil, nil, nil)

	entry := &models.AuditLogEntry{
		OperationType:  models.OperationMutation,
		OperationText:  "convert_security_classification",
		RequestID:      "req-4",
		ResponseStatus: models.AuditStatusSuccess,
	}
	require.NoError(t, svc.Record(context.Background(), entry, false))

	found, err := svc.FindByRequestID(context.Background(), "req-4")
	require.NoError(t, err)
	assert.Equal(t, "req-4", found.RequestID)

	_, err = svc.FindByRequestID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
