package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crossmark-io/crossmark-api/internal/dto"
	"github.com/crossmark-io/crossmark-api/internal/models"
	appErrors "github.com/crossmark-io/crossmark-api/pkg/errors"
)

type exportAuditStub struct {
	entries []models.AuditLogEntry
	err     error
}

func (s *exportAuditStub) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLogEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.entries, nil
}

type exportSchemaStub struct {
	schemas []models.ClassificationSchema
}

func (s *exportSchemaStub) List(ctx context.Context, filter models.SchemaFilter) ([]models.ClassificationSchema, int, error) {
	return s.schemas, len(s.schemas), nil
}

func exportEntry(requestID, status string, classifications ...string) models.AuditLogEntry {
	user := "user-7"
	role := "ANALYST"
	nation := "USA"
	return models.AuditLogEntry{
		RequestID:               requestID,
		OperationText:           "convert_security_classification",
		UserID:                  &user,
		UserRole:                &role,
		NationCode:              &nation,
		ResponseStatus:          status,
		AccessedClassifications: models.StringList(classifications),
		ExecutedAt:              time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func newExportServiceForTest(audit exportAuditReader, schemas exportSchemaReader) *ExportService {
	return NewExportService(audit, schemas, nil, nil, zap.NewNop())
}

func TestExportServiceAuditCSV(t *testing.T) {
	audit := &exportAuditStub{entries: []models.AuditLogEntry{
		exportEntry("rid-1", models.AuditStatusSuccess, "SECRET", "UK SECRET"),
		exportEntry("rid-2", models.AuditStatusError),
	}}
	svc := newExportServiceForTest(audit, &exportSchemaStub{})

	payload, filename, err := svc.AuditCSV(context.Background(), dto.AuditQueryRequest{})
	require.NoError(t, err)
	require.Greater(t, len(payload), 0)
	require.Contains(t, filename, "audit-report-")
	require.Contains(t, filename, ".csv")
	require.Contains(t, string(payload), "rid-1")
	require.Contains(t, string(payload), "convert_security_classification")
}

func TestExportServiceAuditPDF(t *testing.T) {
	audit := &exportAuditStub{entries: []models.AuditLogEntry{
		exportEntry("rid-1", models.AuditStatusSuccess, "NATO SECRET"),
	}}
	svc := newExportServiceForTest(audit, &exportSchemaStub{})

	payload, filename, err := svc.AuditPDF(context.Background(), dto.AuditQueryRequest{})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(payload, []byte("%PDF")))
	require.Contains(t, filename, ".pdf")
}

func TestExportServiceRejectsUnknownOperationType(t *testing.T) {
	svc := newExportServiceForTest(&exportAuditStub{}, &exportSchemaStub{})

	_, _, err := svc.AuditCSV(context.Background(), dto.AuditQueryRequest{OperationType: "replication"})
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestExportServiceSchemaCoverageCSV(t *testing.T) {
	now := time.Now().UTC()
	expired := now.Add(-time.Hour)
	schemas := &exportSchemaStub{schemas: []models.ClassificationSchema{
		{NationCode: "USA", Version: "2.1", CreatedAt: now.Add(-48 * time.Hour)},
		{NationCode: "FRA", Version: "1.0", CreatedAt: now.Add(-96 * time.Hour), ExpiresAt: &expired},
	}}
	svc := newExportServiceForTest(&exportAuditStub{}, schemas)

	payload, filename, err := svc.SchemaCoverageCSV(context.Background())
	require.NoError(t, err)
	require.Contains(t, filename, "schema-coverage-")
	body := string(payload)
	require.Contains(t, body, "USA")
	require.Contains(t, body, "active")
	require.Contains(t, body, "expired")
}

func TestReportBanner(t *testing.T) {
	cases := []struct {
		name     string
		markings []string
		want     string
	}{
		{name: "no markings", markings: nil, want: "UNCLASSIFIED"},
		{name: "highest wins", markings: []string{"NATO CONFIDENTIAL", "NATO SECRET"}, want: "NATO SECRET"},
		{name: "cosmic", markings: []string{"COSMIC TOP SECRET"}, want: "COSMIC TOP SECRET"},
		{name: "unrecognizable defaults restrictive", markings: []string{"GEHEIM"}, want: "COSMIC TOP SECRET"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			set := map[string]struct{}{}
			for _, m := range tc.markings {
				set[m] = struct{}{}
			}
			require.Equal(t, tc.want, reportBanner(set))
		})
	}
}
