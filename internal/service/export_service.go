package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crossmark-io/crossmark-api/internal/dto"
	"github.com/crossmark-io/crossmark-api/internal/models"
	"github.com/crossmark-io/crossmark-api/pkg/export"
	appErrors "github.com/crossmark-io/crossmark-api/pkg/errors"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title, banner string) ([]byte, error)
}

type exportAuditReader interface {
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLogEntry, error)
}

type exportSchemaReader interface {
	List(ctx context.Context, filter models.SchemaFilter) ([]models.ClassificationSchema, int, error)
}

// ExportService renders audit compliance reports. The generated report is
// itself marked: every page of the PDF carries the highest classification
// seen among the exported entries.
type ExportService struct {
	audit   exportAuditReader
	schemas exportSchemaReader
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(audit exportAuditReader, schemas exportSchemaReader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{audit: audit, schemas: schemas, csv: csv, pdf: pdf, logger: logger}
}

// AuditCSV renders matching audit entries as a CSV document.
func (s *ExportService) AuditCSV(ctx context.Context, req dto.AuditQueryRequest) ([]byte, string, error) {
	dataset, _, err := s.buildAuditDataset(ctx, req)
	if err != nil {
		return nil, "", err
	}
	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render audit csv")
	}
	return payload, exportFilename("csv"), nil
}

// AuditPDF renders matching audit entries as a banner-marked PDF document.
func (s *ExportService) AuditPDF(ctx context.Context, req dto.AuditQueryRequest) ([]byte, string, error) {
	dataset, banner, err := s.buildAuditDataset(ctx, req)
	if err != nil {
		return nil, "", err
	}
	payload, err := s.pdf.Render(dataset, "Audit Trail Compliance Report", banner)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render audit pdf")
	}
	return payload, exportFilename("pdf"), nil
}

func (s *ExportService) buildAuditDataset(ctx context.Context, req dto.AuditQueryRequest) (export.Dataset, string, error) {
	filter := models.AuditFilter{
		UserID:      req.UserID,
		AuthorityID: req.AuthorityID,
		NationCode:  req.NationCode,
		RequestID:   req.RequestID,
		Status:      req.Status,
		Limit:       req.Limit,
	}
	if req.OperationType != "" {
		opType := models.OperationType(req.OperationType)
		if !opType.Valid() {
			return export.Dataset{}, "", appErrors.Clone(appErrors.ErrValidation, "unknown operation type")
		}
		filter.OperationType = &opType
	}

	entries, err := s.audit.List(ctx, filter)
	if err != nil {
		return export.Dataset{}, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit entries for export")
	}

	dataset := export.Dataset{
		Headers: []string{"Executed At", "Request ID", "Operation", "User", "Role", "Nation", "Status", "Classifications", "Error"},
	}
	markings := map[string]struct{}{}
	for _, entry := range entries {
		for _, marking := range entry.AccessedClassifications {
			markings[marking] = struct{}{}
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Executed At":     entry.ExecutedAt.UTC().Format(time.RFC3339),
			"Request ID":      entry.RequestID,
			"Operation":       entry.OperationText,
			"User":            deref(entry.UserID),
			"Role":            deref(entry.UserRole),
			"Nation":          deref(entry.NationCode),
			"Status":          entry.ResponseStatus,
			"Classifications": strings.Join(entry.AccessedClassifications, "; "),
			"Error":           deref(entry.ErrorMessage),
		})
	}

	return dataset, reportBanner(markings), nil
}

// reportBanner derives the page marking from the classifications that appear
// in the exported rows. Without a recognizable marking the report defaults
// to the most restrictive banner rather than the least.
func reportBanner(markings map[string]struct{}) string {
	if len(markings) == 0 {
		return "UNCLASSIFIED"
	}
	highest := -1
	for marking := range markings {
		for _, level := range models.PivotLevels {
			if strings.Contains(strings.ToUpper(marking), strings.ReplaceAll(string(level), "_", " ")) && level.Rank() > highest {
				highest = level.Rank()
			}
		}
	}
	if highest < 0 {
		return models.PivotTopSecret.NATOMarking()
	}
	return models.PivotLevels[highest].NATOMarking()
}

func exportFilename(ext string) string {
	return fmt.Sprintf("audit-report-%s.%s", time.Now().UTC().Format("20060102-150405"), ext)
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

// SchemaCoverageCSV renders, per nation, the registered schema versions and
// whether a currently active one exists. Compliance reviews use it to spot
// nations whose schemas have all expired.
func (s *ExportService) SchemaCoverageCSV(ctx context.Context) ([]byte, string, error) {
	schemas, _, err := s.schemas.List(ctx, models.SchemaFilter{PageSize: 100})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schemas for export")
	}
	payload, err := s.csv.Render(schemaCoverageDataset(schemas, time.Now().UTC()))
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schema coverage csv")
	}
	return payload, fmt.Sprintf("schema-coverage-%s.csv", time.Now().UTC().Format("20060102-150405")), nil
}

func schemaCoverageDataset(schemas []models.ClassificationSchema, now time.Time) export.Dataset {
	byNation := map[string][]models.ClassificationSchema{}
	for _, schema := range schemas {
		byNation[schema.NationCode] = append(byNation[schema.NationCode], schema)
	}
	codes := make([]string, 0, len(byNation))
	for code := range byNation {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	dataset := export.Dataset{Headers: []string{"Nation", "Active Version", "Versions", "Status"}}
	for _, code := range codes {
		active := models.PickActiveSchema(byNation[code], now)
		row := map[string]string{
			"Nation":   code,
			"Versions": strconv.Itoa(len(byNation[code])),
		}
		if active != nil {
			row["Active Version"] = active.Version
			row["Status"] = "active"
		} else {
			row["Active Version"] = ""
			row["Status"] = "expired"
		}
		dataset.Rows = append(dataset.Rows, row)
	}
	return dataset
}
