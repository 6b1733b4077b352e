package service

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/painel-aulas-api/internal/models"
	appErrors "github.com/noah-isme/painel-aulas-api/pkg/errors"
	"github.com/noah-isme/painel-aulas-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// ScheduleExportColumns follow the import column order so a CSV export re-imports as is.
var ScheduleExportColumns = []string{"data", "sala", "turma", "instrutor", "unidade_curricular", "inicio", "fim", "turno"}

type scheduleLister interface {
	ListSchedule(filter models.ScheduleFilter) ([]models.ScheduleEntry, error)
}

type csvRenderer interface {
	Render(table export.Table) ([]byte, error)
}

type pdfRenderer interface {
	Render(table export.Table) ([]byte, error)
}

// ExportResult is a rendered file ready to download.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
	Rows        int
}

// ExportService renders the filtered schedule.
type ExportService struct {
	schedule scheduleLister
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(schedule scheduleLister, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter(1.2, 1, 1, 2, 2.5, 0.8, 0.8, 1.1)
	}
	return &ExportService{schedule: schedule, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// ExportSchedule renders the schedule view selected by filter in the given format.
func (s *ExportService) ExportSchedule(filter models.ScheduleFilter, format string) (*ExportResult, error) {
	entries, err := s.schedule.ListSchedule(filter)
	if err != nil {
		return nil, err
	}

	table := export.Table{
		Title:   scheduleTitle(filter),
		Columns: ScheduleExportColumns,
		Rows:    make([][]string, 0, len(entries)),
	}
	for _, entry := range entries {
		table.Rows = append(table.Rows, []string{
			entry.Date, entry.Room, entry.Group, entry.Instructor, entry.Subject,
			entry.StartTime, entry.EndTime, string(entry.Shift),
		})
	}

	stamp := s.now().UTC().Format("20060102_150405")
	result := &ExportResult{Rows: len(entries)}
	switch strings.ToLower(format) {
	case "", ExportFormatCSV:
		result.Payload, err = s.csv.Render(table)
		result.ContentType = "text/csv; charset=utf-8"
		result.Filename = fmt.Sprintf("aulas_%s.csv", stamp)
	case ExportFormatPDF:
		result.Payload, err = s.pdf.Render(table)
		result.ContentType = "application/pdf"
		result.Filename = fmt.Sprintf("aulas_%s.pdf", stamp)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		s.logger.Error("schedule export failed", zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return result, nil
}

func scheduleTitle(filter models.ScheduleFilter) string {
	switch {
	case filter.Empty():
		return "Aulas de hoje"
	case filter.Start != "" && filter.End != "":
		return fmt.Sprintf("Aulas de %s a %s", filter.Start, filter.End)
	case filter.Start != "":
		return "Aulas a partir de " + filter.Start
	default:
		return "Aulas até " + filter.End
	}
}
