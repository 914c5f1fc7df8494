package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/thishan/cms-api/internal/models"
	appErrors "github.com/thishan/cms-api/pkg/errors"
	"github.com/thishan/cms-api/pkg/export"
)

// ExportFormat identifies a supported roster export encoding.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ParseExportFormat normalises raw input into a known format.
func ParseExportFormat(raw string) (ExportFormat, bool) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case ExportFormatCSV:
		return ExportFormatCSV, true
	case ExportFormatPDF:
		return ExportFormatPDF, true
	}
	return "", false
}

// ExportResult carries rendered bytes plus transport metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

type rosterSource interface {
	ListByCourse(ctx context.Context, courseCode string) ([]models.EnrollmentDetail, error)
	ListAllDetails(ctx context.Context) ([]models.EnrollmentDetail, error)
}

// ExportService renders enrollment rosters as CSV or PDF downloads.
type ExportService struct {
	source rosterSource
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(source rosterSource, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		source: source,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

var rosterHeaders = []string{"Student ID", "Student Name", "Course Code", "Course Title", "Semester", "Academic Year", "Status", "Grade"}

// Roster renders the enrollment roster, optionally limited to one course.
func (s *ExportService) Roster(ctx context.Context, format ExportFormat, courseCode string) (*ExportResult, error) {
	var (
		enrollments []models.EnrollmentDetail
		err         error
	)
	if courseCode != "" {
		enrollments, err = s.source.ListByCourse(ctx, courseCode)
	} else {
		enrollments, err = s.source.ListAllDetails(ctx)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "failed to load roster")
	}

	dataset := export.Dataset{Headers: rosterHeaders, Rows: make([]map[string]string, 0, len(enrollments))}
	for i := range enrollments {
		e := &enrollments[i]
		grade := ""
		if e.Grade != nil {
			grade = *e.Grade
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student ID":    e.StudentID,
			"Student Name":  e.StudentName,
			"Course Code":   e.CourseCode,
			"Course Title":  e.CourseTitle,
			"Semester":      e.Semester,
			"Academic Year": e.AcademicYear,
			"Status":        string(e.Status),
			"Grade":         grade,
		})
	}

	stamp := time.Now().UTC().Format("20060102")
	name := "enrollments"
	if courseCode != "" {
		name = "enrollments_" + strings.ToLower(courseCode)
	}

	switch format {
	case ExportFormatCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{Content: content, ContentType: "text/csv", Filename: name + "_" + stamp + ".csv"}, nil
	case ExportFormatPDF:
		title := "Enrollment Roster"
		if courseCode != "" {
			title = "Enrollment Roster - " + courseCode
		}
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{Content: content, ContentType: "application/pdf", Filename: name + "_" + stamp + ".pdf"}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrExportFormat, "unsupported export format "+string(format))
	}
}
