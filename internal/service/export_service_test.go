package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/thishan/cms-api/internal/models"
	appErrors "github.com/thishan/cms-api/pkg/errors"
)

type mockRosterSource struct {
	all      []models.EnrollmentDetail
	byCourse map[string][]models.EnrollmentDetail
}

func (m *mockRosterSource) ListByCourse(ctx context.Context, courseCode string) ([]models.EnrollmentDetail, error) {
	return m.byCourse[courseCode], nil
}

func (m *mockRosterSource) ListAllDetails(ctx context.Context) ([]models.EnrollmentDetail, error) {
	return m.all, nil
}

func rosterFixture() *mockRosterSource {
	grade := "A"
	rows := []models.EnrollmentDetail{
		{
			Enrollment: models.Enrollment{
				StudentID: "STU001", CourseCode: "CS101", Semester: "FALL",
				AcademicYear: "2025-2026", Status: models.EnrollmentStatusCompleted, Grade: &grade,
			},
			StudentName: "Amara Perera",
			CourseTitle: "Intro to Computing",
		},
		{
			Enrollment: models.Enrollment{
				StudentID: "STU002", CourseCode: "MA201", Semester: "FALL",
				AcademicYear: "2025-2026", Status: models.EnrollmentStatusEnrolled,
			},
			StudentName: "Nimal Silva",
			CourseTitle: "Linear Algebra",
		},
	}
	return &mockRosterSource{
		all:      rows,
		byCourse: map[string][]models.EnrollmentDetail{"CS101": rows[:1]},
	}
}

func TestParseExportFormat(t *testing.T) {
	format, ok := ParseExportFormat(" CSV ")
	require.True(t, ok)
	assert.Equal(t, ExportFormatCSV, format)

	format, ok = ParseExportFormat("pdf")
	require.True(t, ok)
	assert.Equal(t, ExportFormatPDF, format)

	_, ok = ParseExportFormat("xlsx")
	assert.False(t, ok)
}

func TestExportServiceRosterCSV(t *testing.T) {
	svc := NewExportService(rosterFixture(), zap.NewNop())

	result, err := svc.Roster(context.Background(), ExportFormatCSV, "")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasPrefix(result.Filename, "enrollments_"))
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))

	body := string(result.Content)
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Student ID,Student Name,Course Code,Course Title,Semester,Academic Year,Status,Grade", lines[0])
	assert.Contains(t, body, "STU001,Amara Perera,CS101,Intro to Computing,FALL,2025-2026,COMPLETED,A")
	// Ungraded rows export an empty grade cell.
	assert.Contains(t, body, "STU002,Nimal Silva,MA201,Linear Algebra,FALL,2025-2026,ENROLLED,")
}

func TestExportServiceRosterCSVByCourse(t *testing.T) {
	svc := NewExportService(rosterFixture(), zap.NewNop())

	result, err := svc.Roster(context.Background(), ExportFormatCSV, "CS101")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.Filename, "enrollments_cs101_"))

	lines := strings.Split(strings.TrimSpace(string(result.Content)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "STU001")
}

func TestExportServiceRosterPDF(t *testing.T) {
	svc := NewExportService(rosterFixture(), zap.NewNop())

	result, err := svc.Roster(context.Background(), ExportFormatPDF, "")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasSuffix(result.Filename, ".pdf"))
	assert.True(t, strings.HasPrefix(string(result.Content), "%PDF"))
}

func TestExportServiceRosterUnsupportedFormat(t *testing.T) {
	svc := NewExportService(rosterFixture(), zap.NewNop())

	_, err := svc.Roster(context.Background(), ExportFormat("xml"), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrExportFormat.Code, appErrors.FromError(err).Code)
}
