package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/thishan/cms-api/internal/models"
	appErrors "github.com/thishan/cms-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
	keys        map[models.EnrollmentKey]bool
	keyCheckErr error
	createErr   error
	created     *models.Enrollment
	grades      map[string]*string
	statuses    map[string]models.EnrollmentStatus
	deleted     []string
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var list []models.EnrollmentDetail
	for _, e := range m.enrollments {
		list = append(list, models.EnrollmentDetail{Enrollment: e})
	}
	return list, len(list), nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if e, ok := m.enrollments[id]; ok {
		return &models.EnrollmentDetail{Enrollment: e}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) ExistsForKey(ctx context.Context, key models.EnrollmentKey) (bool, error) {
	if m.keyCheckErr != nil {
		return false, m.keyCheckErr
	}
	return m.keys[key], nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.enrollments == nil {
		m.enrollments = make(map[string]models.Enrollment)
	}
	if enrollment.ID == "" {
		enrollment.ID = "new-enroll"
	}
	m.enrollments[enrollment.ID] = *enrollment
	if m.keys == nil {
		m.keys = make(map[models.EnrollmentKey]bool)
	}
	m.keys[models.EnrollmentKey{
		StudentID:    enrollment.StudentID,
		CourseCode:   enrollment.CourseCode,
		Semester:     enrollment.Semester,
		AcademicYear: enrollment.AcademicYear,
	}] = true
	m.created = enrollment
	return nil
}

func (m *mockEnrollmentRepo) UpdateGrade(ctx context.Context, id string, grade *string) error {
	if m.grades == nil {
		m.grades = make(map[string]*string)
	}
	m.grades[id] = grade
	if e, ok := m.enrollments[id]; ok {
		e.Grade = grade
		m.enrollments[id] = e
	}
	return nil
}

func (m *mockEnrollmentRepo) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	if m.statuses == nil {
		m.statuses = make(map[string]models.EnrollmentStatus)
	}
	m.statuses[id] = status
	if e, ok := m.enrollments[id]; ok {
		e.Status = status
		m.enrollments[id] = e
	}
	return nil
}

func (m *mockEnrollmentRepo) Delete(ctx context.Context, id string) error {
	delete(m.enrollments, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockEnrollmentRepo) ListByCourse(ctx context.Context, courseCode string) ([]models.EnrollmentDetail, error) {
	var list []models.EnrollmentDetail
	for _, e := range m.enrollments {
		if e.CourseCode == courseCode {
			list = append(list, models.EnrollmentDetail{Enrollment: e})
		}
	}
	return list, nil
}

func (m *mockEnrollmentRepo) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	var list []models.EnrollmentDetail
	for _, e := range m.enrollments {
		if e.StudentID == studentID {
			list = append(list, models.EnrollmentDetail{Enrollment: e})
		}
	}
	return list, nil
}

func (m *mockEnrollmentRepo) CountByCourse(ctx context.Context, courseCode string) (int, error) {
	count := 0
	for _, e := range m.enrollments {
		if e.CourseCode == courseCode {
			count++
		}
	}
	return count, nil
}

func (m *mockEnrollmentRepo) StudentsByCourse(ctx context.Context, courseCode string) ([]models.Student, error) {
	return nil, nil
}

func (m *mockEnrollmentRepo) CoursesByStudent(ctx context.Context, studentID string) ([]models.Course, error) {
	return nil, nil
}

type mockStudentResolver struct {
	students map[string]*models.Student
}

func (m *mockStudentResolver) FindByStudentID(ctx context.Context, studentID string) (*models.Student, error) {
	if s, ok := m.students[studentID]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type mockCourseResolver struct {
	courses map[string]*models.Course
}

func (m *mockCourseResolver) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	if c, ok := m.courses[code]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func newEnrollmentFixture(repo *mockEnrollmentRepo, strict bool) *EnrollmentService {
	students := &mockStudentResolver{students: map[string]*models.Student{"STU001": {StudentID: "STU001"}}}
	courses := &mockCourseResolver{courses: map[string]*models.Course{"CS101": {Code: "CS101"}}}
	return NewEnrollmentService(repo, students, courses, nil, validator.New(), zap.NewNop(), strict)
}

func TestEnrollmentServiceRequest(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newEnrollmentFixture(repo, true)

	detail, err := svc.Request(context.Background(), RequestEnrollmentRequest{
		StudentID: "STU001", CourseCode: "CS101", Semester: "FALL", AcademicYear: "2025-2026",
	})
	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.Equal(t, models.EnrollmentStatusEnrolled, detail.Status)
	assert.Nil(t, detail.Grade)
}

func TestEnrollmentServiceRequestMissingStudent(t *testing.T) {
	svc := newEnrollmentFixture(&mockEnrollmentRepo{}, true)

	_, err := svc.Request(context.Background(), RequestEnrollmentRequest{
		StudentID: "STU999", CourseCode: "CS101", Semester: "FALL", AcademicYear: "2025-2026",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrReference.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceRequestMissingCourse(t *testing.T) {
	svc := newEnrollmentFixture(&mockEnrollmentRepo{}, true)

	_, err := svc.Request(context.Background(), RequestEnrollmentRequest{
		StudentID: "STU001", CourseCode: "CS999", Semester: "FALL", AcademicYear: "2025-2026",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrReference.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceRequestDuplicate(t *testing.T) {
	key := models.EnrollmentKey{StudentID: "STU001", CourseCode: "CS101", Semester: "FALL", AcademicYear: "2025-2026"}
	repo := &mockEnrollmentRepo{keys: map[models.EnrollmentKey]bool{key: true}}
	svc := newEnrollmentFixture(repo, true)

	_, err := svc.Request(context.Background(), RequestEnrollmentRequest{
		StudentID: "STU001", CourseCode: "CS101", Semester: "FALL", AcademicYear: "2025-2026",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestEnrollmentServiceRequestSameTupleDifferentSemester(t *testing.T) {
	key := models.EnrollmentKey{StudentID: "STU001", CourseCode: "CS101", Semester: "FALL", AcademicYear: "2025-2026"}
	repo := &mockEnrollmentRepo{keys: map[models.EnrollmentKey]bool{key: true}}
	svc := newEnrollmentFixture(repo, true)

	_, err := svc.Request(context.Background(), RequestEnrollmentRequest{
		StudentID: "STU001", CourseCode: "CS101", Semester: "SPRING", AcademicYear: "2025-2026",
	})
	require.NoError(t, err)
	require.NotNil(t, repo.created)
}

func TestEnrollmentServiceRequestStrictCheckFailure(t *testing.T) {
	repo := &mockEnrollmentRepo{keyCheckErr: assert.AnError}
	svc := newEnrollmentFixture(repo, true)

	_, err := svc.Request(context.Background(), RequestEnrollmentRequest{
		StudentID: "STU001", CourseCode: "CS101", Semester: "FALL", AcademicYear: "2025-2026",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTransport.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestEnrollmentServiceRequestLenientCheckFailure(t *testing.T) {
	repo := &mockEnrollmentRepo{keyCheckErr: assert.AnError}
	svc := newEnrollmentFixture(repo, false)

	_, err := svc.Request(context.Background(), RequestEnrollmentRequest{
		StudentID: "STU001", CourseCode: "CS101", Semester: "FALL", AcademicYear: "2025-2026",
	})
	require.NoError(t, err)
	require.NotNil(t, repo.created)
}

func TestEnrollmentServiceUpdateGrade(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", StudentID: "STU001", CourseCode: "CS101", Status: models.EnrollmentStatusEnrolled},
	}}
	svc := newEnrollmentFixture(repo, true)

	detail, err := svc.UpdateGrade(context.Background(), "e1", UpdateGradeRequest{Grade: "A"})
	require.NoError(t, err)
	require.NotNil(t, detail.Grade)
	assert.Equal(t, "A", *detail.Grade)
	// Grading leaves status untouched.
	assert.Equal(t, models.EnrollmentStatusEnrolled, detail.Status)
}

func TestEnrollmentServiceUpdateGradeIdempotent(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", StudentID: "STU001", CourseCode: "CS101", Status: models.EnrollmentStatusEnrolled},
	}}
	svc := newEnrollmentFixture(repo, true)

	first, err := svc.UpdateGrade(context.Background(), "e1", UpdateGradeRequest{Grade: "B+"})
	require.NoError(t, err)
	second, err := svc.UpdateGrade(context.Background(), "e1", UpdateGradeRequest{Grade: "B+"})
	require.NoError(t, err)

	// Re-applying the same grade leaves the record unchanged.
	assert.Equal(t, first.Enrollment, second.Enrollment)
	assert.Equal(t, models.EnrollmentStatusEnrolled, second.Status)
}

func TestEnrollmentServiceUpdateGradeClears(t *testing.T) {
	grade := "B+"
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", Status: models.EnrollmentStatusCompleted, Grade: &grade},
	}}
	svc := newEnrollmentFixture(repo, true)

	detail, err := svc.UpdateGrade(context.Background(), "e1", UpdateGradeRequest{Grade: "  "})
	require.NoError(t, err)
	assert.Nil(t, detail.Grade)
}

func TestEnrollmentServiceUpdateGradeDropped(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", Status: models.EnrollmentStatusDropped},
	}}
	svc := newEnrollmentFixture(repo, true)

	_, err := svc.UpdateGrade(context.Background(), "e1", UpdateGradeRequest{Grade: "A"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPrecondition.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.grades)
}

func TestEnrollmentServiceUpdateGradeNotFound(t *testing.T) {
	svc := newEnrollmentFixture(&mockEnrollmentRepo{}, true)

	_, err := svc.UpdateGrade(context.Background(), "missing", UpdateGradeRequest{Grade: "A"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceUpdateStatus(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", Status: models.EnrollmentStatusEnrolled},
	}}
	svc := newEnrollmentFixture(repo, true)

	detail, err := svc.UpdateStatus(context.Background(), "e1", UpdateStatusRequest{Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCompleted, detail.Status)
	assert.Equal(t, models.EnrollmentStatusCompleted, repo.statuses["e1"])
}

func TestEnrollmentServiceUpdateStatusUnknown(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", Status: models.EnrollmentStatusEnrolled},
	}}
	svc := newEnrollmentFixture(repo, true)

	_, err := svc.UpdateStatus(context.Background(), "e1", UpdateStatusRequest{Status: "GRADUATED"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.statuses)
}

func TestEnrollmentServiceDelete(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1"},
	}}
	svc := newEnrollmentFixture(repo, true)

	require.NoError(t, svc.Delete(context.Background(), "e1"))
	assert.Contains(t, repo.deleted, "e1")

	err := svc.Delete(context.Background(), "e1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentLifecycle(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newEnrollmentFixture(repo, true)

	req := RequestEnrollmentRequest{
		StudentID: "STU001", CourseCode: "CS101", Semester: "FALL", AcademicYear: "2025-2026",
	}
	detail, err := svc.Request(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusEnrolled, detail.Status)

	// A second request for the same tuple conflicts and creates nothing.
	_, err = svc.Request(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.enrollments, 1)

	graded, err := svc.UpdateGrade(context.Background(), detail.ID, UpdateGradeRequest{Grade: "B+"})
	require.NoError(t, err)
	require.NotNil(t, graded.Grade)
	assert.Equal(t, "B+", *graded.Grade)
	assert.Equal(t, models.EnrollmentStatusEnrolled, graded.Status)

	snapshot := make([]models.Enrollment, 0, len(repo.enrollments))
	for _, e := range repo.enrollments {
		snapshot = append(snapshot, e)
	}
	assert.Equal(t, 100, SuccessRate(snapshot))
}

func TestEnrollmentServiceIsEnrolled(t *testing.T) {
	key := models.EnrollmentKey{StudentID: "STU001", CourseCode: "CS101", Semester: "FALL", AcademicYear: "2025-2026"}
	repo := &mockEnrollmentRepo{keys: map[models.EnrollmentKey]bool{key: true}}
	svc := newEnrollmentFixture(repo, true)

	enrolled, err := svc.IsEnrolled(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, enrolled)

	other := key
	other.Semester = "SPRING"
	enrolled, err = svc.IsEnrolled(context.Background(), other)
	require.NoError(t, err)
	assert.False(t, enrolled)
}
