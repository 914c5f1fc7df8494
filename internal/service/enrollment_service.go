package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/thishan/cms-api/internal/models"
	"github.com/thishan/cms-api/internal/repository"
	appErrors "github.com/thishan/cms-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	ExistsForKey(ctx context.Context, key models.EnrollmentKey) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateGrade(ctx context.Context, id string, grade *string) error
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error
	Delete(ctx context.Context, id string) error
	ListByCourse(ctx context.Context, courseCode string) ([]models.EnrollmentDetail, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	CountByCourse(ctx context.Context, courseCode string) (int, error)
	StudentsByCourse(ctx context.Context, courseCode string) ([]models.Student, error)
	CoursesByStudent(ctx context.Context, studentID string) ([]models.Course, error)
}

type studentResolver interface {
	FindByStudentID(ctx context.Context, studentID string) (*models.Student, error)
}

type courseResolver interface {
	FindByCode(ctx context.Context, code string) (*models.Course, error)
}

// RequestEnrollmentRequest describes an enrollment creation request. Student
// and course are addressed by business key.
type RequestEnrollmentRequest struct {
	StudentID    string `json:"student_id" validate:"required"`
	CourseCode   string `json:"course_code" validate:"required"`
	Semester     string `json:"semester" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required"`
}

// UpdateGradeRequest carries a grade overwrite. An empty grade clears it.
type UpdateGradeRequest struct {
	Grade string `json:"grade"`
}

// UpdateStatusRequest carries a status overwrite.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// EnrollmentService is the gatekeeper for enrollment creation and the narrow
// mutation surface afterwards (grade, status, delete).
//
// The duplicate check and the insert are two round trips, so two concurrent
// requests for the same tuple can both pass the advisory read. The unique
// index on (student_id, course_code, semester, academic_year) is the
// authority; the insert surfaces that conflict as ALREADY_ENROLLED.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  studentResolver
	courses   courseResolver
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger

	// strictDuplicateCheck fails the request when the advisory duplicate
	// read errors. When false the write proceeds anyway (legacy
	// best-effort policy) and the unique index backstops correctness.
	strictDuplicateCheck bool
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, students studentResolver, courses courseResolver, cache *CacheService, validate *validator.Validate, logger *zap.Logger, strictDuplicateCheck bool) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:                 repo,
		students:             students,
		courses:              courses,
		cache:                cache,
		validator:            validate,
		logger:               logger,
		strictDuplicateCheck: strictDuplicateCheck,
	}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return enrollments, pagination, nil
}

// Get returns a single enrollment with student and course context.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "failed to load enrollment")
	}
	return detail, nil
}

// Request admits a (student, course, semester, academicYear) tuple as a new
// enrollment. On success exactly one row is written; every failure path
// writes nothing.
func (s *EnrollmentService) Request(ctx context.Context, req RequestEnrollmentRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	if _, err := s.students.FindByStudentID(ctx, req.StudentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrReference, "student "+req.StudentID+" not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "failed to resolve student")
	}
	if _, err := s.courses.FindByCode(ctx, req.CourseCode); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrReference, "course "+req.CourseCode+" not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "failed to resolve course")
	}

	key := models.EnrollmentKey{
		StudentID:    req.StudentID,
		CourseCode:   req.CourseCode,
		Semester:     req.Semester,
		AcademicYear: req.AcademicYear,
	}
	exists, err := s.repo.ExistsForKey(ctx, key)
	if err != nil {
		if s.strictDuplicateCheck {
			return nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "duplicate check failed")
		}
		// Best-effort policy: the advisory read failed but the unique
		// index still rejects a real duplicate at insert time.
		s.logger.Warn("duplicate check failed, proceeding",
			zap.String("student_id", req.StudentID),
			zap.String("course_code", req.CourseCode),
			zap.Error(err))
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "student "+req.StudentID+" already enrolled in "+req.CourseCode+" for "+req.Semester+" "+req.AcademicYear)
	}

	enrollment := &models.Enrollment{
		StudentID:    req.StudentID,
		CourseCode:   req.CourseCode,
		Semester:     req.Semester,
		AcademicYear: req.AcademicYear,
		Status:       models.EnrollmentStatusEnrolled,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "student "+req.StudentID+" already enrolled in "+req.CourseCode+" for "+req.Semester+" "+req.AcademicYear)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "failed to create enrollment")
	}
	s.invalidateStats(ctx)

	detail, err := s.repo.FindDetailByID(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// UpdateGrade overwrites the grade. It never touches status, and repeating
// the same grade yields the same observable record.
func (s *EnrollmentService) UpdateGrade(ctx context.Context, id string, req UpdateGradeRequest) (*models.EnrollmentDetail, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "failed to load enrollment")
	}
	if enrollment.Status == models.EnrollmentStatusDropped {
		return nil, appErrors.Clone(appErrors.ErrPrecondition, "cannot grade a dropped enrollment")
	}

	var grade *string
	if trimmed := strings.TrimSpace(req.Grade); trimmed != "" {
		grade = &trimmed
	}
	if err := s.repo.UpdateGrade(ctx, id, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "failed to update grade")
	}
	s.invalidateStats(ctx)

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// UpdateStatus overwrites the status. Any status may replace any other; the
// permissive model is a conscious choice, not a missing state machine.
func (s *EnrollmentService) UpdateStatus(ctx context.Context, id string, req UpdateStatusRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	status, ok := models.ParseEnrollmentStatus(req.Status)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown enrollment status "+req.Status)
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "failed to load enrollment")
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "failed to update status")
	}
	s.invalidateStats(ctx)

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// Delete hard-removes an enrollment. Students and courses are untouched.
func (s *EnrollmentService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "failed to load enrollment")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "failed to delete enrollment")
	}
	s.invalidateStats(ctx)
	return nil
}

// ListByStudent returns the enrollments for a student business key.
func (s *EnrollmentService) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	enrollments, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "failed to list student enrollments")
	}
	return enrollments, nil
}

// ListByCourse returns the enrollments for a course code.
func (s *EnrollmentService) ListByCourse(ctx context.Context, courseCode string) ([]models.EnrollmentDetail, error) {
	enrollments, err := s.repo.ListByCourse(ctx, courseCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "failed to list course enrollments")
	}
	return enrollments, nil
}

// CountByCourse returns the number of enrollments in a course.
func (s *EnrollmentService) CountByCourse(ctx context.Context, courseCode string) (int, error) {
	count, err := s.repo.CountByCourse(ctx, courseCode)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "failed to count enrollments")
	}
	return count, nil
}

// IsEnrolled reports whether the tuple already has an enrollment.
func (s *EnrollmentService) IsEnrolled(ctx context.Context, key models.EnrollmentKey) (bool, error) {
	exists, err := s.repo.ExistsForKey(ctx, key)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "failed to check enrollment")
	}
	return exists, nil
}

// StudentsInCourse returns the students enrolled in a course.
func (s *EnrollmentService) StudentsInCourse(ctx context.Context, courseCode string) ([]models.Student, error) {
	students, err := s.repo.StudentsByCourse(ctx, courseCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "failed to list course students")
	}
	return students, nil
}

// CoursesForStudent returns the courses a student is enrolled in.
func (s *EnrollmentService) CoursesForStudent(ctx context.Context, studentID string) ([]models.Course, error) {
	courses, err := s.repo.CoursesByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "failed to list student courses")
	}
	return courses, nil
}

func (s *EnrollmentService) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, "dash:*")
}
