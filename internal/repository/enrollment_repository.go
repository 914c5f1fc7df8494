package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/thishan/cms-api/internal/models"
)

// uniqueViolation is the PostgreSQL class 23 code raised by the unique index
// on (student_id, course_code, semester, academic_year).
const uniqueViolation = "23505"

// IsUniqueViolation reports whether the error is a unique constraint conflict.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = "e.id, e.student_id, e.course_code, e.semester, e.academic_year, e.status, e.grade, e.enrollment_date, e.created_at, e.updated_at"

const enrollmentDetailJoin = `FROM enrollments e
LEFT JOIN students s ON s.student_id = e.student_id
LEFT JOIN courses c ON c.code = e.course_code`

const enrollmentDetailColumns = enrollmentColumns + `,
        COALESCE(s.first_name || ' ' || s.last_name, '') AS student_name, COALESCE(c.title, '') AS course_title`

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseCode != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_code = $%d", len(args)+1))
		args = append(args, filter.CourseCode)
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("e.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("e.academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"enrollment_date": "e.enrollment_date",
		"student_name":    "s.last_name",
		"course_code":     "e.course_code",
	}
	orderBy, ok := allowedSorts[filter.SortBy]
	if !ok {
		orderBy = "e.enrollment_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d",
		enrollmentDetailColumns, enrollmentDetailJoin+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", enrollmentDetailJoin+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments e WHERE e.id = $1", enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with contextual info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE e.id = $1", enrollmentDetailColumns, enrollmentDetailJoin)
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsForKey checks whether an enrollment exists for the full tuple.
func (r *EnrollmentRepository) ExistsForKey(ctx context.Context, key models.EnrollmentKey) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND course_code = $2 AND semester = $3 AND academic_year = $4 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, key.StudentID, key.CourseCode, key.Semester, key.AcademicYear); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment tuple: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment record. The unique index on the tuple is
// the authority on duplicates; callers inspect IsUniqueViolation.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.EnrollmentDate.IsZero() {
		enrollment.EnrollmentDate = now
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusEnrolled
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	const query = `INSERT INTO enrollments (id, student_id, course_code, semester, academic_year, status, grade, enrollment_date, created_at, updated_at)
        VALUES (:id, :student_id, :course_code, :semester, :academic_year, :status, :grade, :enrollment_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateGrade overwrites the grade for an enrollment.
func (r *EnrollmentRepository) UpdateGrade(ctx context.Context, id string, grade *string) error {
	const query = `UPDATE enrollments SET grade = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, grade, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment grade: %w", err)
	}
	return nil
}

// UpdateStatus overwrites the status for an enrollment.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// Delete hard-removes an enrollment row.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM enrollments WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}

// ListByCourse returns enrollments for a course code.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseCode string) ([]models.EnrollmentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE e.course_code = $1 ORDER BY e.enrollment_date DESC", enrollmentDetailColumns, enrollmentDetailJoin)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, courseCode); err != nil {
		return nil, fmt.Errorf("list course enrollments: %w", err)
	}
	return enrollments, nil
}

// ListByStudent returns enrollments for a student business key.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE e.student_id = $1 ORDER BY e.enrollment_date DESC", enrollmentDetailColumns, enrollmentDetailJoin)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// ListAllDetails returns every enrollment with student and course context,
// ordered for roster exports.
func (r *EnrollmentRepository) ListAllDetails(ctx context.Context) ([]models.EnrollmentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s ORDER BY e.course_code ASC, e.student_id ASC", enrollmentDetailColumns, enrollmentDetailJoin)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query); err != nil {
		return nil, fmt.Errorf("list enrollment details: %w", err)
	}
	return enrollments, nil
}

// ListAll returns the full enrollment snapshot for aggregation.
func (r *EnrollmentRepository) ListAll(ctx context.Context) ([]models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments e", enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query); err != nil {
		return nil, fmt.Errorf("snapshot enrollments: %w", err)
	}
	return enrollments, nil
}

// CountByCourse returns the enrollment count for a course.
func (r *EnrollmentRepository) CountByCourse(ctx context.Context, courseCode string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM enrollments WHERE course_code = $1", courseCode); err != nil {
		return 0, fmt.Errorf("count course enrollments: %w", err)
	}
	return total, nil
}

// Count returns the number of enrollment rows.
func (r *EnrollmentRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM enrollments"); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return total, nil
}

// StudentsByCourse returns the students enrolled in a course.
func (r *EnrollmentRepository) StudentsByCourse(ctx context.Context, courseCode string) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE student_id IN (SELECT student_id FROM enrollments WHERE course_code = $1)`, studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, courseCode); err != nil {
		return nil, fmt.Errorf("students by course: %w", err)
	}
	return students, nil
}

// CoursesByStudent returns the courses a student is enrolled in.
func (r *EnrollmentRepository) CoursesByStudent(ctx context.Context, studentID string) ([]models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE code IN (SELECT course_code FROM enrollments WHERE student_id = $1)`, courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, studentID); err != nil {
		return nil, fmt.Errorf("courses by student: %w", err)
	}
	return courses, nil
}
