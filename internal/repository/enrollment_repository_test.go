package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/thishan/cms-api/internal/models"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var enrollmentRowColumns = []string{"id", "student_id", "course_code", "semester", "academic_year", "status", "grade", "enrollment_date", "created_at", "updated_at"}

func TestEnrollmentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(enrollmentRowColumns).
		AddRow("enr-1", "STU001", "CS101", "FALL", "2025-2026", models.EnrollmentStatusEnrolled, nil, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT e.id, e.student_id, e.course_code, e.semester, e.academic_year, e.status, e.grade, e.enrollment_date, e.created_at, e.updated_at FROM enrollments e WHERE e.id = $1")).
		WithArgs("enr-1").
		WillReturnRows(rows)

	enrollment, err := repo.FindByID(context.Background(), "enr-1")
	require.NoError(t, err)
	require.Equal(t, "STU001", enrollment.StudentID)
	require.Nil(t, enrollment.Grade)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsForKey(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	key := models.EnrollmentKey{StudentID: "STU001", CourseCode: "CS101", Semester: "FALL", AcademicYear: "2025-2026"}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND course_code = $2 AND semester = $3 AND academic_year = $4 LIMIT 1")).
		WithArgs(key.StudentID, key.CourseCode, key.Semester, key.AcademicYear).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsForKey(context.Background(), key)
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsForKeyMiss(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	key := models.EnrollmentKey{StudentID: "STU001", CourseCode: "CS101", Semester: "FALL", AcademicYear: "2025-2026"}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments")).
		WithArgs(key.StudentID, key.CourseCode, key.Semester, key.AcademicYear).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.ExistsForKey(context.Background(), key)
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnResult(sqlmock.NewResult(1, 1))

	enrollment := &models.Enrollment{
		StudentID:    "STU001",
		CourseCode:   "CS101",
		Semester:     "FALL",
		AcademicYear: "2025-2026",
	}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	require.NotEmpty(t, enrollment.ID)
	require.Equal(t, models.EnrollmentStatusEnrolled, enrollment.Status)
	require.False(t, enrollment.EnrollmentDate.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateUniqueViolation(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Enrollment{
		StudentID: "STU001", CourseCode: "CS101", Semester: "FALL", AcademicYear: "2025-2026",
	})
	require.Error(t, err)
	require.True(t, IsUniqueViolation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateGrade(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	grade := "A"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET grade = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("enr-1", grade, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateGrade(context.Background(), "enr-1", &grade))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("enr-1", models.EnrollmentStatusDropped, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "enr-1", models.EnrollmentStatusDropped))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryList(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	columns := append(append([]string{}, enrollmentRowColumns...), "student_name", "course_title")
	rows := sqlmock.NewRows(columns).
		AddRow("enr-1", "STU001", "CS101", "FALL", "2025-2026", models.EnrollmentStatusEnrolled, nil, now, now, now, "Amara Perera", "Intro to Computing")
	mock.ExpectQuery("(?s)SELECT e.id, .+ FROM enrollments e").
		WithArgs("STU001").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments e")).
		WithArgs("STU001").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	enrollments, total, err := repo.List(context.Background(), models.EnrollmentFilter{StudentID: "STU001"})
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	require.Equal(t, 1, total)
	require.Equal(t, "Amara Perera", enrollments[0].StudentName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCountByCourse(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE course_code = $1")).
		WithArgs("CS101").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	count, err := repo.CountByCourse(context.Background(), "CS101")
	require.NoError(t, err)
	require.Equal(t, 12, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
