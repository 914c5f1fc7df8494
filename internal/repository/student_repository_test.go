package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/thishan/cms-api/internal/models"
)

func newStudentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var studentRowColumns = []string{"id", "student_id", "first_name", "last_name", "email", "phone", "department", "year_of_study", "created_at", "updated_at"}

func TestStudentRepositoryFindByStudentID(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(studentRowColumns).
		AddRow("s1", "STU001", "Amara", "Perera", "amara@example.com", "", "CS", 2, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, first_name, last_name, email, phone, department, year_of_study, created_at, updated_at FROM students WHERE student_id = $1")).
		WithArgs("STU001").
		WillReturnRows(rows)

	student, err := repo.FindByStudentID(context.Background(), "STU001")
	require.NoError(t, err)
	require.Equal(t, "Amara", student.FirstName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(studentRowColumns).
		AddRow("s1", "STU001", "Amara", "Perera", "amara@example.com", "", "CS", 2, now, now)
	mock.ExpectQuery("SELECT id, .+ FROM students WHERE 1=1 AND department = \\$1").
		WithArgs("CS", "%ama%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE 1=1")).
		WithArgs("CS", "%ama%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{Department: "CS", Search: "Ama"})
	require.NoError(t, err)
	require.Len(t, students, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryExistsByStudentID(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE student_id = $1 LIMIT 1")).
		WithArgs("STU001").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	taken, err := repo.ExistsByStudentID(context.Background(), "STU001", "")
	require.NoError(t, err)
	require.True(t, taken)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE student_id = $1 AND id <> $2 LIMIT 1")).
		WithArgs("STU001", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	taken, err = repo.ExistsByStudentID(context.Background(), "STU001", "s1")
	require.NoError(t, err)
	require.False(t, taken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{StudentID: "STU001", FirstName: "Amara", LastName: "Perera", Email: "amara@example.com"}
	require.NoError(t, repo.Create(context.Background(), student))
	require.NotEmpty(t, student.ID)
	require.False(t, student.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCount(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	total, err := repo.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
