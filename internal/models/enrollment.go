package models

import (
	"strings"
	"time"
)

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses. Any status may overwrite any other; no
// transition table is enforced.
const (
	EnrollmentStatusEnrolled   EnrollmentStatus = "ENROLLED"
	EnrollmentStatusInProgress EnrollmentStatus = "IN_PROGRESS"
	EnrollmentStatusCompleted  EnrollmentStatus = "COMPLETED"
	EnrollmentStatusDropped    EnrollmentStatus = "DROPPED"
	EnrollmentStatusFailed     EnrollmentStatus = "FAILED"
)

// ParseEnrollmentStatus normalises raw input into a known status.
func ParseEnrollmentStatus(raw string) (EnrollmentStatus, bool) {
	status := EnrollmentStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch status {
	case EnrollmentStatusEnrolled, EnrollmentStatusInProgress, EnrollmentStatusCompleted,
		EnrollmentStatusDropped, EnrollmentStatusFailed:
		return status, true
	}
	return "", false
}

// Enrollment links a student to a course for a semester of an academic year.
// Student and course are referenced by business key, not storage id, so an
// enrollment row survives profile edits on either side.
type Enrollment struct {
	ID             string           `db:"id" json:"id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	CourseCode     string           `db:"course_code" json:"course_code"`
	Semester       string           `db:"semester" json:"semester"`
	AcademicYear   string           `db:"academic_year" json:"academic_year"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	Grade          *string          `db:"grade" json:"grade,omitempty"`
	EnrollmentDate time.Time        `db:"enrollment_date" json:"enrollment_date"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student and course info for lists.
type EnrollmentDetail struct {
	Enrollment
	StudentName string `db:"student_name" json:"student_name"`
	CourseTitle string `db:"course_title" json:"course_title"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID    string
	CourseCode   string
	Semester     string
	AcademicYear string
	Status       EnrollmentStatus
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// EnrollmentKey is the tuple whose uniqueness the enrollment engine protects.
type EnrollmentKey struct {
	StudentID    string
	CourseCode   string
	Semester     string
	AcademicYear string
}
