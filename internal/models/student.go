package models

import "time"

// Student is a registered student. StudentID is the business key used for
// cross-entity references; ID is the storage identity and is never reused.
type Student struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	FirstName   string    `db:"first_name" json:"first_name"`
	LastName    string    `db:"last_name" json:"last_name"`
	Email       string    `db:"email" json:"email"`
	Phone       string    `db:"phone" json:"phone,omitempty"`
	Department  string    `db:"department" json:"department,omitempty"`
	YearOfStudy int       `db:"year_of_study" json:"year_of_study,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins the name parts for display and exports.
func (s Student) FullName() string {
	if s.FirstName == "" {
		return s.LastName
	}
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// StudentFilter provides filters for listing students.
type StudentFilter struct {
	Department  string
	YearOfStudy int
	Search      string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
