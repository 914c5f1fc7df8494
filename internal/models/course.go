package models

import "time"

// Course is an offered course. Code is the business key.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description,omitempty"`
	Credits     int       `db:"credits" json:"credits"`
	Semester    string    `db:"semester" json:"semester,omitempty"`
	Department  string    `db:"department" json:"department,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter provides filters for listing courses.
type CourseFilter struct {
	Department string
	Semester   string
	MinCredits int
	MaxCredits int
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
