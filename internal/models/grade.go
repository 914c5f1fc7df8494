package models

import "strings"

// GradeClass buckets a letter grade for dashboards and rosters.
type GradeClass string

const (
	GradeClassPassing    GradeClass = "PASSING"
	GradeClassWarning    GradeClass = "WARNING"
	GradeClassFailing    GradeClass = "FAILING"
	GradeClassInProgress GradeClass = "IN_PROGRESS"
)

// passingGrades is a set; ordering between letters is never needed.
var passingGrades = map[string]struct{}{
	"A+": {}, "A": {}, "A-": {},
	"B+": {}, "B": {}, "B-": {},
	"C+": {}, "C": {}, "C-": {},
}

// ClassifyGrade maps a letter grade to its class. Comparison is
// case-insensitive and an absent grade means the course is still in progress.
func ClassifyGrade(grade *string) GradeClass {
	if grade == nil {
		return GradeClassInProgress
	}
	letter := strings.ToUpper(strings.TrimSpace(*grade))
	if letter == "" {
		return GradeClassInProgress
	}
	if _, ok := passingGrades[letter]; ok {
		return GradeClassPassing
	}
	switch letter {
	case "D":
		return GradeClassWarning
	case "F":
		return GradeClassFailing
	}
	return GradeClassInProgress
}

// IsPassingGrade reports whether the grade classifies as passing.
func IsPassingGrade(grade *string) bool {
	return ClassifyGrade(grade) == GradeClassPassing
}
