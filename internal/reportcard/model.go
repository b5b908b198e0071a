package reportcard

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Grade is a letter grade. Only the values in Grades are valid.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// Grades lists the valid letter grades, best first.
var Grades = []Grade{GradeA, GradeB, GradeC, GradeD, GradeF}

// Subjects lists the subjects every report card must grade.
var Subjects = []string{"Math", "Science", "English"}

var (
	// ErrInvalidStudentName is returned for an empty or whitespace-only name.
	ErrInvalidStudentName = errors.New("please enter a valid student name")

	// ErrInvalidGrades is returned when grades are missing, unknown or not A-F.
	ErrInvalidGrades = errors.New("invalid grades")
)

// Valid reports whether g is one of Grades.
func (g Grade) Valid() bool {
	for _, v := range Grades {
		if g == v {
			return true
		}
	}
	return false
}

// ParseGrade converts s (case-insensitive, surrounding spaces ignored) to a Grade.
func ParseGrade(s string) (Grade, error) {
	g := Grade(strings.ToUpper(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", fmt.Errorf("%w: %q is not one of A, B, C, D, F", ErrInvalidGrades, s)
	}
	return g, nil
}

// ReportCard is the payload stored in every non-genesis block.
type ReportCard struct {
	StudentName string           `json:"student_name"`
	Grades      map[string]Grade `json:"grades"`
}

// Validate checks the name and that exactly the tracked subjects carry a
// valid grade.
func (rc ReportCard) Validate() error {
	if strings.TrimSpace(rc.StudentName) == "" {
		return ErrInvalidStudentName
	}
	for _, subject := range Subjects {
		g, ok := rc.Grades[subject]
		if !ok {
			return fmt.Errorf("%w: missing grade for %s", ErrInvalidGrades, subject)
		}
		if !g.Valid() {
			return fmt.Errorf("%w: %s grade %q is not one of A, B, C, D, F", ErrInvalidGrades, subject, g)
		}
	}
	if len(rc.Grades) != len(Subjects) {
		for subject := range rc.Grades {
			if !isSubject(subject) {
				return fmt.Errorf("%w: unknown subject %q", ErrInvalidGrades, subject)
			}
		}
	}
	return nil
}

func isSubject(s string) bool {
	for _, v := range Subjects {
		if s == v {
			return true
		}
	}
	return false
}

// Decode parses a block payload as a report card. It returns false for
// payloads of another shape, such as the genesis marker.
func Decode(data json.RawMessage) (ReportCard, bool) {
	var rc ReportCard
	if err := json.Unmarshal(data, &rc); err != nil || rc.StudentName == "" {
		return ReportCard{}, false
	}
	return rc, true
}
