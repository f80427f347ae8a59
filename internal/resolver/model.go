package resolver

import (
	"strings"

	domerrors "github.com/compeng-bot/compeng-bot-go/internal/errors"
	"github.com/compeng-bot/compeng-bot-go/internal/table"
)

// Column names of the three source tables.
const (
	ColCourseCode     = "course_code"
	ColTitle          = "title"
	ColOutline        = "outline"
	ColLecturerAbbrev = "lecturer_abbrev"
	ColAbbrev         = "abbrev"
	ColName           = "name"
)

// AbbrevDelimiter separates lecturer abbreviations within one assignment field.
const AbbrevDelimiter = ","

// Course is one row of the courses table.
type Course struct {
	Code    string // normalized
	Title   string
	Outline string // empty when the source cell is blank
}

// Assignment links a course to the lecturers teaching it.
type Assignment struct {
	Course    string   // normalized
	Lecturers []string // unique, in field order
}

// Teaches reports whether abbrev is one of the assignment's tokens.
func (a Assignment) Teaches(abbrev string) bool {
	for _, l := range a.Lecturers {
		if l == abbrev {
			return true
		}
	}
	return false
}

// Lecturer is one row of the lecturer directory.
type Lecturer struct {
	Abbrev string
	Name   string
}

// Courses is the loaded courses table.
type Courses []Course

// FindCourse returns the first course whose code equals the normalized code.
func (cs Courses) FindCourse(code string) (Course, bool) {
	for _, c := range cs {
		if c.Code == code {
			return c, true
		}
	}
	return Course{}, false
}

// Assignments is the loaded course-lecturer table.
type Assignments []Assignment

// FindAssignment returns the first assignment for the normalized course code.
func (as Assignments) FindAssignment(code string) (Assignment, bool) {
	for _, a := range as {
		if a.Course == code {
			return a, true
		}
	}
	return Assignment{}, false
}

// Directory is the loaded lecturer directory.
type Directory []Lecturer

// FindLecturer returns the first lecturer whose abbreviation matches exactly.
func (d Directory) FindLecturer(abbrev string) (Lecturer, bool) {
	for _, l := range d {
		if l.Abbrev == abbrev {
			return l, true
		}
	}
	return Lecturer{}, false
}

// LoadCourses validates and converts the courses table.
func LoadCourses(tbl *table.Table) (Courses, error) {
	if err := tbl.Require(ColCourseCode, ColTitle, ColOutline); err != nil {
		return nil, err
	}
	courses := make(Courses, 0, tbl.Len())
	for _, row := range tbl.Rows {
		courses = append(courses, Course{
			Code:    NormalizeCode(row[ColCourseCode]),
			Title:   row[ColTitle],
			Outline: row[ColOutline],
		})
	}
	return courses, nil
}

// LoadAssignments validates and converts the course-lecturer table.
func LoadAssignments(tbl *table.Table) (Assignments, error) {
	if err := tbl.Require(ColCourseCode, ColLecturerAbbrev); err != nil {
		return nil, err
	}
	assignments := make(Assignments, 0, tbl.Len())
	for _, row := range tbl.Rows {
		assignments = append(assignments, Assignment{
			Course:    NormalizeCode(row[ColCourseCode]),
			Lecturers: SplitAbbrevs(row[ColLecturerAbbrev]),
		})
	}
	return assignments, nil
}

// LoadLecturers validates and converts the lecturer directory. Abbreviation
// cells are trimmed to match the trimmed tokens of the assignment table.
func LoadLecturers(tbl *table.Table) (Directory, error) {
	if err := tbl.Require(ColAbbrev, ColName); err != nil {
		return nil, err
	}
	dir := make(Directory, 0, tbl.Len())
	for _, row := range tbl.Rows {
		dir = append(dir, Lecturer{
			Abbrev: strings.TrimSpace(row[ColAbbrev]),
			Name:   row[ColName],
		})
	}
	return dir, nil
}

// CheckIntegrity returns one *LookupError per assignment token with no
// directory entry, in table order.
func CheckIntegrity(as Assignments, dir Directory) []error {
	var errs []error
	for _, a := range as {
		for _, abbrev := range a.Lecturers {
			if _, ok := dir.FindLecturer(abbrev); !ok {
				errs = append(errs, domerrors.NewLookupError(abbrev, a.Course))
			}
		}
	}
	return errs
}
