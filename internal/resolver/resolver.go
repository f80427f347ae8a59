// Package resolver resolves course codes and lecturer abbreviations against
// the courses, course-lecturer and lecturer directory tables.
//
// Every operation fetches the tables it needs once per call and joins them
// with linear scans. Unmatched identifiers are answered in-band with fallback
// text; only malformed or inconsistent tables produce errors.
package resolver

import (
	"context"
	"fmt"

	domerrors "github.com/compeng-bot/compeng-bot-go/internal/errors"
	"github.com/compeng-bot/compeng-bot-go/internal/table"
)

// Fallback texts for identifiers that cannot be resolved.
const (
	TitleNotFound      = "Not found"
	OutlineUnavailable = "No outline available for this course"
	OutlineNotFound    = "No outline found for this course"
	LecturersNotFound  = "Lecturers info not available"
	NoCourses          = "No courses"

	// LecturerNotFound prefixes the abbreviation a caller asked about.
	LecturerNotFound = "Lecturer not found for abbreviation "
)

// Entry pairs a normalized code with a single resolved value or fallback text.
type Entry struct {
	Key   string
	Value string
}

// ListEntry pairs a key with resolved values. Fallback is set, and Values
// empty, when nothing resolved.
type ListEntry struct {
	Key      string
	Values   []string
	Fallback string
}

// Resolver answers lookups against a table source.
type Resolver struct {
	src table.Source
}

// New creates a resolver reading from src.
func New(src table.Source) *Resolver {
	return &Resolver{src: src}
}

// ResolveTitles returns one entry per input code, in input order.
func (r *Resolver) ResolveTitles(ctx context.Context, codes []string) ([]Entry, error) {
	courses, err := r.courses(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(codes))
	for _, raw := range codes {
		code := NormalizeCode(raw)
		value := TitleNotFound
		if c, ok := courses.FindCourse(code); ok {
			value = c.Title
		}
		entries = append(entries, Entry{Key: code, Value: value})
	}
	return entries, nil
}

// ResolveOutlines returns one entry per input code, in input order.
// A matched course with a blank outline and an unmatched code get different fallbacks.
func (r *Resolver) ResolveOutlines(ctx context.Context, codes []string) ([]Entry, error) {
	courses, err := r.courses(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(codes))
	for _, raw := range codes {
		code := NormalizeCode(raw)
		c, ok := courses.FindCourse(code)
		switch {
		case !ok:
			entries = append(entries, Entry{Key: code, Value: OutlineNotFound})
		case c.Outline == "":
			entries = append(entries, Entry{Key: code, Value: OutlineUnavailable})
		default:
			entries = append(entries, Entry{Key: code, Value: c.Outline})
		}
	}
	return entries, nil
}

// ResolveCourseLecturers returns the lecturer names teaching each input code.
// An abbreviation with no directory entry yields a *errors.LookupError.
func (r *Resolver) ResolveCourseLecturers(ctx context.Context, codes []string) ([]ListEntry, error) {
	assignments, err := r.assignments(ctx)
	if err != nil {
		return nil, err
	}
	dir, err := r.directory(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]ListEntry, 0, len(codes))
	for _, raw := range codes {
		code := NormalizeCode(raw)
		a, ok := assignments.FindAssignment(code)
		if !ok || len(a.Lecturers) == 0 {
			entries = append(entries, ListEntry{Key: code, Fallback: LecturersNotFound})
			continue
		}

		names := make([]string, 0, len(a.Lecturers))
		for _, abbrev := range a.Lecturers {
			l, found := dir.FindLecturer(abbrev)
			if !found {
				return nil, domerrors.NewLookupError(abbrev, code)
			}
			names = append(names, l.Name)
		}
		entries = append(entries, ListEntry{Key: code, Values: names})
	}
	return entries, nil
}

// ResolveLecturerCourses returns, per lecturer abbreviation, the display name
// and every course code whose assignment lists that abbreviation, in table order.
// Abbreviations are matched exactly as given. An abbreviation missing from the
// directory is keyed by itself and answered with LecturerNotFound.
func (r *Resolver) ResolveLecturerCourses(ctx context.Context, abbrevs []string) ([]ListEntry, error) {
	dir, err := r.directory(ctx)
	if err != nil {
		return nil, err
	}
	assignments, err := r.assignments(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]ListEntry, 0, len(abbrevs))
	for _, abbrev := range abbrevs {
		l, ok := dir.FindLecturer(abbrev)
		if !ok {
			entries = append(entries, ListEntry{Key: abbrev, Fallback: LecturerNotFound + abbrev})
			continue
		}

		var codes []string
		for _, a := range assignments {
			if a.Teaches(abbrev) {
				codes = append(codes, a.Course)
			}
		}
		entry := ListEntry{Key: l.Name, Values: codes}
		if len(codes) == 0 {
			entry.Fallback = NoCourses
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *Resolver) fetch(ctx context.Context, name string) (*table.Table, error) {
	tbl, err := r.src.Fetch(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	return tbl, nil
}

func (r *Resolver) courses(ctx context.Context) (Courses, error) {
	tbl, err := r.fetch(ctx, table.UGCourses)
	if err != nil {
		return nil, err
	}
	return LoadCourses(tbl)
}

func (r *Resolver) assignments(ctx context.Context) (Assignments, error) {
	tbl, err := r.fetch(ctx, table.CourseLecturers)
	if err != nil {
		return nil, err
	}
	return LoadAssignments(tbl)
}

func (r *Resolver) directory(ctx context.Context) (Directory, error) {
	tbl, err := r.fetch(ctx, table.LecturerInfo)
	if err != nil {
		return nil, err
	}
	return LoadLecturers(tbl)
}
