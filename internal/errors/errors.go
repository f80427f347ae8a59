// Package errors provides domain-specific error types and sentinel errors
// for the fulfillment backend.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrEmptySource indicates a table fetch returned no values at all (not even a header).
	ErrEmptySource = errors.New("empty source")

	// ErrSchemaMismatch indicates an expected column is absent from a table header.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrUnknownTable indicates a table name the configured source does not know.
	ErrUnknownTable = errors.New("unknown table")

	// ErrLookupInconsistency indicates a lecturer abbreviation with no directory entry.
	ErrLookupInconsistency = errors.New("lookup inconsistency")

	// ErrUnrecognizedIntent indicates an intent name with no registered operation.
	ErrUnrecognizedIntent = errors.New("unrecognized intent")
)

// SchemaError reports the columns a table is missing.
type SchemaError struct {
	Table   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema mismatch in table %s: missing column(s) %s", e.Table, strings.Join(e.Missing, ", "))
}

// Unwrap allows errors.Is(err, ErrSchemaMismatch).
func (e *SchemaError) Unwrap() error {
	return ErrSchemaMismatch
}

// NewSchemaError creates a new schema error.
func NewSchemaError(table string, missing ...string) *SchemaError {
	return &SchemaError{
		Table:   table,
		Missing: missing,
	}
}

// LookupError reports a lecturer abbreviation, referenced by a course
// assignment, that has no directory entry.
type LookupError struct {
	Abbrev string
	Course string
}

func (e *LookupError) Error() string {
	if e.Course != "" {
		return fmt.Sprintf("lecturer not found for abbreviation %s (referenced by %s)", e.Abbrev, e.Course)
	}
	return fmt.Sprintf("lecturer not found for abbreviation %s", e.Abbrev)
}

// Unwrap allows errors.Is(err, ErrLookupInconsistency).
func (e *LookupError) Unwrap() error {
	return ErrLookupInconsistency
}

// NewLookupError creates a new lookup error.
func NewLookupError(abbrev, course string) *LookupError {
	return &LookupError{
		Abbrev: abbrev,
		Course: course,
	}
}

// IsStructural reports whether err comes from malformed or inconsistent source
// tables rather than from the caller's input.
func IsStructural(err error) bool {
	return errors.Is(err, ErrEmptySource) ||
		errors.Is(err, ErrSchemaMismatch) ||
		errors.Is(err, ErrLookupInconsistency) ||
		errors.Is(err, ErrUnknownTable)
}

// IsUnrecognizedIntent checks if an error is ErrUnrecognizedIntent.
func IsUnrecognizedIntent(err error) bool {
	return errors.Is(err, ErrUnrecognizedIntent)
}
