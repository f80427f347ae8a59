package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		checkFn  func(error) bool
		expected bool
	}{
		{
			name:     "ErrEmptySource is structural",
			err:      ErrEmptySource,
			checkFn:  IsStructural,
			expected: true,
		},
		{
			name:     "Wrapped ErrEmptySource is structural",
			err:      fmt.Errorf("fetch ug_courses: %w", ErrEmptySource),
			checkFn:  IsStructural,
			expected: true,
		},
		{
			name:     "SchemaError is structural",
			err:      NewSchemaError("ug_courses", "title"),
			checkFn:  IsStructural,
			expected: true,
		},
		{
			name:     "LookupError is structural",
			err:      NewLookupError("XY", "CPENG511"),
			checkFn:  IsStructural,
			expected: true,
		},
		{
			name:     "Unrecognized intent is not structural",
			err:      ErrUnrecognizedIntent,
			checkFn:  IsStructural,
			expected: false,
		},
		{
			name:     "ErrUnrecognizedIntent is recognized",
			err:      fmt.Errorf("dispatch: %w", ErrUnrecognizedIntent),
			checkFn:  IsUnrecognizedIntent,
			expected: true,
		},
		{
			name:     "Different error is not ErrUnrecognizedIntent",
			err:      ErrEmptySource,
			checkFn:  IsUnrecognizedIntent,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := tt.checkFn(tt.err)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestSchemaError(t *testing.T) {
	t.Parallel()
	err := NewSchemaError("course_lecturers", "course_code", "lecturer_abbrev")

	if err.Table != "course_lecturers" {
		t.Errorf("expected table 'course_lecturers', got '%s'", err.Table)
	}

	expected := "schema mismatch in table course_lecturers: missing column(s) course_code, lecturer_abbrev"
	if err.Error() != expected {
		t.Errorf("expected error '%s', got '%s'", expected, err.Error())
	}

	if !errors.Is(err, ErrSchemaMismatch) {
		t.Error("expected SchemaError to unwrap to ErrSchemaMismatch")
	}
}

func TestLookupError(t *testing.T) {
	t.Parallel()
	withCourse := NewLookupError("JDO", "CPENG511")
	if withCourse.Error() != "lecturer not found for abbreviation JDO (referenced by CPENG511)" {
		t.Errorf("unexpected message: %s", withCourse.Error())
	}

	bare := NewLookupError("JDO", "")
	if bare.Error() != "lecturer not found for abbreviation JDO" {
		t.Errorf("unexpected message: %s", bare.Error())
	}

	var target *LookupError
	if !errors.As(fmt.Errorf("resolve: %w", bare), &target) {
		t.Fatal("expected errors.As to find LookupError")
	}
	if target.Abbrev != "JDO" {
		t.Errorf("expected abbrev 'JDO', got '%s'", target.Abbrev)
	}
	if !errors.Is(bare, ErrLookupInconsistency) {
		t.Error("expected LookupError to unwrap to ErrLookupInconsistency")
	}
}
