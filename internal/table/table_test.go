package table

import (
	"context"
	"errors"
	"testing"

	domerrors "github.com/compeng-bot/compeng-bot-go/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromValues(t *testing.T) {
	t.Parallel()

	tbl, err := FromValues(UGCourses, [][]string{
		{" course_code ", "title", "outline"},
		{"CPENG511", "Robotics"},
		{"CPENG211", "Digital Logic", "Gates and flip-flops", "extra"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"course_code", "title", "outline"}, tbl.Header)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, Row{"course_code": "CPENG511", "title": "Robotics", "outline": ""}, tbl.Rows[0])
	assert.Equal(t, "Gates and flip-flops", tbl.Rows[1]["outline"])
	assert.Len(t, tbl.Rows[1], 3)
}

func TestFromValues_HeaderOnly(t *testing.T) {
	t.Parallel()

	tbl, err := FromValues(LecturerInfo, [][]string{{"abbrev", "name"}})
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
}

func TestFromValues_Empty(t *testing.T) {
	t.Parallel()

	_, err := FromValues(LecturerInfo, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domerrors.ErrEmptySource)
	assert.Contains(t, err.Error(), LecturerInfo)
}

func TestTable_Require(t *testing.T) {
	t.Parallel()

	tbl, err := FromValues(CourseLecturers, [][]string{{"course_code", "lecturers"}})
	require.NoError(t, err)

	assert.NoError(t, tbl.Require("course_code"))

	err = tbl.Require("course_code", "lecturer_abbrev", "notes")
	require.Error(t, err)
	assert.ErrorIs(t, err, domerrors.ErrSchemaMismatch)

	var schemaErr *domerrors.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, CourseLecturers, schemaErr.Table)
	assert.Equal(t, []string{"lecturer_abbrev", "notes"}, schemaErr.Missing)
}

func TestStaticSource(t *testing.T) {
	t.Parallel()

	src := NewStaticSource(map[string][][]string{
		LecturerInfo: {{"abbrev", "name"}, {"JD", "Jane Doe"}},
	})

	tbl, err := src.Fetch(context.Background(), LecturerInfo)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", tbl.Rows[0]["name"])

	_, err = src.Fetch(context.Background(), "timetable")
	assert.ErrorIs(t, err, domerrors.ErrUnknownTable)

	src.Set(LecturerInfo, [][]string{})
	_, err = src.Fetch(context.Background(), LecturerInfo)
	assert.ErrorIs(t, err, domerrors.ErrEmptySource)
}

func TestStaticSource_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStaticSource(nil).Fetch(ctx, UGCourses)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNames(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"ug_courses", "course_lecturers", "lecturer_info"}, Names())
}
