package main

import (
	"testing"

	"github.com/compeng-bot/compeng-bot-go/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTable(t *testing.T, name string, values [][]string) *table.Table {
	t.Helper()
	tbl, err := table.FromValues(name, values)
	require.NoError(t, err)
	return tbl
}

func failed(results []verifyResult) []verifyResult {
	var out []verifyResult
	for _, r := range results {
		if !r.passed {
			out = append(out, r)
		}
	}
	return out
}

func TestVerifyTables_Consistent(t *testing.T) {
	t.Parallel()
	tables := map[string]*table.Table{
		table.UGCourses: mustTable(t, table.UGCourses, [][]string{
			{"course_code", "title", "outline"},
			{"CPENG511", "Robotics", ""},
		}),
		table.CourseLecturers: mustTable(t, table.CourseLecturers, [][]string{
			{"course_code", "lecturer_abbrev"},
			{"CPENG511", "JD, AB"},
		}),
		table.LecturerInfo: mustTable(t, table.LecturerInfo, [][]string{
			{"abbrev", "name"},
			{"JD", "Jane Doe"},
			{"AB", "Alan Brown"},
		}),
	}

	results := verifyTables(tables)

	assert.Empty(t, failed(results))
	assert.Len(t, results, 4)
}

func TestVerifyTables_DanglingLecturer(t *testing.T) {
	t.Parallel()
	tables := map[string]*table.Table{
		table.CourseLecturers: mustTable(t, table.CourseLecturers, [][]string{
			{"course_code", "lecturer_abbrev"},
			{"CPENG511", "JD, ZZ"},
		}),
		table.LecturerInfo: mustTable(t, table.LecturerInfo, [][]string{
			{"abbrev", "name"},
			{"JD", "Jane Doe"},
		}),
	}

	bad := failed(verifyTables(tables))

	require.Len(t, bad, 1)
	assert.Equal(t, "Lecturer references", bad[0].name)
	assert.Contains(t, bad[0].message, "ZZ")
}

func TestVerifyTables_SchemaMismatch(t *testing.T) {
	t.Parallel()
	tables := map[string]*table.Table{
		table.UGCourses: mustTable(t, table.UGCourses, [][]string{
			{"code", "name"},
			{"CPENG511", "Robotics"},
		}),
	}

	bad := failed(verifyTables(tables))

	require.Len(t, bad, 1)
	assert.Equal(t, "Schema "+table.UGCourses, bad[0].name)
}

func TestFetchAll_ReportsMissingTables(t *testing.T) {
	t.Parallel()
	src := table.NewStaticSource(map[string][][]string{
		table.UGCourses: {{"course_code", "title", "outline"}, {"CPENG511", "Robotics", ""}},
	})

	tables, results := fetchAll(t.Context(), src)

	assert.Len(t, tables, 1)
	assert.Len(t, failed(results), 2)
}
