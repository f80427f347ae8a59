// Package table fetches the named tabular datasets the resolver joins over.
//
// A Source returns one Table per name: the first row of the underlying
// dataset is the header and every following row is keyed by it. Sources never
// cache; every Fetch is a fresh read of the backing store.
package table

import (
	"context"
	"fmt"
	"strings"

	domerrors "github.com/compeng-bot/compeng-bot-go/internal/errors"
)

// Table names consumed by the resolver.
const (
	UGCourses       = "ug_courses"
	CourseLecturers = "course_lecturers"
	LecturerInfo    = "lecturer_info"
)

// Names returns every table name the service reads, in a stable order.
func Names() []string {
	return []string{UGCourses, CourseLecturers, LecturerInfo}
}

// Source fetches a named table.
type Source interface {
	// Fetch returns the table called name. A dataset with no values at all
	// yields an error wrapping ErrEmptySource; a name the source does not
	// know yields an error wrapping ErrUnknownTable.
	Fetch(ctx context.Context, name string) (*Table, error)
}

// Row maps column name to cell text.
type Row map[string]string

// Table is a header plus the rows keyed by it.
type Table struct {
	Name   string
	Header []string
	Rows   []Row
}

// FromValues builds a Table from raw cell values. The first row is the header.
// Short rows are padded with empty cells; cells beyond the header are ignored.
func FromValues(name string, values [][]string) (*Table, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("table %s: %w", name, domerrors.ErrEmptySource)
	}

	header := make([]string, len(values[0]))
	for i, col := range values[0] {
		header[i] = strings.TrimSpace(col)
	}

	rows := make([]Row, 0, len(values)-1)
	for _, cells := range values[1:] {
		row := make(Row, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			if _, dup := row[col]; dup {
				// first occurrence of a repeated column wins
				continue
			}
			if i < len(cells) {
				row[col] = cells[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}

	return &Table{Name: name, Header: header, Rows: rows}, nil
}

// HasColumn reports whether column is part of the header.
func (t *Table) HasColumn(column string) bool {
	for _, col := range t.Header {
		if col == column {
			return true
		}
	}
	return false
}

// Require returns a *SchemaError listing every column absent from the header.
func (t *Table) Require(columns ...string) error {
	var missing []string
	for _, col := range columns {
		if !t.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return domerrors.NewSchemaError(t.Name, missing...)
	}
	return nil
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}
