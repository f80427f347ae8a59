package table

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"time"

	domerrors "github.com/compeng-bot/compeng-bot-go/internal/errors"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteSource reads each table from a same-named table in a SQLite database.
type SQLiteSource struct {
	conn *sql.DB
	path string
}

// NewSQLiteSource opens the database at path. The file must already exist
// unless path is ":memory:".
func NewSQLiteSource(path string) (*SQLiteSource, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?mode=ro"
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetConnMaxLifetime(time.Hour)
	if path == ":memory:" {
		// each connection to :memory: is a separate database
		conn.SetMaxOpenConns(1)
	}

	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteSource{conn: conn, path: path}, nil
}

// Close closes the database connection
func (s *SQLiteSource) Close() error {
	return s.conn.Close()
}

// Fetch implements Source. The header is the table's column list.
func (s *SQLiteSource) Fetch(ctx context.Context, name string) (*Table, error) {
	if !identifierPattern.MatchString(name) {
		return nil, fmt.Errorf("sqlite source: invalid table name %q: %w", name, domerrors.ErrUnknownTable)
	}

	var exists int
	err := s.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?", name,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("sqlite source: lookup %q: %w", name, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("sqlite source: %q: %w", name, domerrors.ErrUnknownTable)
	}

	rows, err := s.conn.QueryContext(ctx, `SELECT * FROM "`+name+`"`)
	if err != nil {
		return nil, fmt.Errorf("sqlite source: query %q: %w", name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sqlite source: columns %q: %w", name, err)
	}

	values := [][]string{columns}
	raw := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range raw {
		dest[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("sqlite source: scan %q: %w", name, err)
		}
		record := make([]string, len(columns))
		for i, v := range raw {
			record[i] = cellText(v)
		}
		values = append(values, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite source: iterate %q: %w", name, err)
	}

	return FromValues(name, values)
}

func cellText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
