package table

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	domerrors "github.com/compeng-bot/compeng-bot-go/internal/errors"
	"github.com/compeng-bot/compeng-bot-go/internal/r2client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	objects map[string][]byte
	err     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (m *memoryStore) Download(_ context.Context, key string) (io.ReadCloser, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	data, ok := m.objects[key]
	if !ok {
		return nil, "", r2client.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), "etag", nil
}

func (m *memoryStore) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.objects[key] = data
	return "etag", nil
}

func TestObjectSource_PlainCSV(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.objects["tables/lecturer_info.csv"] = []byte("abbrev,name\nJD,\"Doe, Jane\"\nAB\n")

	tbl, err := NewObjectSource(store, ObjectConfig{Prefix: "tables/"}).Fetch(context.Background(), LecturerInfo)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "Doe, Jane", tbl.Rows[0]["name"])
	assert.Equal(t, "", tbl.Rows[1]["name"])
}

func TestObjectSource_PublishRoundTrip(t *testing.T) {
	t.Parallel()

	original, err := FromValues(UGCourses, [][]string{
		{"course_code", "title", "outline"},
		{"CPENG511", "Robotics", ""},
		{"CPENG211", "Digital Logic", "Line one\nline two"},
	})
	require.NoError(t, err)

	store := newMemoryStore()
	key, err := Publish(context.Background(), store, "tables/", original)
	require.NoError(t, err)
	assert.Equal(t, "tables/ug_courses.csv.zst", key)

	// a stale plain object must be shadowed by the compressed one
	store.objects["tables/ug_courses.csv"] = []byte("course_code\nSTALE\n")

	got, err := NewObjectSource(store, ObjectConfig{Prefix: "tables/"}).Fetch(context.Background(), UGCourses)
	require.NoError(t, err)
	assert.Equal(t, original.Header, got.Header)
	assert.Equal(t, original.Rows, got.Rows)
}

func TestObjectSource_Errors(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	src := NewObjectSource(store, ObjectConfig{})

	_, err := src.Fetch(context.Background(), UGCourses)
	assert.ErrorIs(t, err, domerrors.ErrUnknownTable)

	store.objects["ug_courses.csv"] = []byte("")
	_, err = src.Fetch(context.Background(), UGCourses)
	assert.ErrorIs(t, err, domerrors.ErrEmptySource)

	store.objects["ug_courses.csv"] = []byte("a,\"b\n")
	_, err = src.Fetch(context.Background(), UGCourses)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse csv")

	transport := errors.New("connection refused")
	store.err = transport
	_, err = src.Fetch(context.Background(), UGCourses)
	assert.ErrorIs(t, err, transport)
}

func TestObjectKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "p/ug_courses.csv", ObjectKey("p/", UGCourses, false))
	assert.Equal(t, "ug_courses.csv.zst", ObjectKey("", UGCourses, true))
	assert.False(t, strings.HasPrefix(ObjectKey("", UGCourses, true), "/"))
}
