package snapshot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/compeng-bot/compeng-bot-go/internal/r2client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory object store keyed by object key.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (m *memStore) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return "etag-" + key, nil
}

func (m *memStore) Download(_ context.Context, key string) (io.ReadCloser, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, "", r2client.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), "etag-" + key, nil
}

func TestPublishThenFetch(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := filepath.Join(dir, "tables.db")
	payload := bytes.Repeat([]byte("SQLite format 3\x00"), 4096)
	require.NoError(t, os.WriteFile(src, payload, 0o600))

	store := newMemStore()
	etag, err := Publish(t.Context(), store, "snapshots/tables.db.zst", src)
	require.NoError(t, err)
	assert.Equal(t, "etag-snapshots/tables.db.zst", etag)
	assert.Less(t, len(store.objects["snapshots/tables.db.zst"]), len(payload), "snapshot should be compressed")

	dest := filepath.Join(dir, "restored", "tables.db")
	etag, err = Fetch(t.Context(), store, "snapshots/tables.db.zst", dest)
	require.NoError(t, err)
	assert.Equal(t, "etag-snapshots/tables.db.zst", etag)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	leftovers, err := filepath.Glob(filepath.Join(dir, "restored", "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFetch_NotFound(t *testing.T) {
	t.Parallel()
	_, err := Fetch(t.Context(), newMemStore(), "missing.db.zst", filepath.Join(t.TempDir(), "tables.db"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetch_CorruptSnapshotKeepsExistingFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	dest := filepath.Join(dir, "tables.db")
	require.NoError(t, os.WriteFile(dest, []byte("previous"), 0o600))

	store := newMemStore()
	store.objects["bad.db.zst"] = []byte("not zstd at all")

	_, err := Fetch(t.Context(), store, "bad.db.zst", dest)
	require.Error(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(got))
}

func TestPublish_MissingSource(t *testing.T) {
	t.Parallel()
	_, err := Publish(t.Context(), newMemStore(), "k", filepath.Join(t.TempDir(), "nope.db"))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}
