// Package snapshot moves zstd-compressed SQLite table databases between
// object storage and local disk. The sqlite table source is seeded from a
// snapshot at startup; the verify command publishes one.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/compeng-bot/compeng-bot-go/internal/r2client"
	"github.com/klauspost/compress/zstd"
)

// ErrNotFound is returned when no snapshot exists under the key.
var ErrNotFound = errors.New("snapshot: not found")

// Downloader is satisfied by *r2client.Client.
type Downloader interface {
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// Uploader is satisfied by *r2client.Client.
type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// Fetch downloads the snapshot at key and decompresses it to destPath. The
// file is written next to destPath and renamed into place, so readers never
// see a partial database. It returns the object's ETag.
func Fetch(ctx context.Context, store Downloader, key, destPath string) (string, error) {
	body, etag, err := store.Download(ctx, key)
	if err != nil {
		if errors.Is(err, r2client.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return "", fmt.Errorf("download snapshot: %w", err)
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(destPath), filepath.Base(destPath)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if err := decompress(body, tmp); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", fmt.Errorf("install snapshot: %w", err)
	}
	return etag, nil
}

// Publish compresses the database at srcPath and uploads it under key.
// The database must not be written to while Publish runs.
func Publish(ctx context.Context, store Uploader, key, srcPath string) (string, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("open database: %w", err)
	}
	defer src.Close()

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(compress(src, pw))
	}()

	etag, err := store.Upload(ctx, key, pr, "application/zstd")
	_ = pr.CloseWithError(err)
	if err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}
	return etag, nil
}

func compress(r io.Reader, w io.Writer) error {
	encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("compress: create encoder: %w", err)
	}
	if _, err := io.Copy(encoder, r); err != nil {
		_ = encoder.Close()
		return fmt.Errorf("compress: copy: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("compress: close encoder: %w", err)
	}
	return nil
}

func decompress(r io.Reader, w io.Writer) error {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("decompress: create decoder: %w", err)
	}
	defer decoder.Close()

	if _, err := io.Copy(w, decoder); err != nil {
		return fmt.Errorf("decompress: copy: %w", err)
	}
	return nil
}
