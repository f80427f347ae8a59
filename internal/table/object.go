package table

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	domerrors "github.com/compeng-bot/compeng-bot-go/internal/errors"
	"github.com/compeng-bot/compeng-bot-go/internal/r2client"
	"github.com/klauspost/compress/zstd"
)

// ObjectStore is the subset of r2client.Client used by ObjectSource.
type ObjectStore interface {
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// ObjectUploader publishes table snapshots.
type ObjectUploader interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// ObjectConfig configures the object storage source.
type ObjectConfig struct {
	// Prefix is prepended to every key (e.g. "tables/").
	Prefix string
}

// ObjectSource reads each table from a CSV object named <prefix><table>.csv.zst
// or, when no compressed object exists, <prefix><table>.csv.
type ObjectSource struct {
	store  ObjectStore
	prefix string
}

// NewObjectSource creates an object-storage-backed source.
func NewObjectSource(store ObjectStore, cfg ObjectConfig) *ObjectSource {
	return &ObjectSource{store: store, prefix: cfg.Prefix}
}

// ObjectKey returns the key of a table snapshot.
func ObjectKey(prefix, name string, compressed bool) string {
	key := prefix + name + ".csv"
	if compressed {
		key += ".zst"
	}
	return key
}

// Fetch implements Source.
func (s *ObjectSource) Fetch(ctx context.Context, name string) (*Table, error) {
	for _, compressed := range []bool{true, false} {
		key := ObjectKey(s.prefix, name, compressed)
		body, _, err := s.store.Download(ctx, key)
		if errors.Is(err, r2client.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("object source: %w", err)
		}

		values, err := readCSV(body, compressed)
		_ = body.Close()
		if err != nil {
			return nil, Permanent(fmt.Errorf("object source: %s: %w", key, err))
		}
		return FromValues(name, values)
	}
	return nil, fmt.Errorf("object source: no object for %q under %q: %w", name, s.prefix, domerrors.ErrUnknownTable)
}

func readCSV(r io.Reader, compressed bool) ([][]string, error) {
	if compressed {
		decoder, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create decoder: %w", err)
		}
		defer decoder.Close()
		r = decoder
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	values, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return values, nil
}

// EncodeCSV writes tbl as zstd-compressed CSV, header first.
func EncodeCSV(w io.Writer, tbl *Table) error {
	encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("create encoder: %w", err)
	}

	writer := csv.NewWriter(encoder)
	if err := writer.Write(tbl.Header); err != nil {
		_ = encoder.Close()
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(tbl.Header))
	for _, row := range tbl.Rows {
		for i, col := range tbl.Header {
			record[i] = row[col]
		}
		if err := writer.Write(record); err != nil {
			_ = encoder.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		_ = encoder.Close()
		return fmt.Errorf("flush csv: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return fmt.Errorf("close encoder: %w", err)
	}
	return nil
}

// Publish uploads tbl as <prefix><name>.csv.zst and returns the object key.
func Publish(ctx context.Context, up ObjectUploader, prefix string, tbl *Table) (string, error) {
	var sb strings.Builder
	if err := EncodeCSV(&sb, tbl); err != nil {
		return "", fmt.Errorf("publish %s: %w", tbl.Name, err)
	}
	key := ObjectKey(prefix, tbl.Name, true)
	if _, err := up.Upload(ctx, key, strings.NewReader(sb.String()), "application/zstd"); err != nil {
		return "", fmt.Errorf("publish %s: %w", tbl.Name, err)
	}
	return key, nil
}
