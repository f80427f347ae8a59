package table

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domerrors "github.com/compeng-bot/compeng-bot-go/internal/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsConfig configures the Google Sheets source.
type SheetsConfig struct {
	// Credentials is either a service account JSON document or a path to one.
	// Empty falls back to application default credentials.
	Credentials string
	// Range is the A1 range read from every spreadsheet (e.g. "Sheet1").
	Range string
	// SpreadsheetIDs maps table name to spreadsheet id.
	SpreadsheetIDs map[string]string
}

// SheetsSource reads each table from its own spreadsheet.
type SheetsSource struct {
	svc *sheets.Service
	rng string
	ids map[string]string
}

// NewSheetsSource creates a Sheets-backed source. Extra client options are
// appended after the credential options (tests use them to point at a fake server).
func NewSheetsSource(ctx context.Context, cfg SheetsConfig, opts ...option.ClientOption) (*SheetsSource, error) {
	if len(cfg.SpreadsheetIDs) == 0 {
		return nil, errors.New("sheets source: no spreadsheet ids configured")
	}
	rng := cfg.Range
	if rng == "" {
		rng = "Sheet1"
	}

	clientOpts := append(credentialOptions(cfg.Credentials), opts...)
	clientOpts = append(clientOpts, option.WithScopes(sheets.SpreadsheetsReadonlyScope))

	svc, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("sheets source: create service: %w", err)
	}

	ids := make(map[string]string, len(cfg.SpreadsheetIDs))
	for name, id := range cfg.SpreadsheetIDs {
		ids[name] = id
	}

	return &SheetsSource{svc: svc, rng: rng, ids: ids}, nil
}

func credentialOptions(creds string) []option.ClientOption {
	creds = strings.TrimSpace(creds)
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

// Fetch implements Source.
func (s *SheetsSource) Fetch(ctx context.Context, name string) (*Table, error) {
	id, ok := s.ids[name]
	if !ok || id == "" {
		return nil, fmt.Errorf("sheets source: %q: %w", name, domerrors.ErrUnknownTable)
	}

	resp, err := s.svc.Spreadsheets.Values.Get(id, s.rng).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 404 {
			return nil, Permanent(fmt.Errorf("sheets source: spreadsheet for %q not found: %w", name, err))
		}
		return nil, fmt.Errorf("sheets source: get %q: %w", name, err)
	}

	return FromValues(name, stringifyValues(resp.Values))
}

func stringifyValues(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, cell := range row {
			if cell == nil {
				continue
			}
			if s, ok := cell.(string); ok {
				cells[j] = s
			} else {
				cells[j] = fmt.Sprint(cell)
			}
		}
		out[i] = cells
	}
	return out
}
