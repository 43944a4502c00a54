package ingest

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

// XLSXSource reads the first (or a named) sheet of an XLSX workbook with
// a header row.
type XLSXSource struct {
	Path      string
	SheetName string // empty = first sheet
}

func NewXLSXSource(path string) *XLSXSource {
	return &XLSXSource{Path: path}
}

func (s *XLSXSource) ID() string { return filepath.Base(s.Path) }

func (s *XLSXSource) Each(ctx context.Context, fn RecordFunc) (int, error) {
	f, err := xlsx.OpenFile(s.Path)
	if err != nil {
		return 0, eris.Wrapf(err, "ingest: open xlsx %s", s.Path)
	}

	sheet, err := s.sheet(f)
	if err != nil {
		return 0, err
	}
	if len(sheet.Rows) == 0 {
		return 0, eris.Errorf("ingest: %s: empty sheet", s.Path)
	}

	fields, mapped := mapHeader(rowStrings(sheet.Rows[0]))
	if mapped == 0 {
		return 0, eris.Errorf("ingest: %s: no recognized columns in header", s.Path)
	}

	log := zap.L().With(zap.String("source", s.ID()))
	skipped := 0
	for i, row := range sheet.Rows[1:] {
		if ctx.Err() != nil {
			return skipped, ctx.Err()
		}
		line := i + 2 // 1-based, after header
		rec := rowToRecord(s.ID(), line, fields, rowStrings(row))
		if len(rec.SetFields()) == 0 {
			skipped++
			log.Debug("ingest: skipping empty row", zap.Int("line", line))
			continue
		}
		if err := fn(rec); err != nil {
			return skipped, err
		}
	}
	return skipped, nil
}

func (s *XLSXSource) sheet(f *xlsx.File) (*xlsx.Sheet, error) {
	if s.SheetName != "" {
		sheet, ok := f.Sheet[s.SheetName]
		if !ok {
			return nil, eris.Errorf("ingest: %s: sheet %q not found", s.Path, s.SheetName)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("ingest: %s: workbook has no sheets", s.Path)
	}
	return f.Sheets[0], nil
}

func rowStrings(row *xlsx.Row) []string {
	out := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		out[i] = c.String()
	}
	return out
}

var _ Source = (*XLSXSource)(nil)

// Open creates the right source for a path by extension: .csv/.tsv,
// .jsonl/.ndjson or .xlsx.
func Open(path string) (Source, error) {
	switch filepath.Ext(path) {
	case ".csv", ".tsv":
		return NewCSVSource(path), nil
	case ".jsonl", ".ndjson", ".json":
		return NewJSONLSource(path), nil
	case ".xlsx":
		return NewXLSXSource(path), nil
	default:
		return nil, eris.Errorf("ingest: unsupported source format %q", filepath.Ext(path))
	}
}
