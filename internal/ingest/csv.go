package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// CSVSource reads a CSV or TSV file with a header row.
type CSVSource struct {
	Path string
	// Comma is the field delimiter; zero means ',' ('.tsv' files default
	// to a tab).
	Comma rune
}

// NewCSVSource creates a CSV source, inferring the delimiter from the
// file extension.
func NewCSVSource(path string) *CSVSource {
	s := &CSVSource{Path: path, Comma: ','}
	if filepath.Ext(path) == ".tsv" {
		s.Comma = '\t'
	}
	return s
}

func (s *CSVSource) ID() string { return filepath.Base(s.Path) }

func (s *CSVSource) Each(ctx context.Context, fn RecordFunc) (int, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return 0, eris.Wrapf(err, "ingest: open %s", s.Path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.Comma = s.Comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return 0, eris.Wrapf(err, "ingest: read header of %s", s.Path)
	}
	fields, mapped := mapHeader(header)
	if mapped == 0 {
		return 0, eris.Errorf("ingest: %s: no recognized columns in header", s.Path)
	}

	log := zap.L().With(zap.String("source", s.ID()))
	skipped := 0
	line := 1 // header was line 1
	for {
		if ctx.Err() != nil {
			return skipped, ctx.Err()
		}
		row, err := r.Read()
		line++
		if err == io.EOF {
			return skipped, nil
		}
		if err != nil {
			// One bad row never aborts the file.
			skipped++
			log.Warn("ingest: skipping malformed row", zap.Int("line", line), zap.Error(err))
			continue
		}
		rec := rowToRecord(s.ID(), line, fields, row)
		if len(rec.SetFields()) == 0 {
			skipped++
			log.Debug("ingest: skipping empty row", zap.Int("line", line))
			continue
		}
		if err := fn(rec); err != nil {
			return skipped, err
		}
	}
}

var _ Source = (*CSVSource)(nil)
