package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/vectis-research/sinotrace/internal/model"
)

// maxJSONLine bounds a single JSON line; anything larger is malformed.
const maxJSONLine = 1 << 20

// JSONLSource reads newline-delimited JSON objects of string fields.
// Keys are resolved through the same alias table as CSV headers, so
// {"recipient": ...} and {"recipient_name": ...} are equivalent.
type JSONLSource struct {
	Path string
}

func NewJSONLSource(path string) *JSONLSource {
	return &JSONLSource{Path: path}
}

func (s *JSONLSource) ID() string { return filepath.Base(s.Path) }

func (s *JSONLSource) Each(ctx context.Context, fn RecordFunc) (int, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return 0, eris.Wrapf(err, "ingest: open %s", s.Path)
	}
	defer f.Close() //nolint:errcheck

	log := zap.L().With(zap.String("source", s.ID()))
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxJSONLine)

	skipped := 0
	line := 0
	for sc.Scan() {
		if ctx.Err() != nil {
			return skipped, ctx.Err()
		}
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}

		var obj map[string]string
		if err := json.Unmarshal([]byte(text), &obj); err != nil {
			skipped++
			log.Warn("ingest: skipping malformed json line", zap.Int("line", line), zap.Error(err))
			continue
		}

		rec := model.RawRecord{SourceFile: s.ID(), SourceLine: line}
		for k, v := range obj {
			canon := canonicalField(k)
			if canon == "" {
				continue
			}
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			rec.SetField(canon, v)
		}
		if len(rec.SetFields()) == 0 {
			skipped++
			log.Debug("ingest: skipping record with no recognized fields", zap.Int("line", line))
			continue
		}
		if err := fn(rec); err != nil {
			return skipped, err
		}
	}
	if err := sc.Err(); err != nil {
		return skipped, eris.Wrapf(err, "ingest: scan %s", s.Path)
	}
	return skipped, nil
}

var _ Source = (*JSONLSource)(nil)
