// Package export writes classified batches for downstream consumers: a
// JSON array carrying full signals and provenance, and CSV/XLSX review
// projections for human reviewers.
package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/vectis-research/sinotrace/internal/model"
)

// WriteJSON writes the full classified batch as an indented JSON array,
// each record including its provenance entry and the ordered signal list
// that produced its score.
func WriteJSON(w io.Writer, records []*model.ClassifiedRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if records == nil {
		records = []*model.ClassifiedRecord{}
	}
	if err := enc.Encode(records); err != nil {
		return eris.Wrap(err, "export: encode json")
	}
	return nil
}
