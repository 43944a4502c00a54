package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/vectis-research/sinotrace/internal/model"
)

// reviewHeader is the CSV projection for spreadsheet review. The last
// three columns are manual-review fields the engine leaves blank and
// never writes to.
var reviewHeader = []string{
	"id", "source_file", "source_line", "entity_name", "signals",
	"total_score", "confidence", "tier", "category", "review_status",
	"true_positive", "confidence_score", "notes",
}

// WriteCSV writes the review projection of a classified batch.
func WriteCSV(w io.Writer, records []*model.ClassifiedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reviewHeader); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, rec := range records {
		if err := cw.Write(reviewRow(rec)); err != nil {
			return eris.Wrapf(err, "export: write csv row %s", rec.ID)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

func reviewRow(rec *model.ClassifiedRecord) []string {
	name, _ := rec.Raw.BestName()
	return []string{
		rec.ID,
		rec.Raw.SourceFile,
		fmt.Sprintf("%d", rec.Raw.SourceLine),
		name,
		SignalSummary(rec.Signals),
		fmt.Sprintf("%d", rec.TotalScore),
		string(rec.Confidence),
		string(rec.Tier),
		rec.Category,
		string(rec.ReviewStatus),
		"", // true_positive: reviewer-owned
		"", // confidence_score: reviewer-owned
		"", // notes: reviewer-owned
	}
}

// SignalSummary renders a signal list as "KIND(matched text)" joined by
// semicolons, in extraction order.
func SignalSummary(signals []model.DetectionSignal) string {
	parts := make([]string, len(signals))
	for i, s := range signals {
		parts[i] = fmt.Sprintf("%s(%s)", s.Kind, s.MatchedText)
	}
	return strings.Join(parts, "; ")
}
