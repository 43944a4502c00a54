package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/vectis-research/sinotrace/internal/model"
)

func sampleRecord() *model.ClassifiedRecord {
	return &model.ClassifiedRecord{
		ID: "deadbeef00112233",
		ScoredRecord: model.ScoredRecord{
			Raw: model.RawRecord{
				SourceFile:    "contracts.csv",
				SourceLine:    7,
				RecipientName: model.String("Huawei Technologies Co., Ltd."),
				Country:       model.String("CHN"),
			},
			Signals: []model.DetectionSignal{
				{Kind: model.SignalCountryCode, Field: model.FieldCountry, MatchedText: "CHN", Weight: 100},
				{Kind: model.SignalEntityName, Field: model.FieldRecipientName, MatchedText: "HUAWEI", Rule: "known_entities", Weight: 100},
			},
			TotalScore: 200,
			Confidence: model.ConfidenceHigh,
		},
		Tier:         model.Tier1,
		Category:     "strategic_entity",
		ReviewStatus: model.StatusUnreviewed,
	}
}

func TestWriteCSVHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{
		"id", "source_file", "source_line", "entity_name", "signals",
		"total_score", "confidence", "tier", "category", "review_status",
		"true_positive", "confidence_score", "notes",
	}, rows[0])
}

func TestWriteCSVRow(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []*model.ClassifiedRecord{sampleRecord()}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	row := rows[1]
	assert.Equal(t, "deadbeef00112233", row[0])
	assert.Equal(t, "contracts.csv", row[1])
	assert.Equal(t, "7", row[2])
	assert.Equal(t, "Huawei Technologies Co., Ltd.", row[3])
	assert.Equal(t, "COUNTRY_CODE(CHN); ENTITY_NAME(HUAWEI)", row[4])
	assert.Equal(t, "200", row[5])
	assert.Equal(t, "HIGH", row[6])
	assert.Equal(t, "TIER_1", row[7])
	assert.Equal(t, "strategic_entity", row[8])
	assert.Equal(t, "UNREVIEWED", row[9])

	// Reviewer-owned columns stay blank.
	assert.Equal(t, "", row[10])
	assert.Equal(t, "", row[11])
	assert.Equal(t, "", row[12])
}

func TestWriteCSVPreservesReviewStatus(t *testing.T) {
	rec := sampleRecord()
	rec.ReviewStatus = model.StatusConfirmed

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []*model.ClassifiedRecord{rec}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", rows[1][9])
}

func TestSignalSummary(t *testing.T) {
	assert.Equal(t, "", SignalSummary(nil))
	assert.Equal(t, "HONG_KONG(HONG KONG)", SignalSummary([]model.DetectionSignal{
		{Kind: model.SignalHongKong, MatchedText: "HONG KONG"},
	}))
	assert.Equal(t, "COUNTRY_CODE(CHN); GEOGRAPHIC_TOKEN(518000)", SignalSummary([]model.DetectionSignal{
		{Kind: model.SignalCountryCode, MatchedText: "CHN"},
		{Kind: model.SignalGeographicToken, MatchedText: "518000"},
	}))
}

func TestWriteJSONEmptyBatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]", string(bytes.TrimSpace(buf.Bytes())))
}

func TestWriteJSONRoundTrip(t *testing.T) {
	rec := sampleRecord()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, []*model.ClassifiedRecord{rec}))

	var got []*model.ClassifiedRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)
	assert.Equal(t, rec.TotalScore, got[0].TotalScore)
	assert.Equal(t, rec.Signals, got[0].Signals)
	assert.Equal(t, rec.Tier, got[0].Tier)
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "review.xlsx")
	require.NoError(t, WriteXLSX(path, []*model.ClassifiedRecord{sampleRecord()}))

	_, err := os.Stat(path)
	require.NoError(t, err)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	assert.Equal(t, "review", sheet.Name)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "id", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "deadbeef00112233", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "TIER_1", sheet.Rows[1].Cells[7].String())
}
