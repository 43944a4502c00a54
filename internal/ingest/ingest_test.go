package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectis-research/sinotrace/internal/model"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func collect(t *testing.T, src Source) ([]model.RawRecord, int) {
	t.Helper()
	var records []model.RawRecord
	skipped, err := src.Each(context.Background(), func(rec model.RawRecord) error {
		records = append(records, rec)
		return nil
	})
	require.NoError(t, err)
	return records, skipped
}

func TestCanonicalField(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"recipient_name", model.FieldRecipientName},
		{"Recipient Name", model.FieldRecipientName},
		{"AWARDEE", model.FieldRecipientName},
		{"vendor-name", model.FieldVendorName},
		{"supplier", model.FieldVendorName},
		{"award_description", model.FieldDescription},
		{"Country Code", model.FieldCountry},
		{"zip", model.FieldPostalCode},
		{"action_date", model.FieldDate},
		{"award type", model.FieldRecordType},
		{"naics_code", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, canonicalField(tt.in), "header %q", tt.in)
	}
}

func TestCSVSource(t *testing.T) {
	path := writeFile(t, "contracts.csv",
		"Recipient Name,Country Code,Award Description,Zip\n"+
			"Huawei Technologies,CHN,network gear,100000\n"+
			"Acme Corp,USA,,\n")

	records, skipped := collect(t, NewCSVSource(path))
	require.Len(t, records, 2)
	assert.Zero(t, skipped)

	first := records[0]
	assert.Equal(t, "contracts.csv", first.SourceFile)
	assert.Equal(t, 2, first.SourceLine)

	name, ok := first.RecipientName.Get()
	require.True(t, ok)
	assert.Equal(t, "Huawei Technologies", name)

	zip, ok := first.PostalCode.Get()
	require.True(t, ok)
	assert.Equal(t, "100000", zip)

	// Blank cells stay unset rather than empty.
	second := records[1]
	assert.False(t, second.Description.Set)
	assert.False(t, second.PostalCode.Set)
}

func TestCSVSourceMalformedRowSkipped(t *testing.T) {
	// The middle row has no usable cells.
	path := writeFile(t, "contracts.csv",
		"recipient_name,country\n"+
			"Good Vendor,CHN\n"+
			",\n"+
			"Another Vendor,USA\n")

	records, skipped := collect(t, NewCSVSource(path))
	assert.Len(t, records, 2)
	assert.Equal(t, 1, skipped)
}

func TestCSVSourceNoRecognizedHeader(t *testing.T) {
	path := writeFile(t, "odd.csv", "colour,shape\nred,square\n")

	_, err := NewCSVSource(path).Each(context.Background(), func(model.RawRecord) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no recognized columns")
}

func TestTSVSourceUsesTab(t *testing.T) {
	path := writeFile(t, "contracts.tsv",
		"recipient_name\tcountry\nShenzhen Widgets\tCHN\n")

	records, _ := collect(t, NewCSVSource(path))
	require.Len(t, records, 1)
	country, _ := records[0].Country.Get()
	assert.Equal(t, "CHN", country)
}

func TestJSONLSource(t *testing.T) {
	path := writeFile(t, "grants.jsonl",
		`{"recipient": "Huawei Technologies", "country_code": "CHN"}`+"\n"+
			"\n"+
			`{"not": "recognized"}`+"\n"+
			`{"vendor": "Acme", "award_date": "2026-01-02"}`+"\n")

	records, skipped := collect(t, NewJSONLSource(path))
	require.Len(t, records, 2)
	assert.Equal(t, 1, skipped)

	assert.Equal(t, 1, records[0].SourceLine)
	name, _ := records[0].RecipientName.Get()
	assert.Equal(t, "Huawei Technologies", name)

	assert.Equal(t, 4, records[1].SourceLine)
	date, _ := records[1].Date.Get()
	assert.Equal(t, "2026-01-02", date)
}

func TestJSONLSourceMalformedLineSkipped(t *testing.T) {
	path := writeFile(t, "grants.jsonl",
		`{"recipient": "Good"}`+"\n"+
			`{broken`+"\n"+
			`{"recipient": "Also Good"}`+"\n")

	records, skipped := collect(t, NewJSONLSource(path))
	assert.Len(t, records, 2)
	assert.Equal(t, 1, skipped)
}

func TestOpenByExtension(t *testing.T) {
	src, err := Open("data.csv")
	require.NoError(t, err)
	assert.IsType(t, &CSVSource{}, src)

	src, err = Open("data.tsv")
	require.NoError(t, err)
	assert.Equal(t, '\t', rune(src.(*CSVSource).Comma))

	src, err = Open("data.jsonl")
	require.NoError(t, err)
	assert.IsType(t, &JSONLSource{}, src)

	src, err = Open("data.xlsx")
	require.NoError(t, err)
	assert.IsType(t, &XLSXSource{}, src)

	_, err = Open("data.parquet")
	assert.Error(t, err)
}

func TestSourceID(t *testing.T) {
	assert.Equal(t, "contracts.csv", NewCSVSource("/data/in/contracts.csv").ID())
	assert.Equal(t, "grants.jsonl", NewJSONLSource("rel/grants.jsonl").ID())
}
