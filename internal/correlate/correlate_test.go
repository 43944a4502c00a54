package correlate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectis-research/sinotrace/internal/model"
)

func record(id, name, country string, confidence model.Confidence) *model.ClassifiedRecord {
	rec := &model.ClassifiedRecord{ID: id}
	rec.Raw.RecipientName = model.String(name)
	if country != "" {
		rec.Raw.Country = model.String(country)
	}
	rec.Confidence = confidence
	return rec
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Huawei Technologies Co., Ltd.", "HUAWEI TECHNOLOGIES"},
		{"HUAWEI TECHNOLOGIES LIMITED", "HUAWEI TECHNOLOGIES"},
		{"huawei technologies", "HUAWEI TECHNOLOGIES"},
		{"Shenzhen Widgets Company", "SHENZHEN WIDGETS"},
		{"Zhōngxīng Corp", "ZHONGXING"},
		{"  Spaced   Out  Inc  ", "SPACED OUT"},
		// Suffix words inside a name survive; only trailing forms strip.
		{"COSCO Shipping Lines", "COSCO SHIPPING LINES"},
		{"China Ocean Shipping Company", "CHINA OCEAN SHIPPING"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeNameSuffixSafe(t *testing.T) {
	// Embedded suffix letters never strip mid-word.
	assert.Equal(t, "COSCO", NormalizeName("COSCO"))
	assert.Equal(t, "GRACO", NormalizeName("GRACO"))
}

func TestNormalizeCountry(t *testing.T) {
	assert.Equal(t, "CHN", NormalizeCountry(" chn "))
	assert.Equal(t, "HONG KONG", NormalizeCountry("hong   kong"))
	assert.Empty(t, NormalizeCountry(""))
}

func TestCorrelateJoinsAcrossDatasets(t *testing.T) {
	datasets := map[string][]*model.ClassifiedRecord{
		"contracts": {
			record("c1", "Huawei Technologies Co., Ltd.", "CHN", model.ConfidenceMedium),
			record("c2", "Acme Corp", "USA", model.ConfidenceLow),
		},
		"grants": {
			record("g1", "HUAWEI TECHNOLOGIES LTD", "chn", model.ConfidenceHigh),
		},
	}

	clusters := Correlate(datasets)
	require.Len(t, clusters, 2)

	// Sorted by key: ACME|USA before HUAWEI TECHNOLOGIES|CHN.
	acme, huawei := clusters[0], clusters[1]
	assert.Equal(t, "ACME|USA", acme.Key)
	require.Len(t, huawei.Members, 2)
	assert.Equal(t, "HUAWEI TECHNOLOGIES|CHN", huawei.Key)
	assert.Equal(t, "CHN", huawei.Country)

	// Members ordered by dataset then record ID.
	assert.Equal(t, "contracts", huawei.Members[0].Dataset)
	assert.Equal(t, "grants", huawei.Members[1].Dataset)
}

func TestCorrelateConfidenceIsMaxNotSum(t *testing.T) {
	datasets := map[string][]*model.ClassifiedRecord{
		"a": {record("a1", "Shenzhen Widgets", "CHN", model.ConfidenceLow)},
		"b": {record("b1", "Shenzhen Widgets", "CHN", model.ConfidenceMedium)},
		"c": {record("c1", "Shenzhen Widgets", "CHN", model.ConfidenceLow)},
	}

	clusters := Correlate(datasets)
	require.Len(t, clusters, 1)
	// Three corroborating sources do not promote past the best member.
	assert.Equal(t, model.ConfidenceMedium, clusters[0].Confidence)
	assert.Len(t, clusters[0].Members, 3)
}

func TestCorrelateSkipsNamelessRecords(t *testing.T) {
	noName := &model.ClassifiedRecord{ID: "x"}
	noName.Raw.Country = model.String("CHN")

	clusters := Correlate(map[string][]*model.ClassifiedRecord{
		"a": {noName, record("a1", "Real Vendor", "CHN", model.ConfidenceLow)},
	})
	require.Len(t, clusters, 1)
	assert.Equal(t, "REAL VENDOR|CHN", clusters[0].Key)
}

func TestCorrelateCountryDistinguishes(t *testing.T) {
	datasets := map[string][]*model.ClassifiedRecord{
		"a": {record("a1", "Global Trading", "CHN", model.ConfidenceLow)},
		"b": {record("b1", "Global Trading", "USA", model.ConfidenceLow)},
	}
	clusters := Correlate(datasets)
	assert.Len(t, clusters, 2)
}

func TestCrossSource(t *testing.T) {
	datasets := map[string][]*model.ClassifiedRecord{
		"contracts": {
			record("c1", "Huawei Technologies", "CHN", model.ConfidenceHigh),
			record("c2", "Single Source Vendor", "CHN", model.ConfidenceLow),
		},
		"grants": {
			record("g1", "Huawei Technologies", "CHN", model.ConfidenceMedium),
		},
	}

	all := Correlate(datasets)
	cross := CrossSource(all)
	require.Len(t, cross, 1)
	assert.Equal(t, "HUAWEI TECHNOLOGIES|CHN", cross[0].Key)
}

func TestCrossSourceSameDatasetTwiceDoesNotCount(t *testing.T) {
	datasets := map[string][]*model.ClassifiedRecord{
		"contracts": {
			record("c1", "Huawei Technologies", "CHN", model.ConfidenceHigh),
			record("c2", "Huawei Technologies", "CHN", model.ConfidenceLow),
		},
	}
	cross := CrossSource(Correlate(datasets))
	assert.Empty(t, cross)
}
