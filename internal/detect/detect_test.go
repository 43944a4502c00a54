package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectis-research/sinotrace/internal/model"
	"github.com/vectis-research/sinotrace/internal/rules"
)

func testDetector() *Detector {
	return New(rules.DefaultCompiled())
}

func kinds(signals []model.DetectionSignal) []model.SignalKind {
	out := make([]model.SignalKind, 0, len(signals))
	for _, s := range signals {
		out = append(out, s.Kind)
	}
	return out
}

func TestCountryCode(t *testing.T) {
	d := testDetector()

	rec := model.RawRecord{Country: model.String("CHN")}
	signals := d.Extract(&rec)
	require.Len(t, signals, 1)
	assert.Equal(t, model.SignalCountryCode, signals[0].Kind)
	assert.Equal(t, model.FieldCountry, signals[0].Field)
	assert.Equal(t, "CHN", signals[0].MatchedText)
	assert.Equal(t, 100, signals[0].Weight)
}

func TestCountryCodeCityName(t *testing.T) {
	d := testDetector()

	rec := model.RawRecord{Country: model.String("Shanghai")}
	signals := d.Extract(&rec)
	require.Len(t, signals, 1)
	assert.Equal(t, model.SignalCountryCode, signals[0].Kind)
}

func TestCountryCodeTaiwanVeto(t *testing.T) {
	d := testDetector()

	for _, country := range []string{
		"TAIWAN",
		"Republic of China (Taiwan)",
		"TAIPEI",
		"TWN",
	} {
		rec := model.RawRecord{Country: model.String(country)}
		assert.Empty(t, d.Extract(&rec), "country %q must not signal", country)
	}
}

func TestHongKongSeparateFromCountryCode(t *testing.T) {
	d := testDetector()

	for _, country := range []string{"HONG KONG", "HK", "H.K."} {
		rec := model.RawRecord{Country: model.String(country)}
		signals := d.Extract(&rec)
		require.Len(t, signals, 1, "country %q", country)
		assert.Equal(t, model.SignalHongKong, signals[0].Kind)
		assert.Equal(t, 80, signals[0].Weight)
	}

	// HK variants in a name fire the same signal with the field recorded.
	rec := model.RawRecord{RecipientName: model.String("Hong Kong University")}
	signals := d.Extract(&rec)
	require.Len(t, signals, 1)
	assert.Equal(t, model.SignalHongKong, signals[0].Kind)
	assert.Equal(t, model.FieldRecipientName, signals[0].Field)
	assert.Equal(t, "Hong Kong", signals[0].MatchedText)

	rec = model.RawRecord{
		VendorName: model.String("HK Trading Co"),
		Country:    model.String("HONG KONG"),
	}
	signals = d.Extract(&rec)
	require.Len(t, signals, 2)
	for _, s := range signals {
		assert.Equal(t, model.SignalHongKong, s.Kind)
	}
}

func TestCountryUnsetNoSignal(t *testing.T) {
	d := testDetector()
	rec := model.RawRecord{RecipientName: model.String("Plain Vendor Inc")}
	assert.Empty(t, d.Extract(&rec))
}

func TestEntityNameKnown(t *testing.T) {
	d := testDetector()

	rec := model.RawRecord{RecipientName: model.String("Huawei Technologies Co., Ltd.")}
	signals := d.Extract(&rec)
	require.Len(t, signals, 1)
	assert.Equal(t, model.SignalEntityName, signals[0].Kind)
	assert.Equal(t, "known_entity", signals[0].Rule)
	assert.Equal(t, 100, signals[0].Weight)
}

func TestEntityNamePrecedenceKnownOverGeo(t *testing.T) {
	d := testDetector()

	// Matches both a known entity and a geo token; known wins, once.
	rec := model.RawRecord{RecipientName: model.String("Beijing Huawei Trading")}
	signals := d.Extract(&rec)
	require.Len(t, signals, 1)
	assert.Equal(t, "known_entity", signals[0].Rule)
}

func TestEntityNamePrecedenceGeoOverGeneric(t *testing.T) {
	d := testDetector()

	// Matches both a geo token and a generic token; the field scores its
	// strongest class once, the weaker class is not stacked.
	rec := model.RawRecord{RecipientName: model.String("Beijing China Trading")}
	signals := d.Extract(&rec)
	require.Len(t, signals, 1)
	assert.Equal(t, "geo_token", signals[0].Rule)
	assert.Equal(t, 60, signals[0].Weight)
}

func TestEntityNameGeoToken(t *testing.T) {
	d := testDetector()

	rec := model.RawRecord{VendorName: model.String("Shenzhen Electronics Ltd")}
	signals := d.Extract(&rec)
	require.Len(t, signals, 1)
	assert.Equal(t, "geo_token", signals[0].Rule)
	assert.Equal(t, model.FieldVendorName, signals[0].Field)
	assert.Equal(t, 60, signals[0].Weight)
}

func TestEntityNameGenericToken(t *testing.T) {
	d := testDetector()

	rec := model.RawRecord{RecipientName: model.String("China Trading Partners LLC")}
	signals := d.Extract(&rec)
	require.Len(t, signals, 1)
	assert.Equal(t, "generic_token", signals[0].Rule)
}

func TestEntityNameWordBoundary(t *testing.T) {
	d := testDetector()

	// Substring hits inside larger words must not fire.
	for _, name := range []string{"Kachina Ventures", "Machina Robotics"} {
		rec := model.RawRecord{RecipientName: model.String(name)}
		assert.Empty(t, d.Extract(&rec), "name %q must not signal", name)
	}
}

func TestEntityNameBothFields(t *testing.T) {
	d := testDetector()

	rec := model.RawRecord{
		RecipientName: model.String("Huawei Technologies"),
		VendorName:    model.String("Nanjing Components Co"),
	}
	signals := d.Extract(&rec)
	require.Len(t, signals, 2)
	assert.Equal(t, model.FieldRecipientName, signals[0].Field)
	assert.Equal(t, model.FieldVendorName, signals[1].Field)
}

func TestVetoDenyPattern(t *testing.T) {
	d := testDetector()

	// Generic token matches, then the cuisine deny pattern removes it.
	rec := model.RawRecord{RecipientName: model.String("China Grill Restaurant")}
	assert.Empty(t, d.Extract(&rec))
}

func TestVetoExactDenyList(t *testing.T) {
	d := testDetector()

	rec := model.RawRecord{RecipientName: model.String("Catalina China")}
	assert.Empty(t, d.Extract(&rec))
}

func TestVetoRemovesOnlyEntitySignals(t *testing.T) {
	d := testDetector()

	rec := model.RawRecord{
		RecipientName: model.String("China Grill Restaurant"),
		Country:       model.String("CHN"),
	}
	signals := d.Extract(&rec)
	require.Len(t, signals, 1)
	assert.Equal(t, model.SignalCountryCode, signals[0].Kind)
}

func TestVetoUSPlaceName(t *testing.T) {
	d := testDetector()

	rec := model.RawRecord{RecipientName: model.String("China Grove Supply Company")}
	assert.Empty(t, d.Extract(&rec))
}

func TestGeographicTokenPostalCode(t *testing.T) {
	d := testDetector()

	rec := model.RawRecord{PostalCode: model.String("518000")}
	signals := d.Extract(&rec)
	require.Len(t, signals, 1)
	assert.Equal(t, model.SignalGeographicToken, signals[0].Kind)
	assert.Equal(t, "mainland_postal_code", signals[0].Rule)
	assert.Equal(t, 25, signals[0].Weight)
}

func TestGeographicTokenPhone(t *testing.T) {
	d := testDetector()

	rec := model.RawRecord{Phone: model.String("+86 755 1234 5678")}
	signals := d.Extract(&rec)
	require.Len(t, signals, 1)
	assert.Equal(t, "cn_phone", signals[0].Rule)
}

func TestGeographicTokenStreet(t *testing.T) {
	d := testDetector()

	rec := model.RawRecord{Address: model.String("88 Nanjing Lu, Building 4")}
	signals := d.Extract(&rec)
	require.Len(t, signals, 1)
	assert.Equal(t, "cn_street", signals[0].Rule)
}

func TestGeographicTokenOnePerPattern(t *testing.T) {
	d := testDetector()

	// Two fields match the same postal pattern; it fires once.
	rec := model.RawRecord{
		Address:    model.String("Warehouse 200001"),
		PostalCode: model.String("518000"),
	}
	signals := d.Extract(&rec)
	require.Len(t, signals, 1)
	assert.Equal(t, "mainland_postal_code", signals[0].Rule)
}

func TestProductSourcing(t *testing.T) {
	d := testDetector()

	rec := model.RawRecord{Description: model.String("Office chairs, MADE IN CHINA, qty 500")}
	signals := d.Extract(&rec)
	require.Len(t, signals, 1)
	assert.Equal(t, model.SignalProductSourcing, signals[0].Kind)
	assert.Equal(t, model.FieldDescription, signals[0].Field)
	assert.Equal(t, 40, signals[0].Weight)
}

func TestProductSourcingDescriptionOnly(t *testing.T) {
	d := testDetector()

	// Sourcing phrases in a name field do not produce a sourcing signal.
	rec := model.RawRecord{Address: model.String("MADE IN CHINA BLVD")}
	assert.NotContains(t, kinds(d.Extract(&rec)), model.SignalProductSourcing)
}

func TestExtractCombined(t *testing.T) {
	d := testDetector()

	rec := model.RawRecord{
		RecipientName: model.String("Shenzhen Cables Ltd"),
		Country:       model.String("CN"),
		PostalCode:    model.String("518000"),
		Description:   model.String("fiber optic cable, product of china"),
	}
	signals := d.Extract(&rec)
	got := kinds(signals)
	assert.Contains(t, got, model.SignalCountryCode)
	assert.Contains(t, got, model.SignalEntityName)
	assert.Contains(t, got, model.SignalGeographicToken)
	assert.Contains(t, got, model.SignalProductSourcing)
}
