// Package rules loads and validates the declarative rule tables consumed
// by all extractors: signal weights, confidence thresholds, entity and
// keyword lists, false-positive deny rules and dedupe weights. Tables are
// data, not code: operators update the YAML file without redeploying.
package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/vectis-research/sinotrace/internal/model"
)

// Weights holds the per-signal integer weights.
type Weights struct {
	CountryCode       int `yaml:"country_code"`
	HongKong          int `yaml:"hong_kong"`
	EntityNameKnown   int `yaml:"entity_name_known"`
	EntityNameGeo     int `yaml:"entity_name_geo"`
	EntityNameGeneric int `yaml:"entity_name_generic"`
	GeographicToken   int `yaml:"geographic_token"`
	ProductSourcing   int `yaml:"product_sourcing"`
}

// ConfidenceThresholds are the score boundaries for the confidence
// buckets. Must be strictly monotonic: High > Medium > Low. Scores below
// Low are treated as no detection.
type ConfidenceThresholds struct {
	High   int `yaml:"high"`
	Medium int `yaml:"medium"`
	Low    int `yaml:"low"`
}

// CountryTables configure the CountryCode and HongKong extractors.
type CountryTables struct {
	ChinaCodes []string `yaml:"china_codes"`
	// ChinaCities are major mainland city names accepted in the country
	// field as de-facto country indicators.
	ChinaCities []string `yaml:"china_cities"`
	// TaiwanExclusions veto a CountryCode match when any token appears in
	// the same country field.
	TaiwanExclusions []string `yaml:"taiwan_exclusions"`
	HongKong         []string `yaml:"hong_kong"`
}

// EntityTables configure the EntityName extractor.
type EntityTables struct {
	// Known are organizations matched at the high entity weight.
	Known []string `yaml:"known"`
	// Strategic is the subset (or superset) of entities that force TIER_1.
	Strategic []string `yaml:"strategic"`
	// GeoTokens are city/province names matched inside entity names.
	GeoTokens []string `yaml:"geo_tokens"`
	// GenericTokens are the literal whole-word china/chinese/sino- tokens.
	GenericTokens []string `yaml:"generic_tokens"`
}

// NamedPattern is a regex deny or detection pattern with a stable name.
type NamedPattern struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
}

// FalsePositives configure the EntityName veto filter.
type FalsePositives struct {
	// Exact are full entity names (case-insensitive) known to be
	// non-Chinese despite matching a pattern.
	Exact []string `yaml:"exact"`
	// Patterns veto whole categories of matches.
	Patterns []NamedPattern `yaml:"patterns"`
}

// KeywordBucket is an ordered category keyword list. Declaration order is
// the tie-break: the first listed bucket that matches wins.
type KeywordBucket struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Categories hold the tier-classifier keyword buckets.
type Categories struct {
	Strategic []KeywordBucket `yaml:"strategic"`
	Commodity []KeywordBucket `yaml:"commodity"`
}

// Tiering holds tier-classifier scalar settings.
type Tiering struct {
	// MinDescriptionLen is the minimum description length below which a
	// TIER_2 record is labeled insufficient-description.
	MinDescriptionLen int `yaml:"min_description_len"`
}

// Dedupe holds the deduplicator configuration.
type Dedupe struct {
	Threshold float64                 `yaml:"threshold"`
	Weights   model.SimilarityWeights `yaml:"weights"`
}

// Rules is the full declarative rule table set.
type Rules struct {
	Version          int                  `yaml:"version"`
	Weights          Weights              `yaml:"weights"`
	Confidence       ConfidenceThresholds `yaml:"confidence"`
	Country          CountryTables        `yaml:"country"`
	Entities         EntityTables         `yaml:"entities"`
	SourcingPhrases  []string             `yaml:"sourcing_phrases"`
	GeoPatterns      []NamedPattern       `yaml:"geo_patterns"`
	FalsePositives   FalsePositives       `yaml:"false_positives"`
	Categories       Categories           `yaml:"categories"`
	Tiering          Tiering              `yaml:"tiering"`
	Dedupe           Dedupe               `yaml:"dedupe"`

	// hash is the content hash of the loaded table, recorded in provenance.
	hash string
}

// Hash returns the content hash of the rule tables, stamped into every
// provenance entry so classifications are tied to the exact configuration.
// Compile fills the cache; the lazy path covers tables that are built
// directly and never compiled.
func (r *Rules) Hash() string {
	if r.hash == "" {
		r.hash = hashRules(r)
	}
	return r.hash
}

func hashRules(r *Rules) string {
	b, err := yaml.Marshal(r)
	if err != nil {
		// Marshal of a plain struct cannot fail in practice.
		b = []byte(fmt.Sprintf("%+v", r))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:16]
}

// Load reads and validates a rule table file, then compiles it.
// Any error here is fatal at startup: a bad table would silently corrupt
// every subsequent classification.
func Load(path string) (*Compiled, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rules: read %s", path)
	}
	var r Rules
	dec := yaml.NewDecoder(strings.NewReader(string(b)))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil {
		return nil, eris.Wrapf(err, "rules: parse %s", path)
	}
	if err := Validate(&r); err != nil {
		return nil, err
	}
	return Compile(&r)
}

// Validate checks that a rule table is internally consistent.
func Validate(r *Rules) error {
	var errs []string

	if r.Version <= 0 {
		errs = append(errs, "version must be >= 1")
	}

	weights := map[string]int{
		"country_code":        r.Weights.CountryCode,
		"hong_kong":           r.Weights.HongKong,
		"entity_name_known":   r.Weights.EntityNameKnown,
		"entity_name_geo":     r.Weights.EntityNameGeo,
		"entity_name_generic": r.Weights.EntityNameGeneric,
		"geographic_token":    r.Weights.GeographicToken,
		"product_sourcing":    r.Weights.ProductSourcing,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("weight %s must be >= 0", name))
		}
	}

	// Confidence boundaries must be strictly monotonic.
	if !(r.Confidence.High > r.Confidence.Medium && r.Confidence.Medium > r.Confidence.Low) {
		errs = append(errs, fmt.Sprintf(
			"confidence thresholds must satisfy high > medium > low, got %d/%d/%d",
			r.Confidence.High, r.Confidence.Medium, r.Confidence.Low))
	}
	if r.Confidence.Low <= 0 {
		errs = append(errs, "confidence low threshold must be > 0")
	}

	if len(r.Country.ChinaCodes) == 0 {
		errs = append(errs, "country.china_codes must not be empty")
	}
	if len(r.Country.HongKong) == 0 {
		errs = append(errs, "country.hong_kong must not be empty")
	}

	for _, b := range append(append([]KeywordBucket{}, r.Categories.Strategic...), r.Categories.Commodity...) {
		if b.Name == "" {
			errs = append(errs, "category bucket with empty name")
		}
		if len(b.Keywords) == 0 {
			errs = append(errs, fmt.Sprintf("category bucket %q has no keywords", b.Name))
		}
	}

	if r.Dedupe.Threshold <= 0 || r.Dedupe.Threshold > 1 {
		errs = append(errs, fmt.Sprintf("dedupe.threshold must be in (0, 1], got %v", r.Dedupe.Threshold))
	}
	wsum := r.Dedupe.Weights.Name + r.Dedupe.Weights.Country + r.Dedupe.Weights.Date + r.Dedupe.Weights.Type
	if wsum <= 0 {
		errs = append(errs, "dedupe.weights must sum to > 0")
	}

	if r.Tiering.MinDescriptionLen < 0 {
		errs = append(errs, "tiering.min_description_len must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("rules: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
