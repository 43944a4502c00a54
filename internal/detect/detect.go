// Package detect implements the signal extractors and the false-positive
// filter. Each extractor is a pure function of one record and the
// read-only compiled rule tables; absence of a field never produces an
// error, it simply yields no signal.
package detect

import (
	"github.com/vectis-research/sinotrace/internal/model"
	"github.com/vectis-research/sinotrace/internal/rules"
)

// Detector runs all signal extractors against a record. It holds only
// read-only compiled rules and is safe for concurrent use.
type Detector struct {
	rules *rules.Compiled
}

// New creates a Detector over compiled rule tables.
func New(c *rules.Compiled) *Detector {
	return &Detector{rules: c}
}

// Extract runs every extractor in fixed order and applies the
// false-positive veto to the EntityName signals. The returned slice is
// the final post-veto signal list; its weight sum is the record's score.
func (d *Detector) Extract(rec *model.RawRecord) []model.DetectionSignal {
	var signals []model.DetectionSignal
	signals = append(signals, d.countryCode(rec)...)
	signals = append(signals, d.hongKong(rec)...)
	signals = append(signals, d.applyVeto(rec, d.entityName(rec))...)
	signals = append(signals, d.geographicToken(rec)...)
	signals = append(signals, d.productSourcing(rec)...)
	return signals
}

// countryCode matches the explicit country field against China-linked
// codes, names and major city names. Taiwan/ROC tokens veto the match and
// Hong Kong tokens are never claimed here; HK has its own signal.
func (d *Detector) countryCode(rec *model.RawRecord) []model.DetectionSignal {
	country, ok := rec.Country.Get()
	if !ok {
		return nil
	}
	if d.rules.TaiwanExclusion != nil && d.rules.TaiwanExclusion.MatchString(country) {
		return nil
	}
	if d.rules.HongKong != nil && d.rules.HongKong.MatchString(country) {
		return nil
	}
	if d.rules.ChinaCountry == nil {
		return nil
	}
	m := d.rules.ChinaCountry.FindString(country)
	if m == "" {
		return nil
	}
	return []model.DetectionSignal{{
		Kind:        model.SignalCountryCode,
		Field:       model.FieldCountry,
		MatchedText: m,
		Weight:      d.rules.Rules.Weights.CountryCode,
	}}
}

// hongKong matches Hong Kong name/code variants in the country field and
// the name-bearing fields. Tracked separately from CountryCode: HK
// carries different geopolitical semantics and the two signals are never
// merged.
func (d *Detector) hongKong(rec *model.RawRecord) []model.DetectionSignal {
	if d.rules.HongKong == nil {
		return nil
	}
	var signals []model.DetectionSignal
	if country, ok := rec.Country.Get(); ok {
		if m := d.rules.HongKong.FindString(country); m != "" {
			signals = append(signals, model.DetectionSignal{
				Kind:        model.SignalHongKong,
				Field:       model.FieldCountry,
				MatchedText: m,
				Weight:      d.rules.Rules.Weights.HongKong,
			})
		}
	}
	for _, nf := range rec.NameFields() {
		if m := d.rules.HongKong.FindString(nf.Value); m != "" {
			signals = append(signals, model.DetectionSignal{
				Kind:        model.SignalHongKong,
				Field:       nf.Name,
				MatchedText: m,
				Weight:      d.rules.Rules.Weights.HongKong,
			})
		}
	}
	return signals
}

// entityName scans the name-bearing fields for known organizations,
// Chinese city/province tokens and the generic china/chinese/sino tokens.
// All matching is case-insensitive and word-boundary anchored. At most
// one signal per field, with the rule classes checked in precedence
// order known > geo > generic, so a name like "Beijing China Trading"
// scores its strongest class once rather than stacking weights.
func (d *Detector) entityName(rec *model.RawRecord) []model.DetectionSignal {
	var signals []model.DetectionSignal
	w := d.rules.Rules.Weights
	for _, nf := range rec.NameFields() {
		if d.rules.KnownEntities != nil {
			if m := d.rules.KnownEntities.FindString(nf.Value); m != "" {
				signals = append(signals, model.DetectionSignal{
					Kind:        model.SignalEntityName,
					Field:       nf.Name,
					MatchedText: m,
					Rule:        "known_entity",
					Weight:      w.EntityNameKnown,
				})
				continue
			}
		}
		if d.rules.GeoTokens != nil {
			if m := d.rules.GeoTokens.FindString(nf.Value); m != "" {
				signals = append(signals, model.DetectionSignal{
					Kind:        model.SignalEntityName,
					Field:       nf.Name,
					MatchedText: m,
					Rule:        "geo_token",
					Weight:      w.EntityNameGeo,
				})
				continue
			}
		}
		if d.rules.GenericTokens != nil {
			if m := d.rules.GenericTokens.FindString(nf.Value); m != "" {
				signals = append(signals, model.DetectionSignal{
					Kind:        model.SignalEntityName,
					Field:       nf.Name,
					MatchedText: m,
					Rule:        "generic_token",
					Weight:      w.EntityNameGeneric,
				})
			}
		}
	}
	return signals
}

// geographicToken matches postal-code, phone and street-naming formats
// characteristic of mainland China in the address-bearing fields. These
// corroborate EntityName; their weights are small by configuration.
func (d *Detector) geographicToken(rec *model.RawRecord) []model.DetectionSignal {
	fields := []struct {
		name string
		f    model.Field
	}{
		{model.FieldAddress, rec.Address},
		{model.FieldPostalCode, rec.PostalCode},
		{model.FieldPhone, rec.Phone},
	}
	var signals []model.DetectionSignal
	for _, p := range d.rules.GeoPatterns {
		for _, fl := range fields {
			v, ok := fl.f.Get()
			if !ok {
				continue
			}
			if m := p.Re.FindString(v); m != "" {
				signals = append(signals, model.DetectionSignal{
					Kind:        model.SignalGeographicToken,
					Field:       fl.name,
					MatchedText: m,
					Rule:        p.Name,
					Weight:      d.rules.Rules.Weights.GeographicToken,
				})
				break // one signal per pattern
			}
		}
	}
	return signals
}

// productSourcing detects goods-sourced-from-China phrasing in the
// description. This is evidence about the goods, not the parties: it is
// never conflated with an entity-level China connection, and downstream
// consumers decide whether sourcing-only matches count.
func (d *Detector) productSourcing(rec *model.RawRecord) []model.DetectionSignal {
	desc, ok := rec.Description.Get()
	if !ok || d.rules.SourcingPhrases == nil {
		return nil
	}
	m := d.rules.SourcingPhrases.FindString(desc)
	if m == "" {
		return nil
	}
	return []model.DetectionSignal{{
		Kind:        model.SignalProductSourcing,
		Field:       model.FieldDescription,
		MatchedText: m,
		Weight:      d.rules.Rules.Weights.ProductSourcing,
	}}
}
