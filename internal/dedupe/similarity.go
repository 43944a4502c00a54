// Package dedupe groups near-duplicate classified records across one or
// more input batches using field-weighted similarity and union-find, so
// the partition is identical for any input ordering.
package dedupe

import (
	"strings"
	"time"

	"github.com/vectis-research/sinotrace/internal/correlate"
	"github.com/vectis-research/sinotrace/internal/model"
)

// dateLayouts are tried in order when parsing record date fields.
var dateLayouts = []string{
	"2006-01-02", "2006/01/02", "01/02/2006", "2006-01-02T15:04:05Z07:00",
}

// dateProximityWindow is the span over which date similarity decays from
// 1 (same day) to 0.
const dateProximityWindow = 365 * 24 * time.Hour

// Similarity computes the weighted similarity of two classified records
// in [0, 1]. Components with a field unset on either side are excluded
// and the remaining weights renormalized, so a missing date degrades to
// "no date signal" instead of dragging the pair below threshold.
func Similarity(a, b *model.ClassifiedRecord, w model.SimilarityWeights) float64 {
	var score, weightSum float64

	if an, aok := a.Raw.BestName(); aok {
		if bn, bok := b.Raw.BestName(); bok {
			score += w.Name * nameSimilarity(an, bn)
			weightSum += w.Name
		}
	}

	if ac, aok := a.Raw.Country.Get(); aok {
		if bc, bok := b.Raw.Country.Get(); bok {
			score += w.Country * countryOverlap(ac, bc)
			weightSum += w.Country
		}
	}

	if ad, aok := parseDate(a.Raw.Date); aok {
		if bd, bok := parseDate(b.Raw.Date); bok {
			score += w.Date * dateProximity(ad, bd)
			weightSum += w.Date
		}
	}

	if at, aok := a.Raw.RecordType.Get(); aok {
		if bt, bok := b.Raw.RecordType.Get(); bok {
			if strings.EqualFold(strings.TrimSpace(at), strings.TrimSpace(bt)) {
				score += w.Type
			}
			weightSum += w.Type
		}
	}

	if weightSum == 0 {
		return 0
	}
	return score / weightSum
}

// nameSimilarity is Jaro-Winkler over suffix-stripped normalized names.
func nameSimilarity(a, b string) float64 {
	na := correlate.NormalizeName(a)
	nb := correlate.NormalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	return jaroWinkler(na, nb)
}

func countryOverlap(a, b string) float64 {
	na := strings.ToUpper(strings.TrimSpace(a))
	nb := strings.ToUpper(strings.TrimSpace(b))
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	return 0
}

func parseDate(f model.Field) (time.Time, bool) {
	v, ok := f.Get()
	if !ok {
		return time.Time{}, false
	}
	v = strings.TrimSpace(v)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	// Unparseable dates degrade to no date signal.
	return time.Time{}, false
}

func dateProximity(a, b time.Time) float64 {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	if d >= dateProximityWindow {
		return 0
	}
	return 1 - float64(d)/float64(dateProximityWindow)
}

// jaro computes Jaro similarity between two strings.
func jaro(s1, s2 string) float64 {
	if s1 == s2 {
		return 1
	}
	len1, len2 := len(s1), len(s2)
	if len1 == 0 || len2 == 0 {
		return 0
	}

	matchWindow := max(len1, len2)/2 - 1
	if matchWindow < 0 {
		matchWindow = 0
	}

	s1Matches := make([]bool, len1)
	s2Matches := make([]bool, len2)

	matches := 0
	for i := 0; i < len1; i++ {
		start := max(0, i-matchWindow)
		end := min(i+matchWindow+1, len2)
		for j := start; j < end; j++ {
			if s2Matches[j] || s1[i] != s2[j] {
				continue
			}
			s1Matches[i] = true
			s2Matches[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	transpositions := 0
	k := 0
	for i := 0; i < len1; i++ {
		if !s1Matches[i] {
			continue
		}
		for !s2Matches[k] {
			k++
		}
		if s1[i] != s2[k] {
			transpositions++
		}
		k++
	}

	return (float64(matches)/float64(len1) +
		float64(matches)/float64(len2) +
		float64(matches-transpositions/2)/float64(matches)) / 3.0
}

// jaroWinkler boosts Jaro similarity for strings sharing a common prefix.
func jaroWinkler(s1, s2 string) float64 {
	j := jaro(s1, s2)
	if j < 0.7 {
		return j
	}
	prefix := 0
	for i := 0; i < min(min(len(s1), len(s2)), 4); i++ {
		if s1[i] != s2[i] {
			break
		}
		prefix++
	}
	return j + float64(prefix)*0.1*(1-j)
}
