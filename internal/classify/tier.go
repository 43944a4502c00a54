package classify

import (
	"github.com/vectis-research/sinotrace/internal/model"
	"github.com/vectis-research/sinotrace/internal/rules"
)

// Category labels used outside the keyword buckets.
const (
	CategoryStrategicEntity = "strategic entity"
	CategoryGeneral         = "general"
	CategoryInsufficient    = "insufficient description"
)

// TierFor assigns a risk tier and category by precedence, first match
// wins:
//
//  1. TIER_1 when a name field matches the strategic entity list or the
//     description matches a strategic technology bucket.
//  2. TIER_3 when the description matches a commodity bucket, so bulk
//     low-value procurement never pollutes TIER_2.
//  3. TIER_2 otherwise, with an explicit insufficient-description
//     category when the description is absent or short.
//
// Bucket declaration order in the rule file is the tie-break within a
// tier; the first listed bucket that matches wins.
func TierFor(rec *model.RawRecord, c *rules.Compiled) (model.Tier, string) {
	if c.StrategicEntities != nil {
		for _, nf := range rec.NameFields() {
			if c.StrategicEntities.MatchString(nf.Value) {
				return model.Tier1, CategoryStrategicEntity
			}
		}
	}

	desc, hasDesc := rec.Description.Get()

	if hasDesc {
		if name, ok := matchBucket(desc, c.StrategicBuckets); ok {
			return model.Tier1, name
		}
		if name, ok := matchBucket(desc, c.CommodityBuckets); ok {
			return model.Tier3, name
		}
	}

	if !hasDesc || len(desc) < c.Rules.Tiering.MinDescriptionLen {
		return model.Tier2, CategoryInsufficient
	}
	return model.Tier2, CategoryGeneral
}

func matchBucket(text string, buckets []rules.CompiledBucket) (string, bool) {
	for _, b := range buckets {
		if b.Re != nil && b.Re.MatchString(text) {
			return b.Name, true
		}
	}
	return "", false
}
