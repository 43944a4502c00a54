package dedupe

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/vectis-research/sinotrace/internal/model"
	"github.com/vectis-research/sinotrace/internal/provenance"
)

// Config holds the deduplicator settings for one run. Weights are
// configuration, never hard-coded per call site, and are stored on every
// group for reproducibility.
type Config struct {
	Threshold float64
	Weights   model.SimilarityWeights
}

// Group partitions a batch of classified records into deduplication
// groups. Pairs at or above the threshold are unioned; groups are the
// resulting connected components, so the partition is identical for any
// input ordering. Records are never discarded: grouping sets GroupID on
// the member records and singletons are left unmarked.
func Group(records []*model.ClassifiedRecord, cfg Config) []model.DeduplicationGroup {
	n := len(records)
	if n < 2 {
		return nil
	}

	uf := newUnionFind(n)
	// best tracks the max pairwise similarity observed inside each
	// component, keyed by the current root.
	best := make(map[int]float64, n)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s := Similarity(records[i], records[j], cfg.Weights)
			if s < cfg.Threshold {
				continue
			}
			ri, rj := uf.find(i), uf.find(j)
			m := best[ri]
			if best[rj] > m {
				m = best[rj]
			}
			if s > m {
				m = s
			}
			root := uf.union(i, j)
			best[root] = m
		}
	}

	// Collect components of size >= 2, ordered deterministically by
	// sorted member record IDs.
	components := make(map[int][]int, n)
	for i := 0; i < n; i++ {
		root := uf.find(i)
		components[root] = append(components[root], i)
	}

	var groups []model.DeduplicationGroup
	for root, members := range components {
		if len(members) < 2 {
			continue
		}
		ids := make([]string, len(members))
		for k, idx := range members {
			ids[k] = records[idx].ID
		}
		sort.Strings(ids)

		g := model.DeduplicationGroup{
			ID:         groupID(ids),
			RecordIDs:  ids,
			Similarity: best[root],
			Weights:    cfg.Weights,
		}
		for _, idx := range members {
			records[idx].GroupID = g.ID
		}
		groups = append(groups, g)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })

	zap.L().Info("dedupe: grouping complete",
		zap.Int("records", n),
		zap.Int("groups", len(groups)),
		zap.Float64("threshold", cfg.Threshold),
	)
	return groups
}

// groupID derives a stable group identifier from the sorted member IDs.
func groupID(sortedIDs []string) string {
	joined := ""
	for _, id := range sortedIDs {
		joined += id + "\x1f"
	}
	return fmt.Sprintf("grp_%s", provenance.Hash([]byte(joined)))
}
