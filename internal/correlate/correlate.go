package correlate

import (
	"sort"

	"go.uber.org/zap"

	"github.com/vectis-research/sinotrace/internal/model"
)

// keySep joins the name and country halves of a cluster key.
const keySep = "|"

// Correlate groups classified records from independently-collected
// datasets by normalized name + country. The cluster confidence is the
// maximum of the member confidences — corroboration across sources is
// surfaced through the member list, never by summing scores, so the same
// underlying evidence is not double-counted.
func Correlate(datasets map[string][]*model.ClassifiedRecord) []model.CorrelationCluster {
	byKey := make(map[string]*model.CorrelationCluster)

	for dataset, records := range datasets {
		for _, rec := range records {
			name, ok := rec.Raw.BestName()
			if !ok {
				continue
			}
			normName := NormalizeName(name)
			if normName == "" {
				continue
			}
			country := ""
			if c, ok := rec.Raw.Country.Get(); ok {
				country = NormalizeCountry(c)
			}
			key := normName + keySep + country

			cluster, ok := byKey[key]
			if !ok {
				cluster = &model.CorrelationCluster{
					Key:        key,
					Country:    country,
					Confidence: rec.Confidence,
				}
				byKey[key] = cluster
			}
			cluster.Members = append(cluster.Members, model.ClusterMember{
				Dataset:    dataset,
				RecordID:   rec.ID,
				Confidence: rec.Confidence,
			})
			if rec.Confidence.Rank() > cluster.Confidence.Rank() {
				cluster.Confidence = rec.Confidence
			}
		}
	}

	clusters := make([]model.CorrelationCluster, 0, len(byKey))
	for _, c := range byKey {
		sort.Slice(c.Members, func(i, j int) bool {
			if c.Members[i].Dataset != c.Members[j].Dataset {
				return c.Members[i].Dataset < c.Members[j].Dataset
			}
			return c.Members[i].RecordID < c.Members[j].RecordID
		})
		clusters = append(clusters, *c)
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Key < clusters[j].Key })

	zap.L().Info("correlate: clustering complete",
		zap.Int("datasets", len(datasets)),
		zap.Int("clusters", len(clusters)),
	)
	return clusters
}

// CrossSource filters clusters to those referenced by two or more
// distinct datasets.
func CrossSource(clusters []model.CorrelationCluster) []model.CorrelationCluster {
	var out []model.CorrelationCluster
	for _, c := range clusters {
		seen := make(map[string]struct{}, len(c.Members))
		for _, m := range c.Members {
			seen[m.Dataset] = struct{}{}
		}
		if len(seen) >= 2 {
			out = append(out, c)
		}
	}
	return out
}
