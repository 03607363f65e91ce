package usecase

import (
	"sort"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
)

const defaultRRFK = 60

type fusedCandidate struct {
	result  domain.FusedResult
	sources map[domain.SourceTag]struct{}
}

// FuseRRF merges per-source ranked lists with Reciprocal Rank Fusion.
//
// Each source is ranked independently by raw score (1-indexed) and every
// entity receives 1/(k+rank) per source it appears in. Sources are visited in
// domain.SourcePrecedence order, so the first contributing source seeds the
// fused metadata regardless of map iteration order. Scores are normalized so
// the top result is exactly 100.
func FuseRRF(resultsBySource map[domain.SourceTag][]domain.ScoredResult, rrfK int) []domain.FusedResult {
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}
	if len(resultsBySource) == 0 {
		return []domain.FusedResult{}
	}

	acc := make(map[string]*fusedCandidate)
	order := make([]string, 0)

	for _, source := range orderedSources(resultsBySource) {
		ranked := rankSourceResults(resultsBySource[source])
		for idx, item := range ranked {
			contribution := 1.0 / float64(rrfK+idx+1)

			candidate, ok := acc[item.EntityID]
			if !ok {
				candidate = &fusedCandidate{
					result:  seedFusedResult(item),
					sources: make(map[domain.SourceTag]struct{}, 3),
				}
				acc[item.EntityID] = candidate
				order = append(order, item.EntityID)
			} else if candidate.result.Payload == nil && item.Payload != nil {
				candidate.result.Payload = item.Payload
			}

			candidate.result.RRFScore += contribution
			candidate.sources[source] = struct{}{}
		}
	}

	out := make([]domain.FusedResult, 0, len(order))
	for _, id := range order {
		candidate := acc[id]
		candidate.result.ContributingSources = sortedSources(candidate.sources)
		out = append(out, candidate.result)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RRFScore != out[j].RRFScore {
			return out[i].RRFScore > out[j].RRFScore
		}
		if len(out[i].ContributingSources) != len(out[j].ContributingSources) {
			return len(out[i].ContributingSources) > len(out[j].ContributingSources)
		}
		return out[i].EntityID < out[j].EntityID
	})

	normalizeFusedScores(out)
	return out
}

// rankSourceResults drops id-less entries, orders by raw score and keeps the
// best occurrence of every id.
func rankSourceResults(items []domain.ScoredResult) []domain.ScoredResult {
	filtered := make([]domain.ScoredResult, 0, len(items))
	for _, item := range items {
		if item.EntityID == "" {
			continue
		}
		filtered = append(filtered, item)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].RawScore > filtered[j].RawScore
	})

	seen := make(map[string]struct{}, len(filtered))
	out := filtered[:0]
	for _, item := range filtered {
		if _, dup := seen[item.EntityID]; dup {
			continue
		}
		seen[item.EntityID] = struct{}{}
		out = append(out, item)
	}
	return out
}

func seedFusedResult(item domain.ScoredResult) domain.FusedResult {
	return domain.FusedResult{
		EntityID:      item.EntityID,
		CanonicalName: item.CanonicalName,
		Category:      item.Category,
		MatchType:     item.MatchType,
		SearchTerm:    item.SearchTerm,
		Relation:      item.Relation,
		Payload:       item.Payload,
	}
}

func normalizeFusedScores(results []domain.FusedResult) {
	if len(results) == 0 {
		return
	}
	maxScore := results[0].RRFScore
	for i := range results {
		if maxScore > 0 {
			results[i].NormalizedScore = results[i].RRFScore / maxScore * 100
		}
		results[i].Score = results[i].NormalizedScore
	}
	results[0].NormalizedScore = 100
	results[0].Score = 100
}

func orderedSources(resultsBySource map[domain.SourceTag][]domain.ScoredResult) []domain.SourceTag {
	out := make([]domain.SourceTag, 0, len(resultsBySource))
	for source := range resultsBySource {
		out = append(out, source)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := domain.SourceRank(out[i]), domain.SourceRank(out[j])
		if ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	return out
}

func sortedSources(set map[domain.SourceTag]struct{}) []domain.SourceTag {
	out := make([]domain.SourceTag, 0, len(set))
	for source := range set {
		out = append(out, source)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := domain.SourceRank(out[i]), domain.SourceRank(out[j])
		if ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	return out
}

func trimFused(results []domain.FusedResult, limit int) []domain.FusedResult {
	if limit <= 0 || len(results) <= limit {
		return results
	}
	return results[:limit]
}
