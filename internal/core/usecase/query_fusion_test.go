package usecase

import (
	"math"
	"testing"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
)

func scored(id string, score float64, source domain.SourceTag) domain.ScoredResult {
	return domain.ScoredResult{
		EntityID:      id,
		CanonicalName: "name-" + id,
		RawScore:      score,
		Source:        source,
	}
}

func TestFuseRRFSortedAndTopIsHundred(t *testing.T) {
	fused := FuseRRF(map[domain.SourceTag][]domain.ScoredResult{
		domain.SourceRelational: {scored("a", 100, domain.SourceRelational), scored("b", 90, domain.SourceRelational), scored("c", 50, domain.SourceRelational)},
		domain.SourceSemantic:   {scored("c", 88, domain.SourceSemantic), scored("d", 70, domain.SourceSemantic)},
		domain.SourceGraph:      {scored("e", 85, domain.SourceGraph)},
	}, 60)

	if len(fused) != 5 {
		t.Fatalf("expected 5 fused results, got %d", len(fused))
	}
	for i := 1; i < len(fused); i++ {
		if fused[i].RRFScore > fused[i-1].RRFScore {
			t.Fatalf("results not sorted at %d: %f > %f", i, fused[i].RRFScore, fused[i-1].RRFScore)
		}
		if fused[i].NormalizedScore > 100 {
			t.Fatalf("normalized score above 100 at %d: %f", i, fused[i].NormalizedScore)
		}
	}
	if fused[0].NormalizedScore != 100 {
		t.Fatalf("expected top normalized score 100, got %f", fused[0].NormalizedScore)
	}
	if fused[0].EntityID != "c" {
		t.Fatalf("expected cross-source entity c on top, got %s", fused[0].EntityID)
	}
}

func TestFuseRRFCrossSourceBoost(t *testing.T) {
	single := FuseRRF(map[domain.SourceTag][]domain.ScoredResult{
		domain.SourceRelational: {scored("x", 100, domain.SourceRelational)},
	}, 60)
	if math.Abs(single[0].RRFScore-1.0/61.0) > 1e-12 {
		t.Fatalf("expected single-source score 1/61, got %f", single[0].RRFScore)
	}

	fused := FuseRRF(map[domain.SourceTag][]domain.ScoredResult{
		domain.SourceRelational: {scored("x", 100, domain.SourceRelational)},
		domain.SourceSemantic:   {scored("x", 90, domain.SourceSemantic)},
		domain.SourceGraph:      {scored("y", 85, domain.SourceGraph)},
	}, 60)
	if fused[0].EntityID != "x" {
		t.Fatalf("expected dual-source x first, got %s", fused[0].EntityID)
	}
	if math.Abs(fused[0].RRFScore-2.0/61.0) > 1e-12 {
		t.Fatalf("expected dual-source score 2/61, got %f", fused[0].RRFScore)
	}
	if fused[1].RRFScore >= fused[0].RRFScore {
		t.Fatalf("expected strict boost over single-source y, got %f vs %f", fused[0].RRFScore, fused[1].RRFScore)
	}
}

func TestFuseRRFDeduplicatesAcrossSources(t *testing.T) {
	fused := FuseRRF(map[domain.SourceTag][]domain.ScoredResult{
		domain.SourceGraph:      {scored("a", 85, domain.SourceGraph), scored("b", 85, domain.SourceGraph)},
		domain.SourceRelational: {scored("a", 100, domain.SourceRelational)},
		domain.SourceSemantic:   {scored("b", 91, domain.SourceSemantic), scored("a", 80, domain.SourceSemantic)},
	}, 60)

	if len(fused) != 2 {
		t.Fatalf("expected 2 distinct ids, got %d", len(fused))
	}
	want := map[string][]domain.SourceTag{
		"a": {domain.SourceRelational, domain.SourceSemantic, domain.SourceGraph},
		"b": {domain.SourceSemantic, domain.SourceGraph},
	}
	for _, r := range fused {
		expected := want[r.EntityID]
		if len(r.ContributingSources) != len(expected) {
			t.Fatalf("id %s: expected sources %v, got %v", r.EntityID, expected, r.ContributingSources)
		}
		for i := range expected {
			if r.ContributingSources[i] != expected[i] {
				t.Fatalf("id %s: expected sources %v, got %v", r.EntityID, expected, r.ContributingSources)
			}
		}
	}
}

func TestFuseRRFCountsSameSourceDuplicateOnce(t *testing.T) {
	fused := FuseRRF(map[domain.SourceTag][]domain.ScoredResult{
		domain.SourceRelational: {scored("a", 100, domain.SourceRelational), scored("a", 70, domain.SourceRelational), scored("b", 50, domain.SourceRelational)},
	}, 60)
	if len(fused) != 2 {
		t.Fatalf("expected 2 results, got %d", len(fused))
	}
	if math.Abs(fused[1].RRFScore-1.0/62.0) > 1e-12 {
		t.Fatalf("expected b at rank 2, got score %f", fused[1].RRFScore)
	}
}

func TestFuseRRFEmptyInputs(t *testing.T) {
	if got := FuseRRF(nil, 60); len(got) != 0 {
		t.Fatalf("expected empty result for nil input, got %d", len(got))
	}
	got := FuseRRF(map[domain.SourceTag][]domain.ScoredResult{
		domain.SourceRelational: {},
		domain.SourceSemantic:   {},
		domain.SourceGraph:      {},
	}, 60)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected non-nil empty result, got %#v", got)
	}
}

func TestFuseRRFDropsEmptyEntityID(t *testing.T) {
	fused := FuseRRF(map[domain.SourceTag][]domain.ScoredResult{
		domain.SourceGraph: {scored("", 85, domain.SourceGraph), scored("m1", 85, domain.SourceGraph)},
	}, 0)
	if len(fused) != 1 || fused[0].EntityID != "m1" {
		t.Fatalf("expected only m1, got %#v", fused)
	}
	if math.Abs(fused[0].RRFScore-1.0/61.0) > 1e-12 {
		t.Fatalf("expected default k=60 and rank 1, got %f", fused[0].RRFScore)
	}
}

func TestFuseRRFSeedsPayloadFromHighestPrecedenceSource(t *testing.T) {
	relational := scored("a", 100, domain.SourceRelational)
	relational.MatchType = domain.MatchExactName
	relational.Payload = &domain.Record{ID: "a", Description: "from db"}
	graph := scored("a", 85, domain.SourceGraph)
	graph.MatchType = domain.MatchGraphRelation

	fused := FuseRRF(map[domain.SourceTag][]domain.ScoredResult{
		domain.SourceGraph:      {graph},
		domain.SourceRelational: {relational},
	}, 60)
	if fused[0].MatchType != domain.MatchExactName {
		t.Fatalf("expected relational metadata to seed, got %s", fused[0].MatchType)
	}
	if fused[0].Payload == nil || fused[0].Payload.Description != "from db" {
		t.Fatalf("expected relational payload, got %#v", fused[0].Payload)
	}
}

func TestFuseRRFFillsMissingPayloadFromLaterSource(t *testing.T) {
	semantic := scored("a", 90, domain.SourceSemantic)
	graph := scored("a", 85, domain.SourceGraph)
	graph.Payload = &domain.Record{ID: "a", Description: "enriched"}

	fused := FuseRRF(map[domain.SourceTag][]domain.ScoredResult{
		domain.SourceSemantic: {semantic},
		domain.SourceGraph:    {graph},
	}, 60)
	if fused[0].Payload == nil || fused[0].Payload.Description != "enriched" {
		t.Fatalf("expected payload filled from graph, got %#v", fused[0].Payload)
	}
}
