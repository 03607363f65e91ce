package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
	"github.com/kirillkom/game-knowledge-search/internal/core/ports"
)

const (
	graphRelationScore = 85.0
	maxChainAnchors    = 5
	maxBaseAnchors     = 3
)

// relationChains maps a relation hint to traversal steps. Kinds inside one
// step are alternatives run against the same anchors; answers of step n are
// the anchors of step n+1.
var relationChains = map[string][][]domain.RelationKind{
	"NPC-MAP":          {{domain.RelationNPCLocation}},
	"MONSTER-MAP":      {{domain.RelationMonsterSpawn}},
	"ENTITY-MAP":       {{domain.RelationNPCLocation, domain.RelationMonsterSpawn}},
	"ITEM-NPC":         {{domain.RelationItemSeller}},
	"ITEM-MONSTER":     {{domain.RelationItemDropper}},
	"ITEM-NPC/MONSTER": {{domain.RelationItemSeller, domain.RelationItemDropper}},
	"MAP-MAP":          {{domain.RelationMapConnection}},
	"MAP-NPC":          {{domain.RelationMapNPCs}},
	"MAP-MONSTER":      {{domain.RelationMapMonsters}},
	"ITEM-MONSTER-MAP": {{domain.RelationItemDropper}, {domain.RelationMonsterSpawn}},
	"ITEM-NPC-MAP":     {{domain.RelationItemSeller}, {domain.RelationNPCLocation}},
	"QUEST-NPC-MAP":    {{domain.RelationNPCLocation}},
}

// GraphSearcher turns relation evidence from the graph store into scored,
// relationally enriched results.
type GraphSearcher struct {
	graph   ports.RelationGraph
	records ports.RecordStore
	lexicon *Lexicon
	logger  *slog.Logger
}

func NewGraphSearcher(
	graph ports.RelationGraph,
	records ports.RecordStore,
	lexicon *Lexicon,
	logger *slog.Logger,
) *GraphSearcher {
	if lexicon == nil {
		lexicon = DefaultLexicon()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphSearcher{
		graph:   graph,
		records: records,
		lexicon: lexicon,
		logger:  logger,
	}
}

func (s *GraphSearcher) Enabled() bool {
	return s != nil && s.graph != nil
}

// Search traverses from the plan entities, or from the top base-search
// names when the plan has none.
func (s *GraphSearcher) Search(
	ctx context.Context,
	query string,
	plan domain.SearchPlan,
	base []domain.ScoredResult,
) []domain.ScoredResult {
	if !s.Enabled() {
		return []domain.ScoredResult{}
	}

	relation, chain := s.selectChain(plan.RelationHint, query)
	if len(chain) == 0 {
		s.logger.Debug("graph_search_skipped", "reason", "no_relation", "relation_hint", plan.RelationHint)
		return []domain.ScoredResult{}
	}

	anchors := cleanTerms(plan.Entities, nil)
	if len(anchors) == 0 {
		anchors = baseAnchors(base, maxBaseAnchors)
	}
	if len(anchors) == 0 {
		return []domain.ScoredResult{}
	}

	out := make([]domain.ScoredResult, 0)
	for stepIdx, step := range chain {
		if ctx.Err() != nil {
			break
		}
		next := make([]string, 0)
		for _, anchor := range anchors {
			for _, kind := range step {
				tuples, err := s.graph.FindRelations(ctx, kind, anchor)
				if err != nil {
					s.logger.Warn("graph_traversal_failed",
						"relation", relation,
						"kind", kind,
						"entity", anchor,
						"step", stepIdx+1,
						"error", err,
					)
					continue
				}
				for _, tuple := range tuples {
					result := tupleResult(tuple, anchor)
					out = append(out, result)
					_, name := tuple.AnswerSide()
					next = appendUnique(next, name)
				}
			}
		}
		anchors = limitStrings(cleanTerms(next, nil), maxChainAnchors)
		if len(anchors) == 0 {
			break
		}
	}

	return s.enrich(ctx, out)
}

func (s *GraphSearcher) selectChain(hint, query string) (string, [][]domain.RelationKind) {
	if key := normalizeRelationHint(hint); key != "" {
		if chain, ok := relationChains[key]; ok {
			return key, chain
		}
	}
	if key := normalizeRelationHint(s.lexicon.InferRelation(strings.ToLower(query))); key != "" {
		if chain, ok := relationChains[key]; ok {
			return key, chain
		}
	}
	return "", nil
}

// enrich replaces name-only graph evidence with the relational record when
// one exists; unmatched results are kept without payload.
func (s *GraphSearcher) enrich(ctx context.Context, results []domain.ScoredResult) []domain.ScoredResult {
	if s.records == nil || len(results) == 0 {
		return results
	}

	cache := make(map[string]*domain.Record, len(results))

	for i := range results {
		name := results[i].CanonicalName
		if name == "" {
			continue
		}
		record, ok := cache[name]
		if !ok {
			found, err := s.records.FindByName(ctx, name)
			if err != nil {
				if !domain.IsKind(err, domain.ErrNotFound) {
					s.logger.Warn("graph_enrich_failed", "name", name, "error", err)
				}
				found = nil
			}
			record = found
			cache[name] = record
		}
		if record == nil {
			continue
		}
		rec := *record
		results[i].EntityID = rec.ID
		results[i].CanonicalName = rec.CanonicalName
		if rec.Category != "" {
			results[i].Category = rec.Category
		}
		results[i].Payload = &rec
	}
	return results
}

func tupleResult(tuple domain.RelationTuple, anchor string) domain.ScoredResult {
	id, name := tuple.AnswerSide()
	var category domain.Category
	if spec, ok := domain.LookupRelation(tuple.Kind); ok {
		category = spec.AnswerCategory()
	}
	return domain.ScoredResult{
		EntityID:      id,
		CanonicalName: name,
		Category:      category,
		RawScore:      graphRelationScore,
		Source:        domain.SourceGraph,
		MatchType:     domain.MatchGraphRelation,
		SearchTerm:    anchor,
		Relation:      fmt.Sprintf("%s -%s-> %s", tuple.SourceName, tuple.Relation, tuple.TargetName),
		Payload:       nil,
	}
}

func normalizeRelationHint(hint string) string {
	hint = strings.ToUpper(strings.TrimSpace(hint))
	if hint == "" {
		return ""
	}
	replacer := strings.NewReplacer("→", "-", "->", "-", "_", "-", " ", "")
	return replacer.Replace(hint)
}

func baseAnchors(base []domain.ScoredResult, limit int) []string {
	out := make([]string, 0, limit)
	for _, r := range base {
		if len(out) >= limit {
			break
		}
		if r.CanonicalName == "" {
			continue
		}
		out = appendUnique(out, r.CanonicalName)
	}
	return out
}

func limitStrings(items []string, limit int) []string {
	if limit <= 0 || len(items) <= limit {
		return items
	}
	return items[:limit]
}
