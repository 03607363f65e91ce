package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
	"github.com/kirillkom/game-knowledge-search/internal/core/ports"
)

const (
	defaultSearchLimit    = 10
	defaultSearchMaxLimit = 50
	defaultEntityLimit    = 5
)

var errEmptyQuery = errors.New("query is empty")

type SearchOptions struct {
	RRFK         int
	DefaultLimit int
	MaxLimit     int
	EntityLimit  int
	SentenceTopK int
}

func (o SearchOptions) withDefaults() SearchOptions {
	if o.RRFK <= 0 {
		o.RRFK = defaultRRFK
	}
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = defaultSearchLimit
	}
	if o.MaxLimit <= 0 {
		o.MaxLimit = defaultSearchMaxLimit
	}
	if o.DefaultLimit > o.MaxLimit {
		o.DefaultLimit = o.MaxLimit
	}
	if o.EntityLimit <= 0 {
		o.EntityLimit = defaultEntityLimit
	}
	if o.SentenceTopK <= 0 {
		o.SentenceTopK = defaultSemanticTopK
	}
	return o
}

// HybridSearcher classifies a query, fans out to the keyword and semantic
// searchers, optionally traverses the graph, then fuses and reranks.
type HybridSearcher struct {
	planner  ports.QueryPlanner
	keyword  *KeywordSearcher
	semantic *SemanticSearcher
	graph    *GraphSearcher
	rerank   *RerankStage
	observer ports.SearchObserver
	opts     SearchOptions
	logger   *slog.Logger
}

func NewHybridSearcher(
	planner ports.QueryPlanner,
	keyword *KeywordSearcher,
	semantic *SemanticSearcher,
	graph *GraphSearcher,
	rerank *RerankStage,
	observer ports.SearchObserver,
	opts SearchOptions,
	logger *slog.Logger,
) *HybridSearcher {
	if observer == nil {
		observer = ports.NopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HybridSearcher{
		planner:  planner,
		keyword:  keyword,
		semantic: semantic,
		graph:    graph,
		rerank:   rerank,
		observer: observer,
		opts:     opts.withDefaults(),
		logger:   logger,
	}
}

func (h *HybridSearcher) Search(ctx context.Context, query string, limit int) (*domain.SearchOutcome, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "hybrid search", errEmptyQuery)
	}
	limit = h.resolveLimit(limit)
	started := time.Now()

	plan := h.classify(ctx, query)

	resultsBySource := map[domain.SourceTag][]domain.ScoredResult{
		domain.SourceRelational: {},
		domain.SourceSemantic:   {},
		domain.SourceGraph:      {},
	}

	keywordResults, semanticResults := h.searchBase(ctx, plan)
	resultsBySource[domain.SourceRelational] = keywordResults
	resultsBySource[domain.SourceSemantic] = semanticResults

	if plan.HopDepth >= 2 && h.graph.Enabled() {
		stageStarted := time.Now()
		base := make([]domain.ScoredResult, 0, len(keywordResults)+len(semanticResults))
		base = append(base, keywordResults...)
		base = append(base, semanticResults...)
		resultsBySource[domain.SourceGraph] = h.graph.Search(ctx, query, plan, base)
		h.observer.ObserveStage("graph", time.Since(stageStarted))
	}

	counts := make(map[domain.SourceTag]int, len(resultsBySource))
	for source, results := range resultsBySource {
		counts[source] = len(results)
		h.observer.ObserveSource(source, len(results))
	}

	stageStarted := time.Now()
	fused := FuseRRF(resultsBySource, h.opts.RRFK)
	h.observer.ObserveStage("fusion", time.Since(stageStarted))

	reranked := false
	if len(fused) > limit {
		stageStarted = time.Now()
		var status string
		fused, status = h.rerank.Rerank(ctx, query, fused, limit)
		reranked = status == RerankStatusApplied
		h.observer.ObserveRerank(status)
		h.observer.ObserveStage("rerank", time.Since(stageStarted))
	}
	fused = trimFused(fused, limit)
	h.observer.ObserveStage("total", time.Since(started))

	h.logger.Info("hybrid_search_completed",
		"plan_source", plan.Source,
		"hop", plan.HopDepth,
		"relation", plan.RelationHint,
		"entities", len(plan.Entities),
		"sentences", len(plan.Sentences),
		"relational", counts[domain.SourceRelational],
		"semantic", counts[domain.SourceSemantic],
		"graph", counts[domain.SourceGraph],
		"count", len(fused),
		"duration_ms", time.Since(started).Milliseconds(),
	)

	return &domain.SearchOutcome{
		Query:        query,
		Plan:         plan,
		Results:      fused,
		SourceCounts: counts,
		Reranked:     reranked,
	}, nil
}

func (h *HybridSearcher) classify(ctx context.Context, query string) domain.SearchPlan {
	started := time.Now()
	var plan domain.SearchPlan
	if h.planner != nil {
		plan = h.planner.Classify(ctx, query)
	}
	if plan.Empty() {
		plan = NewRuleClassifier(nil).Classify(query)
	}
	if plan.HopDepth < 1 {
		plan.HopDepth = 1
	}
	h.observer.ObserveStage("classify", time.Since(started))
	h.observer.ObservePlan(plan.Source, plan.HopDepth)
	return plan
}

// searchBase runs keyword and semantic search concurrently. Neither searcher
// returns an error, so the group only joins them.
func (h *HybridSearcher) searchBase(ctx context.Context, plan domain.SearchPlan) ([]domain.ScoredResult, []domain.ScoredResult) {
	keywordResults := []domain.ScoredResult{}
	semanticResults := []domain.ScoredResult{}

	g, gctx := errgroup.WithContext(ctx)
	if len(plan.Entities) > 0 && h.keyword != nil {
		g.Go(func() error {
			started := time.Now()
			keywordResults = h.keyword.SearchEntities(gctx, plan.Entities, "", h.opts.EntityLimit)
			h.observer.ObserveStage("keyword", time.Since(started))
			return nil
		})
	}
	if len(plan.Sentences) > 0 && h.semantic.Enabled() {
		g.Go(func() error {
			started := time.Now()
			semanticResults = h.semantic.SearchSentences(gctx, plan.Sentences, h.opts.SentenceTopK)
			h.observer.ObserveStage("semantic", time.Since(started))
			return nil
		})
	}
	_ = g.Wait()

	return keywordResults, semanticResults
}

func (h *HybridSearcher) resolveLimit(limit int) int {
	if limit <= 0 {
		limit = h.opts.DefaultLimit
	}
	if limit > h.opts.MaxLimit {
		limit = h.opts.MaxLimit
	}
	return limit
}
