package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
)

type recordStoreFake struct {
	mu sync.Mutex

	exact       map[string][]domain.Record
	synonyms    map[string][]domain.Record
	description map[string][]domain.Record
	detail      map[string][]domain.Record
	names       map[string][]string
	byName      map[string]domain.Record

	err         error
	exactCalls  []string
	byNameCalls []string
}

func (f *recordStoreFake) FindExact(_ context.Context, name string, _ domain.Category, limit int) ([]domain.Record, error) {
	f.mu.Lock()
	f.exactCalls = append(f.exactCalls, name)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return limitRecords(f.exact[name], limit), nil
}

func (f *recordStoreFake) FindBySynonym(_ context.Context, term string, _ domain.Category, limit int) ([]domain.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	return limitRecords(f.synonyms[term], limit), nil
}

func (f *recordStoreFake) FindByDescription(_ context.Context, term string, _ domain.Category, limit int) ([]domain.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	return limitRecords(f.description[term], limit), nil
}

func (f *recordStoreFake) FindByDetail(_ context.Context, term string, _ domain.Category, limit int) ([]domain.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	return limitRecords(f.detail[term], limit), nil
}

func (f *recordStoreFake) FindNamesByDescription(_ context.Context, term string, limit int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	names := f.names[term]
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	return names, nil
}

func (f *recordStoreFake) FindByName(_ context.Context, name string) (*domain.Record, error) {
	f.mu.Lock()
	f.byNameCalls = append(f.byNameCalls, name)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.byName[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func limitRecords(records []domain.Record, limit int) []domain.Record {
	if limit > 0 && len(records) > limit {
		return records[:limit]
	}
	return records
}

type semanticIndexFake struct {
	mu    sync.Mutex
	hits  map[string][]domain.SemanticHit
	err   error
	calls []string
}

func (f *semanticIndexFake) Nearest(_ context.Context, text string, topK int) ([]domain.SemanticHit, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	hits := f.hits[text]
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

type graphFake struct {
	mu     sync.Mutex
	tuples map[string][]domain.RelationTuple
	errFor map[string]error
	calls  []string
}

func graphKey(kind domain.RelationKind, name string) string {
	return string(kind) + "|" + name
}

func (f *graphFake) FindRelations(_ context.Context, kind domain.RelationKind, name string) ([]domain.RelationTuple, error) {
	key := graphKey(kind, name)
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()
	if err := f.errFor[key]; err != nil {
		return nil, err
	}
	return f.tuples[key], nil
}

type completerFake struct {
	response string
	err      error
	system   string
	user     string
}

func (f *completerFake) Complete(_ context.Context, system, user string) (string, error) {
	f.system = system
	f.user = user
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type plannerFake struct {
	plan domain.SearchPlan
}

func (f plannerFake) Classify(context.Context, string) domain.SearchPlan {
	return f.plan
}

type rerankerFake struct {
	scores []domain.RerankScore
	err    error
	texts  []string
	topN   int
}

func (f *rerankerFake) Score(_ context.Context, _ string, texts []string, topN int) ([]domain.RerankScore, error) {
	f.texts = texts
	f.topN = topN
	if f.err != nil {
		return nil, f.err
	}
	return f.scores, nil
}

type generatorFake struct {
	question string
	results  []domain.FusedResult
	err      error
}

func (f *generatorFake) GenerateAnswer(_ context.Context, question string, results []domain.FusedResult) (string, error) {
	f.question = question
	f.results = results
	if f.err != nil {
		return "", f.err
	}
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.CanonicalName)
	}
	return "answer: " + strings.Join(names, ","), nil
}

type observerFake struct {
	mu      sync.Mutex
	stages  []string
	sources map[domain.SourceTag]int
	plans   []domain.PlanSource
	rerank  []string
}

func (o *observerFake) ObserveStage(stage string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages = append(o.stages, stage)
}

func (o *observerFake) ObserveSource(source domain.SourceTag, count int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sources == nil {
		o.sources = map[domain.SourceTag]int{}
	}
	o.sources[source] = count
}

func (o *observerFake) ObservePlan(source domain.PlanSource, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.plans = append(o.plans, source)
}

func (o *observerFake) ObserveRerank(status string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rerank = append(o.rerank, status)
}

func testRecord(id, name string, category domain.Category, description string) domain.Record {
	return domain.Record{
		ID:            id,
		CanonicalName: name,
		Category:      category,
		Description:   description,
	}
}
