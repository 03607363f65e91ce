package ports

import (
	"context"
	"time"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
)

// RecordStore is the relational dictionary of knowledge base entries.
// Category "" means no category filter.
type RecordStore interface {
	FindExact(ctx context.Context, name string, category domain.Category, limit int) ([]domain.Record, error)
	FindBySynonym(ctx context.Context, term string, category domain.Category, limit int) ([]domain.Record, error)
	FindByDescription(ctx context.Context, term string, category domain.Category, limit int) ([]domain.Record, error)
	FindByDetail(ctx context.Context, term string, category domain.Category, limit int) ([]domain.Record, error)
	FindNamesByDescription(ctx context.Context, term string, limit int) ([]string, error)
	FindByName(ctx context.Context, canonicalName string) (*domain.Record, error)
}

// SemanticIndex performs nearest-neighbour search over the QA embedding index.
type SemanticIndex interface {
	Nearest(ctx context.Context, text string, topK int) ([]domain.SemanticHit, error)
}

// RelationGraph runs named traversals rooted at nodes whose name contains entityName.
type RelationGraph interface {
	FindRelations(ctx context.Context, kind domain.RelationKind, entityName string) ([]domain.RelationTuple, error)
}

// Completer is the language model used for query planning.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// Embedder builds vectors for query text.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// AnswerGenerator creates the final user-facing answer from fused evidence.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, results []domain.FusedResult) (string, error)
}

// Reranker scores candidate texts against a query.
type Reranker interface {
	Score(ctx context.Context, query string, texts []string, topN int) ([]domain.RerankScore, error)
}

// SearchObserver receives pipeline telemetry. Implementations must be safe
// for concurrent use.
type SearchObserver interface {
	ObserveStage(stage string, duration time.Duration)
	ObserveSource(source domain.SourceTag, count int)
	ObservePlan(source domain.PlanSource, hopDepth int)
	ObserveRerank(status string)
}

// NopObserver discards all telemetry.
type NopObserver struct{}

func (NopObserver) ObserveStage(string, time.Duration) {}
func (NopObserver) ObserveSource(domain.SourceTag, int) {}
func (NopObserver) ObservePlan(domain.PlanSource, int) {}
func (NopObserver) ObserveRerank(string) {}
