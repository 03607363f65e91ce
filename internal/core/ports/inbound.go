package ports

import (
	"context"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
)

// QueryPlanner is the inbound contract for query classification.
type QueryPlanner interface {
	Classify(ctx context.Context, query string) domain.SearchPlan
}

// SearchService is the inbound contract for hybrid search.
type SearchService interface {
	Search(ctx context.Context, query string, limit int) (*domain.SearchOutcome, error)
}

// AnswerService is the inbound contract for grounded answer generation.
type AnswerService interface {
	Answer(ctx context.Context, question string, limit int) (*domain.Answer, error)
}
