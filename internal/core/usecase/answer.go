package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
	"github.com/kirillkom/game-knowledge-search/internal/core/ports"
)

const defaultAnswerLimit = 5

var errNoGenerator = errors.New("answer generator is not configured")

// AnswerUseCase runs a hybrid search and asks the generator to answer from
// the fused evidence.
type AnswerUseCase struct {
	search    ports.SearchService
	generator ports.AnswerGenerator
}

func NewAnswerUseCase(search ports.SearchService, generator ports.AnswerGenerator) *AnswerUseCase {
	return &AnswerUseCase{
		search:    search,
		generator: generator,
	}
}

func (uc *AnswerUseCase) Answer(ctx context.Context, question string, limit int) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", errEmptyQuery)
	}
	if uc.generator == nil {
		return nil, domain.WrapError(domain.ErrAdapterUnavailable, "answer", errNoGenerator)
	}
	if limit <= 0 {
		limit = defaultAnswerLimit
	}

	outcome, err := uc.search.Search(ctx, question, limit)
	if err != nil {
		return nil, fmt.Errorf("answer search: %w", err)
	}

	text, err := uc.generator.GenerateAnswer(ctx, question, outcome.Results)
	if err != nil {
		return nil, domain.WrapError(domain.ErrAdapterUnavailable, "generate answer", err)
	}

	return &domain.Answer{
		Text:    text,
		Outcome: *outcome,
	}, nil
}
