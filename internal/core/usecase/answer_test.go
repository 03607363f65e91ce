package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
)

type searchServiceFake struct {
	limit   int
	outcome *domain.SearchOutcome
	err     error
}

func (f *searchServiceFake) Search(_ context.Context, query string, limit int) (*domain.SearchOutcome, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	if f.outcome != nil {
		return f.outcome, nil
	}
	return &domain.SearchOutcome{
		Query:   query,
		Results: []domain.FusedResult{{EntityID: "npc-1", CanonicalName: "다크로드"}},
	}, nil
}

func TestAnswerUseCaseDefaultLimit(t *testing.T) {
	search := &searchServiceFake{}
	generator := &generatorFake{}
	uc := NewAnswerUseCase(search, generator)

	answer, err := uc.Answer(context.Background(), "다크로드 어디 있어?", 0)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != "answer: 다크로드" {
		t.Fatalf("expected generated answer, got %q", answer.Text)
	}
	if search.limit != 5 {
		t.Fatalf("expected default limit=5, got %d", search.limit)
	}
	if len(generator.results) != 1 || answer.Outcome.Query != "다크로드 어디 있어?" {
		t.Fatalf("expected evidence passed through, got %+v", answer.Outcome)
	}
}

func TestAnswerUseCaseSearchError(t *testing.T) {
	uc := NewAnswerUseCase(&searchServiceFake{err: domain.WrapError(domain.ErrInvalidInput, "search", errors.New("bad"))}, &generatorFake{})
	_, err := uc.Answer(context.Background(), "q", 3)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input to pass through, got %v", err)
	}
}

func TestAnswerUseCaseGeneratorError(t *testing.T) {
	uc := NewAnswerUseCase(&searchServiceFake{}, &generatorFake{err: errors.New("llm down")})
	_, err := uc.Answer(context.Background(), "q", 3)
	if !domain.IsKind(err, domain.ErrAdapterUnavailable) {
		t.Fatalf("expected adapter unavailable, got %v", err)
	}
}

func TestAnswerUseCaseRejectsBlankQuestion(t *testing.T) {
	uc := NewAnswerUseCase(&searchServiceFake{}, &generatorFake{})
	if _, err := uc.Answer(context.Background(), " ", 3); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
