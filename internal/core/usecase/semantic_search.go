package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
	"github.com/kirillkom/game-knowledge-search/internal/core/ports"
)

const (
	semanticScoreScale  = 100.0
	defaultSemanticTopK = 5
)

// SemanticSearcher runs sentence fragments against the QA embedding index.
type SemanticSearcher struct {
	index  ports.SemanticIndex
	logger *slog.Logger
}

func NewSemanticSearcher(index ports.SemanticIndex, logger *slog.Logger) *SemanticSearcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &SemanticSearcher{index: index, logger: logger}
}

// Enabled reports whether an index was available at construction time.
func (s *SemanticSearcher) Enabled() bool {
	return s != nil && s.index != nil
}

func (s *SemanticSearcher) Search(ctx context.Context, text string, topK int) []domain.ScoredResult {
	text = strings.TrimSpace(text)
	if text == "" || !s.Enabled() {
		return []domain.ScoredResult{}
	}
	if topK <= 0 {
		topK = defaultSemanticTopK
	}

	hits, err := s.index.Nearest(ctx, text, topK)
	if err != nil {
		s.logger.Warn("semantic_search_failed", "text", text, "error", err)
		return []domain.ScoredResult{}
	}

	out := make([]domain.ScoredResult, 0, len(hits))
	for _, hit := range hits {
		out = append(out, domain.ScoredResult{
			EntityID:      hit.ID,
			CanonicalName: hit.CanonicalName,
			Category:      hit.Category,
			RawScore:      hit.Score * semanticScoreScale,
			Source:        domain.SourceSemantic,
			MatchType:     domain.MatchVectorSemantic,
			SearchTerm:    text,
			Payload:       hitRecord(hit),
		})
	}
	return out
}

// SearchSentences queries every sentence and concatenates the hits.
func (s *SemanticSearcher) SearchSentences(ctx context.Context, sentences []string, topK int) []domain.ScoredResult {
	out := make([]domain.ScoredResult, 0, len(sentences)*topK)
	for _, sentence := range sentences {
		if ctx.Err() != nil {
			break
		}
		out = append(out, s.Search(ctx, sentence, topK)...)
	}
	return out
}

func hitRecord(hit domain.SemanticHit) *domain.Record {
	detail := map[string]any{
		"question": hit.Question,
		"answer":   hit.Answer,
	}
	if hit.QAType != "" {
		detail["qa_type"] = hit.QAType
	}
	return &domain.Record{
		ID:            hit.ID,
		CanonicalName: hit.CanonicalName,
		Category:      hit.Category,
		Description:   hit.Answer,
		Detail:        detail,
	}
}
