// Package lexical scores candidates by token overlap with the query. It is
// the in-process reranker used when no cross-encoder service is configured.
package lexical

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
)

const (
	overlapWeight  = 0.70
	positionWeight = 0.20
	headWeight     = 0.10
)

type Reranker struct{}

func New() *Reranker {
	return &Reranker{}
}

// Score blends query token overlap with the candidate's incoming position and
// whether the text's head (the canonical name) contains a query token.
func (r *Reranker) Score(ctx context.Context, query string, texts []string, topN int) ([]domain.RerankScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return []domain.RerankScore{}, nil
	}
	if topN <= 0 || topN > len(texts) {
		topN = len(texts)
	}

	queryTokens := toTokenSet(query)
	scores := make([]domain.RerankScore, len(texts))
	for i, text := range texts {
		position := 1.0
		if len(texts) > 1 {
			position = 1 - float64(i)/float64(len(texts)-1)
		}
		scores[i] = domain.RerankScore{
			Index: i,
			Score: overlapWeight*tokenOverlap(queryTokens, toTokenSet(text)) +
				positionWeight*position +
				headWeight*headTokenHit(queryTokens, text),
		}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Index < scores[j].Index
	})
	return scores[:topN], nil
}

func tokenOverlap(query, text map[string]struct{}) float64 {
	if len(query) == 0 || len(text) == 0 {
		return 0
	}
	matches := 0
	for token := range query {
		if _, ok := text[token]; ok {
			matches++
			continue
		}
		// Korean tokens carry particles; accept a prefix match either way.
		for candidate := range text {
			if strings.HasPrefix(candidate, token) || (len([]rune(candidate)) >= 2 && strings.HasPrefix(token, candidate)) {
				matches++
				break
			}
		}
	}
	return float64(matches) / float64(len(query))
}

func headTokenHit(query map[string]struct{}, text string) float64 {
	head, _, _ := strings.Cut(text, " - ")
	head = strings.ToLower(head)
	if len(query) == 0 || head == "" {
		return 0
	}
	for token := range query {
		if token != "" && strings.Contains(head, token) {
			return 1
		}
	}
	return 0
}

func toTokenSet(s string) map[string]struct{} {
	tokens := splitWordsLower(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

func splitWordsLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
