package usecase

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
	"github.com/kirillkom/game-knowledge-search/internal/core/ports"
)

const defaultRerankTimeout = 3 * time.Second

const (
	RerankStatusSkipped  = "skipped"
	RerankStatusApplied  = "applied"
	RerankStatusFallback = "fallback"
)

// RerankStage reorders fused candidates with a cross-encoder. The reranker is
// never a hard dependency: any failure yields the RRF order cut to topN.
type RerankStage struct {
	reranker ports.Reranker
	timeout  time.Duration
	logger   *slog.Logger
}

func NewRerankStage(reranker ports.Reranker, timeout time.Duration, logger *slog.Logger) *RerankStage {
	if timeout <= 0 {
		timeout = defaultRerankTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RerankStage{
		reranker: reranker,
		timeout:  timeout,
		logger:   logger,
	}
}

// Rerank returns at most topN candidates and a status for telemetry.
func (s *RerankStage) Rerank(
	ctx context.Context,
	query string,
	candidates []domain.FusedResult,
	topN int,
) ([]domain.FusedResult, string) {
	if topN <= 0 || len(candidates) <= topN {
		return candidates, RerankStatusSkipped
	}
	if s == nil || s.reranker == nil {
		return trimFused(candidates, topN), RerankStatusSkipped
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = rerankText(c)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	scores, err := s.reranker.Score(callCtx, query, texts, topN)
	if err != nil {
		s.logger.Warn("rerank_fallback", "reason", "reranker_error", "error", err, "candidates", len(candidates))
		return trimFused(candidates, topN), RerankStatusFallback
	}

	out := make([]domain.FusedResult, 0, topN)
	used := make(map[int]struct{}, len(scores))
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	for _, sc := range scores {
		if len(out) >= topN {
			break
		}
		if sc.Index < 0 || sc.Index >= len(candidates) {
			continue
		}
		if _, dup := used[sc.Index]; dup {
			continue
		}
		used[sc.Index] = struct{}{}

		item := candidates[sc.Index]
		item.Score = rescaleRerankScore(sc.Score)
		item.Reranked = true
		out = append(out, item)
	}

	if len(out) == 0 {
		s.logger.Warn("rerank_fallback", "reason", "no_valid_scores", "candidates", len(candidates))
		return trimFused(candidates, topN), RerankStatusFallback
	}
	return out, RerankStatusApplied
}

func rerankText(r domain.FusedResult) string {
	name := r.CanonicalName
	description := ""
	if r.Payload != nil {
		if name == "" {
			name = r.Payload.CanonicalName
		}
		description = r.Payload.Description
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return name
	}
	return name + " - " + description
}

// rescaleRerankScore maps a [0,1] relevance score to 0-100.
func rescaleRerankScore(score float64) float64 {
	scaled := score * 100
	switch {
	case scaled < 0:
		return 0
	case scaled > 100:
		return 100
	default:
		return scaled
	}
}
