package usecase

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
	"github.com/kirillkom/game-knowledge-search/internal/core/ports"
)

const (
	scoreExactName      = 100.0
	scoreSynonymList    = 90.0
	scoreDescription    = 70.0
	scoreDetail         = 50.0
	descriptionTierCap  = 5
	detailTierCap       = 3
	synonymCandidateCap = 5
	synonymRetryNames   = 2
	synonymRetryLimit   = 2
	defaultKeywordLimit = 10
)

// KeywordSearcher resolves entity terms against the relational dictionary
// with four scored match tiers and a description-based synonym fallback.
type KeywordSearcher struct {
	store  ports.RecordStore
	logger *slog.Logger
}

func NewKeywordSearcher(store ports.RecordStore, logger *slog.Logger) *KeywordSearcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KeywordSearcher{store: store, logger: logger}
}

// SearchEntities runs Search for every entity and concatenates the results.
func (s *KeywordSearcher) SearchEntities(
	ctx context.Context,
	entities []string,
	category domain.Category,
	limitPerEntity int,
) []domain.ScoredResult {
	out := make([]domain.ScoredResult, 0, len(entities)*2)
	for _, entity := range entities {
		if ctx.Err() != nil {
			break
		}
		out = append(out, s.Search(ctx, entity, category, limitPerEntity)...)
	}
	return out
}

// Search never returns an error: backend failures are logged and produce an
// empty list.
func (s *KeywordSearcher) Search(ctx context.Context, term string, category domain.Category, limit int) []domain.ScoredResult {
	term = strings.TrimSpace(term)
	if term == "" || s.store == nil {
		return []domain.ScoredResult{}
	}
	if limit <= 0 {
		limit = defaultKeywordLimit
	}

	results, err := s.searchTiers(ctx, term, category, limit)
	if err != nil {
		s.logger.Warn("keyword_search_failed", "term", term, "error", err)
		return []domain.ScoredResult{}
	}
	if len(results) > 0 {
		return results
	}

	synonyms, err := s.resolveSynonyms(ctx, term)
	if err != nil {
		s.logger.Warn("keyword_synonym_search_failed", "term", term, "error", err)
		return []domain.ScoredResult{}
	}
	if len(synonyms) > 0 {
		s.logger.Debug("keyword_synonym_fallback", "term", term, "count", len(synonyms))
	}
	return synonyms
}

func (s *KeywordSearcher) searchTiers(ctx context.Context, term string, category domain.Category, limit int) ([]domain.ScoredResult, error) {
	seen := make(map[string]struct{})
	out := make([]domain.ScoredResult, 0, limit)

	collect := func(records []domain.Record, score float64, match domain.MatchType, maxAdded int) {
		added := 0
		for _, rec := range records {
			if maxAdded > 0 && added >= maxAdded {
				return
			}
			if _, dup := seen[rec.ID]; dup || rec.ID == "" {
				continue
			}
			seen[rec.ID] = struct{}{}
			out = append(out, recordResult(rec, score, match, term))
			added++
		}
	}

	exact, err := s.store.FindExact(ctx, term, category, limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrAdapterUnavailable, "keyword exact", err)
	}
	collect(exact, scoreExactName, domain.MatchExactName, 0)

	bySynonym, err := s.store.FindBySynonym(ctx, term, category, limit+len(seen))
	if err != nil {
		return nil, domain.WrapError(domain.ErrAdapterUnavailable, "keyword synonym list", err)
	}
	collect(bySynonym, scoreSynonymList, domain.MatchSynonymList, 0)

	byDescription, err := s.store.FindByDescription(ctx, term, category, descriptionTierCap+len(seen))
	if err != nil {
		return nil, domain.WrapError(domain.ErrAdapterUnavailable, "keyword description", err)
	}
	collect(byDescription, scoreDescription, domain.MatchDescriptionContains, descriptionTierCap)

	byDetail, err := s.store.FindByDetail(ctx, term, category, detailTierCap+len(seen))
	if err != nil {
		return nil, domain.WrapError(domain.ErrAdapterUnavailable, "keyword detail", err)
	}
	collect(byDetail, scoreDetail, domain.MatchDetailContains, detailTierCap)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RawScore > out[j].RawScore
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// resolveSynonyms finds canonical names whose description mentions term and
// re-runs the exact-name tier for the first few of them.
func (s *KeywordSearcher) resolveSynonyms(ctx context.Context, term string) ([]domain.ScoredResult, error) {
	names, err := s.store.FindNamesByDescription(ctx, term, synonymCandidateCap)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ScoredResult, 0, synonymRetryNames*synonymRetryLimit)
	seen := make(map[string]struct{})
	used := 0
	for _, name := range names {
		if used >= synonymRetryNames {
			break
		}
		name = strings.TrimSpace(name)
		if name == "" || name == term {
			continue
		}
		used++

		records, err := s.store.FindExact(ctx, name, "", synonymRetryLimit)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			if _, dup := seen[rec.ID]; dup || rec.ID == "" {
				continue
			}
			seen[rec.ID] = struct{}{}
			out = append(out, recordResult(rec, scoreExactName, domain.MatchSynonym, term))
		}
	}
	return out, nil
}

func recordResult(rec domain.Record, score float64, match domain.MatchType, term string) domain.ScoredResult {
	payload := rec
	return domain.ScoredResult{
		EntityID:      rec.ID,
		CanonicalName: rec.CanonicalName,
		Category:      rec.Category,
		RawScore:      score,
		Source:        domain.SourceRelational,
		MatchType:     match,
		SearchTerm:    term,
		Payload:       &payload,
	}
}
