package domain

// SourceTag names the backend that produced a result.
type SourceTag string

const (
	SourceRelational SourceTag = "relational"
	SourceSemantic   SourceTag = "semantic"
	SourceGraph      SourceTag = "graph"
)

// SourcePrecedence is the fixed order in which sources seed fused metadata.
var SourcePrecedence = []SourceTag{SourceRelational, SourceSemantic, SourceGraph}

// SourceRank orders tags by precedence; unknown tags sort last.
func SourceRank(tag SourceTag) int {
	for i, t := range SourcePrecedence {
		if t == tag {
			return i
		}
	}
	return len(SourcePrecedence)
}

type MatchType string

const (
	MatchExactName           MatchType = "exact_name"
	MatchSynonymList         MatchType = "synonym_list"
	MatchDescriptionContains MatchType = "description_contains"
	MatchDetailContains      MatchType = "detail_contains"
	MatchSynonym             MatchType = "synonym"
	MatchVectorSemantic      MatchType = "vector_semantic"
	MatchGraphRelation       MatchType = "graph_relation"
)

type PlanSource string

const (
	PlanSourceLLM     PlanSource = "llm"
	PlanSourceRules   PlanSource = "rules"
	PlanSourceDefault PlanSource = "default"
)

// SearchPlan is the classifier output consumed by the hybrid searcher.
type SearchPlan struct {
	HopDepth     int        `json:"hop_depth"`
	RelationHint string     `json:"relation_hint,omitempty"`
	Entities     []string   `json:"entities"`
	Sentences    []string   `json:"sentences"`
	Thought      string     `json:"thought,omitempty"`
	Source       PlanSource `json:"source"`
}

func (p SearchPlan) Empty() bool {
	return len(p.Entities) == 0 && len(p.Sentences) == 0
}

// ScoredResult is a single-source candidate before fusion.
type ScoredResult struct {
	EntityID      string    `json:"entity_id"`
	CanonicalName string    `json:"canonical_name"`
	Category      Category  `json:"category"`
	RawScore      float64   `json:"raw_score"`
	Source        SourceTag `json:"source"`
	MatchType     MatchType `json:"match_type"`
	SearchTerm    string    `json:"search_term,omitempty"`
	Relation      string    `json:"relation,omitempty"`
	Payload       *Record   `json:"payload"`
}

// FusedResult is a deduplicated cross-source candidate after RRF.
type FusedResult struct {
	EntityID            string      `json:"entity_id"`
	CanonicalName       string      `json:"canonical_name"`
	Category            Category    `json:"category"`
	MatchType           MatchType   `json:"match_type"`
	SearchTerm          string      `json:"search_term,omitempty"`
	Relation            string      `json:"relation,omitempty"`
	Payload             *Record     `json:"payload"`
	RRFScore            float64     `json:"rrf_score"`
	ContributingSources []SourceTag `json:"contributing_sources"`
	NormalizedScore     float64     `json:"normalized_score"`
	Score               float64     `json:"score"`
	Reranked            bool        `json:"reranked,omitempty"`
}

func (r FusedResult) HasSource(tag SourceTag) bool {
	for _, s := range r.ContributingSources {
		if s == tag {
			return true
		}
	}
	return false
}

// RerankScore is one scored index returned by a cross-encoder.
type RerankScore struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// SearchOutcome is the full result of one hybrid search invocation.
type SearchOutcome struct {
	Query        string            `json:"query"`
	Plan         SearchPlan        `json:"plan"`
	Results      []FusedResult     `json:"results"`
	SourceCounts map[SourceTag]int `json:"source_counts"`
	Reranked     bool              `json:"reranked"`
}

type Answer struct {
	Text    string        `json:"text"`
	Outcome SearchOutcome `json:"outcome"`
}
