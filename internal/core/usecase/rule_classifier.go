package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
)

const maxSpanTokens = 4

var queryTokenPattern = regexp.MustCompile(`[가-힣A-Za-z0-9]+`)

// RuleClassifier builds a SearchPlan without a language model. Every phrase
// it emits occurs verbatim in the query.
type RuleClassifier struct {
	lexicon *Lexicon
}

func NewRuleClassifier(lexicon *Lexicon) *RuleClassifier {
	if lexicon == nil {
		lexicon = DefaultLexicon()
	}
	return &RuleClassifier{lexicon: lexicon}
}

func (c *RuleClassifier) Classify(query string) domain.SearchPlan {
	query = strings.TrimSpace(query)
	plan := domain.SearchPlan{
		HopDepth:  1,
		Entities:  []string{},
		Sentences: []string{},
		Source:    domain.PlanSourceRules,
	}
	if query == "" {
		return plan
	}

	lowered := strings.ToLower(query)
	if rule, ok := c.lexicon.matchQuestion(lowered); ok {
		plan.HopDepth = rule.HopDepth
		plan.RelationHint = rule.Relation
	}

	keywords := c.extractKeywords(query)
	plan.Entities, plan.Sentences = c.reconstructSpans(keywords, query)

	if plan.Empty() {
		plan.Sentences = []string{query}
		plan.Source = domain.PlanSourceDefault
	}
	return plan
}

// extractKeywords tokenizes query, strips particles and suffix stopwords and
// drops stopwords and numeric tokens.
func (c *RuleClassifier) extractKeywords(query string) []string {
	tokens := queryTokenPattern.FindAllString(query, -1)
	out := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))

	for _, token := range tokens {
		token = c.stripParticle(token)
		if c.lexicon.isStopword(token) {
			continue
		}

		keyword, keep := c.stripSuffixStopword(token)
		if !keep || utf8.RuneCountInString(keyword) < 2 || isDigits(keyword) {
			continue
		}
		if _, dup := seen[keyword]; dup {
			continue
		}
		seen[keyword] = struct{}{}
		out = append(out, keyword)
	}
	return out
}

func (c *RuleClassifier) stripParticle(token string) string {
	runes := utf8.RuneCountInString(token)
	for _, p := range c.lexicon.Particles {
		pl := utf8.RuneCountInString(p)
		if pl == 0 || !strings.HasSuffix(token, p) {
			continue
		}
		if (pl == 1 && runes >= 3) || (pl > 1 && runes-pl >= 2) {
			return strings.TrimSuffix(token, p)
		}
	}
	return token
}

func (c *RuleClassifier) stripSuffixStopword(token string) (string, bool) {
	runes := utf8.RuneCountInString(token)
	for _, suffix := range c.lexicon.SuffixStopwords {
		if runes > utf8.RuneCountInString(suffix) && strings.HasSuffix(token, suffix) {
			core := strings.TrimSuffix(token, suffix)
			return core, utf8.RuneCountInString(core) >= 2
		}
	}
	return token, true
}

// reconstructSpans groups verb-bearing keywords with their neighbours into
// sentence spans found verbatim in query; everything else is an entity.
func (c *RuleClassifier) reconstructSpans(keywords []string, query string) ([]string, []string) {
	entities := make([]string, 0, len(keywords))
	sentences := make([]string, 0, 2)

	for i := 0; i < len(keywords); {
		current := keywords[i]
		currentVerb := c.lexicon.hasVerbPattern(current)
		nextVerb := i+1 < len(keywords) && c.lexicon.hasVerbPattern(keywords[i+1])

		if currentVerb || nextVerb {
			if n := longestVerbatimSpan(keywords, i, query); n >= 2 {
				sentences = appendUnique(sentences, strings.Join(keywords[i:i+n], " "))
				i += n
				continue
			}
		}
		if c.lexicon.isHeadNoun(current) {
			i++
			continue
		}
		if !currentVerb || !c.lexicon.isVerbPattern(current) {
			entities = appendUnique(entities, current)
		}
		i++
	}
	return entities, sentences
}

func longestVerbatimSpan(keywords []string, start int, query string) int {
	maxN := len(keywords) - start
	if maxN > maxSpanTokens {
		maxN = maxSpanTokens
	}
	for n := maxN; n >= 2; n-- {
		if strings.Contains(query, strings.Join(keywords[start:start+n], " ")) {
			return n
		}
	}
	return 0
}

func appendUnique(items []string, value string) []string {
	for _, existing := range items {
		if existing == value {
			return items
		}
	}
	return append(items, value)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
