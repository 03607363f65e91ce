package usecase

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon_ko.yaml
var defaultLexiconYAML []byte

// Lexicon holds the language-specific word lists used by the rule-based
// planner and by graph relation inference.
type Lexicon struct {
	Particles        []string          `yaml:"particles"`
	SuffixStopwords  []string          `yaml:"suffix_stopwords"`
	Stopwords        []string          `yaml:"stopwords"`
	VerbPatterns     []string          `yaml:"verb_patterns"`
	// HeadNouns close a verb phrase ("파는 사람") but are never entities.
	HeadNouns        []string          `yaml:"head_nouns"`
	QuestionRules    []QuestionRule    `yaml:"question_rules"`
	RelationKeywords []RelationKeyword `yaml:"relation_keywords"`

	stopwordSet map[string]struct{}
	headNounSet map[string]struct{}
}

type QuestionRule struct {
	Patterns []string `yaml:"patterns"`
	HopDepth int      `yaml:"hop_depth"`
	Relation string   `yaml:"relation"`
}

type RelationKeyword struct {
	Keywords []string `yaml:"keywords"`
	Relation string   `yaml:"relation"`
}

// DefaultLexicon returns the embedded Korean lexicon.
func DefaultLexicon() *Lexicon {
	lex, err := ParseLexicon(defaultLexiconYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded lexicon: %v", err))
	}
	return lex
}

// LoadLexicon reads a lexicon file; an empty path yields the embedded default.
func LoadLexicon(path string) (*Lexicon, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultLexicon(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon %s: %w", path, err)
	}
	return ParseLexicon(raw)
}

func ParseLexicon(raw []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(raw, &lex); err != nil {
		return nil, fmt.Errorf("parse lexicon yaml: %w", err)
	}
	lex.prepare()
	return &lex, nil
}

func (l *Lexicon) prepare() {
	byLengthDesc := func(items []string) {
		sort.SliceStable(items, func(i, j int) bool {
			return utf8.RuneCountInString(items[i]) > utf8.RuneCountInString(items[j])
		})
	}
	byLengthDesc(l.Particles)
	byLengthDesc(l.SuffixStopwords)

	l.stopwordSet = make(map[string]struct{}, len(l.Stopwords))
	for _, w := range l.Stopwords {
		l.stopwordSet[w] = struct{}{}
	}
	l.headNounSet = make(map[string]struct{}, len(l.HeadNouns))
	for _, w := range l.HeadNouns {
		l.headNounSet[w] = struct{}{}
	}
	for i := range l.QuestionRules {
		if l.QuestionRules[i].HopDepth < 1 {
			l.QuestionRules[i].HopDepth = 1
		}
	}
}

func (l *Lexicon) isStopword(token string) bool {
	_, ok := l.stopwordSet[token]
	return ok
}

func (l *Lexicon) isHeadNoun(token string) bool {
	_, ok := l.headNounSet[token]
	return ok
}

func (l *Lexicon) hasVerbPattern(token string) bool {
	for _, p := range l.VerbPatterns {
		if strings.HasSuffix(token, p) {
			return true
		}
	}
	return false
}

func (l *Lexicon) isVerbPattern(token string) bool {
	for _, p := range l.VerbPatterns {
		if token == p {
			return true
		}
	}
	return false
}

// matchQuestion returns the first rule whose pattern occurs in query.
func (l *Lexicon) matchQuestion(query string) (QuestionRule, bool) {
	for _, rule := range l.QuestionRules {
		for _, p := range rule.Patterns {
			if p != "" && strings.Contains(query, p) {
				return rule, true
			}
		}
	}
	return QuestionRule{}, false
}

// InferRelation picks a relation hint from keywords present in query.
func (l *Lexicon) InferRelation(query string) string {
	for _, rk := range l.RelationKeywords {
		for _, kw := range rk.Keywords {
			if kw != "" && strings.Contains(query, kw) {
				return rk.Relation
			}
		}
	}
	return ""
}
