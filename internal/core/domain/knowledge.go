package domain

import (
	"fmt"
	"strings"
)

// Category is the closed set of knowledge base record types.
type Category string

const (
	CategoryItem    Category = "ITEM"
	CategoryNPC     Category = "NPC"
	CategoryMap     Category = "MAP"
	CategoryMonster Category = "MONSTER"
	CategoryBoss    Category = "BOSS"
	CategoryQuest   Category = "QUEST"
	CategorySkill   Category = "SKILL"
)

var knownCategories = []Category{
	CategoryItem,
	CategoryNPC,
	CategoryMap,
	CategoryMonster,
	CategoryBoss,
	CategoryQuest,
	CategorySkill,
}

// ParseCategory returns the matching category or "" when the value is unknown.
func ParseCategory(raw string) Category {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	for _, c := range knownCategories {
		if string(c) == normalized {
			return c
		}
	}
	return ""
}

func (c Category) Valid() bool {
	return ParseCategory(string(c)) != ""
}

// Record is one dictionary entry of the knowledge base.
type Record struct {
	ID            string         `json:"id"`
	CanonicalName string         `json:"canonical_name"`
	Category      Category       `json:"category"`
	Description   string         `json:"description,omitempty"`
	Synonyms      []string       `json:"synonyms,omitempty"`
	Detail        map[string]any `json:"detail,omitempty"`
}

// DetailString reads a detail field as text; non-string values are rendered.
func (r *Record) DetailString(key string) string {
	if r == nil || r.Detail == nil {
		return ""
	}
	v, ok := r.Detail[key]
	if !ok || v == nil {
		return ""
	}
	switch typed := v.(type) {
	case string:
		return typed
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			if s, ok := item.(string); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(typed)
	}
}

// SemanticHit is one nearest-neighbour entry of the question/answer index.
type SemanticHit struct {
	ID            string   `json:"id"`
	CanonicalName string   `json:"canonical_name"`
	Category      Category `json:"category"`
	Question      string   `json:"question"`
	Answer        string   `json:"answer"`
	QAType        string   `json:"qa_type,omitempty"`
	Score         float64  `json:"score"`
}
