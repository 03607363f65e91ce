package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
)

type planResponse struct {
	Thought   string      `json:"thought"`
	Hop       flexibleInt `json:"hop"`
	Relation  string      `json:"relation"`
	Entities  []string    `json:"entities"`
	Sentences []string    `json:"sentences"`
}

// flexibleInt accepts 2, 2.0 and "2".
type flexibleInt int

func (f *flexibleInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(s))
		if len(data) == 0 {
			*f = 0
			return nil
		}
	}
	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("hop is not a number: %w", err)
	}
	*f = flexibleInt(n)
	return nil
}

// ParsePlanJSON decodes the planner's model output. It tolerates markdown
// code fences, doubled braces and prose around the JSON object.
func ParsePlanJSON(raw string) (domain.SearchPlan, error) {
	cleaned := cleanModelJSON(raw)
	if cleaned == "" {
		return domain.SearchPlan{}, domain.WrapError(domain.ErrClassification, "parse plan", fmt.Errorf("empty model output"))
	}

	var resp planResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		// Some models echo the template's doubled braces.
		normalized := strings.ReplaceAll(strings.ReplaceAll(cleaned, "{{", "{"), "}}", "}")
		resp = planResponse{}
		if retryErr := json.Unmarshal([]byte(extractJSONObject(normalized)), &resp); retryErr != nil {
			return domain.SearchPlan{}, domain.WrapError(domain.ErrClassification, "parse plan", err)
		}
	}

	plan := domain.SearchPlan{
		HopDepth:     int(resp.Hop),
		RelationHint: strings.TrimSpace(resp.Relation),
		Thought:      strings.TrimSpace(resp.Thought),
		Source:       domain.PlanSourceLLM,
	}
	if plan.HopDepth < 1 {
		plan.HopDepth = 1
	}
	plan.Entities = cleanTerms(resp.Entities, nil)
	plan.Sentences = cleanTerms(resp.Sentences, plan.Entities)
	return plan, nil
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```JSON")
		s = strings.TrimPrefix(s, "```")
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
	} else if start := strings.Index(s, "```json"); start >= 0 {
		s = s[start+len("```json"):]
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
	}
	return strings.TrimSpace(extractJSONObject(s))
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

// cleanTerms trims, drops empties and duplicates, and skips anything already
// present in exclude.
func cleanTerms(terms []string, exclude []string) []string {
	out := make([]string, 0, len(terms))
	skip := make(map[string]struct{}, len(terms)+len(exclude))
	for _, e := range exclude {
		skip[e] = struct{}{}
	}
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		if _, ok := skip[term]; ok {
			continue
		}
		skip[term] = struct{}{}
		out = append(out, term)
	}
	return out
}
