package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
	"github.com/kirillkom/game-knowledge-search/internal/core/ports"
)

const defaultClassifierTimeout = 8 * time.Second

const planSystemPrompt = `You plan searches over a game knowledge base of maps, NPCs, items and monsters.
Three backends are available: a dictionary (exact names), a semantic QA index (verb phrases, indirect wording) and a relation graph.

Decide the relation hop depth of the question:
- hop 1: direct relation (NPC-MAP, MONSTER-MAP, ITEM-MONSTER, ITEM-NPC).
- hop 2: chained relation that needs the graph (ITEM-MONSTER-MAP, ITEM-NPC-MAP, QUEST-NPC-MAP, MAP-MAP).

Split the question into entities (nouns, proper names, copied verbatim) and sentences (verb phrases, copied verbatim).
A term must not appear in both lists.

Reply with one JSON object and nothing else:
{"thought": "short analysis", "hop": 1, "relation": "NPC-MAP", "entities": ["..."], "sentences": ["..."]}

Examples:
"다크로드 어디 있어?" -> {"thought": "NPC location", "hop": 1, "relation": "NPC-MAP", "entities": ["다크로드"], "sentences": []}
"물약 파는 사람 누구야?" -> {"thought": "seller by description", "hop": 1, "relation": "ITEM-NPC", "entities": [], "sentences": ["물약 파는 사람"]}
"아이스진 얻으려면 어떻게 하나요?" -> {"thought": "item, dropping monster, its map", "hop": 2, "relation": "ITEM-MONSTER-MAP", "entities": ["아이스진"], "sentences": []}`

// PlanClassifier asks the language model for a SearchPlan and falls back to
// the rule-based classifier on any failure. It never returns an empty plan
// for a non-empty query.
type PlanClassifier struct {
	completer ports.Completer
	rules     *RuleClassifier
	timeout   time.Duration
	logger    *slog.Logger
}

func NewPlanClassifier(
	completer ports.Completer,
	rules *RuleClassifier,
	timeout time.Duration,
	logger *slog.Logger,
) *PlanClassifier {
	if rules == nil {
		rules = NewRuleClassifier(nil)
	}
	if timeout <= 0 {
		timeout = defaultClassifierTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PlanClassifier{
		completer: completer,
		rules:     rules,
		timeout:   timeout,
		logger:    logger,
	}
}

func (c *PlanClassifier) Classify(ctx context.Context, query string) domain.SearchPlan {
	query = strings.TrimSpace(query)

	if c.completer != nil && query != "" {
		plan, err := c.classifyWithModel(ctx, query)
		if err == nil && !plan.Empty() {
			return plan
		}
		if err != nil {
			c.logger.Warn("plan_classifier_fallback", "reason", "model_error", "error", err)
		} else {
			c.logger.Warn("plan_classifier_fallback", "reason", "empty_plan")
		}
	}

	plan := c.rules.Classify(query)
	if plan.Empty() && query != "" {
		plan.Sentences = []string{query}
		plan.Source = domain.PlanSourceDefault
	}
	return plan
}

func (c *PlanClassifier) classifyWithModel(ctx context.Context, query string) (domain.SearchPlan, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.completer.Complete(callCtx, planSystemPrompt, query)
	if err != nil {
		return domain.SearchPlan{}, domain.WrapError(domain.ErrAdapterUnavailable, "plan completion", err)
	}
	return ParsePlanJSON(raw)
}
