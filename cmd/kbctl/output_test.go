package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
)

func TestWriteOutcomeText(t *testing.T) {
	var buf bytes.Buffer
	outcome := &domain.SearchOutcome{
		Query: "아이스진 얻는 법",
		Plan:  domain.SearchPlan{HopDepth: 2, RelationHint: "ITEM-MONSTER-MAP", Entities: []string{"아이스진"}, Source: domain.PlanSourceRules},
		Results: []domain.FusedResult{{
			CanonicalName:       "아이스진",
			Category:            domain.CategoryItem,
			Score:               100,
			MatchType:           domain.MatchExactName,
			ContributingSources: []domain.SourceTag{domain.SourceRelational, domain.SourceGraph},
		}},
	}

	if err := writeOutcome(&buf, outcome, false); err != nil {
		t.Fatalf("writeOutcome() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"hop=2", "hint=ITEM-MONSTER-MAP", "아이스진", "relational,graph", "100.00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got %q", want, out)
		}
	}
}

func TestWriteOutcomeEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := writeOutcome(&buf, &domain.SearchOutcome{Query: "q"}, false); err != nil {
		t.Fatalf("writeOutcome() error = %v", err)
	}
	if !strings.Contains(buf.String(), "no results") {
		t.Fatalf("expected no results line, got %q", buf.String())
	}
}

func TestWritePath(t *testing.T) {
	var buf bytes.Buffer
	path := &domain.MapPath{Names: []string{"엘나스", "엘나스 산맥", "폐광"}, Distance: 2}
	if err := writePath(&buf, "엘나스", "폐광", path, false); err != nil {
		t.Fatalf("writePath() error = %v", err)
	}
	if got := buf.String(); got != "엘나스 -> 엘나스 산맥 -> 폐광 (2 hops)\n" {
		t.Fatalf("unexpected path output %q", got)
	}

	buf.Reset()
	if err := writePath(&buf, "엘나스", "리스항구", nil, false); err != nil {
		t.Fatalf("writePath() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), "no route") {
		t.Fatalf("expected no route message, got %q", buf.String())
	}
}

func TestWriteChecksJSON(t *testing.T) {
	var buf bytes.Buffer
	results := map[string]error{
		"postgres": nil,
		"neo4j":    errors.New("connection refused"),
	}
	if err := writeChecks(&buf, results, true); err != nil {
		t.Fatalf("writeChecks() error = %v", err)
	}

	var payload map[string]string
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode checks: %v", err)
	}
	if payload["postgres"] != "ok" || payload["neo4j"] != "connection refused" {
		t.Fatalf("unexpected checks payload: %+v", payload)
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"search", "classify", "answer", "path", "health"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("expected subcommand %q, got %v (err %v)", name, cmd, err)
		}
	}
}

func TestClassifyRulesOnlyRunsWithoutBackends(t *testing.T) {
	t.Setenv("CLASSIFIER_LEXICON_PATH", "")
	root := newRootCommand()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"classify", "--rules", "--json", "아이스진", "얻으려면?"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	var plan domain.SearchPlan
	if err := json.Unmarshal(buf.Bytes(), &plan); err != nil {
		t.Fatalf("decode plan: %v (output %q)", err, buf.String())
	}
	if plan.Source == domain.PlanSourceLLM {
		t.Fatalf("expected a rule-based plan, got %+v", plan)
	}
}
