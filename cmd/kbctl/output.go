package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
)

func writeJSON(w io.Writer, payload any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

func writeOutcome(w io.Writer, outcome *domain.SearchOutcome, asJSON bool) error {
	if asJSON {
		return writeJSON(w, outcome)
	}
	if err := writePlan(w, outcome.Plan, false); err != nil {
		return err
	}
	if len(outcome.Results) == 0 {
		_, err := fmt.Fprintln(w, "no results")
		return err
	}
	for i, r := range outcome.Results {
		sources := make([]string, 0, len(r.ContributingSources))
		for _, s := range r.ContributingSources {
			sources = append(sources, string(s))
		}
		line := fmt.Sprintf("%2d. %-20s %-8s %6.2f  [%s] %s",
			i+1, r.CanonicalName, r.Category, r.Score, strings.Join(sources, ","), r.MatchType)
		if r.Relation != "" {
			line += " " + r.Relation
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if outcome.Reranked {
		_, err := fmt.Fprintln(w, "(reranked)")
		return err
	}
	return nil
}

func writePlan(w io.Writer, plan domain.SearchPlan, asJSON bool) error {
	if asJSON {
		return writeJSON(w, plan)
	}
	_, err := fmt.Fprintf(w, "plan: hop=%d hint=%s entities=[%s] sentences=[%s] source=%s\n",
		plan.HopDepth,
		orDash(plan.RelationHint),
		strings.Join(plan.Entities, ", "),
		strings.Join(plan.Sentences, ", "),
		plan.Source,
	)
	return err
}

func writeAnswer(w io.Writer, answer *domain.Answer, asJSON bool) error {
	if asJSON {
		return writeJSON(w, answer)
	}
	if _, err := fmt.Fprintln(w, answer.Text); err != nil {
		return err
	}
	names := make([]string, 0, len(answer.Outcome.Results))
	for _, r := range answer.Outcome.Results {
		names = append(names, r.CanonicalName)
	}
	if len(names) == 0 {
		return nil
	}
	_, err := fmt.Fprintf(w, "\nevidence: %s\n", strings.Join(names, ", "))
	return err
}

func writePath(w io.Writer, start, end string, path *domain.MapPath, asJSON bool) error {
	if asJSON {
		return writeJSON(w, map[string]any{"start": start, "end": end, "path": path})
	}
	if path == nil {
		_, err := fmt.Fprintf(w, "no route from %s to %s within 5 hops\n", start, end)
		return err
	}
	_, err := fmt.Fprintf(w, "%s (%d hops)\n", strings.Join(path.Names, " -> "), path.Distance)
	return err
}

func writeChecks(w io.Writer, results map[string]error, asJSON bool) error {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	if asJSON {
		payload := make(map[string]string, len(results))
		for _, name := range names {
			payload[name] = checkStatus(results[name])
		}
		return writeJSON(w, payload)
	}
	for _, name := range names {
		if _, err := fmt.Fprintf(w, "%-10s %s\n", name, checkStatus(results[name])); err != nil {
			return err
		}
	}
	return nil
}

func checkStatus(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
