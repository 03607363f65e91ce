package ollama

import (
	"fmt"
	"strings"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
)

const (
	maxEvidence         = 5
	maxDescriptionRunes = 200
	noEvidenceAnswer    = "죄송합니다. 관련 정보를 찾을 수 없습니다."
)

const answerSystemPrompt = `당신은 게임 가이드입니다. 제공된 검색 결과만 사용해서 한국어로 답변하세요.
- 맵: 이름, 지역, 가는 방법
- NPC: 이름, 위치, 역할
- 아이템: 획득 방법, 드랍 확률
- 몬스터: 이름, 특징
검색 결과에 없는 내용은 추측하거나 언급하지 마세요. 2-3문장으로 답변하세요.`

// answerEvidence keeps the first result per canonical name, up to maxEvidence.
func answerEvidence(results []domain.FusedResult) []domain.FusedResult {
	out := make([]domain.FusedResult, 0, maxEvidence)
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		name := strings.TrimSpace(r.CanonicalName)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, r)
		if len(out) == maxEvidence {
			break
		}
	}
	return out
}

func buildAnswerPrompt(question string, evidence []domain.FusedResult) string {
	parts := make([]string, 0, len(evidence))
	for idx, r := range evidence {
		parts = append(parts, formatEvidence(idx+1, r))
	}

	return fmt.Sprintf(`[검색 결과]

%s

[사용자 질문]
%s

[답변 지침]
위 검색 결과를 바탕으로 질문에 도움이 되는 답변을 작성하세요.
위치, 이름, 레벨, 드랍률처럼 있는 정보는 정확히 포함하고 없는 정보는 언급하지 마세요.`, strings.Join(parts, "\n\n"), question)
}

func formatEvidence(idx int, r domain.FusedResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s (%s) - %.0f점\n", idx, r.CanonicalName, r.Category, r.Score)

	rec := r.Payload
	if rec != nil && rec.Description != "" {
		fmt.Fprintf(&b, "설명: %s\n", truncateRunes(rec.Description, maxDescriptionRunes))
	}

	switch r.Category {
	case domain.CategoryMap:
		writeField(&b, "지역", rec.DetailString("region"))
		writeField(&b, "연결된 맵", joinObjectField(detailList(rec, "adjacent_maps"), "target_map", 3))
		npcs := stringList(detailList(rec, "resident_npcs"))
		if len(npcs) > 10 {
			writeField(&b, fmt.Sprintf("거주 NPC (%d개 중 10개)", len(npcs)), strings.Join(npcs[:10], ", "))
		} else {
			writeField(&b, "거주 NPC", strings.Join(npcs, ", "))
		}
	case domain.CategoryNPC:
		writeField(&b, "위치", rec.DetailString("location"))
		writeField(&b, "지역", rec.DetailString("region"))
	case domain.CategoryMonster, domain.CategoryBoss:
		writeField(&b, "레벨", rec.DetailString("level"))
		writeField(&b, "출현 위치", strings.Join(head(stringList(detailList(rec, "spawn_maps")), 3), ", "))
		writeField(&b, "드랍 아이템", formatDrops(detailList(rec, "drops"), 5))
	case domain.CategoryItem:
		writeField(&b, "구매처", strings.Join(head(stringList(detailList(rec, "obtainable_from")), 3), ", "))
		writeField(&b, "드랍 몬스터", strings.Join(head(stringList(detailList(rec, "dropped_by")), 3), ", "))
	}

	if r.Relation != "" {
		writeField(&b, "관계", r.Relation)
	}
	return strings.TrimSpace(b.String())
}

func writeField(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}

func detailList(rec *domain.Record, key string) []any {
	if rec == nil || rec.Detail == nil {
		return nil
	}
	list, _ := rec.Detail[key].([]any)
	return list
}

func stringList(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func joinObjectField(items []any, field string, limit int) string {
	values := make([]string, 0, limit)
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if s, ok := obj[field].(string); ok && s != "" {
			values = append(values, s)
		}
		if len(values) == limit {
			break
		}
	}
	return strings.Join(values, ", ")
}

// formatDrops renders drop entries as "name (rate%)"; rates are stored as fractions.
func formatDrops(items []any, limit int) string {
	values := make([]string, 0, limit)
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := obj["item_name"].(string)
		if name == "" {
			continue
		}
		rate, _ := obj["drop_rate"].(float64)
		values = append(values, fmt.Sprintf("%s (%.2f%%)", name, rate*100))
		if len(values) == limit {
			break
		}
	}
	return strings.Join(values, ", ")
}

func head(values []string, n int) []string {
	if len(values) > n {
		return values[:n]
	}
	return values
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
