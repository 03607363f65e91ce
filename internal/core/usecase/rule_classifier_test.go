package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
)

func TestRuleClassifierVerbPhraseBecomesSentence(t *testing.T) {
	plan := NewRuleClassifier(nil).Classify("물약 파는 사람 누구야?")

	assert.Equal(t, domain.PlanSourceRules, plan.Source)
	assert.Empty(t, plan.Entities)
	assert.Equal(t, []string{"물약 파는 사람"}, plan.Sentences)
	assert.Equal(t, 1, plan.HopDepth)
	assert.Equal(t, "ITEM-NPC", plan.RelationHint)
}

func TestRuleClassifierEntityLocation(t *testing.T) {
	plan := NewRuleClassifier(nil).Classify("다크로드 어디 있어?")

	assert.Equal(t, []string{"다크로드"}, plan.Entities)
	assert.Empty(t, plan.Sentences)
	assert.Equal(t, "ENTITY-MAP", plan.RelationHint)
}

func TestRuleClassifierAcquisitionIsTwoHop(t *testing.T) {
	plan := NewRuleClassifier(nil).Classify("아이스진 얻으려면 어떻게 하나요?")

	assert.Equal(t, 2, plan.HopDepth)
	assert.Equal(t, "ITEM-MONSTER-MAP", plan.RelationHint)
	assert.Equal(t, []string{"아이스진"}, plan.Entities)
}

func TestRuleClassifierNeverReturnsEmptyPlan(t *testing.T) {
	c := NewRuleClassifier(nil)
	queries := []string{
		"??",
		"123 요",
		"어디",
		"동의어 테스트용 몬스터 위치",
		"헤네시스에서 엘리니아 가는 법",
		"a",
	}
	for _, q := range queries {
		plan := c.Classify(q)
		require.Falsef(t, plan.Empty(), "query %q produced an empty plan", q)
		assert.GreaterOrEqual(t, plan.HopDepth, 1)
	}
}

func TestRuleClassifierDropsGenericNounsFromEntities(t *testing.T) {
	c := NewRuleClassifier(nil)

	plan := c.Classify("동의어 테스트용 몬스터 위치")
	assert.Equal(t, []string{"동의어", "테스트용", "몬스터"}, plan.Entities)
	assert.NotContains(t, plan.Entities, "위치")
	assert.Equal(t, "ENTITY-MAP", plan.RelationHint)

	plan = c.Classify("포션 사람 어디?")
	assert.Equal(t, []string{"포션"}, plan.Entities)

	plan = c.Classify("물약 파는 사람 누구야?")
	assert.Empty(t, plan.Entities)
	assert.Equal(t, []string{"물약 파는 사람"}, plan.Sentences)
}

func TestRuleClassifierPhrasesOccurVerbatim(t *testing.T) {
	query := "헤네시스에서 엘리니아 가는 법 알려줘"
	plan := NewRuleClassifier(nil).Classify(query)

	for _, s := range plan.Sentences {
		assert.Contains(t, query, s)
	}
	for _, e := range plan.Entities {
		assert.Contains(t, query, e)
	}
	assert.Equal(t, 2, plan.HopDepth)
	assert.Equal(t, "MAP-MAP", plan.RelationHint)
}

func TestRuleClassifierBlankQuery(t *testing.T) {
	plan := NewRuleClassifier(nil).Classify("   ")
	assert.True(t, plan.Empty())
	assert.Equal(t, 1, plan.HopDepth)
}

func TestRuleClassifierDeterministic(t *testing.T) {
	c := NewRuleClassifier(nil)
	first := c.Classify("주황버섯 떨구는 아이템")
	second := c.Classify("주황버섯 떨구는 아이템")
	assert.Equal(t, first, second)
}

func TestLexiconFromYAML(t *testing.T) {
	lex, err := ParseLexicon([]byte(`
particles: [s]
stopwords: [where, is, the]
verb_patterns: [ing]
question_rules:
  - patterns: [where]
    hop_depth: 1
    relation: ENTITY-MAP
`))
	require.NoError(t, err)

	plan := NewRuleClassifier(lex).Classify("where is the dark lord")
	assert.Equal(t, []string{"dark", "lord"}, plan.Entities)
	assert.Equal(t, "ENTITY-MAP", plan.RelationHint)
}

func TestLexiconRejectsInvalidYAML(t *testing.T) {
	_, err := ParseLexicon([]byte("particles: [unterminated"))
	require.Error(t, err)
}
