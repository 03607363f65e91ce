package lexical

import (
	"context"
	"testing"
)

func TestScorePrefersOverlappingText(t *testing.T) {
	r := New()
	texts := []string{
		"헤네시스 - 궁수 마을",
		"아이스진 - 겨울 바지 방어구",
		"주황버섯 - 초보 몬스터",
	}

	scores, err := r.Score(context.Background(), "아이스진 방어구", texts, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scores) != 2 {
		t.Fatalf("expected 2 scores, got %d", len(scores))
	}
	if scores[0].Index != 1 {
		t.Fatalf("expected index 1 on top, got %d", scores[0].Index)
	}
	for _, s := range scores {
		if s.Score < 0 || s.Score > 1 {
			t.Fatalf("expected score in [0,1], got %f", s.Score)
		}
	}
}

func TestScoreKeepsInputOrderWithoutOverlap(t *testing.T) {
	r := New()
	scores, err := r.Score(context.Background(), "xyz", []string{"a", "b", "c"}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scores) != 3 {
		t.Fatalf("expected 3 scores, got %d", len(scores))
	}
	for i, s := range scores {
		if s.Index != i {
			t.Fatalf("expected index %d at position %d, got %d", i, i, s.Index)
		}
	}
}

func TestScoreMatchesParticleSuffixedTokens(t *testing.T) {
	r := New()
	texts := []string{"다른 설명", "다크로드는 커닝시티에 있다"}
	scores, err := r.Score(context.Background(), "다크로드", texts, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scores[0].Index != 1 {
		t.Fatalf("expected prefix match to win, got index %d", scores[0].Index)
	}
}

func TestScoreHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Score(ctx, "q", []string{"a"}, 1); err == nil {
		t.Fatalf("expected context error")
	}
}
