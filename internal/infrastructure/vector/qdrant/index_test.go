package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
)

type embedderFake struct{}

func (embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

func TestNearestMapsPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/collections/qa":
			_, _ = w.Write([]byte(`{"result":{"status":"green"}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/collections/qa/points/search":
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode body: %v", err)
			}
			if body["limit"] != float64(3) {
				t.Errorf("expected limit 3, got %v", body["limit"])
			}
			_, _ = w.Write([]byte(`{"result":[
				{"id": 11, "score": 0.87, "payload": {"entity_id": "npc-3", "canonical_name": "리나", "category": "NPC", "question": "물약 어디서 사?", "answer": "리나가 판다", "qa_type": "seller"}},
				{"id": 12, "score": 0.5, "payload": {"id": "map-1", "canonical_name": "헤네시스", "category": "map"}}
			]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	index, err := NewQAIndex(context.Background(), server.URL, "qa", embedderFake{})
	if err != nil {
		t.Fatalf("NewQAIndex() error = %v", err)
	}
	hits, err := index.Nearest(context.Background(), "물약 파는 사람", 3)
	if err != nil {
		t.Fatalf("Nearest() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != "npc-3" || hits[0].Answer != "리나가 판다" || hits[0].Score != 0.87 {
		t.Fatalf("unexpected first hit: %+v", hits[0])
	}
	if hits[1].ID != "map-1" || hits[1].Category != domain.CategoryMap {
		t.Fatalf("expected id fallback and parsed category, got %+v", hits[1])
	}
}

func TestNewQAIndexFailsWhenCollectionMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := NewQAIndex(context.Background(), server.URL, "qa", embedderFake{})
	if !domain.IsKind(err, domain.ErrAdapterUnavailable) {
		t.Fatalf("expected adapter unavailable, got %v", err)
	}
}

func TestNearestIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := New(server.URL, "qa", embedderFake{}).Nearest(context.Background(), "q", 1)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected error to include body, got %v", err)
	}
}

func TestNearestKeepsNumericIDsVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":[
			{"id": 2000001, "score": 0.9, "payload": {"entity_id": 1234567, "entity_name": "자쿰", "entity_type": "BOSS"}},
			{"id": 3000000, "score": 0.4, "payload": {}}
		]}`))
	}))
	defer server.Close()

	hits, err := New(server.URL, "qa", embedderFake{}).Nearest(context.Background(), "자쿰 어디", 2)
	if err != nil {
		t.Fatalf("Nearest() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != "1234567" || hits[1].ID != "3000000" {
		t.Fatalf("expected plain numeric ids, got %q and %q", hits[0].ID, hits[1].ID)
	}
	if hits[0].CanonicalName != "자쿰" || hits[0].Category != domain.CategoryBoss {
		t.Fatalf("expected entity_name/entity_type fallbacks, got %+v", hits[0])
	}
}
