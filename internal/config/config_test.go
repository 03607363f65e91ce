package config

import (
	"testing"
	"time"
)

func TestLoadSearchDefaults(t *testing.T) {
	t.Setenv("SEARCH_RRF_K", "")
	t.Setenv("SEARCH_DEFAULT_LIMIT", "")
	t.Setenv("SEARCH_MAX_LIMIT", "")
	t.Setenv("RERANKER_TIMEOUT", "")
	t.Setenv("SEMANTIC_BACKEND", "")
	t.Setenv("WORKER_CONCURRENCY", "")
	t.Setenv("PGVECTOR_DIMENSION", "")

	cfg := Load()
	if cfg.SearchRRFK != 60 {
		t.Fatalf("expected default rrf k 60, got %d", cfg.SearchRRFK)
	}
	if cfg.SearchDefaultLimit != 10 || cfg.SearchMaxLimit != 50 {
		t.Fatalf("expected limits 10/50, got %d/%d", cfg.SearchDefaultLimit, cfg.SearchMaxLimit)
	}
	if cfg.RerankerTimeout != 3*time.Second {
		t.Fatalf("expected reranker timeout 3s, got %s", cfg.RerankerTimeout)
	}
	if cfg.SemanticBackend != SemanticBackendQdrant {
		t.Fatalf("expected qdrant backend, got %q", cfg.SemanticBackend)
	}
	if !cfg.GraphEnabled {
		t.Fatalf("expected graph enabled by default")
	}
	if cfg.WorkerConcurrency != 8 || cfg.PGVectorDimension != 0 {
		t.Fatalf("expected worker concurrency 8 and no pgvector schema, got %d/%d", cfg.WorkerConcurrency, cfg.PGVectorDimension)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("SEARCH_RRF_K", "75")
	t.Setenv("RERANKER_TIMEOUT", "1500ms")
	t.Setenv("CLASSIFIER_TIMEOUT", "2")
	t.Setenv("SEMANTIC_BACKEND", "PGVector")
	t.Setenv("RERANKER_MODE", "remote")
	t.Setenv("GRAPH_ENABLED", "false")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("RESILIENCE_BREAKER_MIN_REQUESTS", "9")
	t.Setenv("WORKER_CONCURRENCY", "3")
	t.Setenv("PGVECTOR_DIMENSION", "1024")

	cfg := Load()
	if cfg.SearchRRFK != 75 {
		t.Fatalf("expected rrf k 75, got %d", cfg.SearchRRFK)
	}
	if cfg.RerankerTimeout != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s reranker timeout, got %s", cfg.RerankerTimeout)
	}
	if cfg.ClassifierTimeout != 2*time.Second {
		t.Fatalf("expected plain seconds to parse, got %s", cfg.ClassifierTimeout)
	}
	if cfg.SemanticBackend != SemanticBackendPGVector || cfg.RerankerMode != RerankerModeRemote {
		t.Fatalf("unexpected backends: %q/%q", cfg.SemanticBackend, cfg.RerankerMode)
	}
	if cfg.GraphEnabled {
		t.Fatalf("expected graph disabled")
	}
	if cfg.APIRateLimitRPS != 2.5 || cfg.Resilience.BreakerMinRequests != 9 {
		t.Fatalf("unexpected traffic settings: %v/%d", cfg.APIRateLimitRPS, cfg.Resilience.BreakerMinRequests)
	}
	if cfg.WorkerConcurrency != 3 || cfg.PGVectorDimension != 1024 {
		t.Fatalf("unexpected worker/pgvector settings: %d/%d", cfg.WorkerConcurrency, cfg.PGVectorDimension)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SEARCH_MAX_LIMIT", "many")
	t.Setenv("RERANKER_TIMEOUT", "-1s")
	t.Setenv("SEMANTIC_BACKEND", "elastic")

	cfg := Load()
	if cfg.SearchMaxLimit != 50 {
		t.Fatalf("expected fallback max limit, got %d", cfg.SearchMaxLimit)
	}
	if cfg.RerankerTimeout != 3*time.Second {
		t.Fatalf("expected fallback timeout, got %s", cfg.RerankerTimeout)
	}
	if cfg.SemanticBackend != SemanticBackendQdrant {
		t.Fatalf("expected fallback backend, got %q", cfg.SemanticBackend)
	}
}
