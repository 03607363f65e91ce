package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/game-knowledge-search/internal/config"
)

type embedderStub struct{}

func (embedderStub) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{0.1}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenSemanticIndexDisabledBackend(t *testing.T) {
	cfg := config.Config{SemanticBackend: config.SemanticBackendNone}
	index, check := openSemanticIndex(context.Background(), cfg, nil, embedderStub{}, discardLogger())
	if index != nil || check != nil {
		t.Fatalf("expected no index for disabled backend, got %v", index)
	}
}

func TestOpenSemanticIndexPGVectorMissingTableDisablesSearch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()
	mock.ExpectQuery(`SELECT to_regclass`).
		WithArgs("qa_embeddings").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	cfg := config.Config{SemanticBackend: config.SemanticBackendPGVector, PGVectorTable: "qa_embeddings"}
	index, _ := openSemanticIndex(context.Background(), cfg, db, embedderStub{}, discardLogger())
	if index != nil {
		t.Fatalf("expected semantic search to be disabled, got %T", index)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOpenSemanticIndexPGVectorReady(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()
	mock.ExpectQuery(`SELECT to_regclass`).
		WithArgs("qa_embeddings").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	cfg := config.Config{SemanticBackend: config.SemanticBackendPGVector, PGVectorTable: "qa_embeddings"}
	index, check := openSemanticIndex(context.Background(), cfg, db, embedderStub{}, discardLogger())
	if index == nil || check == nil {
		t.Fatalf("expected pgvector index with readiness check")
	}
}

func TestOpenSemanticIndexPGVectorCreatesSchemaWhenDimensionSet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS qa_embeddings`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT to_regclass`).
		WithArgs("qa_embeddings").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	cfg := config.Config{
		SemanticBackend:   config.SemanticBackendPGVector,
		PGVectorTable:     "qa_embeddings",
		PGVectorDimension: 1024,
	}
	index, _ := openSemanticIndex(context.Background(), cfg, db, embedderStub{}, discardLogger())
	if index == nil {
		t.Fatalf("expected pgvector index after schema creation")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
