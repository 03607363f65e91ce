// Package pgvector serves the QA embedding index from a Postgres table with
// the vector extension, for deployments that run without Qdrant.
package pgvector

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/pgvector/pgvector-go"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
	"github.com/kirillkom/game-knowledge-search/internal/core/ports"
)

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

type QAIndex struct {
	db       *sql.DB
	table    string
	embedder ports.Embedder
}

func NewQAIndex(db *sql.DB, table string, embedder ports.Embedder) (*QAIndex, error) {
	if table == "" {
		table = "qa_embeddings"
	}
	if !tableNamePattern.MatchString(table) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "pgvector index", fmt.Errorf("invalid table name %q", table))
	}
	if embedder == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "pgvector index", fmt.Errorf("embedder is required"))
	}
	return &QAIndex{db: db, table: table, embedder: embedder}, nil
}

// EnsureSchema creates the QA table; dimension must match the embedding model.
func (i *QAIndex) EnsureSchema(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return domain.WrapError(domain.ErrInvalidInput, "pgvector schema", fmt.Errorf("dimension must be positive"))
	}
	ddl := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	entity_id TEXT NOT NULL,
	canonical_name TEXT NOT NULL,
	category TEXT NOT NULL,
	question TEXT NOT NULL,
	answer TEXT NOT NULL,
	qa_type TEXT NOT NULL DEFAULT '',
	embedding vector(%d) NOT NULL
);
`, i.table, dimension)
	if _, err := i.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("execute pgvector ddl: %w", err)
	}
	return nil
}

// CheckTable fails when the QA table has not been created.
func (i *QAIndex) CheckTable(ctx context.Context) error {
	var exists bool
	if err := i.db.QueryRowContext(ctx, `SELECT to_regclass($1) IS NOT NULL`, i.table).Scan(&exists); err != nil {
		return domain.WrapError(domain.ErrAdapterUnavailable, "pgvector check table", err)
	}
	if !exists {
		return domain.WrapError(domain.ErrAdapterUnavailable, "pgvector check table", fmt.Errorf("table %q does not exist", i.table))
	}
	return nil
}

// Nearest returns the topK QA pairs by cosine similarity.
func (i *QAIndex) Nearest(ctx context.Context, text string, topK int) ([]domain.SemanticHit, error) {
	if topK <= 0 {
		topK = 5
	}
	vector, err := i.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	query := fmt.Sprintf(`
SELECT entity_id, canonical_name, category, question, answer, qa_type, 1 - (embedding <=> $1) AS similarity
FROM %s
ORDER BY embedding <=> $1
LIMIT $2
`, i.table)
	rows, err := i.db.QueryContext(ctx, query, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("pgvector search: %w", err)
	}
	defer rows.Close()

	out := make([]domain.SemanticHit, 0, topK)
	for rows.Next() {
		var hit domain.SemanticHit
		var category string
		if err := rows.Scan(&hit.ID, &hit.CanonicalName, &category, &hit.Question, &hit.Answer, &hit.QAType, &hit.Score); err != nil {
			return nil, fmt.Errorf("scan pgvector hit: %w", err)
		}
		hit.Category = domain.ParseCategory(category)
		out = append(out, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pgvector hits: %w", err)
	}
	return out, nil
}
