package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
)

const recordColumns = `id, canonical_name, category, description, synonyms, detail_data`

// RecordRepository reads the knowledge dictionary table. Category filters
// use '' as "any category".
type RecordRepository struct {
	db *sql.DB
}

func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *RecordRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS knowledge_dictionary (
	id TEXT PRIMARY KEY,
	canonical_name TEXT NOT NULL,
	category TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	synonyms JSONB NOT NULL DEFAULT '[]'::jsonb,
	detail_data JSONB NOT NULL DEFAULT '{}'::jsonb
);

CREATE INDEX IF NOT EXISTS idx_knowledge_dictionary_name ON knowledge_dictionary(canonical_name);
CREATE INDEX IF NOT EXISTS idx_knowledge_dictionary_category ON knowledge_dictionary(category);
CREATE INDEX IF NOT EXISTS idx_knowledge_dictionary_synonyms ON knowledge_dictionary USING GIN (synonyms);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Ping is used by readiness probes.
func (r *RecordRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *RecordRepository) FindExact(ctx context.Context, name string, category domain.Category, limit int) ([]domain.Record, error) {
	return r.queryRecords(ctx, "find exact", `
SELECT `+recordColumns+`
FROM knowledge_dictionary
WHERE canonical_name = $1 AND ($2 = '' OR category = $2)
ORDER BY id
LIMIT $3
`, name, string(category), normalizeLimit(limit))
}

func (r *RecordRepository) FindBySynonym(ctx context.Context, term string, category domain.Category, limit int) ([]domain.Record, error) {
	return r.queryRecords(ctx, "find by synonym", `
SELECT `+recordColumns+`
FROM knowledge_dictionary
WHERE synonyms @> jsonb_build_array($1::text) AND ($2 = '' OR category = $2)
ORDER BY id
LIMIT $3
`, term, string(category), normalizeLimit(limit))
}

func (r *RecordRepository) FindByDescription(ctx context.Context, term string, category domain.Category, limit int) ([]domain.Record, error) {
	return r.queryRecords(ctx, "find by description", `
SELECT `+recordColumns+`
FROM knowledge_dictionary
WHERE description ILIKE $1 AND ($2 = '' OR category = $2)
ORDER BY id
LIMIT $3
`, likePattern(term), string(category), normalizeLimit(limit))
}

func (r *RecordRepository) FindByDetail(ctx context.Context, term string, category domain.Category, limit int) ([]domain.Record, error) {
	return r.queryRecords(ctx, "find by detail", `
SELECT `+recordColumns+`
FROM knowledge_dictionary
WHERE detail_data::text ILIKE $1 AND ($2 = '' OR category = $2)
ORDER BY id
LIMIT $3
`, likePattern(term), string(category), normalizeLimit(limit))
}

// FindNamesByDescription returns canonical names whose description mentions
// term; used to resolve informal names to dictionary entries.
func (r *RecordRepository) FindNamesByDescription(ctx context.Context, term string, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT canonical_name
FROM knowledge_dictionary
WHERE description ILIKE $1
ORDER BY id
LIMIT $2
`, likePattern(term), normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("find names by description: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate names: %w", err)
	}
	return out, nil
}

func (r *RecordRepository) FindByName(ctx context.Context, canonicalName string) (*domain.Record, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+recordColumns+`
FROM knowledge_dictionary
WHERE canonical_name = $1
ORDER BY id
LIMIT 1
`, canonicalName)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "find by name", fmt.Errorf("record %q", canonicalName))
		}
		return nil, fmt.Errorf("find by name: %w", err)
	}
	return rec, nil
}

func (r *RecordRepository) queryRecords(ctx context.Context, op, query string, args ...any) ([]domain.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]domain.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate rows: %w", op, err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.Record, error) {
	var rec domain.Record
	var category string
	var synonymsRaw, detailRaw []byte

	if err := row.Scan(&rec.ID, &rec.CanonicalName, &category, &rec.Description, &synonymsRaw, &detailRaw); err != nil {
		return nil, err
	}
	rec.Category = domain.ParseCategory(category)
	if rec.Category == "" {
		rec.Category = domain.Category(category)
	}

	if len(synonymsRaw) > 0 {
		if err := json.Unmarshal(synonymsRaw, &rec.Synonyms); err != nil {
			return nil, fmt.Errorf("unmarshal synonyms: %w", err)
		}
	}
	if len(detailRaw) > 0 {
		if err := json.Unmarshal(detailRaw, &rec.Detail); err != nil {
			return nil, fmt.Errorf("unmarshal detail_data: %w", err)
		}
	}
	return &rec, nil
}

func likePattern(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(term) + "%"
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	return limit
}
