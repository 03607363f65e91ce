package neo4j

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
)

const defaultResultLimit = 50

type Config struct {
	URI         string
	Username    string
	Password    string
	Database    string
	ResultLimit int
}

// queryRunner executes one read query and returns its rows as maps.
type queryRunner interface {
	Run(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
	Verify(ctx context.Context) error
	Close(ctx context.Context) error
}

type connector func(ctx context.Context) (queryRunner, error)

// Client implements ports.RelationGraph. A query that fails on a closed or
// broken connection recreates the driver once and is retried once.
type Client struct {
	connect connector
	limit   int
	logger  *slog.Logger

	mu     sync.RWMutex
	runner queryRunner
}

func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "neo4j client", fmt.Errorf("uri is required"))
	}
	return newClient(ctx, driverConnector(cfg), cfg.ResultLimit, logger)
}

func newClient(ctx context.Context, connect connector, limit int, logger *slog.Logger) (*Client, error) {
	if limit <= 0 {
		limit = defaultResultLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	runner, err := connect(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrAdapterUnavailable, "neo4j connect", err)
	}
	return &Client{
		connect: connect,
		limit:   limit,
		logger:  logger,
		runner:  runner,
	}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	runner := c.current()
	if runner == nil {
		return domain.WrapError(domain.ErrAdapterUnavailable, "neo4j ping", domain.ErrConnectionClosed)
	}
	return runner.Verify(ctx)
}

func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runner == nil {
		return nil
	}
	err := c.runner.Close(ctx)
	c.runner = nil
	return err
}

func (c *Client) FindRelations(ctx context.Context, kind domain.RelationKind, entityName string) ([]domain.RelationTuple, error) {
	spec, ok := domain.LookupRelation(kind)
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "find relations", fmt.Errorf("unknown relation %q", kind))
	}
	name := strings.TrimSpace(entityName)
	if name == "" {
		return []domain.RelationTuple{}, nil
	}

	rows, err := c.RunTraversal(ctx, relationCypher(spec), map[string]any{"name": name, "limit": int64(c.limit)})
	if err != nil {
		return nil, fmt.Errorf("find relations %s: %w", kind, err)
	}

	out := make([]domain.RelationTuple, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.RelationTuple{
			Kind:       kind,
			Relation:   spec.Edge,
			SourceID:   stringValue(row["source_id"]),
			SourceName: stringValue(row["source_name"]),
			TargetID:   stringValue(row["target_id"]),
			TargetName: stringValue(row["target_name"]),
		})
	}
	return out, nil
}

// FindPath returns the shortest CONNECTS_TO route between two maps, or nil
// when none exists within five hops.
func (c *Client) FindPath(ctx context.Context, startMap, endMap string) (*domain.MapPath, error) {
	rows, err := c.RunTraversal(ctx, `
MATCH path = shortestPath((start:MAP)-[:CONNECTS_TO*..5]->(finish:MAP))
WHERE start.name CONTAINS $start AND finish.name CONTAINS $finish
RETURN [node IN nodes(path) | node.name] AS path_names, length(path) AS distance
LIMIT 1
`, map[string]any{"start": startMap, "finish": endMap})
	if err != nil {
		return nil, fmt.Errorf("find path: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	path := &domain.MapPath{}
	if names, ok := rows[0]["path_names"].([]any); ok {
		for _, n := range names {
			path.Names = append(path.Names, stringValue(n))
		}
	}
	if d, ok := rows[0]["distance"].(int64); ok {
		path.Distance = int(d)
	}
	return path, nil
}

// RunTraversal runs an arbitrary read-only pattern.
func (c *Client) RunTraversal(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	runner := c.current()
	if runner == nil {
		return nil, domain.WrapError(domain.ErrAdapterUnavailable, "neo4j query", domain.ErrConnectionClosed)
	}

	rows, err := runner.Run(ctx, cypher, params)
	if err == nil || !isConnectionError(err) {
		return rows, err
	}

	c.logger.Warn("neo4j_reconnect", "error", err)
	if rerr := c.reconnect(ctx, runner); rerr != nil {
		return nil, domain.WrapError(domain.ErrAdapterUnavailable, "neo4j reconnect", rerr)
	}
	rows, err = c.current().Run(ctx, cypher, params)
	if err != nil {
		return nil, domain.WrapError(domain.ErrAdapterUnavailable, "neo4j query", err)
	}
	return rows, nil
}

func (c *Client) current() queryRunner {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.runner
}

func (c *Client) reconnect(ctx context.Context, stale queryRunner) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runner != stale {
		// Another caller already swapped the driver.
		return nil
	}
	fresh, err := c.connect(ctx)
	if err != nil {
		return err
	}
	if stale != nil {
		_ = stale.Close(ctx)
	}
	c.runner = fresh
	return nil
}

func relationCypher(spec domain.RelationSpec) string {
	anchor := "t"
	if spec.AnchorIsSource {
		anchor = "s"
	}
	return fmt.Sprintf(`
MATCH (s:%s)-[:%s]->(t:%s)
WHERE %s.name CONTAINS $name
RETURN s.id AS source_id, s.name AS source_name, t.id AS target_id, t.name AS target_name
LIMIT $limit
`, spec.SourceCategory, spec.Edge, spec.TargetCategory, anchor)
}

func isConnectionError(err error) bool {
	if errors.Is(err, domain.ErrConnectionClosed) || neo4j.IsConnectivityError(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "closed") || strings.Contains(msg, "defunct")
}

func stringValue(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	default:
		return fmt.Sprint(typed)
	}
}
