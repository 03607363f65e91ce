package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
	"github.com/kirillkom/game-knowledge-search/internal/infrastructure/resilience"
)

// SearchClient sends search requests to the worker pool and implements
// ports.SearchService.
type SearchClient struct {
	conn     *nats.Conn
	subject  string
	timeout  time.Duration
	executor *resilience.Executor
}

func NewSearchClient(conn *nats.Conn, subject string, timeout time.Duration, executor *resilience.Executor) *SearchClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SearchClient{
		conn:     conn,
		subject:  subject,
		timeout:  timeout,
		executor: executor,
	}
}

func (c *SearchClient) Search(ctx context.Context, query string, limit int) (*domain.SearchOutcome, error) {
	body, err := json.Marshal(SearchRequest{Query: query, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	var msg *nats.Msg
	call := func(callCtx context.Context) error {
		reqCtx, cancel := context.WithTimeout(callCtx, c.timeout)
		defer cancel()
		m, err := c.conn.RequestWithContext(reqCtx, c.subject, body)
		if err != nil {
			return fmt.Errorf("nats request: %w", err)
		}
		msg = m
		return nil
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, "nats.search", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded("nats search", err)
	}
	return decodeReply(msg.Data)
}

func decodeReply(data []byte) (*domain.SearchOutcome, error) {
	var reply SearchReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, fmt.Errorf("decode search reply: %w", err)
	}
	if err := reply.err(); err != nil {
		return nil, err
	}
	if reply.Outcome == nil {
		return nil, fmt.Errorf("decode search reply: empty outcome")
	}
	return reply.Outcome, nil
}
