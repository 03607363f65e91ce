// Package crossencoder calls an external cross-encoder rerank service that
// accepts {query, texts, top_n} and returns scored indexes.
package crossencoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
	"github.com/kirillkom/game-knowledge-search/internal/infrastructure/resilience"
)

const operationName = "crossencoder_rerank"

type Client struct {
	url        string
	httpClient *http.Client
	executor   *resilience.Executor
}

// New builds a client for the full rerank endpoint URL. A nil executor sends
// each request once.
func New(url string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		url:        strings.TrimSpace(url),
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
	TopN  int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	} `json:"results"`
}

func (c *Client) Score(ctx context.Context, query string, texts []string, topN int) ([]domain.RerankScore, error) {
	if len(texts) == 0 {
		return []domain.RerankScore{}, nil
	}
	if topN <= 0 || topN > len(texts) {
		topN = len(texts)
	}

	var out []domain.RerankScore
	call := func(callCtx context.Context) error {
		scores, err := c.post(callCtx, rerankRequest{Query: query, Texts: texts, TopN: topN})
		if err != nil {
			return err
		}
		out = scores
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operationName, call, classifyError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrAdapterUnavailable, operationName, err)
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, payload rerankRequest) ([]domain.RerankScore, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var decoded rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}
	out := make([]domain.RerankScore, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		out = append(out, domain.RerankScore{Index: r.Index, Score: r.Score})
	}
	return out, nil
}

type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("rerank status %d", e.StatusCode)
	}
	return fmt.Sprintf("rerank status %d: %s", e.StatusCode, e.Body)
}

func classifyError(err error) resilience.ErrorClassification {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Ignored
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return resilience.Transient
		case http.StatusInternalServerError:
			return resilience.Permanent
		default:
			return resilience.Ignored
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.Transient
	}
	return resilience.Permanent
}
