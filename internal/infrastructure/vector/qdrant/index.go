package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
	"github.com/kirillkom/game-knowledge-search/internal/core/ports"
)

// QAIndex searches a Qdrant collection of embedded question/answer pairs.
type QAIndex struct {
	baseURL    string
	collection string
	embedder   ports.Embedder
	httpClient *http.Client
}

func New(baseURL, collection string, embedder ports.Embedder) *QAIndex {
	return &QAIndex{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		embedder:   embedder,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewQAIndex builds the index and fails fast when the collection is missing.
func NewQAIndex(ctx context.Context, baseURL, collection string, embedder ports.Embedder) (*QAIndex, error) {
	if embedder == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "qdrant index", fmt.Errorf("embedder is required"))
	}
	idx := New(baseURL, collection, embedder)
	if err := idx.CheckCollection(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (c *QAIndex) CheckCollection(ctx context.Context) error {
	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create collection request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrAdapterUnavailable, "qdrant collection", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.WrapError(domain.ErrAdapterUnavailable, "qdrant collection", fmt.Errorf("collection %q not found", c.collection))
	}
	if resp.StatusCode >= 300 {
		return domain.WrapError(domain.ErrAdapterUnavailable, "qdrant collection", statusError(resp))
	}
	return nil
}

func (c *QAIndex) Nearest(ctx context.Context, text string, topK int) ([]domain.SemanticHit, error) {
	if topK <= 0 {
		topK = 5
	}
	vector, err := c.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	body, err := json.Marshal(map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qdrant search: %w", statusError(resp))
	}

	var searchResp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.SemanticHit, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		id := getStringPayload(r.Payload, "entity_id")
		if id == "" {
			id = getStringPayload(r.Payload, "id")
		}
		if id == "" {
			id = payloadString(r.ID)
		}
		name := getStringPayload(r.Payload, "canonical_name")
		if name == "" {
			name = getStringPayload(r.Payload, "entity_name")
		}
		category := getStringPayload(r.Payload, "category")
		if category == "" {
			category = getStringPayload(r.Payload, "entity_type")
		}
		out = append(out, domain.SemanticHit{
			ID:            id,
			CanonicalName: name,
			Category:      domain.ParseCategory(category),
			Question:      getStringPayload(r.Payload, "question"),
			Answer:        getStringPayload(r.Payload, "answer"),
			QAType:        getStringPayload(r.Payload, "qa_type"),
			Score:         r.Score,
		})
	}
	return out, nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return fmt.Errorf("status %s: %s", resp.Status, msg)
	}
	return fmt.Errorf("status %s", resp.Status)
}

func getStringPayload(payload map[string]any, key string) string {
	return payloadString(payload[key])
}

// payloadString renders ids without exponent notation so numeric ids match
// their relational counterparts.
func payloadString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case json.Number:
		return value.String()
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", value)
	}
}
