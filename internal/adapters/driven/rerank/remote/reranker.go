// Package remote provides a cross-encoder reranker backed by an HTTP
// rerank endpoint. Two wire formats are supported: Hugging Face Text
// Embeddings Inference (TEI) and the Cohere-style /v1/rerank API used by
// Cohere, Jina and Voyage.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Reranker implements the interface.
var _ driven.Reranker = (*Reranker)(nil)

// Format selects the request and response shape of the endpoint.
type Format string

const (
	// FormatTEI posts {query, texts} to <base>/rerank.
	FormatTEI Format = "tei"

	// FormatCohere posts {model, query, documents} to <base>/v1/rerank.
	FormatCohere Format = "cohere"
)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:8080"
	DefaultModel   = "cross-encoder/ms-marco-MiniLM-L-6-v2"
	DefaultTimeout = 60 * time.Second
)

// Config holds configuration for the remote reranker.
type Config struct {
	// BaseURL is the server base URL (default: http://localhost:8080).
	BaseURL string

	// Format is the wire format (default: tei).
	Format Format

	// Model is the reranking model. TEI servers ignore it.
	Model string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Limiter throttles requests. Optional.
	Limiter *ratelimit.Limiter
}

// Reranker scores passages through a remote cross-encoder.
type Reranker struct {
	client  *http.Client
	baseURL string
	format  Format
	model   string
	apiKey  string
	limiter *ratelimit.Limiter
}

type teiRequest struct {
	Query     string   `json:"query"`
	Texts     []string `json:"texts"`
	RawScores bool     `json:"raw_scores"`
}

type teiResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

type cohereRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type cohereResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
	Message string `json:"message,omitempty"`
}

// New creates a remote reranker.
func New(cfg Config) (*Reranker, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Format == "" {
		cfg.Format = FormatTEI
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Format != FormatTEI && cfg.Format != FormatCohere {
		return nil, fmt.Errorf("rerank: unknown format %q: %w", cfg.Format, domain.ErrInvalidInput)
	}

	return &Reranker{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		format:  cfg.Format,
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		limiter: cfg.Limiter,
	}, nil
}

// Score returns one score per passage, in passage order.
func (r *Reranker) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	var (
		path string
		body any
	)
	switch r.format {
	case FormatCohere:
		path = "/v1/rerank"
		body = cohereRequest{Model: r.model, Query: query, Documents: passages, TopN: len(passages)}
	default:
		path = "/rerank"
		body = teiRequest{Query: query, Texts: passages, RawScores: true}
	}

	data, err := r.post(ctx, path, body)
	if err != nil {
		return nil, err
	}

	// Both formats return results sorted by score; map back by index
	scores := make([]float64, len(passages))
	seen := make([]bool, len(passages))
	assign := func(index int, score float64) error {
		if index < 0 || index >= len(passages) {
			return fmt.Errorf("rerank: result index %d out of range", index)
		}
		scores[index] = score
		seen[index] = true
		return nil
	}

	switch r.format {
	case FormatCohere:
		var resp cohereResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("rerank: decode response: %w", err)
		}
		for _, res := range resp.Results {
			if err := assign(res.Index, res.RelevanceScore); err != nil {
				return nil, err
			}
		}
	default:
		var resp []teiResult
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("rerank: decode response: %w", err)
		}
		for _, res := range resp {
			if err := assign(res.Index, res.Score); err != nil {
				return nil, err
			}
		}
	}

	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("rerank: no score for passage %d", i)
		}
	}
	return scores, nil
}

func (r *Reranker) post(ctx context.Context, path string, body any) ([]byte, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if r.limiter.Observe(resp) {
		return nil, fmt.Errorf("rerank: %w", domain.ErrRateLimited)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}

// ModelName returns the name of the reranking model.
func (r *Reranker) ModelName() string {
	return r.model
}

// Ping checks the server answers a one-passage request.
func (r *Reranker) Ping(ctx context.Context) error {
	_, err := r.Score(ctx, "ping", []string{"ping"})
	return err
}

// Close releases resources.
func (r *Reranker) Close() error {
	return nil
}
