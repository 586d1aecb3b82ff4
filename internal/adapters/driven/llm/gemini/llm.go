// Package gemini provides an LLM service adapter for Google Gemini using
// the generativelanguage API client.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-1.5-flash"

// Config holds configuration for the Gemini LLM service.
type Config struct {
	// APIKey is the Google AI Studio API key (required).
	APIKey string

	// Model is the model name without the "models/" prefix.
	Model string

	// Endpoint overrides the API endpoint. Used in tests.
	Endpoint string

	// Limiter throttles requests. Optional.
	Limiter *ratelimit.Limiter
}

// LLMService provides LLM operations using the Gemini API.
type LLMService struct {
	svc     *generativelanguage.Service
	model   string
	limiter *ratelimit.Limiter
}

// NewLLMService creates a new Gemini LLM service.
func NewLLMService(ctx context.Context, cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := generativelanguage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &LLMService{
		svc:     svc,
		model:   strings.TrimPrefix(cfg.Model, "models/"),
		limiter: cfg.Limiter,
	}, nil
}

// Complete sends the system prompt as the system instruction. Assistant
// turns use the "model" role.
func (s *LLMService) Complete(ctx context.Context, req driven.CompletionRequest) (driven.Completion, error) {
	body := &generativelanguage.GenerateContentRequest{}
	if req.System != "" {
		body.SystemInstruction = &generativelanguage.Content{
			Parts: []*generativelanguage.Part{{Text: req.System}},
		}
	}
	for _, msg := range req.Messages {
		role := "user"
		if msg.Role == driven.RoleAssistant {
			role = "model"
		}
		body.Contents = append(body.Contents, &generativelanguage.Content{
			Role:  role,
			Parts: []*generativelanguage.Part{{Text: msg.Content}},
		})
	}

	cfg, err := generationConfig(req.Temperature, req.MaxTokens)
	if err != nil {
		return driven.Completion{}, err
	}
	body.GenerationConfig = cfg

	if err := s.limiter.Wait(ctx); err != nil {
		return driven.Completion{}, err
	}
	resp, err := s.svc.Models.GenerateContent("models/"+s.model, body).Context(ctx).Do()
	if err != nil {
		return driven.Completion{}, s.mapError(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return driven.Completion{}, fmt.Errorf("gemini: prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return driven.Completion{}, fmt.Errorf("gemini: no candidates returned")
	}

	candidate := resp.Candidates[0]
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		text.WriteString(part.Text)
	}
	out := driven.Completion{
		Text:      text.String(),
		Truncated: candidate.FinishReason == "MAX_TOKENS",
	}
	if u := resp.UsageMetadata; u != nil {
		out.InputTokens = int(u.PromptTokenCount)
		out.OutputTokens = int(u.CandidatesTokenCount)
	}
	return out, nil
}

// mapError converts API errors to domain errors, backing the limiter off
// when the quota is exhausted.
func (s *LLMService) mapError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusTooManyRequests:
			s.limiter.Backoff(ratelimit.RetryAfter(gerr.Header.Get("Retry-After")))
			return fmt.Errorf("gemini: %w", domain.ErrRateLimited)
		case http.StatusNotFound:
			return fmt.Errorf("gemini: model %s not found: %w", s.model, err)
		}
	}
	return fmt.Errorf("gemini: %w", err)
}

// generationConfig decodes the options so a zero temperature is sent
// rather than dropped as an empty field.
func generationConfig(temperature float64, maxTokens int) (*generativelanguage.GenerationConfig, error) {
	raw := map[string]any{"temperature": temperature}
	if maxTokens > 0 {
		raw["maxOutputTokens"] = maxTokens
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("gemini: encode generation config: %w", err)
	}
	cfg := &generativelanguage.GenerationConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("gemini: decode generation config: %w", err)
	}
	cfg.ForceSendFields = append(cfg.ForceSendFields, "Temperature")
	return cfg, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping fetches the model metadata, which validates the key and model name.
func (s *LLMService) Ping(ctx context.Context) error {
	if _, err := s.svc.Models.Get("models/" + s.model).Context(ctx).Do(); err != nil {
		return s.mapError(err)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
