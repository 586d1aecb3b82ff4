// Package ai builds the model adapters named by the application settings:
// embedding and LLM services, and the lazy loaders the model registry uses
// for the OCR engine and reranker.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/docqa/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docqa/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/ocr"
	"github.com/custodia-labs/docqa/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/docqa/internal/adapters/driven/rerank/lexical"
	"github.com/custodia-labs/docqa/internal/adapters/driven/rerank/remote"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// fixHint is appended to configuration errors.
const fixHint = "Run 'docqa settings' to fix"

// Services holds the model adapters built from settings.
type Services struct {
	Embedding driven.EmbeddingService
	LLM       driven.LLMService
	Warnings  []string // Non-fatal issues, such as an unreachable LLM.
}

// Close releases all resources held by Services.
func (s *Services) Close() {
	if s.Embedding != nil {
		s.Embedding.Close()
	}
	if s.LLM != nil {
		s.LLM.Close()
	}
}

// Init creates the embedding and LLM services. The embedding service is
// required; an unreachable LLM is reported as a warning so documents can
// still be indexed.
func Init(ctx context.Context, settings *domain.AppSettings) (*Services, error) {
	embedding, err := CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
	if err != nil {
		return nil, err
	}
	if embedding == nil {
		return nil, fmt.Errorf("%w: no embedding provider configured. %s", domain.ErrEmbeddingUnavailable, fixHint)
	}

	out := &Services{Embedding: embedding}
	llm, err := CreateAndValidateLLMService(ctx, &settings.LLM)
	if err != nil {
		out.Warnings = append(out.Warnings, err.Error())
		logger.Warn("LLM unavailable: %v", err)
		return out, nil
	}
	out.LLM = llm
	return out, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}

	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateLLMService(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrLLMUnavailable, err, fixHint)
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrLLMUnavailable, err, fixHint)
	}

	return svc, nil
}

// CreateEmbeddingService creates the embedding service for the configured provider.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	dimensions := domain.EmbeddingDimensions()[settings.Model]

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
			Limiter:    ratelimit.New(ratelimit.ProviderOllama),
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
			Limiter:    ratelimit.New(ratelimit.ProviderOpenAI),
		})

	case domain.AIProviderAnthropic, domain.AIProviderGemini:
		return nil, fmt.Errorf("%s does not provide embeddings, use ollama or openai", settings.Provider)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the LLM service for the configured provider.
// Returns nil if the provider is not configured.
func CreateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Limiter: ratelimit.New(ratelimit.ProviderOllama),
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Limiter: ratelimit.New(ratelimit.ProviderOpenAI),
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Limiter: ratelimit.New(ratelimit.ProviderAnthropic),
		})

	case domain.AIProviderGemini:
		return geminillm.NewLLMService(ctx, geminillm.Config{
			APIKey:   settings.APIKey,
			Model:    settings.Model,
			Endpoint: settings.BaseURL,
			Limiter:  ratelimit.New(ratelimit.ProviderGemini),
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// OCRLoader returns a loader that starts the configured OCR engine.
func OCRLoader(settings domain.OCRSettings) func(context.Context) (driven.OCREngine, error) {
	return func(ctx context.Context) (driven.OCREngine, error) {
		engine, err := ocr.NewTesseract(ctx, settings.Engine, settings.Language)
		if err != nil {
			return nil, err
		}
		return engine, nil
	}
}

// Rasterizer returns the configured PDF rasterizer.
func Rasterizer(settings domain.OCRSettings) driven.Rasterizer {
	return ocr.NewRasterizer(settings.Rasterizer)
}

// RerankerLoader returns a loader that starts the configured reranker. A
// remote reranker is pinged on load so a missing server fails early.
func RerankerLoader(settings domain.RerankSettings) func(context.Context) (driven.Reranker, error) {
	return func(ctx context.Context) (driven.Reranker, error) {
		switch settings.Provider {
		case domain.RerankProviderLexical, "":
			return lexical.New(), nil

		case domain.RerankProviderHTTP:
			r, err := remote.New(remote.Config{
				BaseURL: settings.BaseURL,
				Format:  remote.Format(settings.Format),
				Model:   settings.Model,
				APIKey:  settings.APIKey,
				Limiter: ratelimit.New(ratelimit.ProviderRerank),
			})
			if err != nil {
				return nil, err
			}
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			defer cancel()
			if err := r.Ping(pingCtx); err != nil {
				return nil, fmt.Errorf("reranker unreachable at %s: %w", settings.BaseURL, err)
			}
			return r, nil

		default:
			return nil, fmt.Errorf("unsupported rerank provider: %s", settings.Provider)
		}
	}
}
