package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings with defaults and
	// environment overrides applied.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// Set stores a single dotted configuration key, e.g. "thresholds.final_count".
	Set(key, value string) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetLLMProvider configures the LLM provider.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// SetRerankProvider configures the reranker.
	SetRerankProvider(provider domain.RerankProvider, baseURL string) error

	// Validate checks the current settings are usable.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// CheckEmbedding, CheckLLM and CheckReranker start the configured
	// provider and report whether it answers.
	CheckEmbedding(ctx context.Context) error
	CheckLLM(ctx context.Context) error
	CheckReranker(ctx context.Context) error
}
