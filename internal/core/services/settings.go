package services

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider = "embedding.provider"
	keyEmbedModel    = "embedding.model"
	keyEmbedBaseURL  = "embedding.base_url"
	keyEmbedAPIKey   = "embedding.api_key"

	keyLLMProvider    = "llm.provider"
	keyLLMModel       = "llm.model"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMAPIKey      = "llm.api_key"
	keyLLMTemperature = "llm.temperature"

	keyRerankProvider = "rerank.provider"
	keyRerankModel    = "rerank.model"
	keyRerankBaseURL  = "rerank.base_url"
	keyRerankAPIKey   = "rerank.api_key"
	keyRerankFormat   = "rerank.format"

	keyOCREngine     = "ocr.engine"
	keyOCRRasterizer = "ocr.rasterizer"
	keyOCRLanguage   = "ocr.language"
	keyOCRDPI        = "ocr.dpi"

	keyMinTextLength        = "thresholds.min_text_length"
	keyMaxUnknownRatio      = "thresholds.max_unknown_ratio"
	keyCandidateCount       = "thresholds.candidate_count"
	keyFinalCount           = "thresholds.final_count"
	keyMinRerankScore       = "thresholds.min_rerank_score"
	keyHistoryTurns         = "thresholds.history_turns"
	keyBreakpointPercentile = "thresholds.breakpoint_percentile"
	keyBufferSize           = "thresholds.buffer_size"
	keyMaxChunkChars        = "thresholds.max_chunk_chars"

	keyUploadExtensions = "upload.extensions"
	keyUploadMaxSizeMB  = "upload.max_file_size_mb"
	keyUploadMaxFiles   = "upload.max_files"
	keyUploadMaxPages   = "upload.max_pages"

	keyMaxHistory     = "session.max_history"
	keyDictionaryPath = "dictionary.path"
)

// Environment variables that override stored API keys.
//
//nolint:gosec // G101: These are variable names, not credentials.
var providerKeyEnv = map[domain.AIProvider]string{
	domain.AIProviderOpenAI:    "OPENAI_API_KEY",
	domain.AIProviderAnthropic: "ANTHROPIC_API_KEY",
	domain.AIProviderGemini:    "GEMINI_API_KEY",
}

// RerankKeyEnv overrides the reranker API key.
const RerankKeyEnv = "DOCQA_RERANK_API_KEY"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	probe       driven.ProviderProbe
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, probe driven.ProviderProbe) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		probe:       probe,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:       s.getString(keyLLMModel, d.LLM.Model),
			BaseURL:     s.configStore.GetString(keyLLMBaseURL),
			APIKey:      s.configStore.GetString(keyLLMAPIKey),
			Temperature: s.getFloat(keyLLMTemperature, d.LLM.Temperature),
		},
		Rerank: domain.RerankSettings{
			Provider: s.getRerankProvider(d.Rerank.Provider),
			Model:    s.getString(keyRerankModel, d.Rerank.Model),
			BaseURL:  s.getString(keyRerankBaseURL, d.Rerank.BaseURL),
			APIKey:   s.configStore.GetString(keyRerankAPIKey),
			Format:   s.getString(keyRerankFormat, d.Rerank.Format),
		},
		OCR: domain.OCRSettings{
			Engine:     s.getString(keyOCREngine, d.OCR.Engine),
			Rasterizer: s.getString(keyOCRRasterizer, d.OCR.Rasterizer),
			Language:   s.getString(keyOCRLanguage, d.OCR.Language),
			DPI:        s.getInt(keyOCRDPI, d.OCR.DPI),
		},
		Thresholds: domain.Thresholds{
			MinTextLength:        s.getInt(keyMinTextLength, d.Thresholds.MinTextLength),
			MaxUnknownRatio:      s.getFloat(keyMaxUnknownRatio, d.Thresholds.MaxUnknownRatio),
			CandidateCount:       s.getInt(keyCandidateCount, d.Thresholds.CandidateCount),
			FinalCount:           s.getInt(keyFinalCount, d.Thresholds.FinalCount),
			MinRerankScore:       s.getFloat(keyMinRerankScore, d.Thresholds.MinRerankScore),
			HistoryTurns:         s.getInt(keyHistoryTurns, d.Thresholds.HistoryTurns),
			BreakpointPercentile: s.getFloat(keyBreakpointPercentile, d.Thresholds.BreakpointPercentile),
			BufferSize:           s.getInt(keyBufferSize, d.Thresholds.BufferSize),
			MaxChunkChars:        s.getInt(keyMaxChunkChars, d.Thresholds.MaxChunkChars),
		},
		Limits: domain.UploadLimits{
			Extensions:    s.getExtensions(d.Limits.Extensions),
			MaxFileSizeMB: s.getInt(keyUploadMaxSizeMB, d.Limits.MaxFileSizeMB),
			MaxFiles:      s.getInt(keyUploadMaxFiles, d.Limits.MaxFiles),
			MaxPages:      s.getInt(keyUploadMaxPages, d.Limits.MaxPages),
		},
		MaxHistory:     s.getInt(keyMaxHistory, d.MaxHistory),
		DictionaryPath: s.configStore.GetString(keyDictionaryPath),
	}

	s.applyEnv(settings)
	return settings, nil
}

// applyEnv replaces API keys with those set in the environment.
func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	if name, ok := providerKeyEnv[settings.Embedding.Provider]; ok {
		if v := s.getenv(name); v != "" {
			settings.Embedding.APIKey = v
		}
	}
	if name, ok := providerKeyEnv[settings.LLM.Provider]; ok {
		if v := s.getenv(name); v != "" {
			settings.LLM.APIKey = v
		}
	}
	if v := s.getenv(RerankKeyEnv); v != "" {
		settings.Rerank.APIKey = v
	}
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := map[string]any{
		keyEmbedProvider:        settings.Embedding.Provider.String(),
		keyEmbedModel:           settings.Embedding.Model,
		keyEmbedBaseURL:         settings.Embedding.BaseURL,
		keyLLMProvider:          settings.LLM.Provider.String(),
		keyLLMModel:             settings.LLM.Model,
		keyLLMBaseURL:           settings.LLM.BaseURL,
		keyLLMTemperature:       settings.LLM.Temperature,
		keyRerankProvider:       string(settings.Rerank.Provider),
		keyRerankModel:          settings.Rerank.Model,
		keyRerankBaseURL:        settings.Rerank.BaseURL,
		keyRerankFormat:         settings.Rerank.Format,
		keyOCREngine:            settings.OCR.Engine,
		keyOCRRasterizer:        settings.OCR.Rasterizer,
		keyOCRLanguage:          settings.OCR.Language,
		keyOCRDPI:               settings.OCR.DPI,
		keyMinTextLength:        settings.Thresholds.MinTextLength,
		keyMaxUnknownRatio:      settings.Thresholds.MaxUnknownRatio,
		keyCandidateCount:       settings.Thresholds.CandidateCount,
		keyFinalCount:           settings.Thresholds.FinalCount,
		keyMinRerankScore:       settings.Thresholds.MinRerankScore,
		keyHistoryTurns:         settings.Thresholds.HistoryTurns,
		keyBreakpointPercentile: settings.Thresholds.BreakpointPercentile,
		keyBufferSize:           settings.Thresholds.BufferSize,
		keyMaxChunkChars:        settings.Thresholds.MaxChunkChars,
		keyUploadExtensions:     settings.Limits.Extensions,
		keyUploadMaxSizeMB:      settings.Limits.MaxFileSizeMB,
		keyUploadMaxFiles:       settings.Limits.MaxFiles,
		keyUploadMaxPages:       settings.Limits.MaxPages,
		keyMaxHistory:           settings.MaxHistory,
		keyDictionaryPath:       settings.DictionaryPath,
	}

	// Keys are only written when set so environment keys are not persisted
	secrets := map[string]string{
		keyEmbedAPIKey:  settings.Embedding.APIKey,
		keyLLMAPIKey:    settings.LLM.APIKey,
		keyRerankAPIKey: settings.Rerank.APIKey,
	}
	for key, value := range secrets {
		if value != "" && value != s.envValueFor(key, settings) {
			values[key] = value
		}
	}

	if err := s.configStore.Update(values); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (s *SettingsService) envValueFor(key string, settings *domain.AppSettings) string {
	switch key {
	case keyEmbedAPIKey:
		if name, ok := providerKeyEnv[settings.Embedding.Provider]; ok {
			return s.getenv(name)
		}
	case keyLLMAPIKey:
		if name, ok := providerKeyEnv[settings.LLM.Provider]; ok {
			return s.getenv(name)
		}
	case keyRerankAPIKey:
		return s.getenv(RerankKeyEnv)
	}
	return ""
}

// Set stores a single key. Values are parsed to the type the key holds.
func (s *SettingsService) Set(key, value string) error {
	var parsed any = value
	switch key {
	case keyOCRDPI, keyMinTextLength, keyCandidateCount, keyFinalCount, keyHistoryTurns,
		keyBufferSize, keyMaxChunkChars, keyUploadMaxSizeMB, keyUploadMaxFiles, keyUploadMaxPages, keyMaxHistory:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
		}
		parsed = n
	case keyLLMTemperature, keyMaxUnknownRatio, keyMinRerankScore, keyBreakpointPercentile:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, key)
		}
		parsed = f
	case keyUploadExtensions:
		parsed = splitExtensions(value)
	case keyEmbedProvider, keyLLMProvider:
		if !domain.AIProvider(value).IsValid() {
			return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, value)
		}
	case keyRerankProvider:
		if !domain.RerankProvider(value).IsValid() {
			return fmt.Errorf("%w: unknown rerank provider %q", domain.ErrInvalidInput, value)
		}
	case keyEmbedModel, keyEmbedBaseURL, keyEmbedAPIKey, keyLLMModel, keyLLMBaseURL, keyLLMAPIKey,
		keyRerankModel, keyRerankBaseURL, keyRerankAPIKey, keyRerankFormat,
		keyOCREngine, keyOCRRasterizer, keyOCRLanguage, keyDictionaryPath:
	default:
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	return s.configStore.Set(key, parsed)
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	if apiKey == "" && provider == settings.Embedding.Provider {
		apiKey = settings.Embedding.APIKey
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings.Embedding.Provider = provider
	if model != "" {
		settings.Embedding.Model = model
	} else if defaultModel, ok := domain.DefaultEmbeddingModels()[provider]; ok {
		settings.Embedding.Model = defaultModel
	}

	// Local providers need a base URL, cloud providers use their default
	if provider.IsLocal() {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.Embedding.BaseURL = ""
	}
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	if apiKey == "" && provider == settings.LLM.Provider {
		apiKey = settings.LLM.APIKey
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings.LLM.Provider = provider
	if model != "" {
		settings.LLM.Model = model
	} else if defaultModel, ok := domain.DefaultLLMModels()[provider]; ok {
		settings.LLM.Model = defaultModel
	}

	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.LLM.BaseURL = ""
	}
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetRerankProvider configures the reranker.
func (s *SettingsService) SetRerankProvider(provider domain.RerankProvider, baseURL string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid rerank provider: %s", provider)
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Rerank.Provider = provider
	if baseURL != "" {
		settings.Rerank.BaseURL = baseURL
	}
	return s.Save(settings)
}

// Validate checks the current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var problems []string
	if !settings.Embedding.IsConfigured() {
		problems = append(problems, fmt.Sprintf("embedding provider %q is not configured", settings.Embedding.Provider))
	}
	if !settings.LLM.IsConfigured() {
		problems = append(problems, fmt.Sprintf("LLM provider %q is not configured", settings.LLM.Provider))
	}
	if !settings.Rerank.Provider.IsValid() {
		problems = append(problems, fmt.Sprintf("rerank provider %q is not recognised", settings.Rerank.Provider))
	}

	t := settings.Thresholds
	if t.CandidateCount <= 0 || t.FinalCount <= 0 {
		problems = append(problems, "thresholds.candidate_count and thresholds.final_count must be positive")
	}
	if t.FinalCount > t.CandidateCount {
		problems = append(problems, "thresholds.final_count cannot exceed thresholds.candidate_count")
	}
	if t.MaxUnknownRatio < 0 || t.MaxUnknownRatio > 1 {
		problems = append(problems, "thresholds.max_unknown_ratio must be between 0 and 1")
	}
	if t.BreakpointPercentile <= 0 || t.BreakpointPercentile > 100 {
		problems = append(problems, "thresholds.breakpoint_percentile must be in (0, 100]")
	}
	if settings.OCR.DPI <= 0 {
		problems = append(problems, "ocr.dpi must be positive")
	}
	if settings.Limits.MaxFiles <= 0 || settings.Limits.MaxFileSizeMB <= 0 {
		problems = append(problems, "upload limits must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// CheckEmbedding pings the configured embedding provider.
func (s *SettingsService) CheckEmbedding(ctx context.Context) error {
	return s.check(func(settings *domain.AppSettings) error {
		return s.probe.ProbeEmbedding(ctx, &settings.Embedding)
	})
}

// CheckLLM pings the configured LLM provider.
func (s *SettingsService) CheckLLM(ctx context.Context) error {
	return s.check(func(settings *domain.AppSettings) error {
		return s.probe.ProbeLLM(ctx, &settings.LLM)
	})
}

// CheckReranker pings the configured reranker.
func (s *SettingsService) CheckReranker(ctx context.Context) error {
	return s.check(func(settings *domain.AppSettings) error {
		return s.probe.ProbeReranker(ctx, &settings.Rerank)
	})
}

func (s *SettingsService) check(probe func(*domain.AppSettings) error) error {
	if s.probe == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return probe(settings)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getFloat honours an explicit zero, unlike getInt.
func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(key))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getRerankProvider(defaultVal domain.RerankProvider) domain.RerankProvider {
	provider := domain.RerankProvider(s.configStore.GetString(keyRerankProvider))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getExtensions(defaultVal []string) []string {
	exts := s.configStore.GetStringSlice(keyUploadExtensions)
	if len(exts) == 0 {
		return defaultVal
	}
	return normaliseExtensions(exts)
}

func splitExtensions(value string) []string {
	return normaliseExtensions(strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' '
	}))
}

func normaliseExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}
