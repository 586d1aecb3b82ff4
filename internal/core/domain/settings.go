package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is the Google Gemini API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic/Gemini).
	APIKey string

	// Temperature is the sampling temperature for answers.
	Temperature float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// RerankProvider identifies the cross-encoder backend.
type RerankProvider string

// Available rerank providers.
const (
	// RerankProviderHTTP calls a cross-encoder served over HTTP
	// (text-embeddings-inference or any Cohere-compatible /rerank endpoint).
	RerankProviderHTTP RerankProvider = "http"

	// RerankProviderLexical scores passages by term overlap, with no model.
	RerankProviderLexical RerankProvider = "lexical"
)

// IsValid returns true if the rerank provider is recognised.
func (p RerankProvider) IsValid() bool {
	return p == RerankProviderHTTP || p == RerankProviderLexical
}

// RerankSettings holds cross-encoder configuration.
type RerankSettings struct {
	Provider RerankProvider
	Model    string
	BaseURL  string
	APIKey   string

	// Format is the wire format of an HTTP reranker: "tei" or "cohere".
	Format string
}

// OCRSettings holds OCR fallback configuration.
type OCRSettings struct {
	// Engine is the OCR executable, tesseract by default.
	Engine string

	// Rasterizer is the PDF to image executable, pdftoppm by default.
	Rasterizer string

	// Language is the OCR language pack.
	Language string

	// DPI is the rasterization resolution.
	DPI int
}

// Thresholds are the tunable heuristics of the pipeline.
type Thresholds struct {
	// MinTextLength is the shortest direct extraction accepted without OCR.
	MinTextLength int

	// MaxUnknownRatio is the largest share of dictionary-unknown tokens
	// accepted without OCR.
	MaxUnknownRatio float64

	// CandidateCount is the number of first-stage similarity hits.
	CandidateCount int

	// FinalCount is the number of passages handed to the composer.
	FinalCount int

	// MinRerankScore drops candidates scoring below it.
	MinRerankScore float64

	// HistoryTurns is the number of recent messages included in prompts.
	HistoryTurns int

	// BreakpointPercentile is where the chunker cuts between sentences.
	BreakpointPercentile float64

	// BufferSize is the number of neighbouring sentences embedded together.
	BufferSize int

	// MaxChunkChars splits oversized semantic chunks.
	MaxChunkChars int
}

// UploadLimits bound what the upload collaborator accepts.
type UploadLimits struct {
	Extensions    []string
	MaxFileSizeMB int
	MaxFiles      int
	MaxPages      int
}

// Allows returns true if the extension is accepted.
func (l UploadLimits) Allows(ext string) bool {
	for _, e := range l.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding  EmbeddingSettings
	LLM        LLMSettings
	Rerank     RerankSettings
	OCR        OCRSettings
	Thresholds Thresholds
	Limits     UploadLimits

	// MaxHistory caps the messages kept as conversational context.
	MaxHistory int

	// DictionaryPath is an optional word list, one word per line.
	DictionaryPath string
}

// DefaultThresholds returns the pipeline heuristics.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinTextLength:        100,
		MaxUnknownRatio:      0.15,
		CandidateCount:       20,
		FinalCount:           7,
		MinRerankScore:       0,
		HistoryTurns:         5,
		BreakpointPercentile: 95,
		BufferSize:           1,
		MaxChunkChars:        2000,
	}
}

// DefaultUploadLimits returns the accepted uploads.
func DefaultUploadLimits() UploadLimits {
	return UploadLimits{
		Extensions:    []string{".doc", ".docx", ".pdf", ".png", ".jpg", ".jpeg"},
		MaxFileSizeMB: 10,
		MaxFiles:      10,
		MaxPages:      150,
	}
}

// DefaultAppSettings returns settings with sensible defaults.
// Cloud providers are left without keys; users configure them via settings.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    DefaultEmbeddingModels()[AIProviderOllama],
			BaseURL:  "http://localhost:11434",
		},
		LLM: LLMSettings{
			Provider:    AIProviderOllama,
			Model:       DefaultLLMModels()[AIProviderOllama],
			BaseURL:     "http://localhost:11434",
			Temperature: 0.1,
		},
		Rerank: RerankSettings{
			Provider: RerankProviderLexical,
			Model:    "BAAI/bge-reranker-base",
			BaseURL:  "http://localhost:8080",
			Format:   "tei",
		},
		OCR: OCRSettings{
			Engine:     "tesseract",
			Rasterizer: "pdftoppm",
			Language:   "eng",
			DPI:        300,
		},
		Thresholds: DefaultThresholds(),
		Limits:     DefaultUploadLimits(),
		MaxHistory: 10,
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderGemini,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGemini:    "gemini-2.0-flash",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
