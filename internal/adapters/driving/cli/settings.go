package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers, pipeline thresholds and upload limits.

Settings are stored in config.toml in the data directory. Environment
variables (DOCQA_*) override stored values.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a single setting",
	Long: `Set a single setting by its dotted key.

Examples:
  docqa settings set thresholds.final_count 5
  docqa settings set upload.extensions .pdf,.docx
  docqa settings set ocr.language deu`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider used to index and search documents.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider that composes answers.`,
	RunE:  runSettingsLLM,
}

var settingsRerankCmd = &cobra.Command{
	Use:   "rerank [provider] [base-url]",
	Short: "Configure the reranker",
	Long: `Configure how retrieved passages are reranked.

Providers:
  http    - cross-encoder served over HTTP (text-embeddings-inference or Cohere-compatible)
  lexical - term overlap scoring, no model required`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSettingsRerank,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsRerankCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}

	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	printProvider(cmd, settings.Embedding.Provider, settings.Embedding.Model, settings.Embedding.BaseURL, settings.Embedding.APIKey)
	printStatus(cmd, settings.Embedding.IsConfigured())

	cmd.Println("[LLM]")
	printProvider(cmd, settings.LLM.Provider, settings.LLM.Model, settings.LLM.BaseURL, settings.LLM.APIKey)
	cmd.Printf("  Temperature: %g\n", settings.LLM.Temperature)
	printStatus(cmd, settings.LLM.IsConfigured())

	cmd.Println("[Rerank]")
	cmd.Printf("  Provider: %s\n", settings.Rerank.Provider)
	if settings.Rerank.Provider == domain.RerankProviderHTTP {
		cmd.Printf("  Model: %s\n", settings.Rerank.Model)
		cmd.Printf("  Base URL: %s\n", settings.Rerank.BaseURL)
		cmd.Printf("  Format: %s\n", settings.Rerank.Format)
	}
	cmd.Println()

	cmd.Println("[OCR]")
	cmd.Printf("  Engine: %s (%s, %d dpi)\n", settings.OCR.Engine, settings.OCR.Language, settings.OCR.DPI)
	cmd.Printf("  Rasterizer: %s\n", settings.OCR.Rasterizer)
	cmd.Println()

	th := settings.Thresholds
	cmd.Println("[Thresholds]")
	cmd.Printf("  Min text length: %d\n", th.MinTextLength)
	cmd.Printf("  Max unknown ratio: %g\n", th.MaxUnknownRatio)
	cmd.Printf("  Candidates / final: %d / %d\n", th.CandidateCount, th.FinalCount)
	cmd.Printf("  Min rerank score: %g\n", th.MinRerankScore)
	cmd.Printf("  History turns: %d\n", th.HistoryTurns)
	cmd.Printf("  Chunking: percentile %g, buffer %d, max %d chars\n", th.BreakpointPercentile, th.BufferSize, th.MaxChunkChars)
	cmd.Println()

	cmd.Println("[Uploads]")
	cmd.Printf("  Extensions: %s\n", strings.Join(settings.Limits.Extensions, ", "))
	cmd.Printf("  Max files: %d, max size: %d MB, max pages: %d\n",
		settings.Limits.MaxFiles, settings.Limits.MaxFileSizeMB, settings.Limits.MaxPages)
	cmd.Println()

	if err := svc.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'docqa settings embedding' or 'docqa settings llm' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printProvider(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string) {
	cmd.Printf("  Provider: %s\n", provider.Description())
	cmd.Printf("  Model: %s\n", model)
	if provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
}

func printStatus(cmd *cobra.Command, configured bool) {
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}
	if err := svc.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	value := args[1]
	if strings.HasSuffix(args[0], "api_key") {
		value = maskAPIKey(value)
	}
	cmd.Printf("%s = %s\n", args[0], value)
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}
	return configureProvider(cmd, bufio.NewReader(cmd.InOrStdin()), providerPrompt{
		kind:      "Embedding",
		providers: domain.AllEmbeddingProviders(),
		defaults:  domain.DefaultEmbeddingModels(),
		set:       svc.SetEmbeddingProvider,
		check:     svc.CheckEmbedding,
	})
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}
	return configureProvider(cmd, bufio.NewReader(cmd.InOrStdin()), providerPrompt{
		kind:      "LLM",
		providers: domain.AllLLMProviders(),
		defaults:  domain.DefaultLLMModels(),
		set:       svc.SetLLMProvider,
		check:     svc.CheckLLM,
	})
}

func runSettingsRerank(cmd *cobra.Command, args []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}
	provider := domain.RerankProvider(strings.ToLower(args[0]))
	var baseURL string
	if len(args) == 2 {
		baseURL = args[1]
	}
	if err := svc.SetRerankProvider(provider, baseURL); err != nil {
		return fmt.Errorf("failed to configure reranker: %w", err)
	}
	if err := svc.CheckReranker(commandContext(cmd)); err != nil {
		return fmt.Errorf("reranker configuration validation failed: %w", err)
	}
	cmd.Printf("Reranker configured: %s\n", provider)
	return nil
}

// providerPrompt drives the interactive provider setup.
type providerPrompt struct {
	kind      string
	providers []domain.AIProvider
	defaults  map[domain.AIProvider]string
	set       func(domain.AIProvider, string, string) error
	check     func(context.Context) error
}

func configureProvider(cmd *cobra.Command, reader *bufio.Reader, p providerPrompt) error {
	cmd.Printf("Select %s Provider\n", p.kind)
	for i, provider := range p.providers {
		cmd.Printf("  %d. %s\n", i+1, provider.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(p.providers), 1)
	selected := p.providers[idx-1]

	defaultModel := p.defaults[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := p.set(selected, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", p.kind, err)
	}

	cmd.Print("Validating configuration... ")
	if err := p.check(commandContext(cmd)); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s configuration validation failed: %w", p.kind, err)
	}
	cmd.Println("OK")

	cmd.Printf("%s provider configured: %s (%s)\n\n", p.kind, selected.Description(), model)
	return nil
}

// requireSettings returns the settings service, building it for --home if needed.
func requireSettings() (driving.SettingsService, error) {
	if settingsService != nil {
		return settingsService, nil
	}
	if settingsLoader == nil {
		return nil, errors.New("settings service not configured")
	}
	svc, err := settingsLoader(homeDir)
	if err != nil {
		return nil, err
	}
	settingsService = svc
	return svc, nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo from a terminal, otherwise from reader.
func readPassword(reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
