package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure AnswerComposer implements the interfaces.
var (
	_ driving.AnswerService   = (*AnswerComposer)(nil)
	_ driven.PromptStoreAware = (*AnswerComposer)(nil)
)

// DefaultAnswerSystemPrompt instructs the model to stay grounded.
const DefaultAnswerSystemPrompt = `You are a document question-answering assistant.
Answer using ONLY the passages in the Context section. Do not use outside knowledge.
If the passages answer the question only in part, give the part they support and state which details are missing from the documents.
If the passages do not contain the answer, say that the information is not available in the documents.
Mention the source filename of the passages you rely on.`

// DefaultAnswerPrompt lays out history, passages and question.
const DefaultAnswerPrompt = `Chat History:
%s

Context:
%s

Question: %s
Answer:`

// DefaultPrompts returns the prompt templates keyed by prompt name.
func DefaultPrompts() map[string]string {
	return map[string]string{
		driven.PromptAnswerSystem: DefaultAnswerSystemPrompt,
		driven.PromptAnswer:       DefaultAnswerPrompt,
	}
}

// AnswerComposer renders prompts from reranked passages and calls the LLM once.
// historyTurns counts question/answer pairs.
type AnswerComposer struct {
	llm          driven.LLMService
	promptStore  driven.PromptStore
	historyTurns int
	temperature  float64
}

// NewAnswerComposer creates a composer. llm may be nil, in which case only
// empty retrievals can be answered.
func NewAnswerComposer(llm driven.LLMService, historyTurns int, temperature float64) *AnswerComposer {
	return &AnswerComposer{
		llm:          llm,
		historyTurns: historyTurns,
		temperature:  temperature,
	}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (c *AnswerComposer) SetPromptStore(store driven.PromptStore) {
	c.promptStore = store
}

// Answer composes a grounded response.
func (c *AnswerComposer) Answer(
	ctx context.Context,
	retrieval domain.RetrievalResult,
	question string,
	history []domain.Message,
) (domain.Answer, error) {
	if retrieval.Empty() {
		logger.Info("answer: no passages, returning fallback")
		return domain.Answer{Text: domain.NotAvailableAnswer}, nil
	}
	if c.llm == nil {
		return domain.Answer{}, domain.ErrLLMUnavailable
	}

	completion, err := c.llm.Complete(ctx, driven.CompletionRequest{
		System: c.loadPrompt(driven.PromptAnswerSystem, DefaultAnswerSystemPrompt),
		Messages: []driven.ChatMessage{
			{Role: driven.RoleUser, Content: c.BuildPrompt(retrieval, question, history)},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return domain.Answer{}, &domain.ModelError{Model: c.llm.ModelName(), Op: "generate", Err: err}
	}
	logger.Debug("answer: %s used %d prompt and %d completion tokens",
		c.llm.ModelName(), completion.InputTokens, completion.OutputTokens)
	if completion.Truncated {
		logger.Warn("answer: %s stopped at its token limit", c.llm.ModelName())
	}

	return domain.Answer{
		Text:     strings.TrimSpace(completion.Text),
		Sources:  retrieval.Sources(),
		Grounded: true,
	}, nil
}

// BuildPrompt renders the user prompt for one question.
func (c *AnswerComposer) BuildPrompt(retrieval domain.RetrievalResult, question string, history []domain.Message) string {
	if limit := c.historyTurns * 2; limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}

	var hist strings.Builder
	for _, m := range history {
		fmt.Fprintf(&hist, "%s: %s\n", m.Role, strings.TrimSpace(m.Content))
	}
	if hist.Len() == 0 {
		hist.WriteString("(none)\n")
	}

	var passages strings.Builder
	for i, p := range retrieval.Passages {
		fmt.Fprintf(&passages, "[%d] Source: %s\n%s\n\n", i+1, p.Source, strings.TrimSpace(p.Content))
	}

	template := c.loadPrompt(driven.PromptAnswer, DefaultAnswerPrompt)
	return fmt.Sprintf(template,
		strings.TrimRight(hist.String(), "\n"),
		strings.TrimRight(passages.String(), "\n"),
		strings.TrimSpace(question))
}

func (c *AnswerComposer) loadPrompt(name, fallback string) string {
	if c.promptStore == nil {
		return fallback
	}
	prompt, err := c.promptStore.Load(name)
	if err != nil {
		return fallback
	}
	return prompt
}
