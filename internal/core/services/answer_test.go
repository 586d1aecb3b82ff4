package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

func passages(items ...[2]string) domain.RetrievalResult {
	var res domain.RetrievalResult
	for i, it := range items {
		res.Passages = append(res.Passages, domain.ScoredChunk{
			Chunk: domain.Chunk{ID: it[0] + it[1], Source: it[0], Content: it[1]},
			Rank:  i,
		})
	}
	return res
}

func TestAnswerComposer_EmptyRetrievalSkipsModel(t *testing.T) {
	llm := &fakeLLM{reply: "should not be used"}
	c := NewAnswerComposer(llm, 5, 0.1)

	answer, err := c.Answer(context.Background(), domain.RetrievalResult{}, "What is the refund policy?", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.NotAvailableAnswer, answer.Text)
	assert.False(t, answer.Grounded)
	assert.Empty(t, answer.Sources)
	assert.Zero(t, llm.calls)
}

func TestAnswerComposer_GroundedAnswer(t *testing.T) {
	llm := &fakeLLM{reply: "  Refunds take thirty days (terms.pdf).  "}
	c := NewAnswerComposer(llm, 5, 0.1)

	res := passages(
		[2]string{"terms.pdf", "Refunds are paid within thirty days."},
		[2]string{"faq.pdf", "Contact support for refunds."},
		[2]string{"terms.pdf", "Returns need a receipt."},
	)
	answer, err := c.Answer(context.Background(), res, "How long do refunds take?", nil)
	require.NoError(t, err)

	assert.Equal(t, "Refunds take thirty days (terms.pdf).", answer.Text)
	assert.True(t, answer.Grounded)
	assert.Equal(t, []string{"terms.pdf", "faq.pdf"}, answer.Sources)

	assert.Contains(t, llm.req.System, "ONLY")
	require.Len(t, llm.req.Messages, 1)
	prompt := llm.req.Messages[0]
	assert.Equal(t, driven.RoleUser, prompt.Role)
	assert.Contains(t, prompt.Content, "[1] Source: terms.pdf")
	assert.Contains(t, prompt.Content, "[2] Source: faq.pdf")
	assert.Contains(t, prompt.Content, "Question: How long do refunds take?")
	assert.InDelta(t, 0.1, llm.req.Temperature, 1e-9)
}

func TestAnswerComposer_HistoryWindow(t *testing.T) {
	c := NewAnswerComposer(&fakeLLM{}, 1, 0.1)
	history := []domain.Message{
		{Role: domain.MessageRoleUser, Content: "old question"},
		{Role: domain.MessageRoleAssistant, Content: "old answer"},
		{Role: domain.MessageRoleUser, Content: "recent question"},
		{Role: domain.MessageRoleAssistant, Content: "recent answer"},
	}

	prompt := c.BuildPrompt(passages([2]string{"a.pdf", "text"}), "next?", history)
	assert.NotContains(t, prompt, "old question")
	assert.Contains(t, prompt, "user: recent question")
	assert.Contains(t, prompt, "assistant: recent answer")
}

func TestAnswerComposer_ModelFailure(t *testing.T) {
	c := NewAnswerComposer(&fakeLLM{err: errors.New("503 overloaded")}, 5, 0.1)

	_, err := c.Answer(context.Background(), passages([2]string{"a.pdf", "text"}), "q", nil)
	assert.ErrorIs(t, err, domain.ErrModelInvocation)

	var me *domain.ModelError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "fake-llm", me.Model)
}

func TestAnswerComposer_NoLLM(t *testing.T) {
	c := NewAnswerComposer(nil, 5, 0.1)
	_, err := c.Answer(context.Background(), passages([2]string{"a.pdf", "text"}), "q", nil)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

type stubPromptStore map[string]string

func (s stubPromptStore) Load(name string) (string, error) {
	if p, ok := s[name]; ok {
		return p, nil
	}
	return "", domain.ErrNotFound
}

func (s stubPromptStore) Reload() {}

func TestAnswerComposer_CustomPrompts(t *testing.T) {
	llm := &fakeLLM{reply: "ok"}
	c := NewAnswerComposer(llm, 5, 0.1)
	c.SetPromptStore(stubPromptStore{
		driven.PromptAnswerSystem: "Be brief.",
		driven.PromptAnswer:       "H=%s P=%s Q=%s",
	})

	_, err := c.Answer(context.Background(), passages([2]string{"a.pdf", "text"}), "why", nil)
	require.NoError(t, err)
	assert.Equal(t, "Be brief.", llm.req.System)
	assert.Contains(t, llm.req.Messages[0].Content, "Q=why")
}
