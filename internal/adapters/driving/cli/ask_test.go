package cli

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestAsk_MostRecentChat(t *testing.T) {
	store := newChatStore()
	store.add(&domain.Session{ID: "chat-a"})
	store.answer = domain.Answer{
		Text:     "Refunds are accepted within 30 days.",
		Sources:  []string{"policy.pdf", "faq.docx"},
		Grounded: true,
	}
	svcs, _, _ := testServices(store)

	out, err := runCLI(t, svcs, "--user", "alice@acme.com", "ask", "What", "is", "the", "refund", "window?")

	require.NoError(t, err)
	assert.Contains(t, out, "Refunds are accepted within 30 days.")
	assert.Contains(t, out, "Sources: policy.pdf, faq.docx")
	require.Len(t, store.chats["chat-a"].Messages, 2)
	assert.Equal(t, "What is the refund window?", store.chats["chat-a"].Messages[0].Content)
}

func TestAsk_ChatFlag(t *testing.T) {
	store := newChatStore()
	store.add(&domain.Session{ID: "chat-a"})
	store.add(&domain.Session{ID: "chat-b"})
	store.answer = domain.Answer{Text: "I don't know based on the provided documents."}
	svcs, _, _ := testServices(store)

	out, err := runCLI(t, svcs, "--user", "alice@acme.com", "ask", "--chat", "chat-a", "Who signed?")

	require.NoError(t, err)
	assert.NotContains(t, out, "Sources:")
	assert.Len(t, store.chats["chat-a"].Messages, 2)
	assert.Empty(t, store.chats["chat-b"].Messages)
}

func TestAsk_ModelFailureShowsReason(t *testing.T) {
	store := newChatStore()
	store.add(&domain.Session{ID: "chat-a"})
	store.askErr = fmt.Errorf("composing answer: %w", domain.ErrLLMUnavailable)
	svcs, _, _ := testServices(store)

	_, err := runCLI(t, svcs, "--user", "alice@acme.com", "ask", "Anything?")

	require.Error(t, err)
	assert.Equal(t, "AI providers are not configured. Run 'docqa settings' first.", err.Error())
}

func TestAsk_RequiresQuestion(t *testing.T) {
	svcs, _, _ := testServices(newChatStore())

	_, err := runCLI(t, svcs, "ask")

	assert.Error(t, err)
}
