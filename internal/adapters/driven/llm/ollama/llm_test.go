package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

func TestComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2", req.Model)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, chatMessage{Role: "system", Content: "Answer from context."}, req.Messages[0])
		require.NotNil(t, req.Options)
		assert.InDelta(t, 0.1, req.Options.Temperature, 1e-9)

		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"Refunds take 14 days."},"done":true,
			"done_reason":"stop","prompt_eval_count":50,"eval_count":7}`))
	}))
	defer server.Close()

	svc := NewLLMService(LLMConfig{BaseURL: server.URL})
	out, err := svc.Complete(context.Background(), driven.CompletionRequest{
		System:      "Answer from context.",
		Messages:    []driven.ChatMessage{{Role: driven.RoleUser, Content: "How long do refunds take?"}},
		Temperature: 0.1,
	})
	require.NoError(t, err)
	assert.Equal(t, driven.Completion{Text: "Refunds take 14 days.", InputTokens: 50, OutputTokens: 7}, out)
}

func TestComplete_Truncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"Refunds"},"done":true,"done_reason":"length"}`))
	}))
	defer server.Close()

	out, err := NewLLMService(LLMConfig{BaseURL: server.URL}).Complete(context.Background(), driven.CompletionRequest{MaxTokens: 1})
	require.NoError(t, err)
	assert.True(t, out.Truncated)
}

func TestComplete_ModelNotPulled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"mistral\" not found"}`))
	}))
	defer server.Close()

	svc := NewLLMService(LLMConfig{BaseURL: server.URL, Model: "mistral"})
	_, err := svc.Complete(context.Background(), driven.CompletionRequest{})
	assert.ErrorContains(t, err, "ollama pull mistral")
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3.2:latest"}]}`))
	}))
	defer server.Close()

	assert.NoError(t, NewLLMService(LLMConfig{BaseURL: server.URL}).Ping(context.Background()))
	assert.ErrorContains(t, NewLLMService(LLMConfig{BaseURL: server.URL, Model: "phi3"}).Ping(context.Background()), "not pulled")
}
