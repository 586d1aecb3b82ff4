package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *LLMService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewLLMService(context.Background(), Config{
		APIKey:   "test-key",
		Model:    "models/gemini-test",
		Endpoint: server.URL + "/",
	})
	require.NoError(t, err)
	return svc
}

func TestComplete(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		system := body["systemInstruction"].(map[string]any)
		assert.Equal(t, "Answer from context.", system["parts"].([]any)[0].(map[string]any)["text"])
		contents := body["contents"].([]any)
		require.Len(t, contents, 3)
		assert.Equal(t, "model", contents[1].(map[string]any)["role"])
		cfg := body["generationConfig"].(map[string]any)
		assert.Equal(t, 0.0, cfg["temperature"])

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Refunds take "},{"text":"14 days."}]},
			"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":21,"candidatesTokenCount":6}}`))
	})

	out, err := svc.Complete(context.Background(), driven.CompletionRequest{
		System: "Answer from context.",
		Messages: []driven.ChatMessage{
			{Role: driven.RoleUser, Content: "hi"},
			{Role: driven.RoleAssistant, Content: "hello"},
			{Role: driven.RoleUser, Content: "How long do refunds take?"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, driven.Completion{Text: "Refunds take 14 days.", InputTokens: 21, OutputTokens: 6}, out)
	assert.Equal(t, "gemini-test", svc.ModelName())
}

func TestComplete_Blocked(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	})

	_, err := svc.Complete(context.Background(), driven.CompletionRequest{
		Messages: []driven.ChatMessage{{Role: driven.RoleUser, Content: "q"}},
	})
	assert.ErrorContains(t, err, "SAFETY")
}

func TestComplete_RateLimited(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`))
	})

	_, err := svc.Complete(context.Background(), driven.CompletionRequest{MaxTokens: 64})
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestNewLLMService_RequiresKey(t *testing.T) {
	_, err := NewLLMService(context.Background(), Config{})
	assert.Error(t, err)
}
