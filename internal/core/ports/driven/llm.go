package driven

import "context"

// LLMService composes answers from a prompt assembled by the core.
// Providers: OpenAI, Anthropic, Gemini and Ollama.
type LLMService interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)

	// ModelName is recorded in model errors and logs.
	ModelName() string

	// Ping checks credentials and reachability without running inference
	// where the provider allows it.
	Ping(ctx context.Context) error

	Close() error
}

// Roles of a ChatMessage.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn sent to the model.
type ChatMessage struct {
	Role    string
	Content string
}

// CompletionRequest is one model call.
type CompletionRequest struct {
	// System carries the instructions. Providers that have no system field
	// receive it as the first message.
	System   string
	Messages []ChatMessage

	// MaxTokens of 0 uses the provider default.
	MaxTokens   int
	Temperature float64
}

// Completion is the model's reply.
type Completion struct {
	Text string

	// Truncated is set when the reply stopped at the token limit.
	Truncated bool

	InputTokens  int
	OutputTokens int
}
