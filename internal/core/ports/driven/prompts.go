package driven

// PromptStore serves the templates used to compose answers. Users may
// edit them; Load returns the built-in default when an edit is unusable.
type PromptStore interface {
	Load(name string) (string, error)
}

// Prompt names.
const (
	// PromptAnswerSystem is sent as the system prompt. No placeholders.
	PromptAnswerSystem = "answer_system"

	// PromptAnswer takes three %s: chat history, passages, question.
	PromptAnswer = "answer"
)

// PromptStoreAware is implemented by services whose prompts can be
// overridden. Without a store they use their built-in templates.
type PromptStoreAware interface {
	SetPromptStore(store PromptStore)
}
