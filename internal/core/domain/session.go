package domain

import (
	"fmt"
	"strings"
	"time"
)

// Message roles.
const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

// WelcomeMessage opens every new conversation.
const WelcomeMessage = "Hey! How can I help you today? Feel free to ask me anything."

// untitled is the title of a session before anything was said.
const untitled = "Untitled Chat"

// maxTitleLength bounds titles derived from the first question.
const maxTitleLength = 40

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ApprovedFile is a document accepted for a session.
type ApprovedFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Session is a persisted conversation bound to a knowledge base.
// The JSON layout is the on-disk session record.
type Session struct {
	// ID is the record name, e.g. chat_20250101_120000.
	ID string `json:"-"`

	// Owner is the user that owns the record.
	Owner string `json:"-"`

	Title            string         `json:"title"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	Messages         []Message      `json:"messages"`
	ApprovedFiles    []ApprovedFile `json:"approved_files"`
	KnowledgeBaseRef string         `json:"knowledge_base_ref"`
}

// NewSession returns an empty session opened with the welcome message.
func NewSession(owner string, now time.Time) *Session {
	return &Session{
		ID:        "chat_" + now.Format("20060102_150405"),
		Owner:     owner,
		Title:     DefaultTitle(now),
		CreatedAt: now,
		UpdatedAt: now,
		Messages: []Message{
			{Role: MessageRoleAssistant, Content: WelcomeMessage},
		},
		ApprovedFiles: []ApprovedFile{},
	}
}

// DefaultTitle is the title of a session nobody has asked anything in.
func DefaultTitle(t time.Time) string {
	return fmt.Sprintf("Chat (%s)", t.Format("2006-01-02 15:04"))
}

// HasDefaultTitle reports whether the title was never chosen by anyone.
func (s *Session) HasDefaultTitle() bool {
	return s.Title == "" || s.Title == untitled || s.Title == DefaultTitle(s.CreatedAt)
}

// DisplayTitle returns the stored title unless it is a placeholder,
// in which case the first question is used.
func (s *Session) DisplayTitle() string {
	if !s.HasDefaultTitle() {
		return s.Title
	}
	for _, m := range s.Messages {
		if m.Role == MessageRoleUser && strings.TrimSpace(m.Content) != "" {
			return TitleFromMessage(m.Content)
		}
	}
	if s.Title != "" {
		return s.Title
	}
	return strings.Replace(s.ID, "chat_", "Chat ", 1)
}

// TitleFromMessage derives a title from a question.
func TitleFromMessage(content string) string {
	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) > maxTitleLength {
		return string(runes[:maxTitleLength]) + "..."
	}
	return content
}

// History returns the last n messages, excluding the opening welcome.
func (s *Session) History(n int) []Message {
	msgs := s.Messages
	if len(msgs) > 0 && msgs[0].Role == MessageRoleAssistant && msgs[0].Content == WelcomeMessage {
		msgs = msgs[1:]
	}
	if n <= 0 || len(msgs) <= n {
		return append([]Message(nil), msgs...)
	}
	return append([]Message(nil), msgs[len(msgs)-n:]...)
}

// Append adds a turn and bumps the update time.
func (s *Session) Append(role, content string, now time.Time) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content})
	s.UpdatedAt = now
}

// SessionSummary is a listing entry for a stored session.
type SessionSummary struct {
	ID        string
	Title     string
	UpdatedAt time.Time
	Messages  int
}

// SessionState is a state of the session manager.
type SessionState string

// Session manager states.
const (
	StateNoSession  SessionState = "no-session"
	StateUploading  SessionState = "uploading"
	StateProcessing SessionState = "processing"
	StateChatting   SessionState = "chatting"
)

// CanTransition reports whether the session manager may move from s to next.
func (s SessionState) CanTransition(next SessionState) bool {
	switch s {
	case StateNoSession:
		return next == StateUploading || next == StateChatting
	case StateUploading:
		return next == StateProcessing || next == StateUploading || next == StateChatting
	case StateProcessing:
		return next == StateChatting || next == StateUploading
	case StateChatting:
		return next == StateUploading || next == StateChatting
	}
	return false
}

func (s SessionState) String() string {
	return string(s)
}
