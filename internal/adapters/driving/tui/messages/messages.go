// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewChat is the conversation with the open chat.
	ViewChat
	// ViewUpload collects document paths for the open chat.
	ViewUpload
	// ViewChats lists stored chats.
	ViewChats
	// ViewHelp is the help/keybindings view.
	ViewHelp
	// ViewSettings is the settings view.
	ViewSettings
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewChat:
		return "chat"
	case ViewUpload:
		return "upload"
	case ViewChats:
		return "chats"
	case ViewHelp:
		return "help"
	case ViewSettings:
		return "settings"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// ChatStarted signals a new chat was opened.
type ChatStarted struct {
	Session *domain.Session
	Err     error
}

// FilesUploaded carries the outcome of validating and storing uploads.
type FilesUploaded struct {
	Approved []domain.ApprovedFile
	Rejected []driving.Rejection
	Err      error
}

// ProcessingCompleted signals the approved files were ingested.
type ProcessingCompleted struct {
	Report *driving.IngestReport
	Err    error
}

// QuestionAsked is sent when the user submits a question.
type QuestionAsked struct {
	Question string
}

// AnswerReceived carries the answer to a question.
type AnswerReceived struct {
	Question string
	Answer   domain.Answer
	Err      error
}

// ChatsLoaded carries the stored chats, most recent first.
type ChatsLoaded struct {
	Chats []domain.SessionSummary
	Err   error
}

// ChatSelected is sent when a stored chat is picked from the list.
type ChatSelected struct {
	ID string
}

// ChatLoaded signals a stored chat was opened.
type ChatLoaded struct {
	ID      string
	Warning string
	Err     error
}

// ChatRenamed signals the open chat was renamed.
type ChatRenamed struct {
	Title string
	Err   error
}

// ChatDeleted signals a stored chat was deleted.
type ChatDeleted struct {
	ID  string
	Err error
}

// SettingsLoaded carries the application settings.
type SettingsLoaded struct {
	Settings *domain.AppSettings
	Err      error
}

// SettingsSaved signals a setting was stored.
type SettingsSaved struct {
	Key string
	Err error
}

// NewChatRequested asks the app to start a new chat.
type NewChatRequested struct{}
