package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
)

func TestNewBar_Defaults(t *testing.T) {
	bar := NewBar(nil, nil, keymap.Global)

	require.NotNil(t, bar)
	assert.NotNil(t, bar.styles)
	assert.NotNil(t, bar.keymap)
	assert.Equal(t, StateReady, bar.State())
	assert.Empty(t, bar.Message())
}

func TestBar_View(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		message string
		docs    int
		want    string
	}{
		{name: "ready", state: StateReady, want: "Ready"},
		{name: "one document", state: StateReady, docs: 1, want: "1 document"},
		{name: "documents", state: StateReady, docs: 3, want: "3 documents"},
		{name: "message wins over documents", state: StateReady, docs: 3, message: "Renamed", want: "Renamed"},
		{name: "uploading", state: StateUploading, want: "Uploading..."},
		{name: "processing", state: StateProcessing, want: "Processing documents..."},
		{name: "thinking", state: StateThinking, message: "ignored", want: "Thinking..."},
		{name: "error with message", state: StateError, message: "boom", want: "Error: boom"},
		{name: "bare error", state: StateError, want: "Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := NewBar(styles.DefaultStyles(), nil, keymap.Global)
			bar.SetWidth(120)
			bar.SetState(tt.state)
			bar.SetMessage(tt.message)
			bar.SetDocuments(tt.docs)

			assert.Contains(t, bar.View(), tt.want)
		})
	}
}

func TestBar_HintsFollowContext(t *testing.T) {
	tests := []struct {
		context keymap.Context
		want    string
	}{
		{keymap.Global, "q: quit"},
		{keymap.Chat, "ctrl+u: upload"},
		{keymap.Chats, "r: rename"},
	}
	for _, tt := range tests {
		bar := NewBar(nil, nil, tt.context)
		bar.SetWidth(160)
		assert.Contains(t, bar.View(), tt.want)
	}
}

func TestBar_FailAndClear(t *testing.T) {
	bar := NewBar(nil, nil, keymap.Chat)
	bar.SetDocuments(2)

	bar.Fail("boom")
	assert.Equal(t, StateError, bar.State())
	assert.Equal(t, "boom", bar.Message())

	bar.Clear()
	assert.Equal(t, StateReady, bar.State())
	assert.Empty(t, bar.Message())
	assert.Contains(t, bar.View(), "2 documents")
}
