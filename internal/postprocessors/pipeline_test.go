package postprocessors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// mockProcessor is a test processor that returns predefined chunks.
type mockProcessor struct {
	name   string
	chunks []domain.Chunk
	err    error
	calls  int
}

func (m *mockProcessor) Name() string {
	return m.name
}

func (m *mockProcessor) Process(_ context.Context, _, _ string, chunks []domain.Chunk) ([]domain.Chunk, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.chunks != nil {
		return m.chunks, nil
	}
	return chunks, nil
}

func TestNewPipeline(t *testing.T) {
	p := NewPipeline()
	require.NotNil(t, p)
	assert.Equal(t, 0, p.Len())

	p.Add(&mockProcessor{name: "a"})
	assert.Equal(t, 1, p.Len())
}

func TestPipeline_Process_AssignsStableIDs(t *testing.T) {
	creator := &mockProcessor{name: "creator", chunks: []domain.Chunk{
		{Content: " first passage "},
		{Content: "   "},
		{Content: "second passage"},
	}}
	p := NewPipeline(creator)

	chunks, err := p.Process(context.Background(), "a.pdf", "some text")
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "first passage", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Position)
	assert.Equal(t, 1, chunks[1].Position)
	assert.Equal(t, "a.pdf", chunks[1].Source)
	assert.NotEqual(t, chunks[0].ID, chunks[1].ID)

	again, err := p.Process(context.Background(), "a.pdf", "some text")
	require.NoError(t, err)
	assert.Equal(t, chunks[0].ID, again[0].ID)

	other, err := p.Process(context.Background(), "b.pdf", "some text")
	require.NoError(t, err)
	assert.NotEqual(t, chunks[0].ID, other[0].ID)
}

func TestPipeline_Process_EmptyText(t *testing.T) {
	creator := &mockProcessor{name: "creator"}
	chunks, err := NewPipeline(creator).Process(context.Background(), "a.pdf", " \n ")

	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.Zero(t, creator.calls)
}

func TestPipeline_Process_RequiresSource(t *testing.T) {
	_, err := NewPipeline().Process(context.Background(), "", "text")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPipeline_Process_Error(t *testing.T) {
	boom := errors.New("boom")
	later := &mockProcessor{name: "later"}
	p := NewPipeline(&mockProcessor{name: "failing", err: boom}, later)

	_, err := p.Process(context.Background(), "a.pdf", "text")

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "processor failing")
	assert.Zero(t, later.calls)
}

func TestPipeline_Chunk(t *testing.T) {
	p := NewPipeline(&mockProcessor{name: "c", chunks: []domain.Chunk{{Content: "x"}}})
	chunks, err := p.Chunk(context.Background(), "text", "a.pdf")

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, ChunkID("a.pdf", 0, "x"), chunks[0].ID)
}
