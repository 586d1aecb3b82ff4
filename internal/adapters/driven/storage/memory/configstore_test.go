package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_TypedGetters(t *testing.T) {
	s := NewConfigStore()
	require.NoError(t, s.Set("llm.model", "llama3.2"))
	require.NoError(t, s.Set("thresholds.final_count", int64(7)))
	require.NoError(t, s.Set("llm.temperature", 0.1))
	require.NoError(t, s.Set("thresholds.min_text_length", 100))
	require.NoError(t, s.Set("upload.extensions", []any{".pdf", 3, ".docx"}))

	assert.Equal(t, "llama3.2", s.GetString("llm.model"))
	assert.Equal(t, 7, s.GetInt("thresholds.final_count"))
	assert.InDelta(t, 0.1, s.GetFloat("llm.temperature"), 1e-9)
	assert.InDelta(t, 100.0, s.GetFloat("thresholds.min_text_length"), 1e-9)
	assert.Equal(t, []string{".pdf", ".docx"}, s.GetStringSlice("upload.extensions"))
}

func TestConfigStore_MissingAndWrongType(t *testing.T) {
	s := NewConfigStore()
	require.NoError(t, s.Set("n", "not a number"))

	assert.Empty(t, s.GetString("missing"))
	assert.Zero(t, s.GetInt("n"))
	assert.Zero(t, s.GetFloat("n"))
	assert.Nil(t, s.GetStringSlice("n"))

	_, ok := s.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_UpdateCountsOneWrite(t *testing.T) {
	s := NewConfigStore()
	require.NoError(t, s.Update(map[string]any{"llm.provider": "ollama", "llm.model": "llama3.2"}))

	assert.Equal(t, 1, s.Writes())
	assert.Equal(t, "ollama", s.GetString("llm.provider"))
	assert.Equal(t, "llama3.2", s.GetString("llm.model"))
	assert.Equal(t, ":memory:", s.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	s := NewConfigStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = s.Set("k", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = s.GetInt("k")
		}()
	}
	wg.Wait()
	_, ok := s.Get("k")
	assert.True(t, ok)
}
