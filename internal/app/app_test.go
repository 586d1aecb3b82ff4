package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// fakeOllama serves the endpoints the ollama adapters use.
func fakeOllama(t *testing.T, models ...string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, _ *http.Request) {
		type model struct {
			Name string `json:"name"`
		}
		resp := struct {
			Models []model `json:"models"`
		}{}
		for _, m := range models {
			resp.Models = append(resp.Models, model{Name: m})
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		out := make([][]float64, len(req.Input))
		for i, in := range req.Input {
			out[i] = []float64{float64(len(in)), 1, 0.5}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": out})
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "ok"},
			"done":    true,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testSettings(baseURL string) *domain.AppSettings {
	s := domain.DefaultAppSettings()
	s.Embedding.BaseURL = baseURL
	s.LLM.BaseURL = baseURL
	return &s
}

func TestOpen_WiresPipeline(t *testing.T) {
	ctx := context.Background()
	srv := fakeOllama(t, "nomic-embed-text:latest", "llama3.2:latest")
	home := t.TempDir()

	a, err := Open(ctx, Options{Home: home, Settings: testSettings(srv.URL)})
	require.NoError(t, err)
	assert.Empty(t, a.Warnings)
	assert.Equal(t, filepath.Join(home, "kb"), a.Paths.KnowledgeBases)

	alice, err := a.Identity.Resolve("alice@example.com", domain.RoleUser)
	require.NoError(t, err)

	m := a.Session(alice)
	assert.Same(t, m, a.Session(alice))

	s, err := m.NewChat(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StateUploading, m.State())

	_, err = m.Ask(ctx, "what is the refund policy?")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = os.Stat(filepath.Join(a.Paths.Chats, "alice@example.com", s.ID+".json"))
	require.NoError(t, err)

	_, err = a.Collections.Add(ctx, alice, []domain.UploadFile{{Name: "a.pdf"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	kbDir := filepath.Join(a.Paths.KnowledgeBases, filepath.FromSlash(s.KnowledgeBaseRef))
	require.DirExists(t, kbDir)

	require.NoError(t, a.Close(ctx))
	assert.NoDirExists(t, kbDir)
}

func TestOpen_MissingLLMIsWarning(t *testing.T) {
	srv := fakeOllama(t, "nomic-embed-text")

	a, err := Open(context.Background(), Options{Home: t.TempDir(), Settings: testSettings(srv.URL)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	require.Len(t, a.Warnings, 1)
	assert.Contains(t, a.Warnings[0], "llama3.2")
}

func TestOpen_EmbeddingRequired(t *testing.T) {
	srv := fakeOllama(t)

	_, err := Open(context.Background(), Options{Home: t.TempDir(), Settings: testSettings(srv.URL)})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestOpen_InvalidOrganizations(t *testing.T) {
	srv := fakeOllama(t, "nomic-embed-text", "llama3.2")
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, OrganizationsFile), []byte("organizations: [{domains: [a.com]}]"), 0o600))

	_, err := Open(context.Background(), Options{Home: home, Settings: testSettings(srv.URL)})
	assert.Error(t, err)
}

func TestSettingsService_UsesHome(t *testing.T) {
	home := t.TempDir()
	svc, err := SettingsService(home)
	require.NoError(t, err)

	require.NoError(t, svc.Set("llm.model", "qwen2.5"))
	assert.FileExists(t, filepath.Join(home, ConfigFile))

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5", settings.LLM.Model)
}
