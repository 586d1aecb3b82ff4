package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	s, err := NewSessionStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestSessionStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	session := domain.NewSession("alice@example.com", now)
	session.KnowledgeBaseRef = "users/alice_example.com/abc"
	session.ApprovedFiles = []domain.ApprovedFile{{Name: "a.pdf", Path: "/tmp/a.pdf"}}
	session.Append(domain.MessageRoleUser, "What is the refund policy?", now)
	require.NoError(t, s.Save(ctx, session))

	loaded, err := s.Load(ctx, "alice@example.com", session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, loaded.ID)
	assert.Equal(t, "alice@example.com", loaded.Owner)
	assert.Equal(t, session.Title, loaded.Title)
	assert.Equal(t, session.Messages, loaded.Messages)
	assert.Equal(t, session.ApprovedFiles, loaded.ApprovedFiles)
	assert.Equal(t, session.KnowledgeBaseRef, loaded.KnowledgeBaseRef)
	assert.True(t, session.CreatedAt.Equal(loaded.CreatedAt))
}

func TestSessionStore_RecordLayout(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	session := domain.NewSession("bob", time.Now())
	require.NoError(t, s.Save(ctx, session))

	data, err := os.ReadFile(filepath.Join(s.Root(), "bob", session.ID+".json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"knowledge_base_ref"`)
	assert.Contains(t, string(data), `"messages"`)
	assert.NotContains(t, string(data), `"ID"`)
}

func TestSessionStore_LoadMissing(t *testing.T) {
	_, err := newTestStore(t).Load(context.Background(), "bob", "chat_missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionStore_RejectsPathTraversal(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Load(context.Background(), "bob", "../../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSessionStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"chat_a", "chat_b", "chat_c"} {
		session := domain.NewSession("carol", base)
		session.ID = id
		session.UpdatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.Save(ctx, session))
	}
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "carol", "broken.json"), []byte("{"), 0600))

	list, err := s.List(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "chat_c", list[0].ID)
	assert.Equal(t, "chat_a", list[2].ID)
	assert.Equal(t, 1, list[0].Messages)
}

func TestSessionStore_ListUnknownUser(t *testing.T) {
	list, err := newTestStore(t).List(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSessionStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	session := domain.NewSession("dave", time.Now())
	require.NoError(t, s.Save(ctx, session))
	require.NoError(t, s.Delete(ctx, "dave", session.ID))

	_, err := s.Load(ctx, "dave", session.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Delete(ctx, "dave", session.ID))
}
