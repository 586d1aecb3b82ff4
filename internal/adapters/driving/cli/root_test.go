package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestCurrentIdentity(t *testing.T) {
	svcs, _, _ := testServices(newChatStore())

	t.Run("flags win over environment", func(t *testing.T) {
		t.Cleanup(resetFlags)
		t.Setenv(UserEnv, "env@acme.com")
		t.Setenv(RoleEnv, "admin")
		userFlag = "flag@acme.com"
		roleFlag = "user"

		id, err := currentIdentity(svcs)

		require.NoError(t, err)
		assert.Equal(t, "flag@acme.com", id.User)
		assert.Equal(t, domain.RoleUser, id.Role)
	})

	t.Run("environment is used without flags", func(t *testing.T) {
		t.Cleanup(resetFlags)
		t.Setenv(UserEnv, "env@acme.com")
		t.Setenv(RoleEnv, "ADMIN")

		id, err := currentIdentity(svcs)

		require.NoError(t, err)
		assert.Equal(t, "env@acme.com", id.User)
		assert.Equal(t, domain.RoleAdmin, id.Role)
	})

	t.Run("falls back to the local user", func(t *testing.T) {
		t.Cleanup(resetFlags)
		t.Setenv(UserEnv, "")
		t.Setenv(RoleEnv, "")

		id, err := currentIdentity(svcs)

		require.NoError(t, err)
		assert.Contains(t, id.User, "@localhost")
	})

	t.Run("invalid role", func(t *testing.T) {
		t.Cleanup(resetFlags)
		t.Setenv(UserEnv, "")
		t.Setenv(RoleEnv, "")
		roleFlag = "owner"

		_, err := currentIdentity(svcs)

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.ErrorContains(t, err, "--role")
	})
}

func TestRequireServices_NotConfigured(t *testing.T) {
	_, err := runCLI(t, nil, "chat", "list")

	assert.ErrorContains(t, err, "no services")
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "  ", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", " "))
}
