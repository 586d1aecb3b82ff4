package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

type stubDirectory struct {
	orgs []domain.Organization
}

func (d *stubDirectory) Lookup(email string) (domain.Organization, bool) {
	for _, o := range d.orgs {
		if o.MatchesEmail(email) {
			return o, true
		}
	}
	return domain.Organization{}, false
}

func (d *stubDirectory) List() []domain.Organization {
	return d.orgs
}

func TestIdentityService_Resolve(t *testing.T) {
	dir := &stubDirectory{orgs: []domain.Organization{
		{Name: "acme", Domains: []string{"acme.com"}, Roles: []domain.Role{domain.RoleUser, domain.RoleAdmin}},
		{Name: "initech", Domains: []string{"initech.com"}, Roles: []domain.Role{domain.RoleUser}},
	}}
	svc := NewIdentityService(dir)

	t.Run("user without organization", func(t *testing.T) {
		id, err := svc.Resolve(" Bob@Example.com ", "")
		require.NoError(t, err)
		assert.Equal(t, "bob@example.com", id.User)
		assert.Equal(t, domain.RoleUser, id.Role)
		assert.Empty(t, id.Organization)
		assert.Equal(t, domain.TenantEphemeral, id.TenantKey().Kind)
	})

	t.Run("admin of organization gets shared tenant", func(t *testing.T) {
		id, err := svc.Resolve("alice@acme.com", domain.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, "acme", id.Organization)
		assert.Equal(t, domain.TenantKey{Kind: domain.TenantShared, Name: "acme"}, id.TenantKey())
	})

	t.Run("organization member as user stays ephemeral", func(t *testing.T) {
		id, err := svc.Resolve("carol@acme.com", domain.RoleUser)
		require.NoError(t, err)
		assert.Equal(t, "acme", id.Organization)
		assert.Equal(t, domain.TenantEphemeral, id.TenantKey().Kind)
	})

	t.Run("admin needs an organization", func(t *testing.T) {
		_, err := svc.Resolve("dave@example.com", domain.RoleAdmin)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("admin needs the role granted", func(t *testing.T) {
		_, err := svc.Resolve("eve@initech.com", domain.RoleAdmin)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("empty user", func(t *testing.T) {
		_, err := svc.Resolve("  ", domain.RoleUser)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := svc.Resolve("a@b.com", "owner")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("nil directory", func(t *testing.T) {
		id, err := NewIdentityService(nil).Resolve("a@acme.com", domain.RoleUser)
		require.NoError(t, err)
		assert.Empty(t, id.Organization)
	})
}
