package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ensure IdentityService implements the interface.
var _ driving.IdentityService = (*IdentityService)(nil)

// IdentityService resolves users against the organization directory.
type IdentityService struct {
	orgs driven.OrganizationDirectory
}

// NewIdentityService creates an identity service. A nil directory treats
// every user as belonging to no organization.
func NewIdentityService(orgs driven.OrganizationDirectory) *IdentityService {
	return &IdentityService{orgs: orgs}
}

// Resolve maps an email and requested role to an identity.
func (s *IdentityService) Resolve(email string, role domain.Role) (domain.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || domain.SafeName(email) == "" {
		return domain.Identity{}, fmt.Errorf("identity: user is required: %w", domain.ErrInvalidInput)
	}
	if role == "" {
		role = domain.RoleUser
	}
	if !role.IsValid() {
		return domain.Identity{}, fmt.Errorf("identity: unknown role %q: %w", role, domain.ErrInvalidInput)
	}

	id := domain.Identity{User: email, Role: role}
	var org domain.Organization
	var ok bool
	if s.orgs != nil {
		org, ok = s.orgs.Lookup(email)
	}
	if ok {
		id.Organization = org.Name
	}

	if role == domain.RoleAdmin {
		if !ok {
			return domain.Identity{}, fmt.Errorf("identity: %s belongs to no organization: %w", email, domain.ErrInvalidInput)
		}
		if !org.AllowsRole(domain.RoleAdmin) {
			return domain.Identity{}, fmt.Errorf("identity: %s does not grant admin: %w", org.Name, domain.ErrInvalidInput)
		}
	}
	return id, nil
}
