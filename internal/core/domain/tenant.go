package domain

import (
	"path/filepath"
	"strings"
)

// Role selects between ephemeral and shared knowledge bases.
type Role string

// Roles supplied by the identity collaborator.
const (
	// RoleUser works against an ephemeral per-session knowledge base.
	RoleUser Role = "user"

	// RoleAdmin maintains the shared knowledge base of an organization.
	RoleAdmin Role = "admin"
)

// IsValid returns true if the role is recognised.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// TenantKind distinguishes the two knowledge base lifecycles.
type TenantKind string

// Tenant kinds.
const (
	// TenantEphemeral is a single user's per-session knowledge base.
	TenantEphemeral TenantKind = "ephemeral"

	// TenantShared is an organization's long-lived knowledge base.
	TenantShared TenantKind = "shared"
)

// Identity is what the authentication collaborator hands to the core.
type Identity struct {
	// User is the user id, usually an email address.
	User string

	// Role is the user's role within Organization.
	Role Role

	// Organization is the organization name, empty when unknown.
	Organization string
}

// TenantKey returns the tenant that owns knowledge bases for this identity.
// Admins of an organization share its knowledge base; everyone else is isolated.
func (id Identity) TenantKey() TenantKey {
	if id.Role == RoleAdmin && id.Organization != "" {
		return TenantKey{Kind: TenantShared, Name: id.Organization}
	}
	return TenantKey{Kind: TenantEphemeral, Name: id.User}
}

// TenantKey identifies the owner of a knowledge base.
type TenantKey struct {
	Kind TenantKind
	Name string
}

// IsShared returns true for organization tenants.
func (k TenantKey) IsShared() bool {
	return k.Kind == TenantShared
}

// Validate checks the key can be mapped to a directory.
func (k TenantKey) Validate() error {
	if k.Kind != TenantShared && k.Kind != TenantEphemeral {
		return ErrInvalidInput
	}
	if SafeName(k.Name) == "" {
		return ErrInvalidInput
	}
	return nil
}

func (k TenantKey) String() string {
	return string(k.Kind) + ":" + k.Name
}

// SafeName maps a user or organization name to a single path element.
func SafeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	name = filepath.Base(name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}

// Organization maps an organization name to its email domains and permitted roles.
type Organization struct {
	Name    string   `yaml:"name"`
	Domains []string `yaml:"domains"`
	Roles   []Role   `yaml:"roles"`
}

// AllowsRole returns true if the organization grants the role.
func (o Organization) AllowsRole(role Role) bool {
	for _, r := range o.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// MatchesEmail returns true if the email's domain belongs to the organization.
func (o Organization) MatchesEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, d := range o.Domains {
		if strings.EqualFold(d, domain) {
			return true
		}
	}
	return false
}
