package driving

import "github.com/custodia-labs/docqa/internal/core/domain"

// IdentityService turns a login into the identity the core works with.
type IdentityService interface {
	// Resolve maps an email and requested role to an identity.
	// Admin requires an organization that grants the role.
	Resolve(email string, role domain.Role) (domain.Identity, error)
}
