package domain

import (
	"path"
	"strings"
)

// Knowledge base reference prefixes, relative to the knowledge base root.
const (
	sharedRefPrefix    = "orgs/"
	ephemeralRefPrefix = "users/"
)

// PlaceholderSource marks the seed entry written into new shared knowledge
// bases so similarity search never runs against an empty index.
// It is never returned as a retrieval source.
const PlaceholderSource = "__placeholder__"

// PlaceholderText is the content of the seed entry.
const PlaceholderText = "This knowledge base has been initialised and contains no documents yet."

// KnowledgeBaseHandle locates one persistent vector index.
type KnowledgeBaseHandle struct {
	// Tenant owns the knowledge base.
	Tenant TenantKey

	// ID is the generated unique id of an ephemeral knowledge base.
	// Empty for shared knowledge bases, which are keyed by organization.
	ID string

	// Dir is the absolute directory holding the index.
	Dir string

	// EmbeddingModel is the model the index was built with.
	EmbeddingModel string
}

// Ref returns the persisted reference, relative to the knowledge base root.
func (h KnowledgeBaseHandle) Ref() string {
	if h.Tenant.IsShared() {
		return sharedRefPrefix + SafeName(h.Tenant.Name)
	}
	return ephemeralRefPrefix + SafeName(h.Tenant.Name) + "/" + h.ID
}

// IsZero returns true if the handle does not point at a knowledge base.
func (h KnowledgeBaseHandle) IsZero() bool {
	return h.Dir == "" && h.ID == "" && h.Tenant.Name == ""
}

// ParseKnowledgeBaseRef recovers the tenant and id from a persisted reference.
func ParseKnowledgeBaseRef(ref string) (TenantKey, string, error) {
	ref = path.Clean(strings.TrimSpace(ref))
	switch {
	case strings.HasPrefix(ref, sharedRefPrefix):
		name := strings.TrimPrefix(ref, sharedRefPrefix)
		if name == "" || strings.Contains(name, "/") {
			return TenantKey{}, "", ErrInvalidInput
		}
		return TenantKey{Kind: TenantShared, Name: name}, "", nil
	case strings.HasPrefix(ref, ephemeralRefPrefix):
		parts := strings.Split(strings.TrimPrefix(ref, ephemeralRefPrefix), "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return TenantKey{}, "", ErrInvalidInput
		}
		return TenantKey{Kind: TenantEphemeral, Name: parts[0]}, parts[1], nil
	default:
		return TenantKey{}, "", ErrInvalidInput
	}
}

// KnowledgeBaseInfo summarises an index for display.
type KnowledgeBaseInfo struct {
	Handle         KnowledgeBaseHandle
	ChunkCount     int
	Sources        []string
	EmbeddingModel string
}
