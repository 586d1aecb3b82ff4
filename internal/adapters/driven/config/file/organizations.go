package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Organizations implements the interface.
var _ driven.OrganizationDirectory = (*Organizations)(nil)

// organizationsFile is the on-disk layout:
//
//	organizations:
//	  - name: acme
//	    domains: [acme.com]
//	    roles: [user, admin]
type organizationsFile struct {
	Organizations []domain.Organization `yaml:"organizations"`
}

// Organizations is a read-only organization directory loaded from YAML.
type Organizations struct {
	path string
	orgs []domain.Organization
}

// LoadOrganizations reads the directory at path. If path is empty,
// organizations.yaml in the docqa home is used. A missing file yields an
// empty directory, in which every user is an individual.
func LoadOrganizations(path string) (*Organizations, error) {
	if path == "" {
		home, err := Home()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, "organizations.yaml")
	}

	o := &Organizations{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return o, nil
		}
		return nil, fmt.Errorf("read organizations: %w", err)
	}

	var f organizationsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	seen := make(map[string]bool)
	for _, org := range f.Organizations {
		org.Name = strings.TrimSpace(org.Name)
		if org.Name == "" {
			return nil, fmt.Errorf("%s: organization without a name: %w", path, domain.ErrInvalidInput)
		}
		if seen[org.Name] {
			return nil, fmt.Errorf("%s: duplicate organization %q: %w", path, org.Name, domain.ErrInvalidInput)
		}
		seen[org.Name] = true
		for _, r := range org.Roles {
			if !r.IsValid() {
				return nil, fmt.Errorf("%s: organization %q has unknown role %q: %w", path, org.Name, r, domain.ErrInvalidInput)
			}
		}
		if len(org.Roles) == 0 {
			org.Roles = []domain.Role{domain.RoleUser}
		}
		o.orgs = append(o.orgs, org)
	}
	return o, nil
}

// Lookup returns the organization whose domains include the email's domain.
func (o *Organizations) Lookup(email string) (domain.Organization, bool) {
	for _, org := range o.orgs {
		if org.MatchesEmail(email) {
			return org, true
		}
	}
	return domain.Organization{}, false
}

// List returns all organizations.
func (o *Organizations) List() []domain.Organization {
	return slices.Clone(o.orgs)
}

// Path returns the file the directory was loaded from.
func (o *Organizations) Path() string {
	return o.path
}
