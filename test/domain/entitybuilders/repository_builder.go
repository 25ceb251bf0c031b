//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	testkit "github.com/rios0rios0/testkit/pkg/test"

	"github.com/rios0rios0/imagebump/internal/domain/entities"
)

// RepositoryBuilder helps create test repositories with a fluent interface.
type RepositoryBuilder struct {
	*testkit.BaseBuilder
	id            string
	name          string
	organization  string
	defaultBranch string
	provider      string
	archived      bool
}

// NewRepositoryBuilder creates a new repository builder with sensible defaults (acme/svc).
func NewRepositoryBuilder() *RepositoryBuilder {
	return &RepositoryBuilder{
		BaseBuilder:   testkit.NewBaseBuilder(),
		id:            "1",
		name:          "svc",
		organization:  "acme",
		defaultBranch: "refs/heads/main",
		provider:      "spy",
	}
}

// WithID sets the provider-side identifier.
func (b *RepositoryBuilder) WithID(id string) *RepositoryBuilder {
	b.id = id
	return b
}

// WithName sets the repository name.
func (b *RepositoryBuilder) WithName(name string) *RepositoryBuilder {
	b.name = name
	return b
}

// WithOrganization sets the owner or namespace.
func (b *RepositoryBuilder) WithOrganization(organization string) *RepositoryBuilder {
	b.organization = organization
	return b
}

// WithDefaultBranch sets the default branch ref.
func (b *RepositoryBuilder) WithDefaultBranch(branch string) *RepositoryBuilder {
	b.defaultBranch = branch
	return b
}

// WithProvider sets the provider name.
func (b *RepositoryBuilder) WithProvider(provider string) *RepositoryBuilder {
	b.provider = provider
	return b
}

// Archived marks the repository as archived.
func (b *RepositoryBuilder) Archived() *RepositoryBuilder {
	b.archived = true
	return b
}

// Build creates the repository (satisfies testkit.Builder interface).
func (b *RepositoryBuilder) Build() interface{} {
	return b.BuildRepository()
}

// BuildRepository creates the repository with a concrete return type.
func (b *RepositoryBuilder) BuildRepository() entities.Repository {
	return entities.Repository{
		ID:            b.id,
		Name:          b.name,
		Organization:  b.organization,
		DefaultBranch: b.defaultBranch,
		ProviderName:  b.provider,
		Archived:      b.archived,
	}
}

// Reset clears the builder state, allowing it to be reused.
func (b *RepositoryBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	b.id = "1"
	b.name = "svc"
	b.organization = "acme"
	b.defaultBranch = "refs/heads/main"
	b.provider = "spy"
	b.archived = false
	return b
}

// Clone creates a deep copy of the RepositoryBuilder.
func (b *RepositoryBuilder) Clone() testkit.Builder {
	return &RepositoryBuilder{
		BaseBuilder:   b.BaseBuilder.Clone().(*testkit.BaseBuilder),
		id:            b.id,
		name:          b.name,
		organization:  b.organization,
		defaultBranch: b.defaultBranch,
		provider:      b.provider,
		archived:      b.archived,
	}
}
