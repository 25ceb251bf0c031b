//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"maps"
	"slices"
	"time"

	testkit "github.com/rios0rios0/testkit/pkg/test"

	"github.com/rios0rios0/imagebump/internal/domain/entities"
)

// SettingsBuilder helps create validated run settings with a fluent interface.
type SettingsBuilder struct {
	*testkit.BaseBuilder
	providers    []entities.ProviderConfig
	imageName    string
	imageTag     string
	force        bool
	ledger       string
	concurrency  int
	repositories map[string]string
	changelog    bool
}

// NewSettingsBuilder creates a builder targeting base/image:2.0 for acme/svc on a spy provider.
func NewSettingsBuilder() *SettingsBuilder {
	return &SettingsBuilder{
		BaseBuilder: testkit.NewBaseBuilder(),
		providers: []entities.ProviderConfig{
			{Type: "spy", Token: "test-token", Organizations: []string{"acme"}},
		},
		imageName:    "base/image",
		imageTag:     "2.0",
		ledger:       "store.json",
		concurrency:  2,
		repositories: map[string]string{"acme/svc": "Dockerfile"},
	}
}

// WithProviders replaces the configured providers.
func (b *SettingsBuilder) WithProviders(providers ...entities.ProviderConfig) *SettingsBuilder {
	b.providers = providers
	return b
}

// WithImage sets the tracked image and target tag.
func (b *SettingsBuilder) WithImage(name, tag string) *SettingsBuilder {
	b.imageName = name
	b.imageTag = tag
	return b
}

// WithForce sets the force-update flag.
func (b *SettingsBuilder) WithForce(force bool) *SettingsBuilder {
	b.force = force
	return b
}

// WithLedger sets the ledger path.
func (b *SettingsBuilder) WithLedger(path string) *SettingsBuilder {
	b.ledger = path
	return b
}

// WithConcurrency sets the worker pool size.
func (b *SettingsBuilder) WithConcurrency(concurrency int) *SettingsBuilder {
	b.concurrency = concurrency
	return b
}

// WithRepository adds a repository index entry.
func (b *SettingsBuilder) WithRepository(fullName, pattern string) *SettingsBuilder {
	b.repositories[fullName] = pattern
	return b
}

// WithChangelog enables changelog entries.
func (b *SettingsBuilder) WithChangelog() *SettingsBuilder {
	b.changelog = true
	return b
}

// Build creates the settings (satisfies testkit.Builder interface).
func (b *SettingsBuilder) Build() interface{} {
	return b.BuildSettings()
}

// BuildSettings creates the settings with a concrete return type. Transient errors are
// retried twice with a millisecond backoff.
func (b *SettingsBuilder) BuildSettings() *entities.Settings {
	return &entities.Settings{
		Providers:    slices.Clone(b.providers),
		Image:        entities.ImageConfig{Name: b.imageName, Tag: b.imageTag},
		Force:        b.force,
		Ledger:       b.ledger,
		Concurrency:  b.concurrency,
		Repositories: maps.Clone(b.repositories),
		PullRequest: entities.PullRequestConfig{
			BranchPrefix: entities.DefaultBranchPrefix,
			Title:        entities.DefaultTitleTemplate,
			Changelog:    b.changelog,
		},
		Retry: entities.RetryConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxElapsed: time.Second},
	}
}

// Reset clears the builder state, allowing it to be reused.
func (b *SettingsBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	fresh := NewSettingsBuilder()
	fresh.BaseBuilder = b.BaseBuilder
	*b = *fresh
	return b
}

// Clone creates a deep copy of the SettingsBuilder.
func (b *SettingsBuilder) Clone() testkit.Builder {
	return &SettingsBuilder{
		BaseBuilder:  b.BaseBuilder.Clone().(*testkit.BaseBuilder),
		providers:    slices.Clone(b.providers),
		imageName:    b.imageName,
		imageTag:     b.imageTag,
		force:        b.force,
		ledger:       b.ledger,
		concurrency:  b.concurrency,
		repositories: maps.Clone(b.repositories),
		changelog:    b.changelog,
	}
}
