package repositories

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/rios0rios0/imagebump/internal/domain/entities"
	domainRepos "github.com/rios0rios0/imagebump/internal/domain/repositories"
	"github.com/rios0rios0/imagebump/internal/infrastructure/repositories/retrying"
)

// ProviderFactory is a constructor function that creates a ProviderRepository from its settings.
type ProviderFactory func(config entities.ProviderConfig) (domainRepos.ProviderRepository, error)

// ProviderRegistry manages all registered Git provider implementations.
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates an empty provider registry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register adds a provider factory under the given name (e.g. "github").
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// Get returns a configured provider for the given settings, wrapped so transient
// failures are retried according to retry.
func (r *ProviderRegistry) Get(
	config entities.ProviderConfig,
	retry entities.RetryConfig,
) (domainRepos.ProviderRepository, error) {
	factory, ok := r.providers[config.Type]
	if !ok {
		return nil, fmt.Errorf(
			"%w: unknown provider type %q (available: %s)",
			entities.ErrConfiguration, config.Type, strings.Join(r.Names(), ", "),
		)
	}

	provider, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %q provider: %w", config.Type, err)
	}

	return retrying.NewProviderRepository(provider, retry), nil
}

// Names returns the sorted list of registered provider names.
func (r *ProviderRegistry) Names() []string {
	names := lo.Keys(r.providers)
	slices.Sort(names)
	return names
}
