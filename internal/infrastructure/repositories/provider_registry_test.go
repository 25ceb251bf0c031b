//go:build unit

package repositories_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/imagebump/internal/domain/entities"
	domainRepos "github.com/rios0rios0/imagebump/internal/domain/repositories"
	"github.com/rios0rios0/imagebump/internal/infrastructure/repositories"
	"github.com/rios0rios0/imagebump/test/domain/entitybuilders"
	doubles "github.com/rios0rios0/imagebump/test/infrastructure/repositorydoubles"
)

func TestProviderRegistry(t *testing.T) {
	t.Parallel()

	retry := entities.RetryConfig{MaxRetries: 1, InitialInterval: time.Millisecond, MaxElapsed: time.Second}

	t.Run("should build a registered provider from its settings", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &doubles.SpyProviderRepository{ProviderName: "github"}
		var received entities.ProviderConfig
		registry := repositories.NewProviderRegistry()
		registry.Register("github", func(config entities.ProviderConfig) (domainRepos.ProviderRepository, error) {
			received = config
			return spy, nil
		})
		config := entities.ProviderConfig{Type: "github", Token: "ghp_x", BaseURL: "https://ghe.example.com"}

		// when
		provider, err := registry.Get(config, retry)

		// then
		require.NoError(t, err)
		assert.Equal(t, "github", provider.Name())
		assert.Equal(t, config, received)
	})

	t.Run("should wrap providers so transient errors are retried", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &doubles.SpyProviderRepository{
			IsArchivedErr: entities.NewTransientRemoteError(errors.New("502")),
		}
		registry := repositories.NewProviderRegistry()
		registry.Register("spy", func(entities.ProviderConfig) (domainRepos.ProviderRepository, error) {
			return spy, nil
		})
		provider, err := registry.Get(entities.ProviderConfig{Type: "spy"}, retry)
		require.NoError(t, err)

		// when
		_, err = provider.IsArchived(context.Background(), entitybuilders.NewRepositoryBuilder().BuildRepository())

		// then
		require.Error(t, err)
		assert.Equal(t, 2, spy.CallCount("IsArchived"))
	})

	t.Run("should reject an unknown provider type as a configuration error", func(t *testing.T) {
		t.Parallel()

		// given
		registry := repositories.NewProviderRegistry()

		registry.Register("github", func(entities.ProviderConfig) (domainRepos.ProviderRepository, error) {
			return nil, nil
		})

		// when
		_, err := registry.Get(entities.ProviderConfig{Type: "bitbucket"}, retry)

		// then
		require.ErrorIs(t, err, entities.ErrConfiguration)
		assert.Contains(t, err.Error(), "available: github")
	})

	t.Run("should return the factory error", func(t *testing.T) {
		t.Parallel()

		// given
		factoryErr := errors.New("bad base url")
		registry := repositories.NewProviderRegistry()
		registry.Register("gitlab", func(entities.ProviderConfig) (domainRepos.ProviderRepository, error) {
			return nil, factoryErr
		})

		// when
		_, err := registry.Get(entities.ProviderConfig{Type: "gitlab"}, retry)

		// then
		require.ErrorIs(t, err, factoryErr)
	})

	t.Run("should list registered names in order", func(t *testing.T) {
		t.Parallel()

		// given
		registry := repositories.NewProviderRegistry()
		factory := func(entities.ProviderConfig) (domainRepos.ProviderRepository, error) { return nil, nil }
		registry.Register("gitlab", factory)
		registry.Register("github", factory)

		// when
		names := registry.Names()

		// then
		assert.Equal(t, []string{"github", "gitlab"}, names)
	})
}
