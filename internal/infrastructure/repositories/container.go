package repositories

import (
	"go.uber.org/dig"

	domainRepos "github.com/rios0rios0/imagebump/internal/domain/repositories"
	ghRepo "github.com/rios0rios0/imagebump/internal/infrastructure/repositories/github"
	glRepo "github.com/rios0rios0/imagebump/internal/infrastructure/repositories/gitlab"
	"github.com/rios0rios0/imagebump/internal/infrastructure/repositories/ledger"
)

// LedgerFactory opens the processed-repository ledger stored at path.
type LedgerFactory func(path string) domainRepos.LedgerRepository

// RegisterProviders registers all repository providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Register provider registry with all provider factories
	if err := container.Provide(func() *ProviderRegistry {
		reg := NewProviderRegistry()
		reg.Register("github", ghRepo.NewProviderRepository)
		reg.Register("gitlab", glRepo.NewProviderRepository)
		return reg
	}); err != nil {
		return err
	}

	// the ledger path comes from settings, so commands receive a factory
	if err := container.Provide(func() LedgerFactory {
		return ledger.NewJSONLedgerRepository
	}); err != nil {
		return err
	}

	return nil
}
