package commands

import (
	"fmt"

	"github.com/samber/lo"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/imagebump/internal/domain/entities"
	infraRepos "github.com/rios0rios0/imagebump/internal/infrastructure/repositories"
)

// Ledger is the interface for the ledger command.
type Ledger interface {
	List(settings *entities.Settings) ([]entities.LedgerEntry, error)
	Forget(settings *entities.Settings, repository string) error
}

// LedgerCommand inspects and edits the processed-repository ledger.
type LedgerCommand struct {
	ledgerFactory infraRepos.LedgerFactory
}

// NewLedgerCommand creates a new LedgerCommand.
func NewLedgerCommand(ledgerFactory infraRepos.LedgerFactory) *LedgerCommand {
	return &LedgerCommand{ledgerFactory: ledgerFactory}
}

// List returns every recorded entry, sorted by repository then image.
func (it *LedgerCommand) List(settings *entities.Settings) ([]entities.LedgerEntry, error) {
	ledger := it.ledgerFactory(settings.Ledger)
	if err := ledger.Load(); err != nil {
		return nil, err
	}
	return ledger.Entries(), nil
}

// Forget removes every entry of repository so the next run processes it again.
// repository is either `provider:owner/name` or `owner/name` on any provider.
func (it *LedgerCommand) Forget(settings *entities.Settings, repository string) error {
	ledger := it.ledgerFactory(settings.Ledger)
	if err := ledger.Load(); err != nil {
		return err
	}

	keys := lo.Uniq(lo.FilterMap(ledger.Entries(), func(entry entities.LedgerEntry, _ int) (string, bool) {
		return entry.Repository, entities.MatchesLedgerKey(entry.Repository, repository)
	}))
	if len(keys) == 0 {
		keys = []string{repository}
	}

	for _, key := range keys {
		if err := ledger.Forget(key); err != nil {
			return fmt.Errorf("failed to forget %q: %w", repository, err)
		}
		logger.Infof("Removed %q from ledger %q", key, settings.Ledger)
	}
	return nil
}
