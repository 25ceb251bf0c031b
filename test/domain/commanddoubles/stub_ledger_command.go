//go:build integration || unit || test

package commanddoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"github.com/rios0rios0/imagebump/internal/domain/commands"
	"github.com/rios0rios0/imagebump/internal/domain/entities"
)

// StubLedgerCommand is a stub implementation of commands.Ledger.
type StubLedgerCommand struct {
	Entries      []entities.LedgerEntry
	ListErr      error
	ForgetErr    error
	ListCount    int
	Forgotten    []string
	LastSettings *entities.Settings
}

var _ commands.Ledger = (*StubLedgerCommand)(nil)

func (s *StubLedgerCommand) List(settings *entities.Settings) ([]entities.LedgerEntry, error) {
	s.ListCount++
	s.LastSettings = settings
	return s.Entries, s.ListErr
}

func (s *StubLedgerCommand) Forget(settings *entities.Settings, repository string) error {
	s.LastSettings = settings
	s.Forgotten = append(s.Forgotten, repository)
	return s.ForgetErr
}
