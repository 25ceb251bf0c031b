//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"sync"

	"github.com/rios0rios0/imagebump/internal/domain/entities"
	"github.com/rios0rios0/imagebump/internal/domain/repositories"
)

// StubLedgerRepository is an in-memory repositories.LedgerRepository.
type StubLedgerRepository struct {
	mu sync.Mutex

	LoadErr   error
	RecordErr error
	ForgetErr error
	FlushErr  error

	// Seed holds entries present before Load; Load copies them into the ledger.
	Seed []entities.LedgerEntry

	LoadCount     int
	FlushCount    int
	ContainsCalls []string
	Forgotten     []string

	entries map[entities.LedgerEntry]struct{}
}

var _ repositories.LedgerRepository = (*StubLedgerRepository)(nil)

func (s *StubLedgerRepository) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LoadCount++
	if s.LoadErr != nil {
		return s.LoadErr
	}
	s.entries = make(map[entities.LedgerEntry]struct{})
	for _, entry := range s.Seed {
		s.entries[entry] = struct{}{}
	}
	return nil
}

func (s *StubLedgerRepository) Contains(repoID string, image entities.ImageReference) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ContainsCalls = append(s.ContainsCalls, repoID)
	_, found := s.entries[entities.NewLedgerEntry(repoID, image)]
	return found
}

func (s *StubLedgerRepository) Record(repoID string, image entities.ImageReference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RecordErr != nil {
		return s.RecordErr
	}
	if s.entries == nil {
		s.entries = make(map[entities.LedgerEntry]struct{})
	}
	s.entries[entities.NewLedgerEntry(repoID, image)] = struct{}{}
	return nil
}

func (s *StubLedgerRepository) Forget(repoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Forgotten = append(s.Forgotten, repoID)
	if s.ForgetErr != nil {
		return s.ForgetErr
	}
	for entry := range s.entries {
		if entry.Repository == repoID {
			delete(s.entries, entry)
		}
	}
	return nil
}

func (s *StubLedgerRepository) Entries() []entities.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]entities.LedgerEntry, 0, len(s.entries))
	for entry := range s.entries {
		entries = append(entries, entry)
	}
	return entries
}

func (s *StubLedgerRepository) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FlushCount++
	return s.FlushErr
}

// Has reports whether the pair was recorded, without counting as a Contains call.
func (s *StubLedgerRepository) Has(repoID string, image entities.ImageReference) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, found := s.entries[entities.NewLedgerEntry(repoID, image)]
	return found
}
