package repositories

import "github.com/rios0rios0/imagebump/internal/domain/entities"

// LedgerRepository persists which repositories were already handled for a target image.
// Implementations must be safe for concurrent use by the orchestrator's workers.
type LedgerRepository interface {
	// Load reads the persisted document. A missing document is an empty ledger;
	// malformed content is an entities.ErrConfiguration.
	Load() error

	// Contains reports whether repoID was recorded for image (repository and tag).
	Contains(repoID string, image entities.ImageReference) bool

	// Record adds the pair and persists it. Recording an existing pair is a no-op.
	Record(repoID string, image entities.ImageReference) error

	// Forget drops every pair recorded for repoID and persists the change.
	Forget(repoID string) error

	// Entries returns a snapshot of all recorded pairs, sorted by repository.
	Entries() []entities.LedgerEntry

	// Flush writes the current state to the persisted document.
	Flush() error
}
