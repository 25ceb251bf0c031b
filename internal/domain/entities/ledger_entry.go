package entities

import "strings"

// LedgerEntry is one (repository, image, tag) triple recorded as processed.
type LedgerEntry struct {
	Repository string
	Image      string
	Tag        string
}

// NewLedgerEntry keys image by its familiar repository name so `docker.io/library/x`
// and `x` land on the same entry.
func NewLedgerEntry(repoID string, image ImageReference) LedgerEntry {
	familiar := image.Familiar()
	return LedgerEntry{Repository: repoID, Image: familiar.Repository, Tag: familiar.Tag}
}

// LedgerKey identifies a repository in the ledger. The provider prefix keeps
// same-named repositories of different hosting services apart.
func LedgerKey(provider, fullName string) string {
	return provider + ":" + fullName
}

// MatchesLedgerKey reports whether key is named by query, given either as
// `provider:owner/name` or as `owner/name` on any provider.
func MatchesLedgerKey(key, query string) bool {
	if key == query {
		return true
	}
	_, fullName, found := strings.Cut(key, ":")
	return found && !strings.Contains(query, ":") && fullName == query
}
