package entities

import "strings"

// SkipReason explains why a repository did not go through the pipeline.
type SkipReason string

const (
	SkipReasonNone             SkipReason = ""
	SkipReasonUnknown          SkipReason = "unknown repository"
	SkipReasonArchived         SkipReason = "archived"
	SkipReasonNotTracked       SkipReason = "not in repository index"
	SkipReasonAlreadyProcessed SkipReason = "already processed"
)

// AdmitRepository decides whether repo is eligible for processing. Archived
// repositories are rejected regardless of the index contents.
func AdmitRepository(repo *Repository, trackedPathIndex map[string]string) (bool, SkipReason) {
	if repo == nil || repo.Name == "" {
		return false, SkipReasonUnknown
	}
	if repo.Archived {
		return false, SkipReasonArchived
	}
	if _, tracked := TrackedPattern(trackedPathIndex, repo.FullName()); !tracked {
		return false, SkipReasonNotTracked
	}
	return true, SkipReasonNone
}

// TrackedPattern looks fullName up in the index. Hosting services treat names
// case-insensitively, so an exact miss falls back to a case-insensitive match.
func TrackedPattern(trackedPathIndex map[string]string, fullName string) (string, bool) {
	if pattern, ok := trackedPathIndex[fullName]; ok {
		return pattern, true
	}
	for name, pattern := range trackedPathIndex {
		if strings.EqualFold(name, fullName) {
			return pattern, true
		}
	}
	return "", false
}
