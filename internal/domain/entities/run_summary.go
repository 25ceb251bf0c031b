package entities

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// RepositoryState is a step of the per-repository state machine:
// Pending -> Skipped | Scanned; Scanned -> NoTasksFound | TasksBuilt;
// TasksBuilt -> Submitted | SubmitFailed (or Planned on dry runs).
type RepositoryState int

const (
	StatePending RepositoryState = iota
	StateSkipped
	StateScanned
	StateNoTasksFound
	StateTasksBuilt
	StateSubmitted
	StateSubmitFailed
	StatePlanned
	StateCancelled
)

var stateNames = map[RepositoryState]string{ //nolint:gochecknoglobals // lookup table
	StatePending:      "pending",
	StateSkipped:      "skipped",
	StateScanned:      "scanned",
	StateNoTasksFound: "no-tasks-found",
	StateTasksBuilt:   "tasks-built",
	StateSubmitted:    "submitted",
	StateSubmitFailed: "submit-failed",
	StatePlanned:      "planned",
	StateCancelled:    "cancelled",
}

func (s RepositoryState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// IsTerminal reports whether the pipeline stops in this state.
func (s RepositoryState) IsTerminal() bool {
	switch s {
	case StateSkipped, StateNoTasksFound, StateSubmitted, StateSubmitFailed, StatePlanned, StateCancelled:
		return true
	default:
		return false
	}
}

// RepositoryResult is the terminal record of one repository's pass through the pipeline.
type RepositoryResult struct {
	Repository string
	Provider   string
	State      RepositoryState
	SkipReason SkipReason
	Outcome    *Outcome
	Tasks      int
	Err        error
}

// RunSummary aggregates repository results into per-state counts.
type RunSummary struct {
	Skipped            int
	NoTasksFound       int
	Submitted          int
	SubmitFailed       int
	Planned            int
	Cancelled          int
	Created            int
	AlreadyExists      int
	FailedRepositories []string
}

// Summarize folds terminal results into a RunSummary. Result order does not matter.
func Summarize(results []RepositoryResult) RunSummary {
	var summary RunSummary
	for _, result := range results {
		if !result.State.IsTerminal() {
			continue
		}
		summary.add(result)
	}
	summary.FailedRepositories = sortedUnique(summary.FailedRepositories)
	return summary
}

// Total is the number of repositories that reached a terminal state.
func (s RunSummary) Total() int {
	return s.Skipped + s.NoTasksFound + s.Submitted + s.SubmitFailed + s.Planned + s.Cancelled
}

func (s *RunSummary) add(result RepositoryResult) {
	switch result.State {
	case StateSkipped:
		s.Skipped++
	case StateNoTasksFound:
		s.NoTasksFound++
	case StateSubmitted:
		s.Submitted++
		if result.Outcome != nil && result.Outcome.Kind == OutcomeAlreadyExists {
			s.AlreadyExists++
		} else {
			s.Created++
		}
	case StateSubmitFailed:
		s.SubmitFailed++
		s.FailedRepositories = append(s.FailedRepositories, result.Repository)
	case StatePlanned:
		s.Planned++
	case StateCancelled:
		s.Cancelled++
	case StatePending, StateScanned, StateTasksBuilt:
		// non-terminal states never reach the summary
	}
}

func sortedUnique(values []string) []string {
	unique := lo.Uniq(values)
	slices.Sort(unique)
	return unique
}
