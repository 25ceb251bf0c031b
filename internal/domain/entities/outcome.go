package entities

// OutcomeKind classifies the result of submitting a pull request.
type OutcomeKind int

const (
	OutcomeCreated OutcomeKind = iota
	OutcomeAlreadyExists
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCreated:
		return "created"
	case OutcomeAlreadyExists:
		return "already-exists"
	default:
		return "failed"
	}
}

// Outcome is what PullRequestSubmitter returns for one repository.
type Outcome struct {
	Kind        OutcomeKind
	Branch      string
	PullRequest *PullRequest
	Reason      string
}

// CreatedOutcome reports a freshly opened pull request on branch.
func CreatedOutcome(branch string, pr *PullRequest) Outcome {
	return Outcome{Kind: OutcomeCreated, Branch: branch, PullRequest: pr}
}

// AlreadyExistsOutcome reports that an open pull request already carries the fingerprint.
func AlreadyExistsOutcome(pr *PullRequest) Outcome {
	outcome := Outcome{Kind: OutcomeAlreadyExists, PullRequest: pr}
	if pr != nil {
		outcome.Branch = pr.SourceBranch
	}
	return outcome
}

// FailedOutcome reports a submission that did not complete.
func FailedOutcome(reason string) Outcome {
	return Outcome{Kind: OutcomeFailed, Reason: reason}
}

// Succeeded is true for outcomes the ledger may record.
func (o Outcome) Succeeded() bool {
	return o.Kind == OutcomeCreated || o.Kind == OutcomeAlreadyExists
}
