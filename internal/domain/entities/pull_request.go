package entities

import "strings"

// PullRequest represents a pull/merge request returned by a provider.
type PullRequest struct {
	ID           int
	Title        string
	Body         string
	URL          string
	SourceBranch string
	Status       string
}

// PullRequestInput contains the data needed to open a pull request.
type PullRequestInput struct {
	SourceBranch string
	TargetBranch string
	Title        string
	Description  string
}

// FileChange is the full new content of one file to be committed.
type FileChange struct {
	Path    string
	Content string
}

// CarriesFingerprint reports whether the pull request was opened by this tool for target.
func (pr PullRequest) CarriesFingerprint(target ImageReference) bool {
	fingerprint := Fingerprint(target)
	return strings.Contains(pr.Body, fingerprint) || strings.Contains(pr.Title, fingerprint)
}
