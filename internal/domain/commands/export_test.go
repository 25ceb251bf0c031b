package commands

// SetIDGenerator replaces the branch suffix source of a submitter for testing.
func SetIDGenerator(submitter *PullRequestSubmitter, newID func() string) {
	submitter.newID = newID
}
