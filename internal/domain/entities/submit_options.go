package entities

// SubmitOptions holds the knobs PullRequestSubmitter reads for every repository.
type SubmitOptions struct {
	BranchPrefix  string
	TitleTemplate string
	Changelog     bool
}

// NewSubmitOptions derives submit options from the pull request settings.
func NewSubmitOptions(config PullRequestConfig) SubmitOptions {
	return SubmitOptions{
		BranchPrefix:  config.BranchPrefix,
		TitleTemplate: config.Title,
		Changelog:     config.Changelog,
	}
}
