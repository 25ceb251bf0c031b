package entities

import "strings"

// Repository represents a Git repository on any hosting provider.
type Repository struct {
	ID            string
	Name          string
	Organization  string // owner, or the full namespace path on GitLab
	DefaultBranch string // "refs/heads/<name>"
	RemoteURL     string
	ProviderName  string
	Archived      bool
}

// FullName returns the `owner/name` identifier used by the ledger and the repository index.
func (r Repository) FullName() string {
	if r.Organization == "" {
		return r.Name
	}
	return r.Organization + "/" + r.Name
}

// BranchName returns the default branch without the "refs/heads/" prefix.
func (r Repository) BranchName() string {
	return strings.TrimPrefix(r.DefaultBranch, "refs/heads/")
}

// SplitFullName splits `owner/name` (or `group/sub/name`) into namespace and name.
func SplitFullName(fullName string) (string, string) {
	idx := strings.LastIndex(fullName, "/")
	if idx < 0 {
		return "", fullName
	}
	return fullName[:idx], fullName[idx+1:]
}

// File represents a file entry within a repository.
type File struct {
	Path     string
	ObjectID string
	IsDir    bool
}
