package repositories

import (
	"context"

	"github.com/rios0rios0/imagebump/internal/domain/entities"
)

// ProviderRepository abstracts a Git hosting service (GitHub, GitLab, etc.)
// providing repository discovery, file access, and pull request management.
// Implementations wrap rate limits, server errors and timeouts in
// entities.TransientRemoteError so callers can retry them.
type ProviderRepository interface {
	// Name returns the provider identifier (e.g. "github", "gitlab").
	Name() string

	// DiscoverRepositories lists all repositories in an organization, group or user account.
	DiscoverRepositories(ctx context.Context, org string) ([]entities.Repository, error)

	// GetRepository fetches a single repository by its `owner/name` identifier.
	GetRepository(ctx context.Context, fullName string) (entities.Repository, error)

	// IsArchived reports the current archival status of a repository.
	IsArchived(ctx context.Context, repo entities.Repository) (bool, error)

	// ListFiles returns every file of the repository's default branch.
	ListFiles(ctx context.Context, repo entities.Repository) ([]entities.File, error)

	// GetFileContent reads a file from the repository's default branch.
	GetFileContent(ctx context.Context, repo entities.Repository, path string) (string, error)

	// ListOpenPullRequests returns the open pull requests of the repository, bodies included.
	ListOpenPullRequests(ctx context.Context, repo entities.Repository) ([]entities.PullRequest, error)

	// CreateBranch creates branch from the tip of fromBranch and returns the new ref.
	// It returns entities.ErrBranchExists when the branch is already there.
	CreateBranch(ctx context.Context, repo entities.Repository, branch, fromBranch string) (string, error)

	// CommitFiles commits changes on top of branch and returns the commit id.
	CommitFiles(
		ctx context.Context,
		repo entities.Repository,
		branch, message string,
		changes []entities.FileChange,
	) (string, error)

	// CreatePullRequest opens a pull/merge request.
	CreatePullRequest(
		ctx context.Context,
		repo entities.Repository,
		input entities.PullRequestInput,
	) (*entities.PullRequest, error)

	// DeleteBranch removes a branch; used to clean up after a failed submission.
	DeleteBranch(ctx context.Context, repo entities.Repository, branch string) error
}
