package github

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	gh "github.com/google/go-github/v66/github"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/imagebump/internal/domain/entities"
	"github.com/rios0rios0/imagebump/internal/domain/repositories"
)

const (
	providerName = "github"
	perPage      = 100
	blobMode     = "100644"
	blobType     = "blob"
	treeType     = "tree"
	headsPrefix  = "refs/heads/"
)

// GitHubProviderRepository implements repositories.ProviderRepository for GitHub.
type GitHubProviderRepository struct {
	client *gh.Client
}

// NewProviderRepository creates a GitHub provider from the provider settings. A non-empty
// BaseURL points the client at a GitHub Enterprise host.
func NewProviderRepository(config entities.ProviderConfig) (repositories.ProviderRepository, error) {
	client := gh.NewClient(nil).WithAuthToken(config.Token)

	if config.BaseURL != "" {
		baseURL := strings.TrimSuffix(config.BaseURL, "/") + "/"
		var err error
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to configure enterprise urls %q: %w", config.BaseURL, err)
		}
	}

	return &GitHubProviderRepository{client: client}, nil
}

func (p *GitHubProviderRepository) Name() string { return providerName }

// DiscoverRepositories lists all repositories in a GitHub organization, falling back to
// the repositories owned by a user account.
func (p *GitHubProviderRepository) DiscoverRepositories(
	ctx context.Context,
	org string,
) ([]entities.Repository, error) {
	var allRepos []entities.Repository
	opts := &gh.RepositoryListByOrgOptions{
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	for {
		repos, resp, err := p.client.Repositories.ListByOrg(ctx, org, opts)
		if err != nil {
			if isNotFound(err) {
				return p.discoverUserRepos(ctx, org)
			}
			return nil, classify(fmt.Errorf("failed to list repos for %q: %w", org, err))
		}

		for _, r := range repos {
			allRepos = append(allRepos, toRepository(r))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allRepos, nil
}

func (p *GitHubProviderRepository) discoverUserRepos(
	ctx context.Context,
	user string,
) ([]entities.Repository, error) {
	var allRepos []entities.Repository
	opts := &gh.RepositoryListByUserOptions{
		ListOptions: gh.ListOptions{PerPage: perPage},
		Type:        "owner",
	}

	for {
		repos, resp, err := p.client.Repositories.ListByUser(ctx, user, opts)
		if err != nil {
			return nil, classify(fmt.Errorf("failed to list repos for %q: %w", user, err))
		}

		for _, r := range repos {
			allRepos = append(allRepos, toRepository(r))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allRepos, nil
}

func (p *GitHubProviderRepository) GetRepository(
	ctx context.Context,
	fullName string,
) (entities.Repository, error) {
	owner, name := entities.SplitFullName(fullName)
	r, _, err := p.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		if isNotFound(err) {
			return entities.Repository{}, fmt.Errorf("%w: %q: %w", entities.ErrRepositoryNotFound, fullName, err)
		}
		return entities.Repository{}, classify(fmt.Errorf("failed to get repository %q: %w", fullName, err))
	}
	return toRepository(r), nil
}

func (p *GitHubProviderRepository) IsArchived(ctx context.Context, repo entities.Repository) (bool, error) {
	r, _, err := p.client.Repositories.Get(ctx, repo.Organization, repo.Name)
	if err != nil {
		return false, classify(fmt.Errorf("failed to get repository %q: %w", repo.FullName(), err))
	}
	return r.GetArchived(), nil
}

func (p *GitHubProviderRepository) ListFiles(
	ctx context.Context,
	repo entities.Repository,
) ([]entities.File, error) {
	tree, _, err := p.client.Git.GetTree(ctx, repo.Organization, repo.Name, repo.BranchName(), true)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to get repo tree: %w", err))
	}
	if tree.GetTruncated() {
		logger.Debugf("[%s] Recursive tree truncated, listing one directory at a time", repo.FullName())
		return p.walkTree(ctx, repo, repo.BranchName(), "")
	}

	files := make([]entities.File, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		files = append(files, entities.File{
			Path:     entry.GetPath(),
			ObjectID: entry.GetSHA(),
			IsDir:    entry.GetType() == treeType,
		})
	}

	return files, nil
}

// walkTree lists the tree at sha one directory per request, for repositories too
// large for a single recursive listing. A directory that is itself truncated is an error.
func (p *GitHubProviderRepository) walkTree(
	ctx context.Context,
	repo entities.Repository,
	sha, prefix string,
) ([]entities.File, error) {
	tree, _, err := p.client.Git.GetTree(ctx, repo.Organization, repo.Name, sha, false)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to get tree %q: %w", prefix, err))
	}
	if tree.GetTruncated() {
		return nil, fmt.Errorf("directory %q of %s has too many entries to list", prefix, repo.FullName())
	}

	var files []entities.File
	for _, entry := range tree.Entries {
		filePath := entry.GetPath()
		if prefix != "" {
			filePath = prefix + "/" + filePath
		}
		isDir := entry.GetType() == treeType
		files = append(files, entities.File{Path: filePath, ObjectID: entry.GetSHA(), IsDir: isDir})

		if isDir {
			nested, walkErr := p.walkTree(ctx, repo, entry.GetSHA(), filePath)
			if walkErr != nil {
				return nil, walkErr
			}
			files = append(files, nested...)
		}
	}

	return files, nil
}

func (p *GitHubProviderRepository) GetFileContent(
	ctx context.Context,
	repo entities.Repository,
	path string,
) (string, error) {
	fileContent, _, _, err := p.client.Repositories.GetContents(
		ctx, repo.Organization, repo.Name, path,
		&gh.RepositoryContentGetOptions{Ref: repo.BranchName()},
	)
	if err != nil {
		return "", classify(fmt.Errorf("failed to get file %q: %w", path, err))
	}
	if fileContent == nil {
		return "", fmt.Errorf("path %q is a directory, not a file", path)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return "", fmt.Errorf("failed to decode file content: %w", err)
	}

	return content, nil
}

func (p *GitHubProviderRepository) ListOpenPullRequests(
	ctx context.Context,
	repo entities.Repository,
) ([]entities.PullRequest, error) {
	var all []entities.PullRequest
	opts := &gh.PullRequestListOptions{
		State:       "open",
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	for {
		prs, resp, err := p.client.PullRequests.List(ctx, repo.Organization, repo.Name, opts)
		if err != nil {
			return nil, classify(fmt.Errorf("failed to list pull requests: %w", err))
		}

		for _, pr := range prs {
			all = append(all, toPullRequest(pr))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

func (p *GitHubProviderRepository) CreateBranch(
	ctx context.Context,
	repo entities.Repository,
	branch, fromBranch string,
) (string, error) {
	owner := repo.Organization

	baseRef, _, err := p.client.Git.GetRef(
		ctx, owner, repo.Name, headsPrefix+strings.TrimPrefix(fromBranch, headsPrefix),
	)
	if err != nil {
		return "", classify(fmt.Errorf("failed to get base branch ref: %w", err))
	}

	ref := headsPrefix + branch
	_, _, err = p.client.Git.CreateRef(ctx, owner, repo.Name, &gh.Reference{
		Ref:    gh.String(ref),
		Object: &gh.GitObject{SHA: baseRef.Object.SHA},
	})
	if err != nil {
		if isAlreadyExists(err) {
			return "", fmt.Errorf("%w: %s", entities.ErrBranchExists, branch)
		}
		return "", classify(fmt.Errorf("failed to create branch: %w", err))
	}

	return ref, nil
}

// CommitFiles builds a tree on top of the branch tip, commits it, and moves the branch.
func (p *GitHubProviderRepository) CommitFiles(
	ctx context.Context,
	repo entities.Repository,
	branch, message string,
	changes []entities.FileChange,
) (string, error) {
	owner := repo.Organization
	ref := headsPrefix + strings.TrimPrefix(branch, headsPrefix)

	branchRef, _, err := p.client.Git.GetRef(ctx, owner, repo.Name, ref)
	if err != nil {
		return "", classify(fmt.Errorf("failed to get branch ref: %w", err))
	}
	parentSHA := branchRef.Object.GetSHA()

	parent, _, err := p.client.Git.GetCommit(ctx, owner, repo.Name, parentSHA)
	if err != nil {
		return "", classify(fmt.Errorf("failed to get parent commit: %w", err))
	}

	entries := make([]*gh.TreeEntry, 0, len(changes))
	for _, change := range changes {
		entries = append(entries, &gh.TreeEntry{
			Path:    gh.String(strings.TrimPrefix(change.Path, "/")),
			Mode:    gh.String(blobMode),
			Type:    gh.String(blobType),
			Content: gh.String(change.Content),
		})
	}

	tree, _, err := p.client.Git.CreateTree(ctx, owner, repo.Name, parent.Tree.GetSHA(), entries)
	if err != nil {
		return "", classify(fmt.Errorf("failed to create tree: %w", err))
	}

	commit, _, err := p.client.Git.CreateCommit(ctx, owner, repo.Name, &gh.Commit{
		Message: gh.String(message),
		Tree:    tree,
		Parents: []*gh.Commit{{SHA: gh.String(parentSHA)}},
	}, nil)
	if err != nil {
		return "", classify(fmt.Errorf("failed to create commit: %w", err))
	}

	_, _, err = p.client.Git.UpdateRef(ctx, owner, repo.Name, &gh.Reference{
		Ref:    gh.String(ref),
		Object: &gh.GitObject{SHA: commit.SHA},
	}, false)
	if err != nil {
		return "", classify(fmt.Errorf("failed to move branch to commit: %w", err))
	}

	return commit.GetSHA(), nil
}

func (p *GitHubProviderRepository) CreatePullRequest(
	ctx context.Context,
	repo entities.Repository,
	input entities.PullRequestInput,
) (*entities.PullRequest, error) {
	pr, _, err := p.client.PullRequests.Create(ctx, repo.Organization, repo.Name, &gh.NewPullRequest{
		Title:               gh.String(input.Title),
		Head:                gh.String(strings.TrimPrefix(input.SourceBranch, headsPrefix)),
		Base:                gh.String(strings.TrimPrefix(input.TargetBranch, headsPrefix)),
		Body:                gh.String(input.Description),
		MaintainerCanModify: gh.Bool(true),
	})
	if err != nil {
		return nil, classify(fmt.Errorf("failed to create pull request: %w", err))
	}

	created := toPullRequest(pr)
	return &created, nil
}

func (p *GitHubProviderRepository) DeleteBranch(ctx context.Context, repo entities.Repository, branch string) error {
	_, err := p.client.Git.DeleteRef(ctx, repo.Organization, repo.Name, headsPrefix+strings.TrimPrefix(branch, headsPrefix))
	if err != nil && !isNotFound(err) {
		return classify(fmt.Errorf("failed to delete branch %q: %w", branch, err))
	}
	return nil
}

func toRepository(r *gh.Repository) entities.Repository {
	defaultBranch := "main"
	if r.DefaultBranch != nil {
		defaultBranch = r.GetDefaultBranch()
	}
	return entities.Repository{
		ID:            strconv.FormatInt(r.GetID(), 10),
		Name:          r.GetName(),
		Organization:  r.GetOwner().GetLogin(),
		DefaultBranch: headsPrefix + defaultBranch,
		RemoteURL:     r.GetCloneURL(),
		ProviderName:  providerName,
		Archived:      r.GetArchived(),
	}
}

func toPullRequest(pr *gh.PullRequest) entities.PullRequest {
	return entities.PullRequest{
		ID:           pr.GetNumber(),
		Title:        pr.GetTitle(),
		Body:         pr.GetBody(),
		URL:          pr.GetHTMLURL(),
		SourceBranch: pr.GetHead().GetRef(),
		Status:       pr.GetState(),
	}
}

// classify wraps rate limits, 5xx responses and network timeouts as transient errors.
func classify(err error) error {
	var rateLimit *gh.RateLimitError
	var abuse *gh.AbuseRateLimitError
	var netErr net.Error
	var response *gh.ErrorResponse

	switch {
	case errors.As(err, &rateLimit), errors.As(err, &abuse):
		return entities.NewTransientRemoteError(err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return entities.NewTransientRemoteError(err)
	case errors.As(err, &response) && response.Response != nil:
		status := response.Response.StatusCode
		if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
			return entities.NewTransientRemoteError(err)
		}
	}
	return err
}

func isNotFound(err error) bool {
	var response *gh.ErrorResponse
	return errors.As(err, &response) && response.Response != nil &&
		response.Response.StatusCode == http.StatusNotFound
}

// isAlreadyExists matches the 422 GitHub returns when creating a ref that exists.
func isAlreadyExists(err error) bool {
	var response *gh.ErrorResponse
	return errors.As(err, &response) && response.Response != nil &&
		response.Response.StatusCode == http.StatusUnprocessableEntity &&
		strings.Contains(strings.ToLower(response.Message), "already exists")
}
