package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/rios0rios0/imagebump/internal/domain/entities"
	"github.com/rios0rios0/imagebump/internal/domain/repositories"
)

const (
	providerName = "gitlab"
	perPage      = 100
	headsPrefix  = "refs/heads/"
	treeType     = "tree"
)

// GitLabProviderRepository implements repositories.ProviderRepository for GitLab.
type GitLabProviderRepository struct {
	client *gl.Client
}

// NewProviderRepository creates a GitLab provider from the provider settings. The
// client's own retry loop is disabled; retries belong to the retrying decorator.
func NewProviderRepository(config entities.ProviderConfig) (repositories.ProviderRepository, error) {
	options := []gl.ClientOptionFunc{gl.WithCustomRetryMax(0)}
	if config.BaseURL != "" {
		options = append(options, gl.WithBaseURL(config.BaseURL))
	}

	client, err := gl.NewClient(config.Token, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gitlab client: %w", err)
	}

	return &GitLabProviderRepository{client: client}, nil
}

func (p *GitLabProviderRepository) Name() string { return providerName }

// DiscoverRepositories lists all projects in a GitLab group, subgroups included,
// falling back to the projects owned by the authenticated user.
func (p *GitLabProviderRepository) DiscoverRepositories(
	ctx context.Context,
	group string,
) ([]entities.Repository, error) {
	var allRepos []entities.Repository
	opts := &gl.ListGroupProjectsOptions{
		ListOptions:      gl.ListOptions{PerPage: perPage},
		IncludeSubGroups: gl.Ptr(true),
	}

	for {
		projects, resp, err := p.client.Groups.ListGroupProjects(group, opts, gl.WithContext(ctx))
		if err != nil {
			if isNotFound(err) {
				return p.discoverUserProjects(ctx, group)
			}
			return nil, classify(fmt.Errorf("failed to list projects for %q: %w", group, err))
		}

		for _, proj := range projects {
			allRepos = append(allRepos, toRepository(proj))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allRepos, nil
}

func (p *GitLabProviderRepository) discoverUserProjects(
	ctx context.Context,
	user string,
) ([]entities.Repository, error) {
	var allRepos []entities.Repository
	opts := &gl.ListProjectsOptions{
		ListOptions: gl.ListOptions{PerPage: perPage},
		Owned:       gl.Ptr(true),
	}

	for {
		projects, resp, err := p.client.Projects.ListProjects(opts, gl.WithContext(ctx))
		if err != nil {
			return nil, classify(fmt.Errorf("failed to list projects for %q: %w", user, err))
		}

		for _, proj := range projects {
			allRepos = append(allRepos, toRepository(proj))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allRepos, nil
}

func (p *GitLabProviderRepository) GetRepository(
	ctx context.Context,
	fullName string,
) (entities.Repository, error) {
	proj, _, err := p.client.Projects.GetProject(fullName, nil, gl.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return entities.Repository{}, fmt.Errorf("%w: %q: %w", entities.ErrRepositoryNotFound, fullName, err)
		}
		return entities.Repository{}, classify(fmt.Errorf("failed to get project %q: %w", fullName, err))
	}
	return toRepository(proj), nil
}

func (p *GitLabProviderRepository) IsArchived(ctx context.Context, repo entities.Repository) (bool, error) {
	proj, _, err := p.client.Projects.GetProject(repo.FullName(), nil, gl.WithContext(ctx))
	if err != nil {
		return false, classify(fmt.Errorf("failed to get project %q: %w", repo.FullName(), err))
	}
	return proj.Archived, nil
}

func (p *GitLabProviderRepository) ListFiles(
	ctx context.Context,
	repo entities.Repository,
) ([]entities.File, error) {
	var allFiles []entities.File
	opts := &gl.ListTreeOptions{
		ListOptions: gl.ListOptions{PerPage: perPage},
		Ref:         gl.Ptr(repo.BranchName()),
		Recursive:   gl.Ptr(true),
	}

	for {
		nodes, resp, err := p.client.Repositories.ListTree(repo.FullName(), opts, gl.WithContext(ctx))
		if err != nil {
			return nil, classify(fmt.Errorf("failed to list tree: %w", err))
		}

		for _, node := range nodes {
			allFiles = append(allFiles, entities.File{
				Path:     node.Path,
				ObjectID: node.ID,
				IsDir:    node.Type == treeType,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allFiles, nil
}

func (p *GitLabProviderRepository) GetFileContent(
	ctx context.Context,
	repo entities.Repository,
	path string,
) (string, error) {
	raw, _, err := p.client.RepositoryFiles.GetRawFile(
		repo.FullName(), path,
		&gl.GetRawFileOptions{Ref: gl.Ptr(repo.BranchName())},
		gl.WithContext(ctx),
	)
	if err != nil {
		return "", classify(fmt.Errorf("failed to get file %q: %w", path, err))
	}

	return string(raw), nil
}

func (p *GitLabProviderRepository) ListOpenPullRequests(
	ctx context.Context,
	repo entities.Repository,
) ([]entities.PullRequest, error) {
	var all []entities.PullRequest
	opts := &gl.ListProjectMergeRequestsOptions{
		ListOptions: gl.ListOptions{PerPage: perPage},
		State:       gl.Ptr("opened"),
	}

	for {
		mrs, resp, err := p.client.MergeRequests.ListProjectMergeRequests(repo.FullName(), opts, gl.WithContext(ctx))
		if err != nil {
			return nil, classify(fmt.Errorf("failed to list merge requests: %w", err))
		}

		for _, mr := range mrs {
			all = append(all, entities.PullRequest{
				ID:           int(mr.IID),
				Title:        mr.Title,
				Body:         mr.Description,
				URL:          mr.WebURL,
				SourceBranch: mr.SourceBranch,
				Status:       mr.State,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

func (p *GitLabProviderRepository) CreateBranch(
	ctx context.Context,
	repo entities.Repository,
	branch, fromBranch string,
) (string, error) {
	created, _, err := p.client.Branches.CreateBranch(repo.FullName(), &gl.CreateBranchOptions{
		Branch: gl.Ptr(branch),
		Ref:    gl.Ptr(strings.TrimPrefix(fromBranch, headsPrefix)),
	}, gl.WithContext(ctx))
	if err != nil {
		if isAlreadyExists(err) {
			return "", fmt.Errorf("%w: %s", entities.ErrBranchExists, branch)
		}
		return "", classify(fmt.Errorf("failed to create branch: %w", err))
	}

	return headsPrefix + created.Name, nil
}

func (p *GitLabProviderRepository) CommitFiles(
	ctx context.Context,
	repo entities.Repository,
	branch, message string,
	changes []entities.FileChange,
) (string, error) {
	actions := make([]*gl.CommitActionOptions, 0, len(changes))
	for _, change := range changes {
		actions = append(actions, &gl.CommitActionOptions{
			Action:   gl.Ptr(gl.FileUpdate),
			FilePath: gl.Ptr(strings.TrimPrefix(change.Path, "/")),
			Content:  gl.Ptr(change.Content),
		})
	}

	commit, _, err := p.client.Commits.CreateCommit(
		repo.FullName(),
		&gl.CreateCommitOptions{
			Branch:        gl.Ptr(strings.TrimPrefix(branch, headsPrefix)),
			CommitMessage: gl.Ptr(message),
			Actions:       actions,
		},
		gl.WithContext(ctx),
	)
	if err != nil {
		return "", classify(fmt.Errorf("failed to create commit: %w", err))
	}

	return commit.ID, nil
}

func (p *GitLabProviderRepository) CreatePullRequest(
	ctx context.Context,
	repo entities.Repository,
	input entities.PullRequestInput,
) (*entities.PullRequest, error) {
	mr, _, err := p.client.MergeRequests.CreateMergeRequest(
		repo.FullName(),
		&gl.CreateMergeRequestOptions{
			Title:              gl.Ptr(input.Title),
			Description:        gl.Ptr(input.Description),
			SourceBranch:       gl.Ptr(strings.TrimPrefix(input.SourceBranch, headsPrefix)),
			TargetBranch:       gl.Ptr(strings.TrimPrefix(input.TargetBranch, headsPrefix)),
			RemoveSourceBranch: gl.Ptr(true),
		},
		gl.WithContext(ctx),
	)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to create merge request: %w", err))
	}

	return &entities.PullRequest{
		ID:           int(mr.IID),
		Title:        mr.Title,
		Body:         mr.Description,
		URL:          mr.WebURL,
		SourceBranch: mr.SourceBranch,
		Status:       mr.State,
	}, nil
}

func (p *GitLabProviderRepository) DeleteBranch(ctx context.Context, repo entities.Repository, branch string) error {
	_, err := p.client.Branches.DeleteBranch(
		repo.FullName(), strings.TrimPrefix(branch, headsPrefix), gl.WithContext(ctx),
	)
	if err != nil && !isNotFound(err) {
		return classify(fmt.Errorf("failed to delete branch %q: %w", branch, err))
	}
	return nil
}

func toRepository(proj *gl.Project) entities.Repository {
	defaultBranch := "main"
	if proj.DefaultBranch != "" {
		defaultBranch = proj.DefaultBranch
	}
	namespace, name := entities.SplitFullName(proj.PathWithNamespace)
	if name == "" {
		name = proj.Path
	}
	return entities.Repository{
		ID:            strconv.FormatInt(proj.ID, 10),
		Name:          name,
		Organization:  namespace,
		DefaultBranch: headsPrefix + defaultBranch,
		RemoteURL:     proj.HTTPURLToRepo,
		ProviderName:  providerName,
		Archived:      proj.Archived,
	}
}

// classify wraps 429 and 5xx responses and network timeouts as transient errors.
func classify(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return entities.NewTransientRemoteError(err)
	}
	if status, ok := statusOf(err); ok &&
		(status == http.StatusTooManyRequests || status >= http.StatusInternalServerError) {
		return entities.NewTransientRemoteError(err)
	}
	return err
}

func statusOf(err error) (int, bool) {
	var response *gl.ErrorResponse
	if errors.As(err, &response) && response.Response != nil {
		return response.Response.StatusCode, true
	}
	return 0, false
}

func isNotFound(err error) bool {
	status, ok := statusOf(err)
	return ok && status == http.StatusNotFound
}

// isAlreadyExists matches the 400 GitLab returns when creating a branch that exists.
func isAlreadyExists(err error) bool {
	var response *gl.ErrorResponse
	if !errors.As(err, &response) || response.Response == nil {
		return false
	}
	return response.Response.StatusCode == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(response.Message), "already exists")
}
