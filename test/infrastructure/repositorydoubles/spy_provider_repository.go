//go:build integration || unit || test

// Package repositorydoubles provides test doubles (spies, stubs, dummies) for
// repository interfaces. These are hand-crafted implementations, no mock frameworks.
package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"fmt"
	"sync"

	"github.com/rios0rios0/imagebump/internal/domain/entities"
	"github.com/rios0rios0/imagebump/internal/domain/repositories"
)

// CommitCall records a single invocation of CommitFiles.
type CommitCall struct {
	Repository string
	Branch     string
	Message    string
	Changes    []entities.FileChange
}

// SpyProviderRepository implements repositories.ProviderRepository as a configurable spy.
// It is safe for the concurrent calls the orchestrator's workers make.
type SpyProviderRepository struct {
	mu sync.Mutex

	// --- identity ---
	ProviderName string

	// --- DiscoverRepositories ---
	Repositories   []entities.Repository
	DiscoverErr    error
	DiscoveredOrgs []string

	// --- GetRepository ---
	RepositoriesByName    map[string]entities.Repository
	GetRepositoryErr      error
	GetRepositoryErrs     map[string]error // full name -> error
	RequestedRepositories []string

	// --- IsArchived ---
	Archived      map[string]bool // full name -> archived
	IsArchivedErr error

	// --- ListFiles ---
	Files       []entities.File
	ListFileErr error

	// --- GetFileContent ---
	FileContents    map[string]string // path -> content
	FileContentErrs map[string]error  // path -> error
	ReadPaths       []string

	// --- ListOpenPullRequests ---
	OpenPullRequests []entities.PullRequest
	ListPRsErr       error

	// --- CreateBranch ---
	CreateBranchErr error
	CreatedBranches []string

	// --- CommitFiles ---
	CommitErr error
	Commits   []CommitCall

	// --- CreatePullRequest ---
	CreatedPR   *entities.PullRequest
	CreatePRErr error
	PRInputs    []entities.PullRequestInput
	// OpenedDespiteErr makes CreatePullRequest open the pull request before
	// returning CreatePRErr, like a request whose response was lost.
	OpenedDespiteErr bool

	// --- DeleteBranch ---
	DeleteBranchErr error
	DeletedBranches []string

	// spy: every call as "Method repository", in order
	Calls []string
}

var _ repositories.ProviderRepository = (*SpyProviderRepository)(nil)

func (p *SpyProviderRepository) Name() string {
	if p.ProviderName == "" {
		return "spy"
	}
	return p.ProviderName
}

func (p *SpyProviderRepository) DiscoverRepositories(
	_ context.Context, org string,
) ([]entities.Repository, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("DiscoverRepositories", org)
	p.DiscoveredOrgs = append(p.DiscoveredOrgs, org)
	return p.Repositories, p.DiscoverErr
}

func (p *SpyProviderRepository) GetRepository(
	_ context.Context, fullName string,
) (entities.Repository, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("GetRepository", fullName)
	p.RequestedRepositories = append(p.RequestedRepositories, fullName)
	if p.GetRepositoryErr != nil {
		return entities.Repository{}, p.GetRepositoryErr
	}
	if err, ok := p.GetRepositoryErrs[fullName]; ok {
		return entities.Repository{}, err
	}
	if repo, ok := p.RepositoriesByName[fullName]; ok {
		return repo, nil
	}
	return entities.Repository{}, fmt.Errorf("%w: %s", entities.ErrRepositoryNotFound, fullName)
}

func (p *SpyProviderRepository) IsArchived(_ context.Context, repo entities.Repository) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("IsArchived", repo.FullName())
	if p.IsArchivedErr != nil {
		return false, p.IsArchivedErr
	}
	return p.Archived[repo.FullName()], nil
}

func (p *SpyProviderRepository) ListFiles(
	_ context.Context, repo entities.Repository,
) ([]entities.File, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("ListFiles", repo.FullName())
	return p.Files, p.ListFileErr
}

func (p *SpyProviderRepository) GetFileContent(
	_ context.Context, repo entities.Repository, path string,
) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("GetFileContent", repo.FullName())
	p.ReadPaths = append(p.ReadPaths, path)
	if err, ok := p.FileContentErrs[path]; ok {
		return "", err
	}
	if content, ok := p.FileContents[path]; ok {
		return content, nil
	}
	return "", fmt.Errorf("file not found: %s", path)
}

func (p *SpyProviderRepository) ListOpenPullRequests(
	_ context.Context, repo entities.Repository,
) ([]entities.PullRequest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("ListOpenPullRequests", repo.FullName())
	return p.OpenPullRequests, p.ListPRsErr
}

func (p *SpyProviderRepository) CreateBranch(
	_ context.Context, repo entities.Repository, branch, _ string,
) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("CreateBranch", repo.FullName())
	p.CreatedBranches = append(p.CreatedBranches, branch)
	if p.CreateBranchErr != nil {
		return "", p.CreateBranchErr
	}
	return "refs/heads/" + branch, nil
}

func (p *SpyProviderRepository) CommitFiles(
	_ context.Context,
	repo entities.Repository,
	branch, message string,
	changes []entities.FileChange,
) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("CommitFiles", repo.FullName())
	p.Commits = append(p.Commits, CommitCall{
		Repository: repo.FullName(),
		Branch:     branch,
		Message:    message,
		Changes:    changes,
	})
	if p.CommitErr != nil {
		return "", p.CommitErr
	}
	return "c0ffee", nil
}

func (p *SpyProviderRepository) CreatePullRequest(
	_ context.Context, repo entities.Repository, input entities.PullRequestInput,
) (*entities.PullRequest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("CreatePullRequest", repo.FullName())
	p.PRInputs = append(p.PRInputs, input)
	if p.CreatePRErr != nil {
		if p.OpenedDespiteErr {
			p.OpenPullRequests = append(p.OpenPullRequests, openedPullRequest(input))
		}
		return nil, p.CreatePRErr
	}
	if p.CreatedPR != nil {
		return p.CreatedPR, nil
	}
	created := openedPullRequest(input)
	return &created, nil
}

func openedPullRequest(input entities.PullRequestInput) entities.PullRequest {
	return entities.PullRequest{
		ID:           1,
		Title:        input.Title,
		Body:         input.Description,
		URL:          "https://example.com/pr/1",
		SourceBranch: input.SourceBranch,
		Status:       "open",
	}
}

func (p *SpyProviderRepository) DeleteBranch(_ context.Context, repo entities.Repository, branch string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("DeleteBranch", repo.FullName())
	p.DeletedBranches = append(p.DeletedBranches, branch)
	return p.DeleteBranchErr
}

// CallsFor returns the method names called for one repository, in order.
func (p *SpyProviderRepository) CallsFor(fullName string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var methods []string
	suffix := " " + fullName
	for _, call := range p.Calls {
		if len(call) > len(suffix) && call[len(call)-len(suffix):] == suffix {
			methods = append(methods, call[:len(call)-len(suffix)])
		}
	}
	return methods
}

// CallCount returns how many times method was called, across repositories.
func (p *SpyProviderRepository) CallCount(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := 0
	for _, call := range p.Calls {
		if len(call) > len(method) && call[:len(method)+1] == method+" " {
			count++
		}
	}
	return count
}

func (p *SpyProviderRepository) record(method, subject string) {
	p.Calls = append(p.Calls, method+" "+subject)
}
