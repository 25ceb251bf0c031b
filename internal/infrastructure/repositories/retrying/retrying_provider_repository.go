package retrying

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/imagebump/internal/domain/entities"
	"github.com/rios0rios0/imagebump/internal/domain/repositories"
)

// BackOffFactory builds a fresh backoff policy for a single call.
type BackOffFactory func() backoff.BackOff

// ProviderRepository decorates another ProviderRepository, retrying calls that fail
// with entities.TransientRemoteError. Any other error is returned at once.
type ProviderRepository struct {
	inner      repositories.ProviderRepository
	newBackOff BackOffFactory
}

var _ repositories.ProviderRepository = (*ProviderRepository)(nil)

// NewProviderRepository wraps inner with exponential backoff bounded by config.
func NewProviderRepository(
	inner repositories.ProviderRepository,
	config entities.RetryConfig,
) repositories.ProviderRepository {
	return NewProviderRepositoryWithBackOff(inner, func() backoff.BackOff {
		policy := backoff.NewExponentialBackOff()
		policy.InitialInterval = config.InitialInterval
		policy.MaxElapsedTime = config.MaxElapsed
		if config.MaxRetries > 0 {
			return backoff.WithMaxRetries(policy, uint64(config.MaxRetries))
		}
		return policy
	})
}

// NewProviderRepositoryWithBackOff wraps inner with a caller-supplied backoff policy.
func NewProviderRepositoryWithBackOff(
	inner repositories.ProviderRepository,
	newBackOff BackOffFactory,
) repositories.ProviderRepository {
	return &ProviderRepository{inner: inner, newBackOff: newBackOff}
}

func (it *ProviderRepository) Name() string { return it.inner.Name() }

func (it *ProviderRepository) DiscoverRepositories(
	ctx context.Context,
	org string,
) ([]entities.Repository, error) {
	return retry(ctx, it, "DiscoverRepositories", func() ([]entities.Repository, error) {
		return it.inner.DiscoverRepositories(ctx, org)
	})
}

func (it *ProviderRepository) GetRepository(
	ctx context.Context,
	fullName string,
) (entities.Repository, error) {
	return retry(ctx, it, "GetRepository", func() (entities.Repository, error) {
		return it.inner.GetRepository(ctx, fullName)
	})
}

func (it *ProviderRepository) IsArchived(ctx context.Context, repo entities.Repository) (bool, error) {
	return retry(ctx, it, "IsArchived", func() (bool, error) {
		return it.inner.IsArchived(ctx, repo)
	})
}

func (it *ProviderRepository) ListFiles(
	ctx context.Context,
	repo entities.Repository,
) ([]entities.File, error) {
	return retry(ctx, it, "ListFiles", func() ([]entities.File, error) {
		return it.inner.ListFiles(ctx, repo)
	})
}

func (it *ProviderRepository) GetFileContent(
	ctx context.Context,
	repo entities.Repository,
	path string,
) (string, error) {
	return retry(ctx, it, "GetFileContent", func() (string, error) {
		return it.inner.GetFileContent(ctx, repo, path)
	})
}

func (it *ProviderRepository) ListOpenPullRequests(
	ctx context.Context,
	repo entities.Repository,
) ([]entities.PullRequest, error) {
	return retry(ctx, it, "ListOpenPullRequests", func() ([]entities.PullRequest, error) {
		return it.inner.ListOpenPullRequests(ctx, repo)
	})
}

func (it *ProviderRepository) CreateBranch(
	ctx context.Context,
	repo entities.Repository,
	branch, fromBranch string,
) (string, error) {
	return retry(ctx, it, "CreateBranch", func() (string, error) {
		return it.inner.CreateBranch(ctx, repo, branch, fromBranch)
	})
}

func (it *ProviderRepository) CommitFiles(
	ctx context.Context,
	repo entities.Repository,
	branch, message string,
	changes []entities.FileChange,
) (string, error) {
	return retry(ctx, it, "CommitFiles", func() (string, error) {
		return it.inner.CommitFiles(ctx, repo, branch, message, changes)
	})
}

func (it *ProviderRepository) CreatePullRequest(
	ctx context.Context,
	repo entities.Repository,
	input entities.PullRequestInput,
) (*entities.PullRequest, error) {
	return retry(ctx, it, "CreatePullRequest", func() (*entities.PullRequest, error) {
		return it.inner.CreatePullRequest(ctx, repo, input)
	})
}

func (it *ProviderRepository) DeleteBranch(ctx context.Context, repo entities.Repository, branch string) error {
	_, err := retry(ctx, it, "DeleteBranch", func() (struct{}, error) {
		return struct{}{}, it.inner.DeleteBranch(ctx, repo, branch)
	})
	return err
}

func retry[T any](
	ctx context.Context,
	it *ProviderRepository,
	operation string,
	call func() (T, error),
) (T, error) {
	attempt := func() (T, error) {
		result, err := call()
		if err != nil && !entities.IsTransient(err) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}

	notify := func(err error, wait time.Duration) {
		logger.Debugf("[%s] %s failed, retrying in %s: %v", it.inner.Name(), operation, wait, err)
	}

	return backoff.RetryNotifyWithData(attempt, backoff.WithContext(it.newBackOff(), ctx), notify)
}
