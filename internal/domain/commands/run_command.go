package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rios0rios0/imagebump/internal/domain/entities"
	"github.com/rios0rios0/imagebump/internal/domain/repositories"
	infraRepos "github.com/rios0rios0/imagebump/internal/infrastructure/repositories"
)

// Run is the interface for the run command (batch mode).
type Run interface {
	Execute(ctx context.Context, settings *entities.Settings, opts RunOptions) (entities.RunSummary, error)
}

// RunOptions holds runtime options for a single run.
type RunOptions struct {
	DryRun       bool
	Verbose      bool
	ProviderName string // If set, only process this provider (CLI override)
	OrgOverride  string // If set, only process this org (CLI override)
}

// candidate is one repository selected for processing. err is set when the
// repository could not even be resolved.
type candidate struct {
	provider repositories.ProviderRepository
	repo     entities.Repository
	err      error
}

// RunCommand orchestrates the full base image update flow:
// discover repositories -> gate -> locate Dockerfiles -> decide -> submit -> record.
type RunCommand struct {
	providerRegistry *infraRepos.ProviderRegistry
	ledgerFactory    infraRepos.LedgerFactory
}

// NewRunCommand creates a new RunCommand with the given registry and ledger factory.
func NewRunCommand(
	providerRegistry *infraRepos.ProviderRegistry,
	ledgerFactory infraRepos.LedgerFactory,
) *RunCommand {
	return &RunCommand{
		providerRegistry: providerRegistry,
		ledgerFactory:    ledgerFactory,
	}
}

// Execute runs the full update cycle using the provided configuration. Only
// configuration errors are returned; every repository failure ends up in the summary.
func (it *RunCommand) Execute(
	ctx context.Context,
	settings *entities.Settings,
	runOpts RunOptions,
) (entities.RunSummary, error) {
	if runOpts.Verbose {
		logger.SetLevel(logger.DebugLevel)
	}

	target, err := settings.TargetImage()
	if err != nil {
		return entities.RunSummary{}, fmt.Errorf("%w: %w", entities.ErrConfiguration, err)
	}

	ledger := it.ledgerFactory(settings.Ledger)
	if err = ledger.Load(); err != nil {
		return entities.RunSummary{}, err
	}

	candidates, err := it.collectCandidates(ctx, settings, runOpts)
	if err != nil {
		return entities.RunSummary{}, err
	}

	logger.Infof("Processing %d repositories towards %s (concurrency %d)", len(candidates), target, settings.Concurrency)

	results := make([]entities.RepositoryResult, len(candidates))
	group := new(errgroup.Group)
	group.SetLimit(max(settings.Concurrency, 1))

	for i, c := range candidates {
		if ctx.Err() != nil {
			results[i] = cancelledResult(c)
			continue
		}
		group.Go(func() error {
			if ctx.Err() != nil {
				results[i] = cancelledResult(c)
				return nil
			}
			results[i] = it.processRepository(ctx, c, target, ledger, settings, runOpts)
			report(results[i])
			return nil
		})
	}
	_ = group.Wait()

	if flushErr := ledger.Flush(); flushErr != nil {
		logger.Errorf("Failed to flush ledger %q: %v", settings.Ledger, flushErr)
	}

	summary := entities.Summarize(results)
	logger.Infof(
		"Run complete: %d repos, %d submitted (%d created, %d already open), %d skipped, "+
			"%d without tasks, %d planned, %d cancelled, %d failed",
		summary.Total(), summary.Submitted, summary.Created, summary.AlreadyExists, summary.Skipped,
		summary.NoTasksFound, summary.Planned, summary.Cancelled, summary.SubmitFailed,
	)
	if len(summary.FailedRepositories) > 0 {
		logger.Warnf("Failed repositories (eligible for retry): %s", strings.Join(summary.FailedRepositories, ", "))
	}

	return summary, nil
}

// collectCandidates discovers the configured organizations of every provider. A provider
// without organizations resolves the repository index entries one by one instead.
func (it *RunCommand) collectCandidates(
	ctx context.Context,
	settings *entities.Settings,
	runOpts RunOptions,
) ([]candidate, error) {
	var candidates []candidate

	for _, provCfg := range settings.Providers {
		// Skip if CLI filter is set and doesn't match
		if runOpts.ProviderName != "" && provCfg.Type != runOpts.ProviderName {
			continue
		}

		provider, err := it.providerRegistry.Get(provCfg, settings.Retry)
		if err != nil {
			if entities.IsConfigurationError(err) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", entities.ErrConfiguration, err)
		}

		logger.Infof("Processing provider: %s", provider.Name())

		if len(provCfg.Organizations) == 0 {
			candidates = append(candidates, it.resolveIndex(ctx, provider, settings, runOpts)...)
			continue
		}

		for _, org := range provCfg.Organizations {
			// Skip if CLI filter is set and doesn't match
			if runOpts.OrgOverride != "" && org != runOpts.OrgOverride {
				continue
			}

			logger.Infof("Discovering repositories in %q...", org)

			repos, discoverErr := provider.DiscoverRepositories(ctx, org)
			if discoverErr != nil {
				logger.Errorf("Failed to discover repos in %q: %v", org, discoverErr)
				continue
			}

			logger.Infof("Found %d repositories in %q", len(repos), org)
			for _, repo := range repos {
				candidates = append(candidates, candidate{provider: provider, repo: repo})
			}
		}
	}

	return lo.UniqBy(candidates, func(c candidate) string {
		return c.provider.Name() + ":" + strings.ToLower(c.repo.FullName())
	}), nil
}

func (it *RunCommand) resolveIndex(
	ctx context.Context,
	provider repositories.ProviderRepository,
	settings *entities.Settings,
	runOpts RunOptions,
) []candidate {
	names := lo.Keys(settings.Repositories)
	candidates := make([]candidate, 0, len(names))

	for _, fullName := range names {
		namespace, _ := entities.SplitFullName(fullName)
		if runOpts.OrgOverride != "" && namespace != runOpts.OrgOverride {
			continue
		}

		repo, err := provider.GetRepository(ctx, fullName)
		if err != nil {
			owner, name := entities.SplitFullName(fullName)
			repo = entities.Repository{Name: name, Organization: owner, ProviderName: provider.Name()}
		}
		candidates = append(candidates, candidate{provider: provider, repo: repo, err: err})
	}

	return candidates
}

// processRepository drives one repository through the pipeline and returns its terminal result.
func (it *RunCommand) processRepository(
	ctx context.Context,
	c candidate,
	target entities.ImageReference,
	ledger repositories.LedgerRepository,
	settings *entities.Settings,
	runOpts RunOptions,
) entities.RepositoryResult {
	repo := c.repo
	result := entities.RepositoryResult{
		Repository: repo.FullName(),
		Provider:   c.provider.Name(),
		State:      entities.StatePending,
	}
	if errors.Is(c.err, entities.ErrRepositoryNotFound) {
		result.State = entities.StateSkipped
		result.SkipReason = entities.SkipReasonUnknown
		return result
	}
	if c.err != nil {
		return failed(ctx, result, c.err)
	}

	archived, err := c.provider.IsArchived(ctx, repo)
	if err != nil {
		return failed(ctx, result, fmt.Errorf("failed to check archival status: %w", err))
	}
	repo.Archived = archived

	if admitted, reason := entities.AdmitRepository(&repo, settings.Repositories); !admitted {
		result.State = entities.StateSkipped
		result.SkipReason = reason
		return result
	}

	ledgerKey := entities.LedgerKey(result.Provider, repo.FullName())
	if ledger.Contains(ledgerKey, target) {
		result.State = entities.StateSkipped
		result.SkipReason = entities.SkipReasonAlreadyProcessed
		return result
	}

	result.State = entities.StateScanned
	pattern, _ := entities.TrackedPattern(settings.Repositories, repo.FullName())
	locator := NewDockerfileLocator(c.provider, target)

	var tasks []entities.UpdateTask
	for dockerfile, locateErr := range locator.Locate(ctx, repo, pattern) {
		if locateErr != nil {
			return failed(ctx, result, locateErr)
		}
		tasks = append(tasks, entities.BuildUpdateTasks(dockerfile, target, settings.Force)...)
	}

	if len(tasks) == 0 {
		result.State = entities.StateNoTasksFound
		return result
	}

	result.State = entities.StateTasksBuilt
	result.Tasks = len(tasks)

	if runOpts.DryRun {
		for _, task := range tasks {
			logger.Infof("[DRY RUN] %s: %s line %d: %s -> %s",
				repo.FullName(), task.Dockerfile.Path, task.Instruction.Line,
				task.Instruction.Token, task.Replacement())
		}
		result.State = entities.StatePlanned
		return result
	}

	if ctx.Err() != nil {
		result.State = entities.StateCancelled
		return result
	}

	submitter := NewPullRequestSubmitter(c.provider, entities.NewSubmitOptions(settings.PullRequest))
	outcome := submitter.Submit(ctx, repo, target, tasks)
	result.Outcome = &outcome

	if !outcome.Succeeded() {
		result.State = entities.StateSubmitFailed
		result.Err = errors.New(outcome.Reason)
		return result
	}

	if recordErr := ledger.Record(ledgerKey, target); recordErr != nil {
		logger.Warnf("[%s] Failed to record in ledger: %v", repo.FullName(), recordErr)
	}
	result.State = entities.StateSubmitted
	return result
}

func failed(ctx context.Context, result entities.RepositoryResult, err error) entities.RepositoryResult {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		result.State = entities.StateCancelled
		return result
	}
	result.State = entities.StateSubmitFailed
	result.Err = err
	return result
}

func cancelledResult(c candidate) entities.RepositoryResult {
	return entities.RepositoryResult{
		Repository: c.repo.FullName(),
		Provider:   c.provider.Name(),
		State:      entities.StateCancelled,
	}
}

// report emits the structured event of one terminal repository result.
func report(result entities.RepositoryResult) {
	fields := logger.Fields{
		"repository": result.Repository,
		"provider":   result.Provider,
		"state":      result.State.String(),
	}
	if result.SkipReason != entities.SkipReasonNone {
		fields["reason"] = string(result.SkipReason)
	}
	if result.Tasks > 0 {
		fields["tasks"] = result.Tasks
	}
	if result.Outcome != nil {
		fields["outcome"] = result.Outcome.Kind.String()
		if result.Outcome.Branch != "" {
			fields["branch"] = result.Outcome.Branch
		}
		if result.Outcome.PullRequest != nil {
			fields["url"] = result.Outcome.PullRequest.URL
		}
	}
	if result.Err != nil {
		fields["reason"] = result.Err.Error()
	}

	entry := logger.WithFields(fields)
	switch {
	case result.State == entities.StateSubmitFailed:
		entry.Error("Repository failed")
	case result.State == entities.StateSkipped && result.SkipReason == entities.SkipReasonArchived:
		entry.Info("Skipping archived repository")
	case result.State == entities.StateSkipped && result.SkipReason == entities.SkipReasonUnknown:
		entry.Warn("Skipping repository that no longer exists")
	case result.State == entities.StateSkipped:
		entry.Debug("Repository filtered out")
	default:
		entry.Info("Repository processed")
	}
}
