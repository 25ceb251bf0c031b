package commands

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	logger "github.com/sirupsen/logrus"
	"github.com/valyala/fasttemplate"

	"github.com/rios0rios0/imagebump/internal/domain/entities"
	"github.com/rios0rios0/imagebump/internal/domain/repositories"
)

var unsafeBranchChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

const headsPrefix = "refs/heads/"

// PullRequestSubmitter opens one pull request per repository carrying the edits of its
// update tasks. Submissions are recognised across runs by the target fingerprint.
type PullRequestSubmitter struct {
	provider repositories.ProviderRepository
	options  entities.SubmitOptions
	newID    func() string
}

// NewPullRequestSubmitter creates a submitter writing through provider.
func NewPullRequestSubmitter(
	provider repositories.ProviderRepository,
	options entities.SubmitOptions,
) *PullRequestSubmitter {
	return &PullRequestSubmitter{
		provider: provider,
		options:  options,
		newID:    func() string { return uuid.NewString() },
	}
}

// Submit checks for an open pull request already carrying the fingerprint of target, and
// otherwise creates a branch, commits the edited files and opens the pull request.
// A branch left behind by a failed commit or pull request is deleted.
func (it *PullRequestSubmitter) Submit(
	ctx context.Context,
	repo entities.Repository,
	target entities.ImageReference,
	tasks []entities.UpdateTask,
) entities.Outcome {
	if len(tasks) == 0 {
		return entities.FailedOutcome("no update tasks to submit")
	}

	open, err := it.provider.ListOpenPullRequests(ctx, repo)
	if err != nil {
		return entities.FailedOutcome(fmt.Sprintf("failed to list open pull requests: %v", err))
	}
	for _, pr := range open {
		if pr.CarriesFingerprint(target) {
			existing := pr
			return entities.AlreadyExistsOutcome(&existing)
		}
	}

	changes, err := it.buildChanges(ctx, repo, tasks)
	if err != nil {
		return entities.FailedOutcome(err.Error())
	}

	branch := it.branchName(target)
	ref, err := it.provider.CreateBranch(ctx, repo, branch, repo.DefaultBranch)
	if err != nil {
		if errors.Is(err, entities.ErrBranchExists) {
			return entities.FailedOutcome(fmt.Sprintf("branch %q already exists", branch))
		}
		return entities.FailedOutcome(fmt.Sprintf("failed to create branch: %v", err))
	}

	title := it.title(tasks)
	if _, err = it.provider.CommitFiles(ctx, repo, ref, title, changes); err != nil {
		it.cleanup(ctx, repo, branch)
		return entities.FailedOutcome(fmt.Sprintf("failed to commit changes: %v", err))
	}

	pr, err := it.provider.CreatePullRequest(ctx, repo, entities.PullRequestInput{
		SourceBranch: ref,
		TargetBranch: repo.DefaultBranch,
		Title:        title,
		Description:  it.description(target, tasks),
	})
	if err != nil {
		if opened, found := it.findOpened(ctx, repo, target, branch); found {
			logger.Warnf("[%s] Pull request creation reported %v but it was opened", repo.FullName(), err)
			return entities.CreatedOutcome(branch, opened)
		}
		it.cleanup(ctx, repo, branch)
		return entities.FailedOutcome(fmt.Sprintf("failed to open pull request: %v", err))
	}

	return entities.CreatedOutcome(branch, pr)
}

// buildChanges applies the tasks file by file, plus the changelog entry when enabled.
func (it *PullRequestSubmitter) buildChanges(
	ctx context.Context,
	repo entities.Repository,
	tasks []entities.UpdateTask,
) ([]entities.FileChange, error) {
	byPath := lo.GroupBy(tasks, func(task entities.UpdateTask) string { return task.Dockerfile.Path })
	paths := lo.Keys(byPath)
	slices.Sort(paths)

	changes := make([]entities.FileChange, 0, len(paths)+1)
	for _, filePath := range paths {
		fileTasks := byPath[filePath]
		content, err := entities.ApplyUpdateTasks(fileTasks[0].Dockerfile.RawContent, fileTasks)
		if err != nil {
			return nil, fmt.Errorf("failed to edit %q: %w", filePath, err)
		}
		changes = append(changes, entities.FileChange{Path: filePath, Content: content})
	}

	if it.options.Changelog {
		if change, ok := it.changelogChange(ctx, repo, tasks); ok {
			changes = append(changes, change)
		}
	}

	return changes, nil
}

func (it *PullRequestSubmitter) changelogChange(
	ctx context.Context,
	repo entities.Repository,
	tasks []entities.UpdateTask,
) (entities.FileChange, bool) {
	content, err := it.provider.GetFileContent(ctx, repo, entities.ChangelogPath)
	if err != nil {
		logger.Debugf("[%s] No %s to amend: %v", repo.FullName(), entities.ChangelogPath, err)
		return entities.FileChange{}, false
	}

	updated, ok := entities.AddChangelogEntries(content, []string{entities.BaseImageChangelogEntry(tasks)})
	if !ok {
		return entities.FileChange{}, false
	}
	return entities.FileChange{Path: entities.ChangelogPath, Content: updated}, true
}

// branchName is unique per submission so a stale branch never blocks a new attempt.
func (it *PullRequestSubmitter) branchName(target entities.ImageReference) string {
	familiar := target.Familiar()
	image := strings.Trim(unsafeBranchChars.ReplaceAllString(familiar.Repository, "-"), "-")
	tag := strings.Trim(unsafeBranchChars.ReplaceAllString(familiar.Tag, "-"), "-")
	suffix := it.newID()
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("%s/%s-%s-%s", strings.TrimSuffix(it.options.BranchPrefix, "/"), image, tag, suffix)
}

func (it *PullRequestSubmitter) title(tasks []entities.UpdateTask) string {
	target := tasks[0].Target
	template := it.options.TitleTemplate
	if template == "" {
		template = entities.DefaultTitleTemplate
	}
	return fasttemplate.ExecuteStringStd(template, "{{", "}}", map[string]interface{}{
		"image":     target.Familiar().Repository,
		"tag":       target.Tag,
		"direction": TaskDirection(tasks),
	})
}

func (it *PullRequestSubmitter) description(target entities.ImageReference, tasks []entities.UpdateTask) string {
	var body strings.Builder
	fmt.Fprintf(&body, "This pull request moves the base image `%s` to `%s`.\n\n", target.Familiar().Repository, target.Tag)
	body.WriteString("| File | Line | From | To |\n")
	body.WriteString("|------|------|------|----|\n")
	for _, task := range tasks {
		fmt.Fprintf(&body, "| `%s` | %d | `%s` | `%s` |\n",
			task.Dockerfile.Path, task.Instruction.Line, task.Instruction.Token, task.Replacement())
	}
	if lo.SomeBy(tasks, func(task entities.UpdateTask) bool { return task.Forced }) {
		body.WriteString("\nForced update: lines already at the target tag were re-stamped.\n")
	}
	body.WriteString("\n")
	body.WriteString(entities.Fingerprint(target))
	body.WriteString("\n")
	return body.String()
}

// findOpened looks for a pull request from branch carrying the fingerprint of target.
// A create call whose response was lost, or a retry of one that already succeeded,
// reports an error even though the pull request exists.
func (it *PullRequestSubmitter) findOpened(
	ctx context.Context,
	repo entities.Repository,
	target entities.ImageReference,
	branch string,
) (*entities.PullRequest, bool) {
	open, err := it.provider.ListOpenPullRequests(context.WithoutCancel(ctx), repo)
	if err != nil {
		logger.Debugf("[%s] Failed to look for the opened pull request: %v", repo.FullName(), err)
		return nil, false
	}
	for _, pr := range open {
		if pr.CarriesFingerprint(target) && strings.TrimPrefix(pr.SourceBranch, headsPrefix) == branch {
			opened := pr
			return &opened, true
		}
	}
	return nil, false
}

// cleanup deletes a branch created by a submission that did not complete. It runs
// even when ctx is already cancelled.
func (it *PullRequestSubmitter) cleanup(ctx context.Context, repo entities.Repository, branch string) {
	if err := it.provider.DeleteBranch(context.WithoutCancel(ctx), repo, branch); err != nil {
		logger.Warnf("[%s] Failed to delete branch %q: %v", repo.FullName(), branch, err)
	}
}

// TaskDirection summarises the tag moves of tasks: a single direction when all
// tasks agree, "change" otherwise.
func TaskDirection(tasks []entities.UpdateTask) string {
	directions := lo.Uniq(lo.Map(tasks, func(task entities.UpdateTask, _ int) string {
		return entities.TagDirection(task.Current.Tag, task.Target.Tag)
	}))
	if len(directions) == 1 {
		return directions[0]
	}
	return "change"
}
