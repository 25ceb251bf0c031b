package commands

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"path"
	"strings"

	"github.com/hashicorp/go-multierror"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/imagebump/internal/domain/entities"
	"github.com/rios0rios0/imagebump/internal/domain/repositories"
)

// ErrNoDockerfileReadable is returned when every candidate file failed to read.
var ErrNoDockerfileReadable = errors.New("no candidate Dockerfile could be read")

// DockerfileLocator finds the Dockerfiles of a repository that reference the tracked image.
type DockerfileLocator struct {
	provider repositories.ProviderRepository
	target   entities.ImageReference
}

// NewDockerfileLocator creates a locator reading through provider and matching target.
func NewDockerfileLocator(
	provider repositories.ProviderRepository,
	target entities.ImageReference,
) *DockerfileLocator {
	return &DockerfileLocator{provider: provider, target: target}
}

// Locate yields every Dockerfile of repo matching pattern whose FROM lines reference
// the target image. Nothing is fetched until the sequence is ranged over, and ranging
// again starts a fresh scan. Files that fail to read are skipped; an error is yielded
// only when the tree cannot be listed or no file could be located because of read failures.
func (it *DockerfileLocator) Locate(
	ctx context.Context,
	repo entities.Repository,
	pattern string,
) iter.Seq2[entities.DockerfilePath, error] {
	return func(yield func(entities.DockerfilePath, error) bool) {
		files, err := it.provider.ListFiles(ctx, repo)
		if err != nil {
			yield(entities.DockerfilePath{}, fmt.Errorf("failed to list files of %s: %w", repo.FullName(), err))
			return
		}

		var readErrs *multierror.Error
		located := 0

		for _, file := range files {
			if file.IsDir || !MatchesDockerfile(file.Path, pattern) {
				continue
			}
			if ctx.Err() != nil {
				yield(entities.DockerfilePath{}, ctx.Err())
				return
			}

			content, readErr := it.provider.GetFileContent(ctx, repo, file.Path)
			if readErr != nil {
				logger.Warnf("[%s] Skipping unreadable file %q: %v", repo.FullName(), file.Path, readErr)
				readErrs = multierror.Append(readErrs, fmt.Errorf("%s: %w", file.Path, readErr))
				continue
			}

			instructions := entities.FindFromInstructions(content)
			if !entities.ReferencesImage(instructions, it.target) {
				continue
			}

			located++
			if !yield(entities.DockerfilePath{
				Repository:   repo,
				Path:         file.Path,
				RawContent:   content,
				Instructions: instructions,
			}, nil) {
				return
			}
		}

		if located == 0 && readErrs.ErrorOrNil() != nil {
			yield(entities.DockerfilePath{}, fmt.Errorf("%w: %w", ErrNoDockerfileReadable, readErrs))
		}
	}
}

// MatchesDockerfile reports whether filePath is a candidate for the index pattern.
// An empty pattern matches the usual Dockerfile names anywhere in the tree.
func MatchesDockerfile(filePath, pattern string) bool {
	filePath = strings.TrimPrefix(filePath, "/")
	pattern = strings.TrimPrefix(strings.TrimSpace(pattern), "/")

	if pattern == "" {
		return looksLikeDockerfile(path.Base(filePath))
	}
	if filePath == pattern {
		return true
	}
	matched, err := path.Match(pattern, filePath)
	return err == nil && matched
}

func looksLikeDockerfile(name string) bool {
	lower := strings.ToLower(name)
	return lower == "dockerfile" ||
		strings.HasPrefix(lower, "dockerfile.") ||
		strings.HasSuffix(lower, ".dockerfile")
}
