//go:build unit

package commands_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/imagebump/internal/domain/commands"
	"github.com/rios0rios0/imagebump/internal/domain/entities"
	"github.com/rios0rios0/imagebump/test/domain/entitybuilders"
	doubles "github.com/rios0rios0/imagebump/test/infrastructure/repositorydoubles"
)

func collect(t *testing.T, ctx context.Context, locator *commands.DockerfileLocator, pattern string) ([]string, error) {
	t.Helper()
	repo := entitybuilders.NewRepositoryBuilder().BuildRepository()

	var paths []string
	for dockerfile, err := range locator.Locate(ctx, repo, pattern) {
		if err != nil {
			return paths, err
		}
		paths = append(paths, dockerfile.Path)
	}
	return paths, nil
}

func TestMatchesDockerfile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filePath string
		pattern  string
		expected bool
	}{
		{name: "should match a root Dockerfile without a pattern", filePath: "Dockerfile", expected: true},
		{name: "should match a nested suffixed Dockerfile", filePath: "build/Dockerfile.prod", expected: true},
		{name: "should match a .dockerfile extension", filePath: "app.dockerfile", expected: true},
		{name: "should match names case-insensitively", filePath: "docker/DOCKERFILE", expected: true},
		{name: "should not match other files", filePath: "README.md", expected: false},
		{name: "should not match a prefix lookalike", filePath: "Dockerfiles/notes.txt", expected: false},
		{name: "should match an exact path", filePath: "Dockerfile", pattern: "Dockerfile", expected: true},
		{name: "should ignore a leading slash", filePath: "/Dockerfile", pattern: "Dockerfile", expected: true},
		{name: "should not match the same name in another directory", filePath: "other/Dockerfile", pattern: "Dockerfile", expected: false},
		{name: "should match a glob in one directory", filePath: "docker/api.Dockerfile", pattern: "docker/*.Dockerfile", expected: true},
		{name: "should not descend with a single-level glob", filePath: "docker/sub/api.Dockerfile", pattern: "docker/*.Dockerfile", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// given
			filePath, pattern := tt.filePath, tt.pattern

			// when
			result := commands.MatchesDockerfile(filePath, pattern)

			// then
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestDockerfileLocatorLocate(t *testing.T) {
	t.Parallel()

	t.Run("should yield only Dockerfiles referencing the target image", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &doubles.SpyProviderRepository{
			Files: []entities.File{
				{Path: "Dockerfile"},
				{Path: "Dockerfile.dev"},
				{Path: "Dockerfile.d", IsDir: true},
				{Path: "README.md"},
			},
			FileContents: map[string]string{
				"Dockerfile":     "FROM base/image:1.0\n",
				"Dockerfile.dev": "FROM golang:1.22\n",
			},
		}
		locator := commands.NewDockerfileLocator(spy, target)

		// when
		paths, err := collect(t, context.Background(), locator, "")

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"Dockerfile"}, paths)
		assert.Equal(t, []string{"Dockerfile", "Dockerfile.dev"}, spy.ReadPaths)
	})

	t.Run("should skip unreadable files when another one is located", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &doubles.SpyProviderRepository{
			Files:           []entities.File{{Path: "a/Dockerfile"}, {Path: "b/Dockerfile"}},
			FileContents:    map[string]string{"b/Dockerfile": "FROM base/image:1.0\n"},
			FileContentErrs: map[string]error{"a/Dockerfile": errors.New("404 not found")},
		}
		locator := commands.NewDockerfileLocator(spy, target)

		// when
		paths, err := collect(t, context.Background(), locator, "")

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"b/Dockerfile"}, paths)
	})

	t.Run("should fail when no candidate file could be read", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &doubles.SpyProviderRepository{
			Files: []entities.File{{Path: "a/Dockerfile"}, {Path: "b/Dockerfile"}},
			FileContentErrs: map[string]error{
				"a/Dockerfile": errors.New("404 not found"),
				"b/Dockerfile": errors.New("403 forbidden"),
			},
		}
		locator := commands.NewDockerfileLocator(spy, target)

		// when
		paths, err := collect(t, context.Background(), locator, "")

		// then
		require.ErrorIs(t, err, commands.ErrNoDockerfileReadable)
		assert.Contains(t, err.Error(), "b/Dockerfile")
		assert.Empty(t, paths)
	})

	t.Run("should yield an error when the tree cannot be listed", func(t *testing.T) {
		t.Parallel()

		// given
		listErr := errors.New("500 internal error")
		spy := &doubles.SpyProviderRepository{ListFileErr: listErr}
		locator := commands.NewDockerfileLocator(spy, target)

		// when
		_, err := collect(t, context.Background(), locator, "")

		// then
		require.ErrorIs(t, err, listErr)
	})

	t.Run("should not fetch anything until ranged over", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &doubles.SpyProviderRepository{}
		locator := commands.NewDockerfileLocator(spy, target)
		repo := entitybuilders.NewRepositoryBuilder().BuildRepository()

		// when
		_ = locator.Locate(context.Background(), repo, "")

		// then
		assert.Empty(t, spy.Calls)
	})

	t.Run("should scan afresh each time the sequence is ranged over", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &doubles.SpyProviderRepository{
			Files:        []entities.File{{Path: "Dockerfile"}},
			FileContents: map[string]string{"Dockerfile": "FROM base/image:1.0\n"},
		}
		locator := commands.NewDockerfileLocator(spy, target)

		// when
		first, firstErr := collect(t, context.Background(), locator, "")
		second, secondErr := collect(t, context.Background(), locator, "")

		// then
		require.NoError(t, firstErr)
		require.NoError(t, secondErr)
		assert.Equal(t, first, second)
		assert.Equal(t, 2, spy.CallCount("ListFiles"))
	})

	t.Run("should stop reading when the consumer breaks early", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &doubles.SpyProviderRepository{
			Files: []entities.File{{Path: "a/Dockerfile"}, {Path: "b/Dockerfile"}},
			FileContents: map[string]string{
				"a/Dockerfile": "FROM base/image:1.0\n",
				"b/Dockerfile": "FROM base/image:1.0\n",
			},
		}
		locator := commands.NewDockerfileLocator(spy, target)
		repo := entitybuilders.NewRepositoryBuilder().BuildRepository()

		// when
		for range locator.Locate(context.Background(), repo, "") {
			break
		}

		// then
		assert.Equal(t, []string{"a/Dockerfile"}, spy.ReadPaths)
	})

	t.Run("should restrict the scan to the index pattern", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &doubles.SpyProviderRepository{
			Files: []entities.File{{Path: "Dockerfile"}, {Path: "docker/api.Dockerfile"}},
			FileContents: map[string]string{
				"Dockerfile":            "FROM base/image:1.0\n",
				"docker/api.Dockerfile": "FROM base/image:1.0\n",
			},
		}
		locator := commands.NewDockerfileLocator(spy, target)

		// when
		paths, err := collect(t, context.Background(), locator, "docker/*.Dockerfile")

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"docker/api.Dockerfile"}, paths)
	})

	t.Run("should yield the context error when cancelled", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &doubles.SpyProviderRepository{
			Files:        []entities.File{{Path: "Dockerfile"}},
			FileContents: map[string]string{"Dockerfile": "FROM base/image:1.0\n"},
		}
		locator := commands.NewDockerfileLocator(spy, target)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// when
		_, err := collect(t, ctx, locator, "")

		// then
		require.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, spy.ReadPaths)
	})
}
