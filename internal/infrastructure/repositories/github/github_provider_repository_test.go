//go:build unit

package github //nolint:testpackage // tests unexported functions

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	json "github.com/goccy/go-json"
	gh "github.com/google/go-github/v66/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/imagebump/internal/domain/entities"
)

func newTestProvider(t *testing.T, mux *http.ServeMux) *GitHubProviderRepository {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	provider, err := NewProviderRepository(entities.ProviderConfig{Type: "github", Token: "ghp_test", BaseURL: server.URL})
	require.NoError(t, err)
	return provider.(*GitHubProviderRepository)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func testRepo() entities.Repository {
	return entities.Repository{ID: "1", Name: "svc", Organization: "acme", DefaultBranch: "refs/heads/main"}
}

func TestGitHubProviderRepository(t *testing.T) {
	t.Parallel()

	t.Run("should return github as its name", func(t *testing.T) {
		t.Parallel()

		// given
		provider, err := NewProviderRepository(entities.ProviderConfig{Token: "token"})
		require.NoError(t, err)

		// when
		name := provider.Name()

		// then
		assert.Equal(t, "github", name)
	})

	t.Run("should discover every page of an organization", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		var serverURL string
		mux.HandleFunc("GET /api/v3/orgs/acme/repos", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer ghp_test", r.Header.Get("Authorization"))
			if r.URL.Query().Get("page") == "2" {
				writeJSON(w, http.StatusOK, `[{"id":2,"name":"api","owner":{"login":"acme"},"default_branch":"develop","archived":true}]`)
				return
			}
			w.Header().Set("Link", fmt.Sprintf(`<%s/api/v3/orgs/acme/repos?page=2>; rel="next"`, serverURL))
			writeJSON(w, http.StatusOK, `[{"id":1,"name":"svc","owner":{"login":"acme"},"default_branch":"main"}]`)
		})
		server := httptest.NewServer(mux)
		t.Cleanup(server.Close)
		serverURL = server.URL
		provider, err := NewProviderRepository(entities.ProviderConfig{Token: "ghp_test", BaseURL: server.URL})
		require.NoError(t, err)

		// when
		repos, err := provider.DiscoverRepositories(context.Background(), "acme")

		// then
		require.NoError(t, err)
		require.Len(t, repos, 2)
		assert.Equal(t, entities.Repository{
			ID: "1", Name: "svc", Organization: "acme", DefaultBranch: "refs/heads/main", ProviderName: "github",
		}, repos[0])
		assert.Equal(t, "refs/heads/develop", repos[1].DefaultBranch)
		assert.True(t, repos[1].Archived)
	})

	t.Run("should fall back to user repositories when the organization does not exist", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/v3/orgs/solo/repos", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusNotFound, `{"message":"Not Found"}`)
		})
		mux.HandleFunc("GET /api/v3/users/solo/repos", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "owner", r.URL.Query().Get("type"))
			writeJSON(w, http.StatusOK, `[{"id":5,"name":"dotfiles","owner":{"login":"solo"}}]`)
		})
		provider := newTestProvider(t, mux)

		// when
		repos, err := provider.DiscoverRepositories(context.Background(), "solo")

		// then
		require.NoError(t, err)
		require.Len(t, repos, 1)
		assert.Equal(t, "solo/dotfiles", repos[0].FullName())
	})

	t.Run("should read the archived flag", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/v3/repos/acme/svc", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"id":1,"name":"svc","owner":{"login":"acme"},"archived":true}`)
		})
		provider := newTestProvider(t, mux)

		// when
		archived, err := provider.IsArchived(context.Background(), testRepo())

		// then
		require.NoError(t, err)
		assert.True(t, archived)
	})

	t.Run("should list the recursive tree of the default branch", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/v3/repos/acme/svc/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "1", r.URL.Query().Get("recursive"))
			writeJSON(w, http.StatusOK, `{"sha":"root","tree":[
				{"path":"Dockerfile","type":"blob","sha":"a1"},
				{"path":"docker","type":"tree","sha":"b2"},
				{"path":"docker/api.Dockerfile","type":"blob","sha":"c3"}
			]}`)
		})
		provider := newTestProvider(t, mux)

		// when
		files, err := provider.ListFiles(context.Background(), testRepo())

		// then
		require.NoError(t, err)
		assert.Equal(t, []entities.File{
			{Path: "Dockerfile", ObjectID: "a1"},
			{Path: "docker", ObjectID: "b2", IsDir: true},
			{Path: "docker/api.Dockerfile", ObjectID: "c3"},
		}, files)
	})

	t.Run("should walk directory by directory when the recursive tree is truncated", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/v3/repos/acme/svc/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("recursive") != "" {
				writeJSON(w, http.StatusOK, `{"sha":"root","truncated":true,"tree":[
					{"path":"README.md","type":"blob","sha":"a1"}
				]}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"sha":"root","tree":[
				{"path":"README.md","type":"blob","sha":"a1"},
				{"path":"docker","type":"tree","sha":"b2"}
			]}`)
		})
		mux.HandleFunc("GET /api/v3/repos/acme/svc/git/trees/b2", func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.URL.Query().Get("recursive"))
			writeJSON(w, http.StatusOK, `{"sha":"b2","tree":[
				{"path":"api.Dockerfile","type":"blob","sha":"c3"}
			]}`)
		})
		provider := newTestProvider(t, mux)

		// when
		files, err := provider.ListFiles(context.Background(), testRepo())

		// then
		require.NoError(t, err)
		assert.Equal(t, []entities.File{
			{Path: "README.md", ObjectID: "a1"},
			{Path: "docker", ObjectID: "b2", IsDir: true},
			{Path: "docker/api.Dockerfile", ObjectID: "c3"},
		}, files)
	})

	t.Run("should fail instead of returning a partial listing", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/v3/repos/acme/svc/git/trees/main", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"sha":"root","truncated":true,"tree":[
				{"path":"README.md","type":"blob","sha":"a1"}
			]}`)
		})
		provider := newTestProvider(t, mux)

		// when
		files, err := provider.ListFiles(context.Background(), testRepo())

		// then
		require.Error(t, err)
		assert.Nil(t, files)
		assert.False(t, entities.IsTransient(err))
	})

	t.Run("should report a missing repository as ErrRepositoryNotFound", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/v3/repos/acme/deleted", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusNotFound, `{"message":"Not Found"}`)
		})
		provider := newTestProvider(t, mux)

		// when
		_, err := provider.GetRepository(context.Background(), "acme/deleted")

		// then
		require.ErrorIs(t, err, entities.ErrRepositoryNotFound)
		assert.False(t, entities.IsTransient(err))
	})

	t.Run("should not report an unreachable repository as missing", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/v3/repos/acme/svc", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusServiceUnavailable, `{"message":"Service Unavailable"}`)
		})
		provider := newTestProvider(t, mux)

		// when
		_, err := provider.GetRepository(context.Background(), "acme/svc")

		// then
		require.Error(t, err)
		assert.NotErrorIs(t, err, entities.ErrRepositoryNotFound)
		assert.True(t, entities.IsTransient(err))
	})

	t.Run("should decode file content at the default branch", func(t *testing.T) {
		t.Parallel()

		// given
		content := "FROM base/image:1.0\n"
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/v3/repos/acme/svc/contents/docker/Dockerfile", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "main", r.URL.Query().Get("ref"))
			writeJSON(w, http.StatusOK, fmt.Sprintf(`{"type":"file","encoding":"base64","content":%q}`,
				base64.StdEncoding.EncodeToString([]byte(content))))
		})
		provider := newTestProvider(t, mux)

		// when
		result, err := provider.GetFileContent(context.Background(), testRepo(), "docker/Dockerfile")

		// then
		require.NoError(t, err)
		assert.Equal(t, content, result)
	})

	t.Run("should list open pull requests with their bodies", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/v3/repos/acme/svc/pulls", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "open", r.URL.Query().Get("state"))
			writeJSON(w, http.StatusOK, `[{"number":7,"title":"bump","body":"marker","html_url":"https://github.com/acme/svc/pull/7","state":"open","head":{"ref":"chore/x"}}]`)
		})
		provider := newTestProvider(t, mux)

		// when
		prs, err := provider.ListOpenPullRequests(context.Background(), testRepo())

		// then
		require.NoError(t, err)
		assert.Equal(t, []entities.PullRequest{{
			ID: 7, Title: "bump", Body: "marker", URL: "https://github.com/acme/svc/pull/7",
			SourceBranch: "chore/x", Status: "open",
		}}, prs)
	})

	t.Run("should create a branch from the tip of the base branch", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/v3/repos/acme/svc/git/ref/heads/main", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"ref":"refs/heads/main","object":{"sha":"base123","type":"commit"}}`)
		})
		var created map[string]string
		mux.HandleFunc("POST /api/v3/repos/acme/svc/git/refs", func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&created))
			writeJSON(w, http.StatusCreated, `{"ref":"refs/heads/chore/x","object":{"sha":"base123"}}`)
		})
		provider := newTestProvider(t, mux)

		// when
		ref, err := provider.CreateBranch(context.Background(), testRepo(), "chore/x", "refs/heads/main")

		// then
		require.NoError(t, err)
		assert.Equal(t, "refs/heads/chore/x", ref)
		assert.Equal(t, map[string]string{"ref": "refs/heads/chore/x", "sha": "base123"}, created)
	})

	t.Run("should report an existing branch as ErrBranchExists", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/v3/repos/acme/svc/git/ref/heads/main", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"ref":"refs/heads/main","object":{"sha":"base123"}}`)
		})
		mux.HandleFunc("POST /api/v3/repos/acme/svc/git/refs", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusUnprocessableEntity, `{"message":"Reference already exists"}`)
		})
		provider := newTestProvider(t, mux)

		// when
		_, err := provider.CreateBranch(context.Background(), testRepo(), "chore/x", "refs/heads/main")

		// then
		require.ErrorIs(t, err, entities.ErrBranchExists)
		assert.False(t, entities.IsTransient(err))
	})

	t.Run("should commit every change in one tree and move the branch", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/v3/repos/acme/svc/git/ref/heads/chore/x", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"ref":"refs/heads/chore/x","object":{"sha":"parent1"}}`)
		})
		mux.HandleFunc("GET /api/v3/repos/acme/svc/git/commits/parent1", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"sha":"parent1","tree":{"sha":"tree0"}}`)
		})
		var treeRequest struct {
			BaseTree string `json:"base_tree"`
			Tree     []struct {
				Path    string `json:"path"`
				Mode    string `json:"mode"`
				Content string `json:"content"`
			} `json:"tree"`
		}
		mux.HandleFunc("POST /api/v3/repos/acme/svc/git/trees", func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&treeRequest))
			writeJSON(w, http.StatusCreated, `{"sha":"tree1"}`)
		})
		var commitRequest struct {
			Message string   `json:"message"`
			Tree    string   `json:"tree"`
			Parents []string `json:"parents"`
		}
		mux.HandleFunc("POST /api/v3/repos/acme/svc/git/commits", func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&commitRequest))
			writeJSON(w, http.StatusCreated, `{"sha":"commit1"}`)
		})
		var moved map[string]interface{}
		mux.HandleFunc("PATCH /api/v3/repos/acme/svc/git/refs/heads/chore/x", func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&moved))
			writeJSON(w, http.StatusOK, `{"ref":"refs/heads/chore/x","object":{"sha":"commit1"}}`)
		})
		provider := newTestProvider(t, mux)
		changes := []entities.FileChange{
			{Path: "Dockerfile", Content: "FROM base/image:2.0\n"},
			{Path: "/CHANGELOG.md", Content: "# Changelog\n"},
		}

		// when
		sha, err := provider.CommitFiles(context.Background(), testRepo(), "refs/heads/chore/x", "bump", changes)

		// then
		require.NoError(t, err)
		assert.Equal(t, "commit1", sha)
		assert.Equal(t, "tree0", treeRequest.BaseTree)
		require.Len(t, treeRequest.Tree, 2)
		assert.Equal(t, "Dockerfile", treeRequest.Tree[0].Path)
		assert.Equal(t, "100644", treeRequest.Tree[0].Mode)
		assert.Equal(t, "FROM base/image:2.0\n", treeRequest.Tree[0].Content)
		assert.Equal(t, "CHANGELOG.md", treeRequest.Tree[1].Path)
		assert.Equal(t, "bump", commitRequest.Message)
		assert.Equal(t, "tree1", commitRequest.Tree)
		assert.Equal(t, []string{"parent1"}, commitRequest.Parents)
		assert.Equal(t, "commit1", moved["sha"])
		assert.Equal(t, false, moved["force"])
	})

	t.Run("should open a pull request between short branch names", func(t *testing.T) {
		t.Parallel()

		// given
		var request map[string]interface{}
		mux := http.NewServeMux()
		mux.HandleFunc("POST /api/v3/repos/acme/svc/pulls", func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&request))
			writeJSON(w, http.StatusCreated, `{"number":9,"title":"bump","body":"desc","html_url":"https://github.com/acme/svc/pull/9","state":"open","head":{"ref":"chore/x"}}`)
		})
		provider := newTestProvider(t, mux)

		// when
		pr, err := provider.CreatePullRequest(context.Background(), testRepo(), entities.PullRequestInput{
			SourceBranch: "refs/heads/chore/x",
			TargetBranch: "refs/heads/main",
			Title:        "bump",
			Description:  "desc",
		})

		// then
		require.NoError(t, err)
		assert.Equal(t, 9, pr.ID)
		assert.Equal(t, "https://github.com/acme/svc/pull/9", pr.URL)
		assert.Equal(t, "chore/x", request["head"])
		assert.Equal(t, "main", request["base"])
		assert.Equal(t, "desc", request["body"])
		assert.Equal(t, true, request["maintainer_can_modify"])
	})

	t.Run("should treat deleting a missing branch as done", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("DELETE /api/v3/repos/acme/svc/git/refs/heads/chore/x", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusNotFound, `{"message":"Reference does not exist"}`)
		})
		provider := newTestProvider(t, mux)

		// when
		err := provider.DeleteBranch(context.Background(), testRepo(), "chore/x")

		// then
		require.NoError(t, err)
	})

	t.Run("should mark server errors as transient", func(t *testing.T) {
		t.Parallel()

		// given
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/v3/repos/acme/svc", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusBadGateway, `{"message":"Bad Gateway"}`)
		})
		provider := newTestProvider(t, mux)

		// when
		_, err := provider.IsArchived(context.Background(), testRepo())

		// then
		require.Error(t, err)
		assert.True(t, entities.IsTransient(err))
	})
}

func TestClassify(t *testing.T) {
	t.Parallel()

	response := func(status int) *http.Response {
		return &http.Response{StatusCode: status, Request: &http.Request{Method: http.MethodGet, URL: &url.URL{Path: "/repos/acme/svc"}}}
	}

	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{name: "should retry primary rate limits", err: &gh.RateLimitError{Response: response(http.StatusForbidden)}, transient: true},
		{name: "should retry secondary rate limits", err: &gh.AbuseRateLimitError{Response: response(http.StatusForbidden)}, transient: true},
		{name: "should retry too many requests", err: &gh.ErrorResponse{Response: response(http.StatusTooManyRequests)}, transient: true},
		{name: "should retry server errors", err: &gh.ErrorResponse{Response: response(http.StatusServiceUnavailable)}, transient: true},
		{name: "should not retry client errors", err: &gh.ErrorResponse{Response: response(http.StatusNotFound)}, transient: false},
		{name: "should not retry plain errors", err: errors.New("boom"), transient: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// given
			err := fmt.Errorf("failed to call: %w", tt.err)

			// when
			result := classify(err)

			// then
			assert.Equal(t, tt.transient, entities.IsTransient(result))
			assert.ErrorIs(t, result, tt.err)
		})
	}
}
