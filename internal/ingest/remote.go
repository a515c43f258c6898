package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	plagerrors "github.com/standardbeagle/plagscan/internal/errors"
	"github.com/standardbeagle/plagscan/internal/orchestrate"
	"github.com/standardbeagle/plagscan/internal/parser"
)

const (
	maxFilesPerRepo  = 100
	maxRepoFileBytes = 200 * 1024
	repoAPITimeout   = 30 * time.Second
	rawFileTimeout   = 15 * time.Second
)

var ignoredRepoDirs = map[string]bool{
	".git": true, "venv": true, "env": true, ".venv": true, ".env": true,
	"__pycache__": true, "node_modules": true, ".tox": true,
	"dist": true, "build": true, "egg-info": true,
	".mypy_cache": true, ".pytest_cache": true,
}

var repoURLPattern = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)`)

// RepoFetcher pulls the supported-language files out of a public GitHub
// repository over the REST API, entirely in memory. An optional token
// (GITHUB_TOKEN) raises the API's otherwise punishing 60-request/hour
// anonymous rate limit to 5000/hour.
type RepoFetcher struct {
	client *http.Client
	token  string
}

// NewRepoFetcher builds a fetcher that reads GITHUB_TOKEN from the
// environment if present.
func NewRepoFetcher() *RepoFetcher {
	return &RepoFetcher{
		client: &http.Client{Timeout: repoAPITimeout},
		token:  os.Getenv("GITHUB_TOKEN"),
	}
}

func (f *RepoFetcher) headers(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if f.token != "" {
		req.Header.Set("Authorization", "token "+f.token)
	}
}

// ParseRepoURL extracts (owner, repo) from any of the URL shapes a user
// might paste: the plain repo page, a .git clone URL, or a /tree/branch link.
func ParseRepoURL(url string) (owner, repo string, err error) {
	url = strings.TrimSuffix(strings.TrimSuffix(strings.TrimSpace(url), "/"), ".git")
	match := repoURLPattern.FindStringSubmatch(url)
	if match == nil {
		return "", "", plagerrors.NewInputError(
			fmt.Sprintf("invalid GitHub URL %q; expected https://github.com/owner/repo", url))
	}
	return match[1], match[2], nil
}

type repoMeta struct {
	DefaultBranch string `json:"default_branch"`
}

func (f *RepoFetcher) defaultBranch(ctx context.Context, owner, repo string) (string, error) {
	url := fmt.Sprintf("https://api.github.com/repos/%s/%s", owner, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", plagerrors.NewExternalFailure("github", err)
	}
	f.headers(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", plagerrors.NewExternalFailure("github", err)
	}
	defer resp.Body.Close()
	if err := checkRateLimit(resp); err != nil {
		return "", err
	}
	if resp.StatusCode == http.StatusNotFound {
		return "", plagerrors.NewInputError(fmt.Sprintf("repository not found: %s/%s", owner, repo))
	}
	if resp.StatusCode != http.StatusOK {
		return "", plagerrors.NewExternalFailure("github", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var meta repoMeta
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return "", plagerrors.NewExternalFailure("github", err)
	}
	if meta.DefaultBranch == "" {
		return "main", nil
	}
	return meta.DefaultBranch, nil
}

func checkRateLimit(resp *http.Response) error {
	if resp.StatusCode != http.StatusForbidden {
		return nil
	}
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining != "0" {
		return nil
	}
	reset := resp.Header.Get("X-RateLimit-Reset")
	return plagerrors.NewExternalFailure("github",
		fmt.Errorf("rate limit exceeded (remaining %s, resets at %s); set GITHUB_TOKEN to raise the limit", remaining, reset))
}

type treeResponse struct {
	Tree []treeEntry `json:"tree"`
}

type treeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size int    `json:"size"`
}

func shouldIgnoreRepoPath(path string) bool {
	for _, part := range strings.Split(path, "/") {
		if ignoredRepoDirs[part] {
			return true
		}
	}
	return false
}

func (f *RepoFetcher) filePaths(ctx context.Context, owner, repo, branch string) ([]treeEntry, error) {
	url := fmt.Sprintf("https://api.github.com/repos/%s/%s/git/trees/%s?recursive=1", owner, repo, branch)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, plagerrors.NewExternalFailure("github", err)
	}
	f.headers(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, plagerrors.NewExternalFailure("github", err)
	}
	defer resp.Body.Close()
	if err := checkRateLimit(resp); err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, plagerrors.NewInputError(
			fmt.Sprintf("could not fetch tree for %s/%s (branch %s); is it public?", owner, repo, branch))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, plagerrors.NewExternalFailure("github", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var tree treeResponse
	if err := json.NewDecoder(resp.Body).Decode(&tree); err != nil {
		return nil, plagerrors.NewExternalFailure("github", err)
	}

	var files []treeEntry
	for _, entry := range tree.Tree {
		if entry.Type != "blob" {
			continue
		}
		if parser.FamilyForExtension(entry.Path) == "" {
			continue
		}
		if shouldIgnoreRepoPath(entry.Path) {
			continue
		}
		if entry.Size > maxRepoFileBytes {
			continue
		}
		files = append(files, entry)
		if len(files) >= maxFilesPerRepo {
			break
		}
	}
	return files, nil
}

func (f *RepoFetcher) rawContent(ctx context.Context, owner, repo, branch, path string) ([]byte, error) {
	url := fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s", owner, repo, branch, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: rawFileTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// FetchRepo resolves a GitHub repo URL to its default branch's file tree and
// downloads every supported-language file under the tree/file/size limits,
// returning successfully-fetched files plus a per-file error for the rest.
func (f *RepoFetcher) FetchRepo(ctx context.Context, repoURL string) (*Result, error) {
	owner, repo, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}
	branch, err := f.defaultBranch(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	entries, err := f.filePaths(ctx, owner, repo, branch)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, plagerrors.NewInputError(
			fmt.Sprintf("no supported code files found in %s/%s (branch %s)", owner, repo, branch))
	}

	result := &Result{}
	for _, entry := range entries {
		data, err := f.rawContent(ctx, owner, repo, branch, entry.Path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", entry.Path, err))
			continue
		}
		result.Files = append(result.Files, orchestrate.SourceFile{
			Path: fmt.Sprintf("%s/%s/%s", owner, repo, entry.Path),
			Data: data,
		})
	}
	return result, nil
}
