package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultAPIURL = "https://api.github.com"

// GitHubProvider implements Provider against the GitHub REST API.
type GitHubProvider struct {
	token   string
	apiURL  string
	httpCli *http.Client
}

// NewGitHubProvider creates a GitHub provider. The token may be empty;
// requests made without one surface ErrUnauthorized.
func NewGitHubProvider(apiURL, token string, timeout time.Duration) *GitHubProvider {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &GitHubProvider{
		token:   token,
		apiURL:  strings.TrimRight(apiURL, "/"),
		httpCli: &http.Client{Timeout: timeout},
	}
}

// ownerRepo extracts "owner/repo" from a repository reference, accepting
// both full URLs and the short form.
func ownerRepo(repo string) (string, error) {
	ref := strings.TrimSuffix(strings.TrimSpace(repo), ".git")
	for _, prefix := range []string{"https://github.com/", "http://github.com/", "github.com/"} {
		ref = strings.TrimPrefix(ref, prefix)
	}
	ref = strings.Trim(ref, "/")
	parts := strings.Split(ref, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("invalid repository reference: %s", repo)
	}
	return parts[0] + "/" + parts[1], nil
}

func (c *GitHubProvider) get(ctx context.Context, url, accept string) ([]byte, error) {
	if c.token == "" {
		return nil, fmt.Errorf("no credential configured: %w", ErrUnauthorized)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", accept)

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", url, ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("github auth failed (status %d): %w", resp.StatusCode, ErrUnauthorized)
	default:
		return nil, fmt.Errorf("github API error (status %d): %s", resp.StatusCode, string(body))
	}
}

// FetchFile returns the raw content of one file.
func (c *GitHubProvider) FetchFile(ctx context.Context, repo, path, ref string) (string, error) {
	or, err := ownerRepo(repo)
	if err != nil {
		return "", err
	}

	u := fmt.Sprintf("%s/repos/%s/contents/%s", c.apiURL, or, strings.TrimPrefix(path, "/"))
	if ref != "" {
		u += "?ref=" + url.QueryEscape(ref)
	}

	body, err := c.get(ctx, u, "application/vnd.github.v3.raw")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

type commitResponse struct {
	Files []struct {
		Filename string `json:"filename"`
		Status   string `json:"status"`
	} `json:"files"`
}

// ListCommitFiles returns the paths changed by a commit.
func (c *GitHubProvider) ListCommitFiles(ctx context.Context, repo, sha string) ([]string, error) {
	or, err := ownerRepo(repo)
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/repos/%s/commits/%s", c.apiURL, or, url.PathEscape(sha))
	body, err := c.get(ctx, u, "application/vnd.github.v3+json")
	if err != nil {
		return nil, err
	}

	var commit commitResponse
	if err := json.Unmarshal(body, &commit); err != nil {
		return nil, fmt.Errorf("parsing commit response: %w", err)
	}

	paths := make([]string, 0, len(commit.Files))
	for _, f := range commit.Files {
		if f.Status == "removed" {
			continue
		}
		paths = append(paths, f.Filename)
	}
	return paths, nil
}

type prResponse struct {
	Head struct {
		SHA string `json:"sha"`
	} `json:"head"`
}

type prFile struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// ListPullRequestFiles returns the paths changed by a pull request and
// the PR's head SHA.
func (c *GitHubProvider) ListPullRequestFiles(ctx context.Context, repo string, number int) ([]string, string, error) {
	or, err := ownerRepo(repo)
	if err != nil {
		return nil, "", err
	}

	body, err := c.get(ctx, fmt.Sprintf("%s/repos/%s/pulls/%d", c.apiURL, or, number), "application/vnd.github.v3+json")
	if err != nil {
		return nil, "", err
	}
	var pr prResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, "", fmt.Errorf("parsing pull request response: %w", err)
	}

	body, err = c.get(ctx, fmt.Sprintf("%s/repos/%s/pulls/%d/files?per_page=100", c.apiURL, or, number), "application/vnd.github.v3+json")
	if err != nil {
		return nil, "", err
	}
	var files []prFile
	if err := json.Unmarshal(body, &files); err != nil {
		return nil, "", fmt.Errorf("parsing pull request files: %w", err)
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		if f.Status == "removed" {
			continue
		}
		paths = append(paths, f.Filename)
	}
	return paths, pr.Head.SHA, nil
}

type repoResponse struct {
	DefaultBranch string `json:"default_branch"`
}

type treeResponse struct {
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
	} `json:"tree"`
	Truncated bool `json:"truncated"`
}

// ListAllFiles returns every blob path in the repository tree.
func (c *GitHubProvider) ListAllFiles(ctx context.Context, repo, ref string) ([]string, error) {
	or, err := ownerRepo(repo)
	if err != nil {
		return nil, err
	}

	if ref == "" {
		body, err := c.get(ctx, fmt.Sprintf("%s/repos/%s", c.apiURL, or), "application/vnd.github.v3+json")
		if err != nil {
			return nil, err
		}
		var r repoResponse
		if err := json.Unmarshal(body, &r); err != nil {
			return nil, fmt.Errorf("parsing repository response: %w", err)
		}
		ref = r.DefaultBranch
	}

	u := fmt.Sprintf("%s/repos/%s/git/trees/%s?recursive=1", c.apiURL, or, url.PathEscape(ref))
	body, err := c.get(ctx, u, "application/vnd.github.v3+json")
	if err != nil {
		return nil, err
	}

	var tree treeResponse
	if err := json.Unmarshal(body, &tree); err != nil {
		return nil, fmt.Errorf("parsing tree response: %w", err)
	}

	var paths []string
	for _, entry := range tree.Tree {
		if entry.Type == "blob" {
			paths = append(paths, entry.Path)
		}
	}
	return paths, nil
}
