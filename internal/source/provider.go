// Package source provides access to repository contents. The rest of the
// system consumes it through the Provider interface only; provider faults
// are reported via the sentinel errors below so the resolver can map them
// to its own error taxonomy.
package source

import (
	"context"
	"errors"
)

// ErrNotFound indicates the requested path, commit, or pull request does
// not exist in the repository.
var ErrNotFound = errors.New("not found")

// ErrUnauthorized indicates the provider rejected the request due to a
// missing or invalid credential.
var ErrUnauthorized = errors.New("unauthorized")

// Provider fetches artifact bytes and change sets from a hosted repository.
type Provider interface {
	// FetchFile returns the content of a single file at the given ref
	// (empty ref = default branch tip).
	FetchFile(ctx context.Context, repo, path, ref string) (string, error)
	// ListCommitFiles returns the paths changed by a commit, excluding
	// removed files.
	ListCommitFiles(ctx context.Context, repo, sha string) ([]string, error)
	// ListPullRequestFiles returns the paths changed by a pull request
	// and the head commit SHA those paths should be fetched at.
	ListPullRequestFiles(ctx context.Context, repo string, number int) (paths []string, headSHA string, err error)
	// ListAllFiles returns every file path in the repository tree at the
	// given ref (empty ref = default branch tip).
	ListAllFiles(ctx context.Context, repo, ref string) ([]string, error)
}
