// Package resolver turns a ReviewRequest into a bounded, ordered sequence
// of artifacts. All request-shape conflicts are settled by the typed
// selector before any provider call happens.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"code-review-orchestrator/internal/domain"
	"code-review-orchestrator/internal/source"
)

// Typed resolution failures. Callers distinguish "bad request" from
// "doesn't exist" from "couldn't check".
var (
	ErrInvalidRequest      = errors.New("invalid review request")
	ErrNotFound            = errors.New("selector target not found")
	ErrProviderUnavailable = errors.New("source provider unavailable")
)

// Resolution is the outcome of resolving one request: the ordered
// artifact sequence plus truncation accounting.
type Resolution struct {
	Selector   domain.Selector
	Artifacts  []*domain.Artifact
	Truncated  bool
	TotalFound int // true match count before the cap was applied
}

// Resolver resolves review requests against a source provider.
type Resolver struct {
	provider     source.Provider
	extensions   []string
	maxArtifacts int
}

// New creates a resolver. maxArtifacts bounds every multi-artifact
// resolution; enumerations beyond it are truncated, not failed.
func New(provider source.Provider, extensions []string, maxArtifacts int) *Resolver {
	return &Resolver{
		provider:     provider,
		extensions:   extensions,
		maxArtifacts: maxArtifacts,
	}
}

// Resolve resolves the request into artifacts. It fails with
// ErrInvalidRequest when no effective selector is present, ErrNotFound
// when the selector names something the provider cannot produce, and
// ErrProviderUnavailable on provider auth or transport faults.
func (r *Resolver) Resolve(ctx context.Context, req *domain.ReviewRequest) (*Resolution, error) {
	sel, err := req.Selector()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	if req.Local() {
		if sel.Kind != domain.SelectFile {
			return nil, fmt.Errorf("%w: %s selector requires a repository reference", ErrInvalidRequest, sel.Kind)
		}
		return r.resolveLocal(sel)
	}

	switch sel.Kind {
	case domain.SelectFile:
		return r.resolveFile(ctx, req.Repository, sel)
	case domain.SelectCommit:
		return r.resolveCommit(ctx, req.Repository, sel)
	case domain.SelectPullRequest:
		return r.resolvePullRequest(ctx, req.Repository, sel)
	case domain.SelectWholeRepo:
		return r.resolveWholeRepo(ctx, req.Repository, sel)
	}
	return nil, fmt.Errorf("%w: unsupported selector %s", ErrInvalidRequest, sel.Kind)
}

// resolveLocal reads artifacts directly from local storage, bypassing
// the provider entirely.
func (r *Resolver) resolveLocal(sel domain.Selector) (*Resolution, error) {
	paths, err := source.ListLocalFiles(sel.Path, r.extensions)
	if err != nil {
		return nil, mapProviderError(err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no source files under %s: %w", sel.Path, ErrNotFound)
	}

	paths, res := r.truncate(paths)
	res.Selector = sel
	for _, path := range paths {
		content, err := source.ReadLocalFile(path)
		if err != nil {
			return nil, mapProviderError(err)
		}
		res.Artifacts = append(res.Artifacts, domain.NewArtifact(path, content, domain.RevisionLocal))
	}
	return res, nil
}

// resolveFile handles the file-path selector. A path without a source
// extension is treated as a directory and enumerated recursively.
func (r *Resolver) resolveFile(ctx context.Context, repo string, sel domain.Selector) (*Resolution, error) {
	path := domain.NormalizePath(sel.Path)

	if domain.IsSourceFile(path, r.extensions) {
		content, err := r.provider.FetchFile(ctx, repo, path, sel.Commit)
		if err != nil {
			return nil, mapProviderError(err)
		}
		revision := sel.Commit
		if revision == "" {
			revision = "HEAD"
		}
		return &Resolution{
			Selector:   sel,
			Artifacts:  []*domain.Artifact{domain.NewArtifact(path, content, revision)},
			TotalFound: 1,
		}, nil
	}

	all, err := r.provider.ListAllFiles(ctx, repo, sel.Commit)
	if err != nil {
		return nil, mapProviderError(err)
	}
	prefix := strings.TrimSuffix(path, "/") + "/"
	var matched []string
	for _, p := range all {
		if strings.HasPrefix(p, prefix) && domain.IsSourceFile(p, r.extensions) {
			matched = append(matched, p)
		}
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("no source files in directory %s: %w", path, ErrNotFound)
	}
	sort.Strings(matched)

	return r.fetchAll(ctx, repo, matched, sel, sel.Commit)
}

func (r *Resolver) resolveCommit(ctx context.Context, repo string, sel domain.Selector) (*Resolution, error) {
	changed, err := r.provider.ListCommitFiles(ctx, repo, sel.Commit)
	if err != nil {
		return nil, mapProviderError(err)
	}
	matched := r.filterSource(changed)
	if len(matched) == 0 {
		return nil, fmt.Errorf("no source files changed in commit %s: %w", sel.Commit, ErrNotFound)
	}
	sort.Strings(matched)

	return r.fetchAll(ctx, repo, matched, sel, sel.Commit)
}

func (r *Resolver) resolvePullRequest(ctx context.Context, repo string, sel domain.Selector) (*Resolution, error) {
	changed, headSHA, err := r.provider.ListPullRequestFiles(ctx, repo, sel.PullRequest)
	if err != nil {
		return nil, mapProviderError(err)
	}
	// Non-source files in the change set are silently skipped.
	matched := r.filterSource(changed)
	if len(matched) == 0 {
		return nil, fmt.Errorf("no source files changed in pull request #%d: %w", sel.PullRequest, ErrNotFound)
	}
	sort.Strings(matched)

	return r.fetchAll(ctx, repo, matched, sel, headSHA)
}

func (r *Resolver) resolveWholeRepo(ctx context.Context, repo string, sel domain.Selector) (*Resolution, error) {
	all, err := r.provider.ListAllFiles(ctx, repo, "")
	if err != nil {
		return nil, mapProviderError(err)
	}
	matched := r.filterSource(all)
	if len(matched) == 0 {
		return nil, fmt.Errorf("no source files in repository %s: %w", repo, ErrNotFound)
	}
	sort.Strings(matched)

	return r.fetchAll(ctx, repo, matched, sel, "")
}

// fetchAll truncates the path list to the cap, then fetches each file.
// Individual files that vanished between listing and fetching are skipped
// with a warning rather than failing the whole resolution.
func (r *Resolver) fetchAll(ctx context.Context, repo string, paths []string, sel domain.Selector, ref string) (*Resolution, error) {
	paths, res := r.truncate(paths)
	res.Selector = sel

	revision := ref
	if revision == "" {
		revision = "HEAD"
	}

	for _, path := range paths {
		content, err := r.provider.FetchFile(ctx, repo, path, ref)
		if err != nil {
			if errors.Is(err, source.ErrNotFound) {
				slog.Warn("skipping unfetchable file", "path", path, "error", err)
				continue
			}
			return nil, mapProviderError(err)
		}
		res.Artifacts = append(res.Artifacts, domain.NewArtifact(path, content, revision))
	}

	if len(res.Artifacts) == 0 {
		return nil, fmt.Errorf("no resolvable source files for %s selector: %w", sel.Kind, ErrNotFound)
	}
	return res, nil
}

// truncate applies the global artifact cap deterministically (first N in
// enumeration order). Truncation is reported, never treated as an error.
func (r *Resolver) truncate(paths []string) ([]string, *Resolution) {
	res := &Resolution{TotalFound: len(paths)}
	if len(paths) > r.maxArtifacts {
		slog.Warn("artifact cap exceeded, truncating",
			"found", len(paths), "cap", r.maxArtifacts)
		paths = paths[:r.maxArtifacts]
		res.Truncated = true
	}
	return paths, res
}

func (r *Resolver) filterSource(paths []string) []string {
	var matched []string
	for _, p := range paths {
		if domain.IsSourceFile(p, r.extensions) {
			matched = append(matched, p)
		}
	}
	return matched
}

// mapProviderError translates provider sentinels into resolver sentinels.
// Anything that is neither "missing" nor a local I/O problem is treated
// as the provider being unavailable.
func mapProviderError(err error) error {
	switch {
	case errors.Is(err, source.ErrNotFound):
		return fmt.Errorf("%v: %w", err, ErrNotFound)
	case errors.Is(err, source.ErrUnauthorized):
		return fmt.Errorf("%v: %w", err, ErrProviderUnavailable)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%v: %w", err, ErrProviderUnavailable)
	default:
		return fmt.Errorf("%v: %w", err, ErrProviderUnavailable)
	}
}
