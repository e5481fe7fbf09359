// Package orchestrator coordinates the review pipeline: it resolves a
// request into artifacts, fans the selected agents out over each
// artifact, and assembles the resulting reviews. Concurrency affects
// latency only; result order is always deterministic.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"code-review-orchestrator/internal/agent"
	"code-review-orchestrator/internal/domain"
	"code-review-orchestrator/internal/metrics"
	"code-review-orchestrator/internal/resolver"
)

// Options controls orchestration limits.
type Options struct {
	// ArtifactConcurrency bounds how many artifacts are reviewed at
	// once in multi-artifact resolutions.
	ArtifactConcurrency int64
	// Agent is the per-execution configuration (timeout, annotator).
	Agent agent.Config
}

// Orchestrator runs reviews.
type Orchestrator struct {
	resolver *resolver.Resolver
	registry agent.Registry
	opts     Options
}

// New creates an orchestrator over a resolver and the fixed agent registry.
func New(res *resolver.Resolver, registry agent.Registry, opts Options) *Orchestrator {
	if opts.ArtifactConcurrency < 1 {
		opts.ArtifactConcurrency = 1
	}
	return &Orchestrator{resolver: res, registry: registry, opts: opts}
}

// Run resolves the request and reviews every resolved artifact.
//
// Resolution failures abort the whole request with a typed resolver
// error; agent failures never do, they are contained in the
// AgentResults of an otherwise Completed review.
//
// Shape: a single-artifact resolution yields one review; commit and
// pull-request resolutions fold all changed files into one aggregate
// review; directory and whole-repo scans yield one review per file.
func (o *Orchestrator) Run(ctx context.Context, req *domain.ReviewRequest) ([]*domain.Review, error) {
	kinds, err := req.SelectedAgentKinds()
	if err != nil {
		metrics.ResolutionFailures.WithLabelValues("invalid_request").Inc()
		return nil, fmt.Errorf("%w: %v", resolver.ErrInvalidRequest, err)
	}

	res, err := o.resolver.Resolve(ctx, req)
	if err != nil {
		metrics.ResolutionFailures.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	slog.Info("request resolved",
		"selector", res.Selector.Kind.String(),
		"artifacts", len(res.Artifacts),
		"truncated", res.Truncated)

	var reviews []*domain.Review
	switch {
	case len(res.Artifacts) == 1:
		reviews = []*domain.Review{o.reviewArtifact(ctx, req, res.Artifacts[0], kinds)}
	case res.Selector.Kind == domain.SelectCommit || res.Selector.Kind == domain.SelectPullRequest:
		reviews = []*domain.Review{o.reviewAggregate(ctx, req, res, kinds)}
	default:
		reviews = o.reviewEach(ctx, req, res.Artifacts, kinds)
	}

	if res.Truncated {
		for _, review := range reviews {
			attachTruncation(review, res)
		}
	}
	return reviews, nil
}

// reviewArtifact runs all selected agents concurrently against one
// artifact and joins them into a single review. The join is total: every
// agent outcome is a value, so nothing here can fail.
func (o *Orchestrator) reviewArtifact(ctx context.Context, req *domain.ReviewRequest, artifact *domain.Artifact, kinds []domain.AgentKind) *domain.Review {
	review := newReview(req.Repository, artifact.Path)
	review.Status = domain.StatusRunning

	review.Results = o.runAgents(ctx, artifact, kinds)
	complete(review)
	return review
}

// runAgents executes the selected agents in parallel for one artifact.
// Results land at their kind's canonical index, so output order never
// depends on completion order.
func (o *Orchestrator) runAgents(ctx context.Context, artifact *domain.Artifact, kinds []domain.AgentKind) []domain.AgentResult {
	results := make([]domain.AgentResult, len(kinds))
	var wg sync.WaitGroup
	for i, kind := range kinds {
		a, ok := o.registry[kind]
		if !ok {
			// Registry is fixed at startup; a missing kind is a wiring
			// bug surfaced as a failed result rather than a crash.
			results[i] = domain.AgentResult{
				AgentKind:    kind,
				Success:      false,
				Issues:       nil,
				ErrorMessage: fmt.Sprintf("no agent registered for kind %q", kind),
			}
			continue
		}
		wg.Add(1)
		go func(i int, a agent.Agent) {
			defer wg.Done()
			results[i] = agent.Execute(ctx, a, artifact, o.opts.Agent)
		}(i, a)
	}
	wg.Wait()
	return results
}

// reviewEach reviews every artifact independently, bounded by the
// artifact concurrency limit. The returned slice preserves the resolved
// artifact order regardless of completion order.
func (o *Orchestrator) reviewEach(ctx context.Context, req *domain.ReviewRequest, artifacts []*domain.Artifact, kinds []domain.AgentKind) []*domain.Review {
	reviews := make([]*domain.Review, len(artifacts))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(int(o.opts.ArtifactConcurrency))
	for i, artifact := range artifacts {
		g.Go(func() error {
			reviews[i] = o.reviewArtifact(gCtx, req, artifact, kinds)
			return nil
		})
	}
	// Workers never return errors; Wait is a pure join barrier.
	g.Wait()

	return reviews
}

// reviewAggregate reviews each artifact, then folds the per-artifact
// results into one review with exactly one AgentResult per selected
// kind. Issue messages are prefixed with their file path so findings
// stay attributable after the fold.
func (o *Orchestrator) reviewAggregate(ctx context.Context, req *domain.ReviewRequest, res *resolver.Resolution, kinds []domain.AgentKind) *domain.Review {
	review := newReview(req.Repository, aggregateTarget(res))
	review.Status = domain.StatusRunning

	perArtifact := make([][]domain.AgentResult, len(res.Artifacts))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(int(o.opts.ArtifactConcurrency))
	for i, artifact := range res.Artifacts {
		g.Go(func() error {
			perArtifact[i] = o.runAgents(gCtx, artifact, kinds)
			return nil
		})
	}
	g.Wait()

	review.Results = foldResults(res.Artifacts, perArtifact, kinds)
	complete(review)
	return review
}

// foldResults merges per-artifact agent results per kind, in canonical
// kind order. Durations are summed; a kind that failed on any artifact
// is reported as failed with the artifact paths in the error message.
func foldResults(artifacts []*domain.Artifact, perArtifact [][]domain.AgentResult, kinds []domain.AgentKind) []domain.AgentResult {
	merged := make([]domain.AgentResult, len(kinds))
	for i, kind := range kinds {
		merged[i] = domain.AgentResult{AgentKind: kind, Success: true, Issues: []domain.Issue{}}
		var failures []string

		for j, results := range perArtifact {
			r := results[i]
			path := artifacts[j].Path
			merged[i].Duration += r.Duration
			if !r.Success {
				merged[i].Success = false
				failures = append(failures, fmt.Sprintf("%s: %s", path, r.ErrorMessage))
				continue
			}
			for _, issue := range r.Issues {
				merged[i].Issues = append(merged[i].Issues, prefixIssue(issue, path))
			}
		}

		if len(failures) > 0 {
			merged[i].ErrorMessage = strings.Join(failures, "; ")
		}
	}
	return merged
}

// prefixIssue tags an issue with the file it was found in.
func prefixIssue(issue domain.Issue, path string) domain.Issue {
	prefix := "[" + path + "] "
	if !strings.HasPrefix(issue.Message, prefix) {
		issue.Message = prefix + issue.Message
	}

	meta := make(map[string]any, len(issue.Metadata)+1)
	for k, v := range issue.Metadata {
		meta[k] = v
	}
	meta["file_path"] = path
	issue.Metadata = meta
	return issue
}

func aggregateTarget(res *resolver.Resolution) string {
	switch res.Selector.Kind {
	case domain.SelectCommit:
		return fmt.Sprintf("Commit %s (%d files)", res.Selector.Commit, len(res.Artifacts))
	case domain.SelectPullRequest:
		return fmt.Sprintf("PR #%d (%d files)", res.Selector.PullRequest, len(res.Artifacts))
	}
	return fmt.Sprintf("%d files", len(res.Artifacts))
}

func newReview(repository, target string) *domain.Review {
	return &domain.Review{
		ID:         ulid.Make().String(),
		Repository: repository,
		Target:     target,
		Status:     domain.StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
}

// complete finalizes a review: derived issue count, terminal status,
// completion timestamp.
func complete(review *domain.Review) {
	review.TotalIssues = review.CountIssues()
	review.Status = domain.StatusCompleted
	now := time.Now().UTC()
	review.CompletedAt = &now
	metrics.ReviewsTotal.WithLabelValues(string(domain.StatusCompleted)).Inc()
}

// FailedReview builds the review record persisted when resolution fails:
// no agent results, terminal Failed status, the typed error preserved.
func FailedReview(req *domain.ReviewRequest, err error) *domain.Review {
	review := newReview(req.Repository, describeRequest(req))
	review.Status = domain.StatusFailed
	review.Error = err.Error()
	now := time.Now().UTC()
	review.CompletedAt = &now
	metrics.ReviewsTotal.WithLabelValues(string(domain.StatusFailed)).Inc()
	return review
}

func describeRequest(req *domain.ReviewRequest) string {
	sel, err := req.Selector()
	if err != nil {
		return "invalid request"
	}
	switch sel.Kind {
	case domain.SelectFile:
		return sel.Path
	case domain.SelectCommit:
		return "Commit " + sel.Commit
	case domain.SelectPullRequest:
		return fmt.Sprintf("PR #%d", sel.PullRequest)
	}
	return "Repository scan"
}

func attachTruncation(review *domain.Review, res *resolver.Resolution) {
	if review.Metadata == nil {
		review.Metadata = map[string]any{}
	}
	review.Metadata[domain.MetaTruncated] = true
	review.Metadata[domain.MetaTotalFound] = res.TotalFound
	review.Metadata[domain.MetaProcessed] = len(res.Artifacts)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, resolver.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, resolver.ErrNotFound):
		return "not_found"
	default:
		return "provider_unavailable"
	}
}
