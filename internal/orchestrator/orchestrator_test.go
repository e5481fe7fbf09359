package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"code-review-orchestrator/internal/agent"
	"code-review-orchestrator/internal/domain"
	"code-review-orchestrator/internal/resolver"
	"code-review-orchestrator/internal/source"
)

// scriptedAgent produces one fixed issue per artifact, or fails.
type scriptedAgent struct {
	kind   domain.AgentKind
	fail   bool
	panics bool
	sleep  time.Duration
}

func (s *scriptedAgent) Kind() domain.AgentKind { return s.kind }

func (s *scriptedAgent) Analyze(ctx context.Context, artifact *domain.Artifact) ([]domain.Issue, error) {
	if s.panics {
		panic("scripted panic")
	}
	if s.fail {
		return nil, errors.New("scripted failure")
	}
	if s.sleep > 0 {
		select {
		case <-time.After(s.sleep):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return []domain.Issue{{
		Severity: domain.SeverityLow,
		Type:     "finding",
		Message:  "found something in " + artifact.Path,
		Line:     1,
	}}, nil
}

type scriptedProvider struct {
	files       map[string]string
	commitFiles map[string][]string
}

func (p *scriptedProvider) FetchFile(_ context.Context, _, path, _ string) (string, error) {
	content, ok := p.files[path]
	if !ok {
		return "", fmt.Errorf("file %s: %w", path, source.ErrNotFound)
	}
	return content, nil
}

func (p *scriptedProvider) ListCommitFiles(_ context.Context, _, sha string) ([]string, error) {
	paths, ok := p.commitFiles[sha]
	if !ok {
		return nil, fmt.Errorf("commit %s: %w", sha, source.ErrNotFound)
	}
	return paths, nil
}

func (p *scriptedProvider) ListPullRequestFiles(_ context.Context, _ string, number int) ([]string, string, error) {
	return nil, "", fmt.Errorf("pull request %d: %w", number, source.ErrNotFound)
}

func (p *scriptedProvider) ListAllFiles(_ context.Context, _, _ string) ([]string, error) {
	var paths []string
	for path := range p.files {
		paths = append(paths, path)
	}
	return paths, nil
}

const testRepo = "https://github.com/acme/widgets"

func newTestOrchestrator(provider source.Provider, registry agent.Registry, cap int) *Orchestrator {
	res := resolver.New(provider, []string{".go"}, cap)
	return New(res, registry, Options{
		ArtifactConcurrency: 4,
		Agent:               agent.Config{Timeout: 2 * time.Second},
	})
}

func allScriptedRegistry() agent.Registry {
	registry := agent.Registry{}
	for _, kind := range domain.AllAgentKinds {
		registry[kind] = &scriptedAgent{kind: kind}
	}
	return registry
}

func TestRunSingleFile(t *testing.T) {
	provider := &scriptedProvider{files: map[string]string{"main.go": "package main\n"}}
	o := newTestOrchestrator(provider, allScriptedRegistry(), 50)

	reviews, err := o.Run(context.Background(), &domain.ReviewRequest{
		Repository: testRepo,
		FilePath:   "main.go",
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(reviews) != 1 {
		t.Fatalf("got %d reviews, want 1", len(reviews))
	}

	review := reviews[0]
	if review.Status != domain.StatusCompleted {
		t.Errorf("status = %s, want completed", review.Status)
	}
	if review.ID == "" {
		t.Error("review must have an id")
	}
	if review.CompletedAt == nil {
		t.Error("completed review must have a completion time")
	}
	if len(review.Results) != len(domain.AllAgentKinds) {
		t.Fatalf("got %d results, want %d", len(review.Results), len(domain.AllAgentKinds))
	}
	for i, result := range review.Results {
		if result.AgentKind != domain.AllAgentKinds[i] {
			t.Errorf("result %d is %s, want canonical order %s",
				i, result.AgentKind, domain.AllAgentKinds[i])
		}
		if !result.Success {
			t.Errorf("agent %s unexpectedly failed: %s", result.AgentKind, result.ErrorMessage)
		}
	}
	if review.TotalIssues != len(domain.AllAgentKinds) {
		t.Errorf("TotalIssues = %d, want %d", review.TotalIssues, len(domain.AllAgentKinds))
	}
}

func TestRunAgentSubsetCanonicalOrder(t *testing.T) {
	provider := &scriptedProvider{files: map[string]string{"main.go": "package main\n"}}
	o := newTestOrchestrator(provider, allScriptedRegistry(), 50)

	reviews, err := o.Run(context.Background(), &domain.ReviewRequest{
		Repository: testRepo,
		FilePath:   "main.go",
		AgentKinds: []domain.AgentKind{domain.AgentDocumentation, domain.AgentQuality},
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	results := reviews[0].Results
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].AgentKind != domain.AgentQuality || results[1].AgentKind != domain.AgentDocumentation {
		t.Errorf("results out of canonical order: %s, %s",
			results[0].AgentKind, results[1].AgentKind)
	}
}

func TestRunFailureIsolation(t *testing.T) {
	provider := &scriptedProvider{files: map[string]string{"main.go": "package main\n"}}
	registry := allScriptedRegistry()
	registry[domain.AgentSecurity] = &scriptedAgent{kind: domain.AgentSecurity, panics: true}
	registry[domain.AgentPerformance] = &scriptedAgent{kind: domain.AgentPerformance, fail: true}
	o := newTestOrchestrator(provider, registry, 50)

	reviews, err := o.Run(context.Background(), &domain.ReviewRequest{
		Repository: testRepo,
		FilePath:   "main.go",
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	review := reviews[0]
	if review.Status != domain.StatusCompleted {
		t.Fatalf("agent faults must not fail the review, status = %s", review.Status)
	}

	byKind := map[domain.AgentKind]domain.AgentResult{}
	for _, r := range review.Results {
		byKind[r.AgentKind] = r
	}
	if byKind[domain.AgentSecurity].Success {
		t.Error("panicking agent should be reported failed")
	}
	if byKind[domain.AgentPerformance].Success {
		t.Error("erroring agent should be reported failed")
	}
	if !byKind[domain.AgentQuality].Success || !byKind[domain.AgentDocumentation].Success {
		t.Error("healthy agents must not be affected by sibling failures")
	}
}

func TestRunAgentTimeout(t *testing.T) {
	provider := &scriptedProvider{files: map[string]string{"main.go": "package main\n"}}
	registry := allScriptedRegistry()
	registry[domain.AgentQuality] = &scriptedAgent{kind: domain.AgentQuality, sleep: time.Second}
	res := resolver.New(provider, []string{".go"}, 50)
	o := New(res, registry, Options{
		ArtifactConcurrency: 4,
		Agent:               agent.Config{Timeout: 20 * time.Millisecond},
	})

	reviews, err := o.Run(context.Background(), &domain.ReviewRequest{
		Repository: testRepo,
		FilePath:   "main.go",
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	review := reviews[0]
	if review.Status != domain.StatusCompleted {
		t.Fatalf("timeout must not fail the review, status = %s", review.Status)
	}
	quality := review.Results[0]
	if quality.Success {
		t.Error("timed out agent should be reported failed")
	}
	if !strings.Contains(quality.ErrorMessage, "timed out") {
		t.Errorf("error message = %q", quality.ErrorMessage)
	}
}

func TestRunCommitAggregates(t *testing.T) {
	provider := &scriptedProvider{
		files: map[string]string{
			"a.go": "package a\n",
			"b.go": "package b\n",
		},
		commitFiles: map[string][]string{"abc123": {"a.go", "b.go"}},
	}
	o := newTestOrchestrator(provider, allScriptedRegistry(), 50)

	reviews, err := o.Run(context.Background(), &domain.ReviewRequest{
		Repository: testRepo,
		CommitSHA:  "abc123",
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(reviews) != 1 {
		t.Fatalf("commit review must aggregate into one review, got %d", len(reviews))
	}

	review := reviews[0]
	if !strings.Contains(review.Target, "abc123") {
		t.Errorf("target should name the commit: %q", review.Target)
	}
	if len(review.Results) != len(domain.AllAgentKinds) {
		t.Fatalf("got %d results, want one per kind", len(review.Results))
	}

	// Each agent saw both files, so each merged result holds two issues,
	// each prefixed with its file path.
	for _, result := range review.Results {
		if len(result.Issues) != 2 {
			t.Fatalf("agent %s: got %d issues, want 2", result.AgentKind, len(result.Issues))
		}
		for _, issue := range result.Issues {
			if !strings.HasPrefix(issue.Message, "[a.go] ") && !strings.HasPrefix(issue.Message, "[b.go] ") {
				t.Errorf("issue message not path-prefixed: %q", issue.Message)
			}
			if issue.Metadata["file_path"] == nil {
				t.Error("aggregated issue missing file_path metadata")
			}
		}
	}
}

func TestRunAggregatePartialFailure(t *testing.T) {
	provider := &scriptedProvider{
		files: map[string]string{
			"a.go": "package a\n",
			"b.go": "package b\n",
		},
		commitFiles: map[string][]string{"abc123": {"a.go", "b.go"}},
	}
	registry := allScriptedRegistry()
	registry[domain.AgentSecurity] = &scriptedAgent{kind: domain.AgentSecurity, fail: true}
	o := newTestOrchestrator(provider, registry, 50)

	reviews, err := o.Run(context.Background(), &domain.ReviewRequest{
		Repository: testRepo,
		CommitSHA:  "abc123",
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	security := reviews[0].Results[1]
	if security.AgentKind != domain.AgentSecurity {
		t.Fatalf("expected security at canonical index 1, got %s", security.AgentKind)
	}
	if security.Success {
		t.Error("kind that failed on any artifact must be reported failed")
	}
	if !strings.Contains(security.ErrorMessage, "a.go") || !strings.Contains(security.ErrorMessage, "b.go") {
		t.Errorf("error message should name the failing files: %q", security.ErrorMessage)
	}
}

func TestRunScanReviewsEachFile(t *testing.T) {
	provider := &scriptedProvider{files: map[string]string{
		"a.go": "package a\n",
		"b.go": "package b\n",
		"c.go": "package c\n",
	}}
	o := newTestOrchestrator(provider, allScriptedRegistry(), 50)

	reviews, err := o.Run(context.Background(), &domain.ReviewRequest{
		Repository: testRepo,
		ScanRepo:   true,
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(reviews) != 3 {
		t.Fatalf("got %d reviews, want one per file", len(reviews))
	}
	want := []string{"a.go", "b.go", "c.go"}
	for i, review := range reviews {
		if review.Target != want[i] {
			t.Errorf("review %d target = %s, want %s", i, review.Target, want[i])
		}
	}
}

func TestRunTruncationMetadata(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 4; i++ {
		files[fmt.Sprintf("f%d.go", i)] = "package f\n"
	}
	provider := &scriptedProvider{files: files}
	o := newTestOrchestrator(provider, allScriptedRegistry(), 2)

	reviews, err := o.Run(context.Background(), &domain.ReviewRequest{
		Repository: testRepo,
		ScanRepo:   true,
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(reviews) != 2 {
		t.Fatalf("got %d reviews, want cap of 2", len(reviews))
	}
	for _, review := range reviews {
		if review.Metadata[domain.MetaTruncated] != true {
			t.Error("truncated review missing truncation flag")
		}
		if review.Metadata[domain.MetaTotalFound] != 4 {
			t.Errorf("total found = %v, want 4", review.Metadata[domain.MetaTotalFound])
		}
		if review.Metadata[domain.MetaProcessed] != 2 {
			t.Errorf("processed = %v, want 2", review.Metadata[domain.MetaProcessed])
		}
	}
}

func TestRunInvalidAgentKind(t *testing.T) {
	provider := &scriptedProvider{files: map[string]string{"main.go": "package main\n"}}
	o := newTestOrchestrator(provider, allScriptedRegistry(), 50)

	_, err := o.Run(context.Background(), &domain.ReviewRequest{
		Repository: testRepo,
		FilePath:   "main.go",
		AgentKinds: []domain.AgentKind{"style"},
	})
	if !errors.Is(err, resolver.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestRunResolutionFailure(t *testing.T) {
	provider := &scriptedProvider{files: map[string]string{}}
	o := newTestOrchestrator(provider, allScriptedRegistry(), 50)

	_, err := o.Run(context.Background(), &domain.ReviewRequest{
		Repository: testRepo,
		FilePath:   "missing.go",
	})
	if !errors.Is(err, resolver.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFailedReview(t *testing.T) {
	req := &domain.ReviewRequest{Repository: testRepo, FilePath: "gone.go"}
	review := FailedReview(req, errors.New("boom"))

	if review.Status != domain.StatusFailed {
		t.Errorf("status = %s, want failed", review.Status)
	}
	if review.Error != "boom" {
		t.Errorf("error = %q", review.Error)
	}
	if review.CompletedAt == nil {
		t.Error("failed review must carry a completion time")
	}
	if len(review.Results) != 0 {
		t.Error("failed review must not carry results")
	}
	if review.Target != "gone.go" {
		t.Errorf("target = %q, want the requested path", review.Target)
	}
}
