// Package agent defines the analysis agent contract and the fixed
// registry of the four agent kinds. Execute is the failure-isolation
// boundary: whatever happens inside an agent, the orchestrator always
// receives a plain AgentResult value.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"code-review-orchestrator/internal/domain"
	"code-review-orchestrator/internal/metrics"
)

// Agent analyzes one artifact for a single concern. Implementations may
// return an error; Execute converts it into a failed result.
type Agent interface {
	Kind() domain.AgentKind
	Analyze(ctx context.Context, artifact *domain.Artifact) ([]domain.Issue, error)
}

// Annotator enriches issue suggestions using a language model. It is
// cosmetic: any annotator failure leaves the issue untouched.
type Annotator interface {
	Suggest(ctx context.Context, artifact *domain.Artifact, issue domain.Issue) (string, error)
}

// Config controls one agent execution.
type Config struct {
	Timeout        time.Duration
	MaxSuggestions int       // max issues enriched by the annotator per result
	Annotator      Annotator // optional
}

// Registry maps every agent kind to its instance, resolved once at
// process start.
type Registry map[domain.AgentKind]Agent

// NewRegistry builds the fixed registry of all four agent kinds.
// lintCommand optionally names an external linter binary for the quality
// agent; maxToolMessageLen bounds messages taken from its output.
func NewRegistry(lintCommand string, maxToolMessageLen int) Registry {
	return Registry{
		domain.AgentQuality:       NewQualityAgent(lintCommand, maxToolMessageLen),
		domain.AgentSecurity:      NewSecurityAgent(),
		domain.AgentPerformance:   NewPerformanceAgent(),
		domain.AgentDocumentation: NewDocumentationAgent(),
	}
}

// Select returns the agents for the given kinds in canonical order.
func (r Registry) Select(kinds []domain.AgentKind) []Agent {
	agents := make([]Agent, 0, len(kinds))
	for _, k := range kinds {
		if a, ok := r[k]; ok {
			agents = append(agents, a)
		}
	}
	return agents
}

type analyzeOutcome struct {
	issues []domain.Issue
	err    error
}

// Execute runs one agent against one artifact, measuring wall-clock time
// and containing every possible fault: errors, panics, and timeouts all
// become a failed AgentResult. It never returns an error and never lets
// one agent's fault reach its siblings.
func Execute(ctx context.Context, a Agent, artifact *domain.Artifact, cfg Config) domain.AgentResult {
	kind := a.Kind()
	start := time.Now()

	runCtx := ctx
	var cancel context.CancelFunc
	if cfg.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	done := make(chan analyzeOutcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- analyzeOutcome{err: fmt.Errorf("agent panic: %v", rec)}
			}
		}()
		issues, err := a.Analyze(runCtx, artifact)
		done <- analyzeOutcome{issues: issues, err: err}
	}()

	var outcome analyzeOutcome
	select {
	case outcome = <-done:
	case <-runCtx.Done():
		// The analysis goroutine keeps running until it notices the
		// context itself; the orchestrator does not wait for it.
		outcome = analyzeOutcome{err: fmt.Errorf("analysis timed out after %s", cfg.Timeout)}
	}

	result := domain.AgentResult{
		AgentKind: kind,
		Duration:  time.Since(start),
		Issues:    outcome.issues,
		Metadata:  map[string]any{"revision": artifact.Revision},
	}

	if outcome.err != nil {
		result.Success = false
		result.ErrorMessage = outcome.err.Error()
		result.Issues = nil
		slog.Warn("agent execution failed",
			"agent", kind, "path", artifact.Path, "error", outcome.err)
		metrics.AgentExecutions.WithLabelValues(string(kind), "error").Inc()
	} else {
		result.Success = true
		if result.Issues == nil {
			result.Issues = []domain.Issue{}
		}
		enrich(ctx, artifact, result.Issues, cfg)
		metrics.AgentExecutions.WithLabelValues(string(kind), "success").Inc()
		for _, issue := range result.Issues {
			metrics.IssuesFound.WithLabelValues(string(kind), string(issue.Severity)).Inc()
		}
	}
	metrics.AgentDuration.WithLabelValues(string(kind)).Observe(result.Duration.Seconds())

	return result
}

// enrich fills empty suggestions on the first few issues via the
// annotator. Best effort only.
func enrich(ctx context.Context, artifact *domain.Artifact, issues []domain.Issue, cfg Config) {
	if cfg.Annotator == nil || cfg.MaxSuggestions <= 0 {
		return
	}
	enriched := 0
	for i := range issues {
		if enriched >= cfg.MaxSuggestions {
			return
		}
		if issues[i].Suggestion != "" {
			continue
		}
		suggestion, err := cfg.Annotator.Suggest(ctx, artifact, issues[i])
		if err != nil {
			slog.Debug("annotator suggestion failed", "path", artifact.Path, "error", err)
			continue
		}
		if suggestion != "" {
			issues[i].Suggestion = suggestion
			enriched++
		}
	}
}
