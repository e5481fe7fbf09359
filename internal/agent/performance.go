package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"code-review-orchestrator/internal/domain"
)

const nestedLoopThreshold = 3

var (
	stringAppendPattern = regexp.MustCompile(`\w+\s*\+=\s*("|fmt\.Sprintf)`)
	regexCompilePattern = regexp.MustCompile(`regexp\.(MustCompile|Compile)\(`)
)

// PerformanceAgent flags structural patterns that tend to dominate
// runtime cost: deeply nested loops, string building by concatenation
// inside loops, and per-iteration work that belongs outside the loop.
type PerformanceAgent struct{}

func NewPerformanceAgent() *PerformanceAgent { return &PerformanceAgent{} }

func (a *PerformanceAgent) Kind() domain.AgentKind { return domain.AgentPerformance }

func (a *PerformanceAgent) Analyze(_ context.Context, artifact *domain.Artifact) ([]domain.Issue, error) {
	var issues []domain.Issue

	// Loop depth tracked by brace balance: each entry records the brace
	// depth at which a loop body opened.
	var loopStack []int
	depth := 0

	for i, line := range strings.Split(artifact.Content, "\n") {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)

		opensLoop := (strings.HasPrefix(trimmed, "for ") || trimmed == "for {") && strings.HasSuffix(trimmed, "{")
		if opensLoop {
			loopStack = append(loopStack, depth)
			if len(loopStack) >= nestedLoopThreshold {
				issues = append(issues, domain.Issue{
					Severity:   domain.SeverityMedium,
					Type:       "nested_loops",
					Message:    fmt.Sprintf("Loop nested %d levels deep", len(loopStack)),
					Line:       lineNo,
					Suggestion: "Consider extracting inner loops or restructuring the iteration.",
					Metadata:   map[string]any{"tool": "heuristic", "depth": len(loopStack)},
				})
			}
		}

		inLoop := len(loopStack) > 0

		if inLoop && !opensLoop {
			switch {
			case stringAppendPattern.MatchString(trimmed):
				issues = append(issues, domain.Issue{
					Severity:   domain.SeverityMedium,
					Type:       "string_concat_in_loop",
					Message:    "String concatenation inside a loop",
					Line:       lineNo,
					Suggestion: "Use strings.Builder to accumulate strings in a loop.",
					Metadata:   map[string]any{"tool": "heuristic"},
				})
			case strings.HasPrefix(trimmed, "defer "):
				issues = append(issues, domain.Issue{
					Severity:   domain.SeverityLow,
					Type:       "defer_in_loop",
					Message:    "defer inside a loop runs only at function exit",
					Line:       lineNo,
					Suggestion: "Move the deferred work into a helper function or release resources explicitly.",
					Metadata:   map[string]any{"tool": "heuristic"},
				})
			case regexCompilePattern.MatchString(trimmed):
				issues = append(issues, domain.Issue{
					Severity:   domain.SeverityMedium,
					Type:       "regex_compile_in_loop",
					Message:    "Regular expression compiled inside a loop",
					Line:       lineNo,
					Suggestion: "Compile the pattern once outside the loop.",
					Metadata:   map[string]any{"tool": "heuristic"},
				})
			}
		}

		depth += strings.Count(line, "{") - strings.Count(line, "}")
		for len(loopStack) > 0 && depth <= loopStack[len(loopStack)-1] {
			loopStack = loopStack[:len(loopStack)-1]
		}
	}

	return issues, nil
}
