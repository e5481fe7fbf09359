package agent

import (
	"context"
	"fmt"
	"strings"

	"code-review-orchestrator/internal/domain"
)

const (
	maxLineLength    = 120
	maxFunctionLines = 80
)

// QualityAgent analyzes code style and structure. It combines built-in
// heuristics with an optional external linter.
type QualityAgent struct {
	lint *lintRunner // nil when no linter is configured
}

// NewQualityAgent creates the quality agent. lintCommand names an
// external linter binary producing JSON-lines output; empty disables it.
func NewQualityAgent(lintCommand string, maxToolMessageLen int) *QualityAgent {
	a := &QualityAgent{}
	if lintCommand != "" {
		a.lint = newLintRunner(lintCommand, maxToolMessageLen)
	}
	return a
}

func (a *QualityAgent) Kind() domain.AgentKind { return domain.AgentQuality }

// Analyze runs the configured linter plus line-level heuristics. A
// configured linter that cannot be invoked fails the whole analysis;
// Execute converts that into a failed result.
func (a *QualityAgent) Analyze(ctx context.Context, artifact *domain.Artifact) ([]domain.Issue, error) {
	var issues []domain.Issue

	if a.lint != nil {
		lintIssues, err := a.lint.run(ctx, artifact)
		if err != nil {
			return nil, fmt.Errorf("lint tool: %w", err)
		}
		issues = append(issues, lintIssues...)
	}

	lines := strings.Split(artifact.Content, "\n")

	funcStart, funcDepth := 0, 0
	funcName := ""
	depth := 0

	for i, line := range lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)

		if len(line) > maxLineLength {
			issues = append(issues, domain.Issue{
				Severity: domain.SeverityLow,
				Type:     "long_line",
				Message:  fmt.Sprintf("Line exceeds %d characters (%d)", maxLineLength, len(line)),
				Line:     lineNo,
				Metadata: map[string]any{"tool": "heuristic"},
			})
		}

		if idx := strings.Index(trimmed, "TODO"); idx >= 0 || strings.Contains(trimmed, "FIXME") {
			if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") {
				issues = append(issues, domain.Issue{
					Severity: domain.SeverityInfo,
					Type:     "todo_comment",
					Message:  "Unresolved TODO/FIXME comment",
					Line:     lineNo,
					Metadata: map[string]any{"tool": "heuristic"},
				})
			}
		}

		if strings.HasPrefix(trimmed, "func ") && strings.HasSuffix(trimmed, "{") && funcName == "" {
			funcStart = lineNo
			funcDepth = depth
			funcName = functionName(trimmed)
		}

		depth += strings.Count(line, "{") - strings.Count(line, "}")

		if funcName != "" && depth <= funcDepth {
			if length := lineNo - funcStart + 1; length > maxFunctionLines {
				issues = append(issues, domain.Issue{
					Severity:   domain.SeverityMedium,
					Type:       "long_function",
					Message:    fmt.Sprintf("Function '%s' is %d lines long", funcName, length),
					Line:       funcStart,
					Suggestion: "Consider splitting this function into smaller pieces.",
					Metadata:   map[string]any{"tool": "heuristic", "length": length},
				})
			}
			funcName = ""
		}
	}

	return issues, nil
}

// functionName extracts the identifier from a func declaration line.
func functionName(line string) string {
	rest := strings.TrimPrefix(line, "func ")
	// Skip a method receiver if present.
	if strings.HasPrefix(rest, "(") {
		if end := strings.Index(rest, ")"); end >= 0 {
			rest = strings.TrimSpace(rest[end+1:])
		}
	}
	if end := strings.IndexAny(rest, "(["); end > 0 {
		return rest[:end]
	}
	return rest
}
