package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"code-review-orchestrator/internal/domain"
)

var (
	exportedFuncPattern = regexp.MustCompile(`^func (?:\([^)]+\) )?([A-Z]\w*)\(`)
	exportedTypePattern = regexp.MustCompile(`^type ([A-Z]\w*)\b`)
	packagePattern      = regexp.MustCompile(`^package \w+`)
)

// DocumentationAgent checks documentation coverage: package comments and
// doc comments on exported declarations. Test files are exempt.
type DocumentationAgent struct{}

func NewDocumentationAgent() *DocumentationAgent { return &DocumentationAgent{} }

func (a *DocumentationAgent) Kind() domain.AgentKind { return domain.AgentDocumentation }

func (a *DocumentationAgent) Analyze(_ context.Context, artifact *domain.Artifact) ([]domain.Issue, error) {
	if strings.HasSuffix(artifact.Path, "_test.go") {
		return nil, nil
	}

	var issues []domain.Issue
	lines := strings.Split(artifact.Content, "\n")

	for i, line := range lines {
		lineNo := i + 1

		if packagePattern.MatchString(line) {
			if !precededByComment(lines, i) {
				issues = append(issues, domain.Issue{
					Severity:   domain.SeverityLow,
					Type:       "missing_package_doc",
					Message:    "Package has no package comment",
					Line:       lineNo,
					Suggestion: "Add a package comment describing what the package provides.",
					Metadata:   map[string]any{"tool": "heuristic"},
				})
			}
			continue
		}

		if m := exportedFuncPattern.FindStringSubmatch(line); m != nil {
			if !precededByComment(lines, i) {
				issues = append(issues, domain.Issue{
					Severity:   domain.SeverityMedium,
					Type:       "missing_doc_comment",
					Message:    fmt.Sprintf("Exported function '%s' has no doc comment", m[1]),
					Line:       lineNo,
					Suggestion: fmt.Sprintf("Add a comment starting with '%s ...' above the declaration.", m[1]),
					Metadata:   map[string]any{"tool": "heuristic", "identifier": m[1]},
				})
			}
			continue
		}

		if m := exportedTypePattern.FindStringSubmatch(line); m != nil {
			if !precededByComment(lines, i) {
				issues = append(issues, domain.Issue{
					Severity:   domain.SeverityMedium,
					Type:       "missing_doc_comment",
					Message:    fmt.Sprintf("Exported type '%s' has no doc comment", m[1]),
					Line:       lineNo,
					Suggestion: fmt.Sprintf("Add a comment starting with '%s ...' above the declaration.", m[1]),
					Metadata:   map[string]any{"tool": "heuristic", "identifier": m[1]},
				})
			}
		}
	}

	return issues, nil
}

// precededByComment reports whether the line directly above index i is a
// line comment.
func precededByComment(lines []string, i int) bool {
	if i == 0 {
		return false
	}
	prev := strings.TrimSpace(lines[i-1])
	return strings.HasPrefix(prev, "//") || strings.HasSuffix(prev, "*/")
}
