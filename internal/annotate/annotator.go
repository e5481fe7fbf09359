// Package annotate implements the advisory language-model annotator.
// It is consulted to enrich issue suggestions and is never required for
// a review to complete: every failure here degrades to "no suggestion".
package annotate

import (
	"fmt"

	"code-review-orchestrator/internal/agent"
	"code-review-orchestrator/internal/config"
	"code-review-orchestrator/internal/domain"
)

// New creates an annotator for the configured backend, or nil when the
// annotator is disabled.
func New(cfg config.AnnotatorConfig) (agent.Annotator, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	switch cfg.Backend {
	case "langchain":
		return newLangChainAnnotator(cfg)
	case "", "openai":
		return newOpenAIAnnotator(cfg), nil
	default:
		return nil, fmt.Errorf("unknown annotator backend: %s", cfg.Backend)
	}
}

const suggestSystemPrompt = "You are a code review assistant. Given one finding in a source file, " +
	"reply with a single short remediation suggestion (one or two sentences, plain text, no markdown)."

// suggestPrompt builds the user prompt for one issue, quoting the
// offending line when it is known.
func suggestPrompt(artifact *domain.Artifact, issue domain.Issue) string {
	prompt := fmt.Sprintf("File: %s\nFinding (%s, %s): %s\n",
		artifact.Path, issue.Type, issue.Severity, issue.Message)
	if line := issueLine(artifact, issue); line != "" {
		prompt += fmt.Sprintf("Offending line %d: %s\n", issue.Line, line)
	}
	return prompt + "Suggest a fix."
}

func issueLine(artifact *domain.Artifact, issue domain.Issue) string {
	if issue.Line <= 0 {
		return ""
	}
	n := 1
	start := 0
	for i := 0; i < len(artifact.Content); i++ {
		if n == issue.Line {
			end := i
			for end < len(artifact.Content) && artifact.Content[end] != '\n' {
				end++
			}
			return artifact.Content[start:end]
		}
		if artifact.Content[i] == '\n' {
			n++
			start = i + 1
		}
	}
	if n == issue.Line {
		return artifact.Content[start:]
	}
	return ""
}
