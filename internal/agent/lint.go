package agent

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"code-review-orchestrator/internal/domain"
)

// lintRunner invokes an external linter binary and converts its
// JSON-lines output (staticcheck-style: one object per finding with
// code, severity, message and location fields) into issues.
type lintRunner struct {
	command       string
	maxMessageLen int
}

func newLintRunner(command string, maxMessageLen int) *lintRunner {
	if maxMessageLen <= 0 {
		maxMessageLen = 500
	}
	return &lintRunner{command: command, maxMessageLen: maxMessageLen}
}

// run writes the artifact to a temp file and invokes the linter on it.
// A nonzero exit with output is normal (linters exit nonzero on
// findings); a failure to invoke the binary at all is an error.
func (l *lintRunner) run(ctx context.Context, artifact *domain.Artifact) ([]domain.Issue, error) {
	tmp, err := os.CreateTemp("", "review-*"+filepath.Ext(artifact.Path))
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(artifact.Content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	cmd := exec.CommandContext(ctx, l.command, "-f", "json", tmp.Name())
	out, err := cmd.Output()
	if err != nil && len(out) == 0 {
		return nil, fmt.Errorf("invoking %s: %w", l.command, err)
	}

	return l.parse(string(out)), nil
}

// parse converts JSON-lines linter output into issues. Malformed lines
// are skipped; overly long messages are truncated in place before
// extraction.
func (l *lintRunner) parse(output string) []domain.Issue {
	var issues []domain.Issue
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !gjson.Valid(line) {
			continue
		}

		line = l.truncateField(line, "message")

		msg := gjson.Get(line, "message").String()
		if msg == "" {
			continue
		}

		issues = append(issues, domain.Issue{
			Severity: mapLintSeverity(gjson.Get(line, "severity").String()),
			Type:     gjson.Get(line, "code").String(),
			Message:  msg,
			Line:     int(gjson.Get(line, "location.line").Int()),
			Metadata: map[string]any{"tool": l.command},
		})
	}
	return issues
}

// truncateField bounds a string field of a tool output object.
func (l *lintRunner) truncateField(line, field string) string {
	v := gjson.Get(line, field).String()
	if len(v) > l.maxMessageLen {
		if updated, err := sjson.Set(line, field, v[:l.maxMessageLen]+"... [truncated]"); err == nil {
			return updated
		}
	}
	return line
}

func mapLintSeverity(severity string) domain.Severity {
	switch strings.ToLower(severity) {
	case "error":
		return domain.SeverityMedium
	case "warning":
		return domain.SeverityLow
	default:
		return domain.SeverityInfo
	}
}
