package agent

import (
	"context"
	"regexp"
	"strings"

	"code-review-orchestrator/internal/domain"
)

var (
	secretPattern = regexp.MustCompile(`(?i)(password|passwd|secret|api[_-]?key|access[_-]?token|private[_-]?key)\s*[:=]+\s*["'][^"']{4,}["']`)

	// Quoted SQL statement concatenated or interpolated with variables.
	sqlConcatPattern  = regexp.MustCompile(`(?i)"\s*(select|insert|update|delete)\b[^"]*"\s*\+`)
	sqlSprintfPattern = regexp.MustCompile(`(?i)fmt\.Sprintf\(\s*"\s*(select|insert|update|delete)\b`)

	weakHashPattern  = regexp.MustCompile(`\b(md5|sha1)\.(New|Sum)\b`)
	execConcat       = regexp.MustCompile(`exec\.Command(Context)?\([^)]*\+`)
	randUsagePattern = regexp.MustCompile(`\brand\.(Int|Intn|Int31|Int63|Float32|Float64|Read)\b`)
	secretWord       = regexp.MustCompile(`(?i)(token|secret|password|nonce|session|key)`)
)

// SecurityAgent scans for common vulnerability patterns: hardcoded
// credentials, SQL built by string concatenation, weak hashes, command
// injection, and non-cryptographic randomness in security contexts.
type SecurityAgent struct{}

func NewSecurityAgent() *SecurityAgent { return &SecurityAgent{} }

func (a *SecurityAgent) Kind() domain.AgentKind { return domain.AgentSecurity }

func (a *SecurityAgent) Analyze(_ context.Context, artifact *domain.Artifact) ([]domain.Issue, error) {
	var issues []domain.Issue

	for i, line := range strings.Split(artifact.Content, "\n") {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if secretPattern.MatchString(line) {
			issues = append(issues, domain.Issue{
				Severity:   domain.SeverityCritical,
				Type:       "hardcoded_secret",
				Message:    "Possible hardcoded credential",
				Line:       lineNo,
				Suggestion: "Load secrets from the environment or a secret manager instead of source code.",
				Metadata:   map[string]any{"tool": "heuristic"},
			})
		}

		if sqlConcatPattern.MatchString(line) || sqlSprintfPattern.MatchString(line) {
			issues = append(issues, domain.Issue{
				Severity:   domain.SeverityCritical,
				Type:       "sql_injection",
				Message:    "SQL statement built from string concatenation or interpolation",
				Line:       lineNo,
				Suggestion: "Use parameterized queries with placeholder arguments.",
				Metadata:   map[string]any{"tool": "heuristic"},
			})
		}

		if weakHashPattern.MatchString(line) {
			issues = append(issues, domain.Issue{
				Severity:   domain.SeverityHigh,
				Type:       "weak_hash",
				Message:    "Weak hash algorithm (md5/sha1)",
				Line:       lineNo,
				Suggestion: "Use sha256 or stronger for anything security sensitive.",
				Metadata:   map[string]any{"tool": "heuristic"},
			})
		}

		if execConcat.MatchString(line) {
			issues = append(issues, domain.Issue{
				Severity:   domain.SeverityHigh,
				Type:       "command_injection",
				Message:    "Command constructed from concatenated input",
				Line:       lineNo,
				Suggestion: "Pass untrusted values as discrete arguments, never concatenated into the command.",
				Metadata:   map[string]any{"tool": "heuristic"},
			})
		}

		if randUsagePattern.MatchString(line) && secretWord.MatchString(line) {
			issues = append(issues, domain.Issue{
				Severity:   domain.SeverityHigh,
				Type:       "insecure_random",
				Message:    "math/rand used in a security-sensitive context",
				Line:       lineNo,
				Suggestion: "Use crypto/rand for tokens, keys, and nonces.",
				Metadata:   map[string]any{"tool": "heuristic"},
			})
		}
	}

	return issues, nil
}
