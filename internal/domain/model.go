package domain

import (
	"time"
)

// Severity classifies how serious an issue is. Values are ordered from
// most to least severe for aggregation purposes.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// AllSeverities lists every severity in canonical order.
var AllSeverities = []Severity{
	SeverityCritical,
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
	SeverityInfo,
}

// AgentKind identifies one of the fixed analysis agents. The set is
// closed: adding a kind means registering a new agent implementation.
type AgentKind string

const (
	AgentQuality       AgentKind = "quality"
	AgentSecurity      AgentKind = "security"
	AgentPerformance   AgentKind = "performance"
	AgentDocumentation AgentKind = "documentation"
)

// AllAgentKinds is the canonical enumeration order. Review results are
// always emitted in this order regardless of execution order.
var AllAgentKinds = []AgentKind{
	AgentQuality,
	AgentSecurity,
	AgentPerformance,
	AgentDocumentation,
}

// ValidAgentKind reports whether k names a registered agent kind.
func ValidAgentKind(k AgentKind) bool {
	for _, known := range AllAgentKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Issue is a single finding produced by an agent. Immutable once produced.
type Issue struct {
	Severity   Severity       `json:"severity"`
	Type       string         `json:"issue_type"`
	Message    string         `json:"message"`
	Line       int            `json:"line_number,omitempty"` // 1-based, 0 = unknown
	Suggestion string         `json:"suggestion,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"` // originating tool plus tool-specific fields
}

// AgentResult is the outcome of running one agent against one artifact.
// A failed execution carries ErrorMessage and an empty issue list; it is
// still a first-class result and never aborts sibling agents.
type AgentResult struct {
	AgentKind    AgentKind      `json:"agent_type"`
	Success      bool           `json:"success"`
	Duration     time.Duration  `json:"execution_time"`
	Issues       []Issue        `json:"issues"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ReviewStatus is the lifecycle state of a Review. Completed and Failed
// are terminal.
type ReviewStatus string

const (
	StatusPending   ReviewStatus = "pending"
	StatusRunning   ReviewStatus = "running"
	StatusCompleted ReviewStatus = "completed"
	StatusFailed    ReviewStatus = "failed"
)

// Review metadata keys populated by the orchestrator.
const (
	MetaTruncated  = "truncated"
	MetaTotalFound = "total_files_found"
	MetaProcessed  = "files_processed"
)

// Review is the unit returned to external consumers: the outcome of
// running the selected agents over the artifacts of one request.
//
// Invariant: Status == Completed implies Results holds exactly one
// AgentResult per selected AgentKind, in AllAgentKinds order.
type Review struct {
	ID          string         `json:"id"`
	Repository  string         `json:"repository"`
	Target      string         `json:"target"` // resolved artifact path or scan description
	Status      ReviewStatus   `json:"status"`
	Results     []AgentResult  `json:"results"`
	TotalIssues int            `json:"total_issues"`
	Error       string         `json:"error,omitempty"` // populated only when Status == Failed
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// CountIssues sums issue counts across all results.
func (r *Review) CountIssues() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.Issues)
	}
	return n
}

// ReviewRequest is the external request shape. The effective selector is
// derived from the optional fields by Selector(); see selector.go.
type ReviewRequest struct {
	Repository    string      `json:"repository_url"`
	FilePath      string      `json:"file_path,omitempty"`
	CommitSHA     string      `json:"commit_sha,omitempty"`
	PullRequestID int         `json:"pull_request_id,omitempty"`
	ScanRepo      bool        `json:"scan_entire_repo,omitempty"`
	AgentKinds    []AgentKind `json:"agent_types,omitempty"` // empty = all
}

// Local reports whether the request addresses a purely local artifact,
// bypassing the source provider.
func (r *ReviewRequest) Local() bool {
	return r.Repository == ""
}

// RevisionLocal is the revision context for artifacts read from local disk.
const RevisionLocal = "local"

// Artifact is the immutable unit of analysis: one resolved source file
// plus its revision context. Created once by the resolver, owned by the
// orchestrator call that requested it, never mutated.
type Artifact struct {
	Path     string
	Content  string
	Revision string // commit sha, branch, or RevisionLocal
	Lines    int
}

// NewArtifact builds an artifact, computing the line count.
func NewArtifact(path, content, revision string) *Artifact {
	lines := 0
	if content != "" {
		lines = 1
		for i := 0; i < len(content); i++ {
			if content[i] == '\n' {
				lines++
			}
		}
	}
	return &Artifact{Path: path, Content: content, Revision: revision, Lines: lines}
}
