package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoSelector is returned when a request carries no effective selector.
var ErrNoSelector = errors.New("request has no file path, commit, pull request, or repo scan flag")

// SelectorKind tags the single effective input specifier of a request.
type SelectorKind int

const (
	SelectFile SelectorKind = iota
	SelectCommit
	SelectPullRequest
	SelectWholeRepo
)

func (k SelectorKind) String() string {
	switch k {
	case SelectFile:
		return "file"
	case SelectCommit:
		return "commit"
	case SelectPullRequest:
		return "pull_request"
	case SelectWholeRepo:
		return "whole_repo"
	}
	return fmt.Sprintf("selector(%d)", int(k))
}

// Selector is the typed selector variant. Constructing it applies the
// fixed precedence rule once, centrally, so resolution code never has to
// re-check conflicting request fields.
type Selector struct {
	Kind        SelectorKind
	Path        string // SelectFile
	Commit      string // SelectCommit; also carried as revision hint for SelectFile
	PullRequest int    // SelectPullRequest
}

// Selector derives the effective selector from the request using the
// precedence order file path > commit > pull request > whole-repo.
// Lower-precedence fields present in the request are ignored, except that
// a commit SHA set alongside a file path is kept as the revision to fetch
// the file at.
func (r *ReviewRequest) Selector() (Selector, error) {
	if path := strings.TrimSpace(r.FilePath); path != "" {
		return Selector{Kind: SelectFile, Path: path, Commit: strings.TrimSpace(r.CommitSHA)}, nil
	}
	if sha := strings.TrimSpace(r.CommitSHA); sha != "" {
		return Selector{Kind: SelectCommit, Commit: sha}, nil
	}
	if r.PullRequestID > 0 {
		return Selector{Kind: SelectPullRequest, PullRequest: r.PullRequestID}, nil
	}
	if r.ScanRepo {
		return Selector{Kind: SelectWholeRepo}, nil
	}
	return Selector{}, ErrNoSelector
}

// SelectedAgentKinds returns the agent kinds the request asks for, in
// canonical order, defaulting to all kinds. Unknown kinds are rejected.
func (r *ReviewRequest) SelectedAgentKinds() ([]AgentKind, error) {
	if len(r.AgentKinds) == 0 {
		return AllAgentKinds, nil
	}
	requested := make(map[AgentKind]bool, len(r.AgentKinds))
	for _, k := range r.AgentKinds {
		if !ValidAgentKind(k) {
			return nil, fmt.Errorf("unknown agent type %q", k)
		}
		requested[k] = true
	}
	kinds := make([]AgentKind, 0, len(requested))
	for _, k := range AllAgentKinds {
		if requested[k] {
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}
