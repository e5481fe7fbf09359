// Package analytics derives cross-review statistics. Summarize is a pure
// fold over a history snapshot supplied by the caller; it keeps no state
// of its own, so it can never drift from the persisted log.
package analytics

import (
	"sort"
	"time"

	"code-review-orchestrator/internal/domain"
)

// AgentStats aggregates one agent kind across the history.
type AgentStats struct {
	IssueCount    int           `json:"issue_count"`
	Executions    int           `json:"executions"` // successful executions
	Failures      int           `json:"failures"`
	MeanExecution time.Duration `json:"mean_execution_time"` // over successful executions only
}

// RepositoryCount is one repository's review count.
type RepositoryCount struct {
	Repository string `json:"repository"`
	Count      int    `json:"count"`
}

// Snapshot is the derived analytics view over a review history.
type Snapshot struct {
	TotalReviews       int                             `json:"total_reviews"`
	CompletedReviews   int                             `json:"completed_reviews"`
	FailedReviews      int                             `json:"failed_reviews"`
	TotalIssues        int                             `json:"total_issues"`
	SuccessRate        float64                         `json:"success_rate"`
	AvgIssuesPerReview float64                         `json:"avg_issues_per_review"`
	SeverityCounts     map[domain.Severity]int         `json:"severity_counts"`
	AgentStats         map[domain.AgentKind]AgentStats `json:"agent_stats"`
	Repositories       []RepositoryCount               `json:"repositories"`
	MostReviewed       string                          `json:"most_reviewed_repository"`
	RecentReviews      int                             `json:"recent_reviews"`
}

// Summarize folds the full review history into a snapshot. Issue and
// severity totals cover Completed reviews; per-agent means cover
// successful agent executions only. Ties for the most-reviewed
// repository break in first-seen order. An empty history yields zeros,
// never a division fault.
func Summarize(history []*domain.Review, now time.Time, recentWindow time.Duration) *Snapshot {
	snap := &Snapshot{
		SeverityCounts: make(map[domain.Severity]int),
		AgentStats:     make(map[domain.AgentKind]AgentStats),
	}

	totalDuration := make(map[domain.AgentKind]time.Duration)
	repoCounts := make(map[string]int)
	var repoOrder []string

	for _, review := range history {
		snap.TotalReviews++

		switch review.Status {
		case domain.StatusCompleted:
			snap.CompletedReviews++
		case domain.StatusFailed:
			snap.FailedReviews++
		}

		if _, seen := repoCounts[review.Repository]; !seen {
			repoOrder = append(repoOrder, review.Repository)
		}
		repoCounts[review.Repository]++

		if now.Sub(review.CreatedAt) <= recentWindow {
			snap.RecentReviews++
		}

		if review.Status != domain.StatusCompleted {
			continue
		}

		for _, result := range review.Results {
			stats := snap.AgentStats[result.AgentKind]
			if result.Success {
				stats.Executions++
				stats.IssueCount += len(result.Issues)
				totalDuration[result.AgentKind] += result.Duration
				for _, issue := range result.Issues {
					snap.SeverityCounts[issue.Severity]++
					snap.TotalIssues++
				}
			} else {
				stats.Failures++
			}
			snap.AgentStats[result.AgentKind] = stats
		}
	}

	for kind, stats := range snap.AgentStats {
		if stats.Executions > 0 {
			stats.MeanExecution = totalDuration[kind] / time.Duration(stats.Executions)
			snap.AgentStats[kind] = stats
		}
	}

	if snap.TotalReviews > 0 {
		snap.SuccessRate = float64(snap.CompletedReviews) / float64(snap.TotalReviews)
	}
	if snap.CompletedReviews > 0 {
		snap.AvgIssuesPerReview = float64(snap.TotalIssues) / float64(snap.CompletedReviews)
	}

	// Repository leaderboard, highest count first; insertion order is
	// first-seen, and the sort below is stable, so ties keep it.
	snap.Repositories = make([]RepositoryCount, 0, len(repoOrder))
	for _, repo := range repoOrder {
		snap.Repositories = append(snap.Repositories, RepositoryCount{Repository: repo, Count: repoCounts[repo]})
	}
	sort.SliceStable(snap.Repositories, func(i, j int) bool {
		return snap.Repositories[i].Count > snap.Repositories[j].Count
	})
	if len(snap.Repositories) > 0 {
		snap.MostReviewed = snap.Repositories[0].Repository
	}

	return snap
}
