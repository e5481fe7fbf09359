package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"code-review-orchestrator/internal/domain"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "reviews.db")
	repo, err := NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleReview(id string, createdAt time.Time) *domain.Review {
	completedAt := createdAt.Add(2 * time.Second)
	return &domain.Review{
		ID:         id,
		Repository: "https://github.com/acme/widgets",
		Target:     "main.go",
		Status:     domain.StatusCompleted,
		Results: []domain.AgentResult{
			{
				AgentKind: domain.AgentSecurity,
				Success:   true,
				Duration:  150 * time.Millisecond,
				Issues: []domain.Issue{
					{
						Severity: domain.SeverityHigh,
						Type:     "weak_hash",
						Message:  "Weak hash algorithm (md5/sha1)",
						Line:     42,
					},
				},
			},
		},
		TotalIssues: 1,
		CreatedAt:   createdAt.UTC(),
		CompletedAt: &completedAt,
	}
}

func TestSQLiteSaveAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	original := sampleReview("rev-1", time.Now().UTC())
	if err := repo.SaveReview(ctx, original); err != nil {
		t.Fatalf("SaveReview failed: %v", err)
	}

	got, err := repo.GetReview(ctx, "rev-1")
	if err != nil {
		t.Fatalf("GetReview failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetReview returned nil for existing review")
	}
	if got.ID != original.ID || got.Repository != original.Repository {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Status != domain.StatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if len(got.Results) != 1 || len(got.Results[0].Issues) != 1 {
		t.Fatalf("results did not survive the round trip: %+v", got.Results)
	}
	if got.Results[0].Issues[0].Line != 42 {
		t.Errorf("issue line = %d, want 42", got.Results[0].Issues[0].Line)
	}
	if got.CompletedAt == nil {
		t.Error("completion time lost")
	}
}

func TestSQLiteGetMissing(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.GetReview(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("GetReview failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing review, got %+v", got)
	}
}

func TestSQLiteListReviews(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		r := sampleReview("rev-"+string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute))
		if err := repo.SaveReview(ctx, r); err != nil {
			t.Fatalf("SaveReview failed: %v", err)
		}
	}

	// Newest first.
	reviews, err := repo.ListReviews(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListReviews failed: %v", err)
	}
	if len(reviews) != 2 {
		t.Fatalf("got %d reviews, want 2", len(reviews))
	}
	if reviews[0].ID != "rev-e" || reviews[1].ID != "rev-d" {
		t.Errorf("unexpected order: %s, %s", reviews[0].ID, reviews[1].ID)
	}

	// Offset walks backwards through history.
	page, err := repo.ListReviews(ctx, 2, 2)
	if err != nil {
		t.Fatalf("ListReviews failed: %v", err)
	}
	if len(page) != 2 || page[0].ID != "rev-c" {
		t.Errorf("unexpected second page: %+v", page)
	}
}

func TestSQLiteListAllOldestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		r := sampleReview("rev-"+string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute))
		if err := repo.SaveReview(ctx, r); err != nil {
			t.Fatalf("SaveReview failed: %v", err)
		}
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d reviews, want 3", len(all))
	}
	if all[0].ID != "rev-a" || all[2].ID != "rev-c" {
		t.Errorf("unexpected order: %s .. %s", all[0].ID, all[2].ID)
	}
}

func TestSQLiteDeleteAll(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		r := sampleReview("rev-"+string(rune('a'+i)), time.Now().UTC())
		if err := repo.SaveReview(ctx, r); err != nil {
			t.Fatalf("SaveReview failed: %v", err)
		}
	}

	deleted, err := repo.DeleteAll(ctx)
	if err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected empty history after delete, got %d", len(all))
	}
}
