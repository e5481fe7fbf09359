package storage

import (
	"context"

	"code-review-orchestrator/internal/domain"
)

// Repository is the review history store. The history is append-only:
// reviews are saved once, after they reach a terminal status, and never
// updated.
type Repository interface {
	SaveReview(ctx context.Context, review *domain.Review) error
	GetReview(ctx context.Context, id string) (*domain.Review, error)
	ListReviews(ctx context.Context, limit, offset int) ([]*domain.Review, error)
	// ListAll returns the full history, oldest first, for the analytics fold.
	ListAll(ctx context.Context) ([]*domain.Review, error)
	DeleteAll(ctx context.Context) (int64, error)
	Close() error
}
