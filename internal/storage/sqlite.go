package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // Pure Go driver, CGO-free, compatible with CGO_ENABLED=0

	"code-review-orchestrator/internal/domain"
)

// SQLiteRepository persists reviews in a single SQLite table with the
// full review payload as a JSON blob plus indexed query columns.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dsn string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func migrate(db *sql.DB) error {
	schema := `
    CREATE TABLE IF NOT EXISTS reviews (
        id           TEXT PRIMARY KEY,
        repository   TEXT NOT NULL,
        target       TEXT NOT NULL,
        status       TEXT NOT NULL,
        total_issues INTEGER NOT NULL,
        review_data  TEXT NOT NULL,
        created_at   DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_reviews_repo ON reviews(repository);
    CREATE INDEX IF NOT EXISTS idx_reviews_created ON reviews(created_at);
    `
	_, err := db.Exec(schema)
	return err
}

func (r *SQLiteRepository) SaveReview(ctx context.Context, review *domain.Review) error {
	data, err := json.Marshal(review)
	if err != nil {
		return fmt.Errorf("marshal review: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
        INSERT INTO reviews (id, repository, target, status, total_issues, review_data, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `, review.ID, review.Repository, review.Target, string(review.Status),
		review.TotalIssues, string(data), review.CreatedAt)
	return err
}

func (r *SQLiteRepository) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT review_data FROM reviews WHERE id = ?
    `, id)

	var data string
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return unmarshalReview(data)
}

func (r *SQLiteRepository) ListReviews(ctx context.Context, limit, offset int) ([]*domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT review_data FROM reviews
        ORDER BY created_at DESC
        LIMIT ? OFFSET ?
    `, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReviews(rows)
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]*domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT review_data FROM reviews
        ORDER BY created_at ASC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReviews(rows)
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *SQLiteRepository) Close() error {
	// Checkpoint the WAL so the main database file is current on shutdown.
	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE);"); err != nil {
		slog.Warn("wal checkpoint failed", "error", err)
	}
	return r.db.Close()
}

func scanReviews(rows *sql.Rows) ([]*domain.Review, error) {
	var reviews []*domain.Review
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			slog.Warn("scan review failed", "error", err)
			continue
		}
		review, err := unmarshalReview(data)
		if err != nil {
			slog.Warn("decode review failed", "error", err)
			continue
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}

func unmarshalReview(data string) (*domain.Review, error) {
	var review domain.Review
	if err := json.Unmarshal([]byte(data), &review); err != nil {
		return nil, fmt.Errorf("unmarshal review: %w", err)
	}
	// Normalize timestamps to UTC after the JSON round trip.
	review.CreatedAt = review.CreatedAt.UTC()
	if review.CompletedAt != nil {
		t := review.CompletedAt.UTC()
		review.CompletedAt = &t
	}
	return &review, nil
}
