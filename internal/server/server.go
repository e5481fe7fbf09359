// Package server exposes the review engine over HTTP: review
// submission (sync and queued), history queries, and analytics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"code-review-orchestrator/internal/analytics"
	"code-review-orchestrator/internal/config"
	"code-review-orchestrator/internal/domain"
	"code-review-orchestrator/internal/orchestrator"
	"code-review-orchestrator/internal/resolver"
	"code-review-orchestrator/internal/storage"
	insync "code-review-orchestrator/internal/sync"
	"code-review-orchestrator/internal/worker"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Server wires the orchestrator, the review store, and the background
// pool behind the HTTP API.
type Server struct {
	cfg   *config.Config
	orch  *orchestrator.Orchestrator
	store storage.Repository
	pool  *worker.Pool
	locks *insync.KeyLock
}

func New(cfg *config.Config, orch *orchestrator.Orchestrator, store storage.Repository, pool *worker.Pool) *Server {
	return &Server{
		cfg:   cfg,
		orch:  orch,
		store: store,
		pool:  pool,
		locks: insync.NewKeyLock(),
	}
}

// Routes builds the full mux, including health probes and the
// Prometheus endpoint.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/reviews", s.handleCreateReview)
	mux.HandleFunc("GET /api/v1/reviews", s.handleListReviews)
	mux.HandleFunc("GET /api/v1/reviews/{id}", s.handleGetReview)
	mux.HandleFunc("DELETE /api/v1/reviews", s.handleDeleteReviews)
	mux.HandleFunc("GET /api/v1/analytics", s.handleAnalytics)

	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Readiness requires the store to answer; a broken database means
	// reviews would run and then vanish.
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if s.store != nil {
			if _, err := s.store.ListReviews(r.Context(), 1, 0); err != nil {
				slog.Warn("storage unhealthy", "error", err)
				http.Error(w, "Storage Unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Ready"))
	})

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// handleCreateReview accepts a review request. With ?async=true the
// request is queued and answered 202; otherwise the review runs inline
// and the completed records are returned.
func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Error reading request body", http.StatusBadRequest)
		return
	}

	var req domain.ReviewRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	// Reject malformed requests before queueing so async submitters
	// still get validation errors synchronously.
	if _, err := req.Selector(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := req.SelectedAgentKinds(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("async") == "true" {
		s.enqueueReview(w, &req)
		return
	}

	reviews, err := s.orch.Run(r.Context(), &req)
	if err != nil {
		s.persistFailure(r, &req, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	s.persistReviews(r.Context(), reviews)

	writeJSON(w, http.StatusOK, map[string]any{
		"reviews": reviews,
		"count":   len(reviews),
	})
}

// enqueueReview submits the request to the background pool. The same
// target cannot be queued twice concurrently.
func (s *Server) enqueueReview(w http.ResponseWriter, req *domain.ReviewRequest) {
	key := requestKey(req)
	if !s.locks.TryLock(key) {
		http.Error(w, "Review already in progress for this target", http.StatusConflict)
		return
	}

	job := func(ctx context.Context) error {
		defer s.locks.Unlock(key)
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic in queued review",
					"panic", rec,
					"stack", string(debug.Stack()))
			}
		}()

		reviews, err := s.orch.Run(ctx, req)
		if err != nil {
			slog.Error("queued review failed", "repository", req.Repository, "error", err)
			if s.store != nil {
				failed := orchestrator.FailedReview(req, err)
				if saveErr := s.store.SaveReview(ctx, failed); saveErr != nil {
					slog.Error("persist failed review failed", "error", saveErr)
				}
			}
			return err
		}
		s.persistReviews(ctx, reviews)
		return nil
	}

	if err := s.pool.Submit(job); err != nil {
		s.locks.Unlock(key)
		http.Error(w, "Review queue is full", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":     "queued",
		"repository": req.Repository,
	})
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "Storage not configured", http.StatusServiceUnavailable)
		return
	}

	limit := queryInt(r, "limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	reviews, err := s.store.ListReviews(r.Context(), limit, offset)
	if err != nil {
		slog.Error("list reviews failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if reviews == nil {
		reviews = []*domain.Review{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"reviews": reviews,
		"count":   len(reviews),
	})
}

func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "Storage not configured", http.StatusServiceUnavailable)
		return
	}

	id := r.PathValue("id")
	review, err := s.store.GetReview(r.Context(), id)
	if err != nil {
		slog.Error("get review failed", "id", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if review == nil {
		http.Error(w, "Review not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, review)
}

func (s *Server) handleDeleteReviews(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "Storage not configured", http.StatusServiceUnavailable)
		return
	}

	deleted, err := s.store.DeleteAll(r.Context())
	if err != nil {
		slog.Error("delete reviews failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "Storage not configured", http.StatusServiceUnavailable)
		return
	}

	history, err := s.store.ListAll(r.Context())
	if err != nil {
		slog.Error("load history failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	snap := analytics.Summarize(history, time.Now().UTC(), s.cfg.Analytics.RecentWindow)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) persistReviews(ctx context.Context, reviews []*domain.Review) {
	if s.store == nil {
		return
	}
	for _, review := range reviews {
		if err := s.store.SaveReview(ctx, review); err != nil {
			slog.Error("persist review failed", "id", review.ID, "error", err)
		}
	}
}

func (s *Server) persistFailure(r *http.Request, req *domain.ReviewRequest, err error) {
	if s.store == nil {
		return
	}
	failed := orchestrator.FailedReview(req, err)
	if saveErr := s.store.SaveReview(r.Context(), failed); saveErr != nil {
		slog.Error("persist failed review failed", "error", saveErr)
	}
}

// requestKey identifies a review target for duplicate suppression.
func requestKey(req *domain.ReviewRequest) string {
	return fmt.Sprintf("%s|%s|%s|%d|%t",
		req.Repository, req.FilePath, req.CommitSHA, req.PullRequestID, req.ScanRepo)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, resolver.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, resolver.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, resolver.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response failed", "error", err)
	}
}
