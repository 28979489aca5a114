// Package jobs owns the itinerary job lifecycle: submission, lookup,
// terminal transitions, and expiry. A job is created in processing,
// moves exactly once to completed or failed, and disappears from the
// API once its TTL passes.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tripweaver/pkg/config"
	"tripweaver/pkg/model"
	"tripweaver/pkg/queue"
	"tripweaver/pkg/store"
)

// ErrTerminal is returned when a transition targets a job that already
// reached a terminal status.
var ErrTerminal = errors.New("job already terminal")

// ErrInvalidRequest wraps request validation failures at submission.
var ErrInvalidRequest = errors.New("invalid request")

// Manager coordinates the job store and the work queue.
type Manager struct {
	store store.JobStore
	queue queue.Queue
	cfg   config.JobsConfig

	now func() time.Time // test hook
}

// NewManager creates a Manager.
func NewManager(s store.JobStore, q queue.Queue, cfg config.JobsConfig) *Manager {
	return &Manager{store: s, queue: q, cfg: cfg, now: time.Now}
}

// Submit validates the request, persists a new processing job, and
// enqueues it. The returned job carries the id the caller polls with.
func (m *Manager) Submit(ctx context.Context, req *model.ItineraryRequest) (*model.ItineraryJob, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	now := m.now().UTC()
	job := &model.ItineraryJob{
		ID:        uuid.NewString(),
		Status:    model.StatusProcessing,
		Request:   *req,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(m.cfg.TTL)),
		Token:     uuid.NewString(),
	}

	if err := m.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}
	if err := m.queue.Enqueue(ctx, job.ID); err != nil {
		// The record exists but no worker will ever see it. Remove it
		// so the caller's retry does not leave an orphan behind.
		if derr := m.store.DeleteJob(ctx, job.ID); derr != nil {
			slog.Error("Failed to clean up unqueued job", "id", job.ID, "error", derr)
		}
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	slog.Info("Job submitted", "id", job.ID, "mode", req.Mode, "budget", req.MaxDurationMinutes)
	return job, nil
}

// Get returns the job, treating soft-expired records as absent.
func (m *Manager) Get(ctx context.Context, id string) (*model.ItineraryJob, error) {
	job, err := m.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Expired(m.now()) {
		return nil, store.ErrNotFound
	}
	return job, nil
}

// Complete moves the job to completed with its result. Safe under
// redelivery: a job already terminal is left untouched.
func (m *Manager) Complete(ctx context.Context, id string, result *model.ItineraryResult) error {
	return m.transition(ctx, id, func(job *model.ItineraryJob) {
		job.Status = model.StatusCompleted
		job.Result = result
		job.Failure = nil
	})
}

// Fail moves the job to failed with the given terminal failure.
func (m *Manager) Fail(ctx context.Context, id string, failure *model.PlanError) error {
	return m.transition(ctx, id, func(job *model.ItineraryJob) {
		job.Status = model.StatusFailed
		job.Failure = failure
		job.Result = nil
	})
}

// IncrementAttempt bumps the attempt counter before a planning run and
// returns the new count.
func (m *Manager) IncrementAttempt(ctx context.Context, id string) (int, error) {
	var attempts int
	err := m.transition(ctx, id, func(job *model.ItineraryJob) {
		job.Attempts++
		attempts = job.Attempts
	})
	return attempts, err
}

// transition applies mutate under the token CAS, re-reading and
// retrying on concurrent writes. Terminal jobs are never mutated.
func (m *Manager) transition(ctx context.Context, id string, mutate func(*model.ItineraryJob)) error {
	const maxRetries = 3

	for attempt := 0; attempt < maxRetries; attempt++ {
		job, err := m.store.GetJob(ctx, id)
		if err != nil {
			return err
		}
		if job.Status.Terminal() {
			return ErrTerminal
		}

		expect := job.Token
		mutate(job)
		if job.Status.Terminal() {
			now := m.now().UTC()
			job.CompletedAt = &now
		}
		job.Token = uuid.NewString()

		err = m.store.UpdateJob(ctx, job, expect)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrStale) {
			return err
		}
		slog.Debug("Concurrent job update, retrying", "id", id, "attempt", attempt+1)
	}
	return store.ErrStale
}

// SweepExpired hard-deletes records past their TTL, in batches. Returns
// the number of rows removed.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	const batch = 100

	removed := 0
	for {
		ids, err := m.store.QueryExpiredJobs(ctx, m.now(), batch)
		if err != nil {
			return removed, err
		}
		if len(ids) == 0 {
			return removed, nil
		}
		for _, id := range ids {
			if err := m.store.DeleteJob(ctx, id); err != nil {
				return removed, err
			}
			removed++
		}
		if len(ids) < batch {
			return removed, nil
		}
	}
}

// RunSweeper deletes expired jobs on the configured interval until the
// context ends.
func (m *Manager) RunSweeper(ctx context.Context) {
	interval := time.Duration(m.cfg.SweepInterval)
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.SweepExpired(ctx)
			if err != nil {
				slog.Error("Expiry sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("Expired jobs removed", "count", n)
			}
		}
	}
}
