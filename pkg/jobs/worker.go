package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tripweaver/pkg/config"
	"tripweaver/pkg/model"
	"tripweaver/pkg/queue"
	"tripweaver/pkg/store"
)

// Builder constructs one itinerary. Implemented by planner.Planner.
type Builder interface {
	Build(ctx context.Context, req *model.ItineraryRequest) (*model.ItineraryResult, error)
}

// Worker leases jobs from the queue and runs the planner on them.
// Delivery is at-least-once: a worker that crashes mid-plan simply
// lets the lease lapse, and terminal transitions are idempotent, so a
// redelivered job is acknowledged without a second planning run.
type Worker struct {
	id      int
	manager *Manager
	queue   queue.Queue
	builder Builder

	visibility time.Duration
	poll       time.Duration
	attemptCap int
	margin     time.Duration
}

// NewWorker creates a Worker.
func NewWorker(id int, m *Manager, q queue.Queue, b Builder, qcfg config.QueueConfig, jcfg config.JobsConfig) *Worker {
	return &Worker{
		id:         id,
		manager:    m,
		queue:      q,
		builder:    b,
		visibility: time.Duration(qcfg.VisibilityTimeout),
		poll:       time.Duration(qcfg.PollInterval),
		attemptCap: jcfg.AttemptCap,
		margin:     time.Duration(jcfg.DeadlineMargin),
	}
}

// Run processes jobs until the context ends.
func (w *Worker) Run(ctx context.Context) {
	slog.Info("Worker started", "worker", w.id)
	for {
		if ctx.Err() != nil {
			slog.Info("Worker stopped", "worker", w.id)
			return
		}

		msg, err := w.queue.Receive(ctx, w.visibility)
		if errors.Is(err, queue.ErrNoMessage) {
			select {
			case <-ctx.Done():
			case <-time.After(w.poll):
			}
			continue
		}
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("Queue receive failed", "worker", w.id, "error", err)
				select {
				case <-ctx.Done():
				case <-time.After(w.poll):
				}
			}
			continue
		}

		w.process(ctx, msg)
	}
}

// process runs one leased message to its conclusion. The message is
// acknowledged on every terminal outcome and on stale deliveries; it is
// deliberately NOT acknowledged on transient errors, so the lease lapse
// redelivers the job for another attempt.
func (w *Worker) process(ctx context.Context, msg *queue.Message) {
	log := slog.With("worker", w.id, "job", msg.JobID)

	job, err := w.manager.Get(ctx, msg.JobID)
	if errors.Is(err, store.ErrNotFound) {
		// Expired or swept while queued. Nothing left to do.
		w.ack(ctx, msg, log)
		return
	}
	if err != nil {
		log.Error("Failed to load job", "error", err)
		return
	}
	if job.Status.Terminal() {
		// Redelivery of work that already finished.
		log.Debug("Duplicate delivery of terminal job, acknowledging")
		w.ack(ctx, msg, log)
		return
	}

	attempts, err := w.manager.IncrementAttempt(ctx, msg.JobID)
	if errors.Is(err, ErrTerminal) {
		w.ack(ctx, msg, log)
		return
	}
	if err != nil {
		log.Error("Failed to record attempt", "error", err)
		return
	}
	if w.attemptCap > 0 && attempts > w.attemptCap {
		log.Warn("Attempt cap exhausted", "attempts", attempts)
		failure := model.NewPlanError(model.ReasonInternalError,
			"planning failed after %d attempts", attempts-1)
		w.finish(ctx, msg, log, func() error { return w.manager.Fail(ctx, msg.JobID, failure) })
		return
	}

	// The planning deadline stays inside the lease so a slow run cannot
	// overlap its own redelivery.
	planCtx := ctx
	if deadline := w.visibility - w.margin; deadline > 0 {
		var cancel context.CancelFunc
		planCtx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	log.Info("Planning started", "attempt", attempts)
	result, err := w.builder.Build(planCtx, &job.Request)

	var planErr *model.PlanError
	switch {
	case errors.As(err, &planErr):
		log.Info("Planning infeasible", "reason", planErr.Reason, "message", planErr.Message)
		w.finish(ctx, msg, log, func() error { return w.manager.Fail(ctx, msg.JobID, planErr) })
	case err != nil:
		// Transient: leave the message leased and let it come back.
		log.Warn("Planning attempt failed", "attempt", attempts, "error", err)
	default:
		log.Info("Planning completed", "stops", result.Summary.Stops)
		w.finish(ctx, msg, log, func() error { return w.manager.Complete(ctx, msg.JobID, result) })
	}
}

// finish applies a terminal transition and acknowledges the message.
// Losing the transition race to another worker still acknowledges: the
// job is terminal either way.
func (w *Worker) finish(ctx context.Context, msg *queue.Message, log *slog.Logger, apply func() error) {
	if err := apply(); err != nil && !errors.Is(err, ErrTerminal) {
		log.Error("Terminal transition failed", "error", err)
		return
	}
	w.ack(ctx, msg, log)
}

func (w *Worker) ack(ctx context.Context, msg *queue.Message, log *slog.Logger) {
	if err := w.queue.Delete(ctx, msg); err != nil {
		log.Error("Failed to acknowledge message", "error", err)
	}
}
