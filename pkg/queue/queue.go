// Package queue provides the at-least-once work queue contract the
// dispatcher runs on: enqueue a job reference, lease it with a
// visibility timeout, and acknowledge by deleting. A message whose
// lease lapses without a delete becomes visible again.
package queue

import (
	"context"
	"errors"
	"time"
)

// ErrNoMessage is returned by Receive when nothing is currently visible.
var ErrNoMessage = errors.New("no message available")

// Message is one leased queue entry. Receipt identifies the lease; a
// Delete with an outdated receipt is a no-op, so a slow consumer cannot
// acknowledge work that has already been handed to someone else.
type Message struct {
	JobID   string
	Receipt string
}

// Queue is the work distribution contract between submission and the
// worker loop.
type Queue interface {
	// Enqueue makes the job reference available immediately.
	Enqueue(ctx context.Context, jobID string) error

	// Receive leases the oldest visible message, hiding it from other
	// consumers for the visibility duration. Returns ErrNoMessage when
	// the queue is empty or everything is leased.
	Receive(ctx context.Context, visibility time.Duration) (*Message, error)

	// Delete acknowledges a leased message so it is never redelivered.
	Delete(ctx context.Context, msg *Message) error
}
