package queue

import (
	"context"
	"testing"
	"time"
)

func TestMemoryQueueLease(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	now := time.Now()
	q.SetClock(func() time.Time { return now })

	if err := q.Enqueue(ctx, "job-1"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	msg, err := q.Receive(ctx, 30*time.Second)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if msg.JobID != "job-1" {
		t.Fatalf("got job %q, want job-1", msg.JobID)
	}

	// Leased message is hidden from other receivers.
	if _, err := q.Receive(ctx, 30*time.Second); err != ErrNoMessage {
		t.Fatalf("expected ErrNoMessage while leased, got %v", err)
	}

	// After the lease lapses the message is delivered again with a
	// fresh receipt.
	now = now.Add(31 * time.Second)
	again, err := q.Receive(ctx, 30*time.Second)
	if err != nil {
		t.Fatalf("receive after lapse: %v", err)
	}
	if again.JobID != "job-1" {
		t.Fatalf("got job %q after lapse, want job-1", again.JobID)
	}
	if again.Receipt == msg.Receipt {
		t.Fatal("redelivery reused the old receipt")
	}

	// The stale receipt no longer acknowledges anything.
	if err := q.Delete(ctx, msg); err != nil {
		t.Fatalf("delete with stale receipt: %v", err)
	}
	if q.Len() != 1 {
		t.Fatalf("stale delete removed the message, len=%d", q.Len())
	}

	if err := q.Delete(ctx, again); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if q.Len() != 0 {
		t.Fatalf("queue not empty after ack, len=%d", q.Len())
	}
}

func TestMemoryQueueOrder(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()

	for _, id := range []string{"a", "b", "c"} {
		if err := q.Enqueue(ctx, id); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}
	for _, want := range []string{"a", "b", "c"} {
		msg, err := q.Receive(ctx, time.Minute)
		if err != nil {
			t.Fatalf("receive: %v", err)
		}
		if msg.JobID != want {
			t.Fatalf("got %q, want %q", msg.JobID, want)
		}
	}
}

func TestMemoryQueueEmpty(t *testing.T) {
	q := NewMemoryQueue()
	if _, err := q.Receive(context.Background(), time.Minute); err != ErrNoMessage {
		t.Fatalf("expected ErrNoMessage, got %v", err)
	}
}
