package queue

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tripweaver/pkg/db"
)

func testQueue(t *testing.T) *SQLiteQueue {
	t.Helper()
	d, err := db.Init(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return NewSQLiteQueue(d)
}

func TestSQLiteQueueLeaseAndAck(t *testing.T) {
	ctx := context.Background()
	q := testQueue(t)

	if err := q.Enqueue(ctx, "job-1"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	msg, err := q.Receive(ctx, time.Minute)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if msg.JobID != "job-1" {
		t.Fatalf("got job %q, want job-1", msg.JobID)
	}
	if msg.Receipt == "" {
		t.Fatal("receive returned empty receipt")
	}

	// Leased, so a second receive sees nothing.
	if _, err := q.Receive(ctx, time.Minute); err != ErrNoMessage {
		t.Fatalf("expected ErrNoMessage while leased, got %v", err)
	}

	if err := q.Delete(ctx, msg); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := q.Receive(ctx, time.Minute); err != ErrNoMessage {
		t.Fatalf("expected empty queue after ack, got %v", err)
	}
}

func TestSQLiteQueueRedelivery(t *testing.T) {
	ctx := context.Background()
	q := testQueue(t)

	if err := q.Enqueue(ctx, "job-1"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// A very short lease lapses almost immediately.
	first, err := q.Receive(ctx, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	second, err := q.Receive(ctx, time.Minute)
	if err != nil {
		t.Fatalf("receive after lapse: %v", err)
	}
	if second.JobID != "job-1" {
		t.Fatalf("got job %q after lapse, want job-1", second.JobID)
	}
	if second.Receipt == first.Receipt {
		t.Fatal("redelivery reused the old receipt")
	}

	// The original consumer's receipt is stale; its ack must not
	// remove the message out from under the new owner.
	if err := q.Delete(ctx, first); err != nil {
		t.Fatalf("delete with stale receipt: %v", err)
	}
	if err := q.Delete(ctx, second); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := q.Receive(ctx, time.Minute); err != ErrNoMessage {
		t.Fatalf("expected empty queue, got %v", err)
	}
}

func TestSQLiteQueueFIFO(t *testing.T) {
	ctx := context.Background()
	q := testQueue(t)

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
