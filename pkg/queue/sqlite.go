package queue

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"tripweaver/pkg/db"
)

// SQLiteQueue implements Queue on the shared sqlite database. The
// single-writer connection in pkg/db serializes the lease update, so
// two workers on the same process never double-lease a row; across
// processes the conditional UPDATE below does the same job.
type SQLiteQueue struct {
	db *db.DB
}

// NewSQLiteQueue creates a queue on the given database.
func NewSQLiteQueue(d *db.DB) *SQLiteQueue {
	return &SQLiteQueue{db: d}
}

func (q *SQLiteQueue) Enqueue(ctx context.Context, jobID string) error {
	now := time.Now().UTC()
	_, err := q.db.ExecContext(ctx,
		"INSERT INTO job_queue (job_id, receipt, visible_at, enqueued_at) VALUES (?, NULL, ?, ?)",
		jobID, now, now)
	return err
}

func (q *SQLiteQueue) Receive(ctx context.Context, visibility time.Duration) (*Message, error) {
	now := time.Now().UTC()

	var seq int64
	var jobID string
	err := q.db.QueryRowContext(ctx,
		"SELECT seq, job_id FROM job_queue WHERE visible_at <= ? ORDER BY seq LIMIT 1",
		now).Scan(&seq, &jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoMessage
	}
	if err != nil {
		return nil, err
	}

	receipt := uuid.NewString()
	res, err := q.db.ExecContext(ctx,
		"UPDATE job_queue SET receipt = ?, visible_at = ? WHERE seq = ? AND visible_at <= ?",
		receipt, now.Add(visibility), seq, now)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Another consumer raced us to this row.
		return nil, ErrNoMessage
	}

	return &Message{JobID: jobID, Receipt: receipt}, nil
}

func (q *SQLiteQueue) Delete(ctx context.Context, msg *Message) error {
	_, err := q.db.ExecContext(ctx,
		"DELETE FROM job_queue WHERE receipt = ?", msg.Receipt)
	return err
}
