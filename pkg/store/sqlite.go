package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tripweaver/pkg/db"
	"tripweaver/pkg/model"
)

// SQLiteStore implements JobStore and CacheStore on a shared database.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Jobs ---

func (s *SQLiteStore) CreateJob(ctx context.Context, job *model.ItineraryJob) error {
	reqJSON, err := json.Marshal(job.Request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	query := `INSERT INTO trip_jobs (
		id, status, request, result, failure,
		created_at, completed_at, expires_at, attempts, token
	) VALUES (?, ?, ?, NULL, NULL, ?, NULL, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		job.ID, string(job.Status), string(reqJSON),
		job.CreatedAt, job.ExpiresAt, job.Attempts, job.Token,
	)
	return err
}

func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*model.ItineraryJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, request, result, failure, created_at, completed_at, expires_at, attempts, token
		 FROM trip_jobs WHERE id = ?`, id)
	return scanJob(row)
}

func (s *SQLiteStore) UpdateJob(ctx context.Context, job *model.ItineraryJob, expectToken string) error {
	var resultJSON, failureJSON sql.NullString
	if job.Result != nil {
		b, err := json.Marshal(job.Result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		resultJSON = sql.NullString{String: string(b), Valid: true}
	}
	if job.Failure != nil {
		b, err := json.Marshal(job.Failure)
		if err != nil {
			return fmt.Errorf("failed to marshal failure: %w", err)
		}
		failureJSON = sql.NullString{String: string(b), Valid: true}
	}

	query := `UPDATE trip_jobs
		SET status = ?, result = ?, failure = ?, completed_at = ?, expires_at = ?, attempts = ?, token = ?
		WHERE id = ? AND token = ?`

	res, err := s.db.ExecContext(ctx, query,
		string(job.Status), resultJSON, failureJSON, job.CompletedAt,
		job.ExpiresAt, job.Attempts, job.Token, job.ID, expectToken,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish a raced token from a missing record.
		var exists int
		err := s.db.QueryRowContext(ctx, "SELECT 1 FROM trip_jobs WHERE id = ?", job.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrStale
	}
	return nil
}

func (s *SQLiteStore) QueryExpiredJobs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM trip_jobs WHERE expires_at < ? LIMIT ?", now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) DeleteJob(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM trip_jobs WHERE id = ?", id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*model.ItineraryJob, error) {
	var j model.ItineraryJob
	var status, reqJSON string
	var resultJSON, failureJSON sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&j.ID, &status, &reqJSON, &resultJSON, &failureJSON,
		&j.CreatedAt, &completedAt, &j.ExpiresAt, &j.Attempts, &j.Token,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	j.Status = model.JobStatus(status)
	if err := json.Unmarshal([]byte(reqJSON), &j.Request); err != nil {
		return nil, fmt.Errorf("corrupt request payload for job %s: %w", j.ID, err)
	}
	if resultJSON.Valid && resultJSON.String != "" {
		j.Result = &model.ItineraryResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), j.Result); err != nil {
			return nil, fmt.Errorf("corrupt result payload for job %s: %w", j.ID, err)
		}
	}
	if failureJSON.Valid && failureJSON.String != "" {
		j.Failure = &model.PlanError{}
		if err := json.Unmarshal([]byte(failureJSON.String), j.Failure); err != nil {
			return nil, fmt.Errorf("corrupt failure payload for job %s: %w", j.ID, err)
		}
	}
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	return &j, nil
}

// --- Cache ---

func (s *SQLiteStore) GetCache(ctx context.Context, key string) ([]byte, bool) {
	var val []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM cache WHERE key = ?", key).Scan(&val)
	if err != nil {
		// Treat any error as a miss; the cache is best-effort.
		return nil, false
	}
	return val, true
}

func (s *SQLiteStore) SetCache(ctx context.Context, key string, val []byte) error {
	query := `INSERT OR REPLACE INTO cache (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, time.Now())
	return err
}
