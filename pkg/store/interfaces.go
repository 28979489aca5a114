package store

import (
	"context"
	"errors"
	"time"

	"tripweaver/pkg/model"
)

// ErrNotFound is returned when a job id is unknown.
var ErrNotFound = errors.New("job not found")

// ErrStale is returned when an update carries an outdated concurrency
// token: another writer has modified the record since it was read.
var ErrStale = errors.New("stale concurrency token")

// JobStore handles itinerary job persistence.
//
// Get returns records regardless of expiry; the lifecycle manager in
// pkg/jobs decides what an expired record means to callers.
type JobStore interface {
	CreateJob(ctx context.Context, job *model.ItineraryJob) error
	GetJob(ctx context.Context, id string) (*model.ItineraryJob, error)

	// UpdateJob persists the job if and only if the stored token equals
	// expectToken. The job's own Token field carries the replacement
	// stamp. Returns ErrStale on token mismatch, ErrNotFound when the
	// id is unknown.
	UpdateJob(ctx context.Context, job *model.ItineraryJob, expectToken string) error

	// QueryExpiredJobs returns ids of records past their expiry at the
	// given instant, up to limit.
	QueryExpiredJobs(ctx context.Context, now time.Time, limit int) ([]string, error)

	DeleteJob(ctx context.Context, id string) error
}

// CacheStore handles generic key-value caching for provider responses.
type CacheStore interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	SetCache(ctx context.Context, key string, val []byte) error
}
