package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// TravelMode is the means of transport for the whole itinerary.
type TravelMode string

const (
	ModeWalking TravelMode = "walking"
	ModeTransit TravelMode = "transit"
	ModeCar     TravelMode = "car"
)

// Valid reports whether the mode is one of the supported values.
func (m TravelMode) Valid() bool {
	switch m {
	case ModeWalking, ModeTransit, ModeCar:
		return true
	}
	return false
}

// Request bounds. The planner enforces the budget; these guard the input.
const (
	MinBudgetMinutes = 60
	MaxBudgetMinutes = 720
	MaxInterestsLen  = 500
)

var localeRe = regexp.MustCompile(`^[a-z]{2}(-[A-Z]{2})?$`)

// ItineraryRequest is the immutable planning input. It is validated once
// at submission and never mutated afterwards.
type ItineraryRequest struct {
	StartLat float64 `json:"start_lat"`
	StartLon float64 `json:"start_lon"`
	EndLat   float64 `json:"end_lat"`
	EndLon   float64 `json:"end_lon"`

	MaxDurationMinutes int        `json:"max_duration_minutes"`
	Mode               TravelMode `json:"mode"`

	// Free-text interests, e.g. "baroque churches, street food".
	Interests string `json:"interests"`
	Language  string `json:"language"`

	// DepartureTime anchors opening-hours projections. Zero means "now"
	// as observed when planning starts.
	DepartureTime time.Time `json:"departure_time,omitzero"`
}

// Validate checks all request fields. It returns the first violation.
func (r *ItineraryRequest) Validate() error {
	if err := checkCoord("start", r.StartLat, r.StartLon); err != nil {
		return err
	}
	if err := checkCoord("end", r.EndLat, r.EndLon); err != nil {
		return err
	}
	if r.MaxDurationMinutes < MinBudgetMinutes || r.MaxDurationMinutes > MaxBudgetMinutes {
		return fmt.Errorf("max_duration_minutes must be in [%d, %d], got %d",
			MinBudgetMinutes, MaxBudgetMinutes, r.MaxDurationMinutes)
	}
	if !r.Mode.Valid() {
		return fmt.Errorf("mode must be one of walking, transit, car; got %q", r.Mode)
	}
	if len(r.Interests) > MaxInterestsLen {
		return fmt.Errorf("interests exceeds %d characters", MaxInterestsLen)
	}
	if r.Language != "" && !localeRe.MatchString(r.Language) {
		return fmt.Errorf("language must be 'xx' or 'xx-YY', got %q", r.Language)
	}
	return nil
}

func checkCoord(label string, lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%s latitude out of range: %f", label, lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("%s longitude out of range: %f", label, lon)
	}
	return nil
}

// JobStatus is the lifecycle state of an itinerary job.
// Completed and Failed are absorbing.
type JobStatus string

const (
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transition may leave this status.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ItineraryJob is the persisted unit of work and its outcome.
// Mutated only by the worker holding the queue lease, via the token CAS.
type ItineraryJob struct {
	ID      string           `json:"id"`
	Status  JobStatus        `json:"status"`
	Request ItineraryRequest `json:"request"`

	Result  *ItineraryResult `json:"result,omitempty"`
	Failure *PlanError       `json:"failure,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`

	Attempts int `json:"attempts"`

	// Token is the opaque concurrency stamp. Every successful update
	// replaces it; a stale token is rejected by the store.
	Token string `json:"-"`
}

// Expired reports whether the job is past its TTL at the given instant.
func (j *ItineraryJob) Expired(now time.Time) bool {
	return now.After(j.ExpiresAt)
}

// CandidatePOI is a point of interest gathered for one planning run.
// It is never persisted independently.
type CandidatePOI struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Lat         float64  `json:"lat"`
	Lon         float64  `json:"lon"`
	Category    string   `json:"category"`
	Rating      float64  `json:"rating"`       // 0 when unknown
	ReviewCount int      `json:"review_count"` // 0 when unknown
	Tags        []string `json:"tags,omitempty"`

	// Hours is nil when the provider reports no schedule, which is
	// treated as "always open".
	Hours *OpeningHours `json:"hours,omitempty"`

	DwellMinutes   int  `json:"dwell_minutes"`
	DwellEstimated bool `json:"dwell_estimated"` // provider estimate, not a category default

	DistanceMeters int `json:"distance_meters"` // from the requested start

	Score        float64 `json:"score"`
	ScoreDetails string  `json:"-"`
}

// DisplayName returns the best available label for logs.
func (c *CandidatePOI) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

// NormalizeCategory lowercases and trims a category identifier.
func NormalizeCategory(cat string) string {
	return strings.ToLower(strings.TrimSpace(cat))
}
