package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"tripweaver/pkg/jobs"
	"tripweaver/pkg/model"
	"tripweaver/pkg/store"
)

// maxBodyBytes bounds the submission payload.
const maxBodyBytes = 64 << 10

// ItineraryHandler exposes job submission and polling.
type ItineraryHandler struct {
	manager *jobs.Manager
}

// NewItineraryHandler creates the handler.
func NewItineraryHandler(m *jobs.Manager) *ItineraryHandler {
	return &ItineraryHandler{manager: m}
}

// jobResponse is the wire shape for both endpoints. Result and failure
// are mutually exclusive and only present on terminal jobs.
type jobResponse struct {
	ID        string                 `json:"id"`
	Status    model.JobStatus        `json:"status"`
	CreatedAt time.Time              `json:"created_at"`
	ExpiresAt time.Time              `json:"expires_at"`
	Result    *model.ItineraryResult `json:"result,omitempty"`
	Failure   *model.PlanError       `json:"failure,omitempty"`
}

func toResponse(job *model.ItineraryJob) jobResponse {
	return jobResponse{
		ID:        job.ID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
		ExpiresAt: job.ExpiresAt,
		Result:    job.Result,
		Failure:   job.Failure,
	}
}

// HandleSubmit handles POST /api/itineraries. Accepted submissions
// return 202 with the job id to poll.
func (h *ItineraryHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req model.ItineraryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}

	job, err := h.manager.Submit(r.Context(), &req)
	if err != nil {
		if errors.Is(err, jobs.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("Job submission failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to submit job")
		return
	}

	writeJSON(w, http.StatusAccepted, toResponse(job))
}

// HandleGet handles GET /api/itineraries/{id}. Unknown and expired jobs
// are indistinguishable: both are 404.
func (h *ItineraryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing job id")
		return
	}

	job, err := h.manager.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		slog.Error("Job lookup failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(job))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
