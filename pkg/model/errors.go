package model

import "fmt"

// FailureReason is the closed taxonomy of terminal failure causes.
type FailureReason string

const (
	// Planning infeasibilities: expected outcomes of valid input,
	// never retried, surfaced verbatim to the caller.
	ReasonCommuteExceedsBudget FailureReason = "commute_exceeds_budget"
	ReasonNoPoisInIsochrone    FailureReason = "no_pois_in_isochrone"
	ReasonNoOpenPois           FailureReason = "no_open_pois"
	ReasonRoutingFailed        FailureReason = "routing_failed"

	// ReasonInternalError covers everything unexpected; retried up to
	// the attempt cap before becoming terminal.
	ReasonInternalError FailureReason = "internal_error"
)

// Infeasibility reports whether the reason is a planning infeasibility
// rather than a retryable internal failure.
func (r FailureReason) Infeasibility() bool {
	switch r {
	case ReasonCommuteExceedsBudget, ReasonNoPoisInIsochrone, ReasonNoOpenPois, ReasonRoutingFailed:
		return true
	}
	return false
}

// PlanError is the terminal failure payload.
type PlanError struct {
	Reason  FailureReason `json:"reason"`
	Message string        `json:"message"`
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

// NewPlanError builds a PlanError with a formatted message.
func NewPlanError(reason FailureReason, format string, args ...any) *PlanError {
	return &PlanError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}
