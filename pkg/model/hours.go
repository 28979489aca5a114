package model

import "time"

// HoursInterval is an open interval within one day, in minutes from
// midnight. Close is exclusive and never exceeds 24h; schedules that
// span midnight are expressed as two intervals on adjacent days.
type HoursInterval struct {
	OpenMinute  int `json:"open"`
	CloseMinute int `json:"close"`
}

// Minutes returns the interval length.
func (iv HoursInterval) Minutes() int {
	return iv.CloseMinute - iv.OpenMinute
}

// OpeningHours is a weekly schedule keyed by weekday. A missing weekday
// means closed that day; a nil *OpeningHours means "assumed always open".
type OpeningHours struct {
	Weekly map[time.Weekday][]HoursInterval `json:"weekly"`
}

// AnyWindow reports whether any interval on the given weekday could fit
// a visit of the given length, regardless of when the visitor arrives.
// This is the optimistic pre-filter; the precise arrival-time check is
// FitsVisit.
func (h *OpeningHours) AnyWindow(day time.Weekday, visitMinutes int) bool {
	if h == nil {
		return true
	}
	for _, iv := range h.Weekly[day] {
		if iv.Minutes() >= visitMinutes {
			return true
		}
	}
	return false
}

// FitsVisit reports whether a visit arriving at arriveMinute (minutes
// from midnight on the given weekday) and lasting visitMinutes fits
// entirely inside one open interval. Visits that would cross midnight
// are rejected.
func (h *OpeningHours) FitsVisit(day time.Weekday, arriveMinute, visitMinutes int) bool {
	if h == nil {
		return true
	}
	depart := arriveMinute + visitMinutes
	if depart > 24*60 {
		return false
	}
	for _, iv := range h.Weekly[day] {
		if arriveMinute >= iv.OpenMinute && depart <= iv.CloseMinute {
			return true
		}
	}
	return false
}
