package model

// Endpoint markers used in leg from/to identifiers.
const (
	LegStart = "start"
	LegEnd   = "end"
)

// Leg is one travel segment between consecutive points of the itinerary.
// Offsets are integer minutes from journey start.
type Leg struct {
	FromID         string `json:"from_id"` // POI id, or "start"
	ToID           string `json:"to_id"`   // POI id, or "end"
	DistanceMeters int    `json:"distance_meters"`
	TravelMinutes  int    `json:"travel_minutes"`
	ArriveOffset   int    `json:"arrive_offset_minutes"` // at ToID
}

// Stop is a visited POI with its assigned window.
type Stop struct {
	POIID        string  `json:"poi_id"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Rating       float64 `json:"rating"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	ArriveOffset int     `json:"arrive_offset_minutes"`
	DepartOffset int     `json:"depart_offset_minutes"`
	VisitMinutes int     `json:"visit_minutes"`
}

// Summary aggregates the completed plan.
type Summary struct {
	Mode                TravelMode `json:"mode"`
	Language            string     `json:"language"`
	MaxDurationMinutes  int        `json:"max_duration_minutes"`
	TotalTravelMinutes  int        `json:"total_travel_minutes"`
	TotalVisitMinutes   int        `json:"total_visit_minutes"`
	TotalDistanceMeters int        `json:"total_distance_meters"`
	Stops               int        `json:"stops"`
}

// ItineraryResult is the terminal success payload.
//
// Invariants: len(Legs) == len(Stops)+1; stop arrive offsets strictly
// increase; depart[i] = arrive[i] + visit[i]; the last leg's arrival
// never exceeds the request budget.
type ItineraryResult struct {
	Summary Summary `json:"summary"`
	Legs    []Leg   `json:"legs"`
	Stops   []Stop  `json:"stops"`
}
