package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tripweaver/pkg/geo"
	"tripweaver/pkg/model"
	"tripweaver/pkg/routing"
)

// errAllStopsClosed reports that every candidate was eliminated solely
// by its opening hours at the projected arrival time. The budget alone
// would have allowed at least one stop.
var errAllStopsClosed = errors.New("every candidate closed at projected arrival")

// rejectReason classifies why a trial route was rejected.
type rejectReason int

const (
	rejectNone rejectReason = iota
	rejectBudget
	rejectHours
)

func (r rejectReason) String() string {
	switch r {
	case rejectBudget:
		return "budget"
	case rejectHours:
		return "hours"
	}
	return "none"
}

// waypoint is one point of the working route: the start, the end, or an
// inserted candidate.
type waypoint struct {
	id  string
	pt  geo.Point
	poi *model.CandidatePOI // nil for start/end
}

// timeline is the evaluated schedule of a route: arrival and departure
// offsets per waypoint, in minutes from journey start.
type timeline struct {
	arrive []int
	depart []int
	legs   []routing.Leg
	total  int // arrival offset at the end point
}

// scheduler runs greedy insertion over routed legs. Leg lookups are
// cached per plan so re-evaluating insertion positions stays cheap and
// the final materialization reuses exactly the legs that were checked.
type scheduler struct {
	router      routing.Router
	mode        model.TravelMode
	budget      int
	day         time.Weekday
	startMinute int
	strictHours bool
	maxStops    int

	legCache map[string]routing.Leg
}

func newScheduler(router routing.Router, req *model.ItineraryRequest, departure time.Time, strictHours bool, maxStops int) *scheduler {
	return &scheduler{
		router:      router,
		mode:        req.Mode,
		budget:      req.MaxDurationMinutes,
		day:         departure.Weekday(),
		startMinute: departure.Hour()*60 + departure.Minute(),
		strictHours: strictHours,
		maxStops:    maxStops,
		legCache:    make(map[string]routing.Leg),
	}
}

func (s *scheduler) leg(ctx context.Context, from, to waypoint) (routing.Leg, error) {
	key := from.id + "|" + to.id
	if leg, ok := s.legCache[key]; ok {
		return leg, nil
	}
	leg, err := s.router.Leg(ctx, from.pt, to.pt, s.mode)
	if err != nil {
		return routing.Leg{}, err
	}
	s.legCache[key] = leg
	return leg, nil
}

// evaluate walks the route and produces its timeline. A rejected route
// reports whether the budget or, under strict hours, a stop's opening
// window at the projected arrival killed it.
func (s *scheduler) evaluate(ctx context.Context, route []waypoint) (*timeline, rejectReason, error) {
	tl := &timeline{
		arrive: make([]int, len(route)),
		depart: make([]int, len(route)),
		legs:   make([]routing.Leg, 0, len(route)-1),
	}

	offset := 0
	for i := 1; i < len(route); i++ {
		leg, err := s.leg(ctx, route[i-1], route[i])
		if err != nil {
			return nil, rejectNone, err
		}
		tl.legs = append(tl.legs, leg)

		offset += leg.TravelMinutes
		tl.arrive[i] = offset

		if poi := route[i].poi; poi != nil {
			if s.strictHours && !poi.Hours.FitsVisit(s.day, s.startMinute+offset, poi.DwellMinutes) {
				return nil, rejectHours, nil
			}
			offset += poi.DwellMinutes
		}
		tl.depart[i] = offset
	}

	tl.total = tl.arrive[len(route)-1]
	if tl.total > s.budget {
		return nil, rejectBudget, nil
	}
	return tl, rejectNone, nil
}

// insert tries every position for the candidate and keeps the feasible
// one with the earliest finish. When no position fits, the returned
// reason is rejectHours only if every trial failed on opening hours;
// any budget violation marks the candidate as budget-eliminated.
func (s *scheduler) insert(ctx context.Context, route []waypoint, poi *model.CandidatePOI) ([]waypoint, rejectReason, error) {
	wp := waypoint{id: poi.ID, pt: geo.Point{Lat: poi.Lat, Lon: poi.Lon}, poi: poi}

	var best []waypoint
	bestTotal := -1
	hoursOnly := true
	for pos := 1; pos < len(route); pos++ {
		trial := make([]waypoint, 0, len(route)+1)
		trial = append(trial, route[:pos]...)
		trial = append(trial, wp)
		trial = append(trial, route[pos:]...)

		tl, reject, err := s.evaluate(ctx, trial)
		if err != nil {
			return nil, rejectNone, err
		}
		if reject != rejectNone {
			if reject != rejectHours {
				hoursOnly = false
			}
			continue
		}
		if bestTotal == -1 || tl.total < bestTotal {
			bestTotal = tl.total
			best = trial
		}
	}
	if best == nil {
		if hoursOnly {
			return nil, rejectHours, nil
		}
		return nil, rejectBudget, nil
	}
	return best, rejectNone, nil
}

// build runs greedy insertion over the scored candidates and
// materializes the final itinerary.
func (s *scheduler) build(ctx context.Context, req *model.ItineraryRequest, candidates []*model.CandidatePOI) (*model.ItineraryResult, error) {
	route := []waypoint{
		{id: model.LegStart, pt: geo.Point{Lat: req.StartLat, Lon: req.StartLon}},
		{id: model.LegEnd, pt: geo.Point{Lat: req.EndLat, Lon: req.EndLon}},
	}

	stops := 0
	eliminated := 0
	hoursEliminated := 0
	for _, poi := range candidates {
		if stops >= s.maxStops {
			break
		}
		next, reject, err := s.insert(ctx, route, poi)
		if err != nil {
			return nil, err
		}
		if reject != rejectNone {
			eliminated++
			if reject == rejectHours {
				hoursEliminated++
			}
			slog.Debug("Candidate skipped, no feasible slot", "id", poi.ID, "name", poi.DisplayName(), "cause", reject)
			continue
		}
		route = next
		stops++
	}

	// An empty itinerary is a valid outcome of a tight budget, but not
	// of opening hours: if hours alone eliminated every candidate, the
	// area is effectively closed for this departure.
	if stops == 0 && eliminated > 0 && eliminated == hoursEliminated {
		return nil, errAllStopsClosed
	}

	tl, reject, err := s.evaluate(ctx, route)
	if err != nil {
		return nil, err
	}
	if reject != rejectNone {
		// The evaluated route was feasible when assembled; reaching
		// this means the leg cache disagrees with itself.
		return nil, fmt.Errorf("final route evaluation failed")
	}

	return s.materialize(req, route, tl), nil
}

func (s *scheduler) materialize(req *model.ItineraryRequest, route []waypoint, tl *timeline) *model.ItineraryResult {
	res := &model.ItineraryResult{
		Summary: model.Summary{
			Mode:               req.Mode,
			Language:           req.Language,
			MaxDurationMinutes: req.MaxDurationMinutes,
		},
	}

	for i := 1; i < len(route); i++ {
		leg := tl.legs[i-1]
		res.Legs = append(res.Legs, model.Leg{
			FromID:         route[i-1].id,
			ToID:           route[i].id,
			DistanceMeters: leg.DistanceMeters,
			TravelMinutes:  leg.TravelMinutes,
			ArriveOffset:   tl.arrive[i],
		})
		res.Summary.TotalTravelMinutes += leg.TravelMinutes
		res.Summary.TotalDistanceMeters += leg.DistanceMeters

		if poi := route[i].poi; poi != nil {
			res.Stops = append(res.Stops, model.Stop{
				POIID:        poi.ID,
				Name:         poi.Name,
				Category:     poi.Category,
				Rating:       poi.Rating,
				Lat:          poi.Lat,
				Lon:          poi.Lon,
				ArriveOffset: tl.arrive[i],
				DepartOffset: tl.depart[i],
				VisitMinutes: poi.DwellMinutes,
			})
			res.Summary.TotalVisitMinutes += poi.DwellMinutes
		}
	}
	res.Summary.Stops = len(res.Stops)
	return res
}
