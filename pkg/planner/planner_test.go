package planner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"tripweaver/pkg/config"
	"tripweaver/pkg/dwell"
	"tripweaver/pkg/geo"
	"tripweaver/pkg/interests"
	"tripweaver/pkg/model"
	"tripweaver/pkg/routing"
)

// fakeSearcher serves canned candidates per category.
type fakeSearcher struct {
	byCategory map[string][]*model.CandidatePOI
	err        error
}

func (f *fakeSearcher) Search(ctx context.Context, center geo.Point, radiusKm float64, category string) ([]*model.CandidatePOI, error) {
	if f.err != nil {
		return nil, f.err
	}
	// Return copies so tests can reuse fixtures across plans.
	var out []*model.CandidatePOI
	for _, poi := range f.byCategory[category] {
		cp := *poi
		out = append(out, &cp)
	}
	return out, nil
}

func testConfig() config.PlannerConfig {
	return config.PlannerConfig{
		SearchRadiusKm:  5,
		MaxStops:        6,
		MaxCandidates:   60,
		MaxParallel:     4,
		StrictHours:     true,
		DwellFloorMin:   15,
		DwellCeilingMin: 180,
		Weights:         config.ScoreWeights{Rating: 1.0, Reviews: 0.5, Category: 1.0, Proximity: 1.0},
		H3Resolution:    9,
		MaxPerCell:      3,
	}
}

// Central Vienna, start and end about 1.3km apart.
var (
	testStart     = geo.Point{Lat: 48.2082, Lon: 16.3738}
	testEnd       = geo.Point{Lat: 48.1986, Lon: 16.3685}
	testDeparture = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC) // a Monday
)

func testRequest() *model.ItineraryRequest {
	return &model.ItineraryRequest{
		StartLat:           testStart.Lat,
		StartLon:           testStart.Lon,
		EndLat:             testEnd.Lat,
		EndLon:             testEnd.Lon,
		MaxDurationMinutes: 240,
		Mode:               model.ModeWalking,
		Interests:          "museums and landmarks",
		DepartureTime:      testDeparture,
	}
}

func nearbyPOI(id string, lat, lon float64, category string, dwellMin int) *model.CandidatePOI {
	return &model.CandidatePOI{
		ID:           id,
		Name:         "POI " + id,
		Lat:          lat,
		Lon:          lon,
		Category:     category,
		Rating:       4.0,
		ReviewCount:  300,
		DwellMinutes: dwellMin,
	}
}

func newTestPlanner(searcher PlacesSearcher, cfg config.PlannerConfig) *Planner {
	cats := config.DefaultCategories()
	mapper := interests.NewMapper(nil, cats)
	estimator := dwell.NewEstimator(nil, cats, cfg)
	router := routing.NewFallback(map[string]float64{"walking": 4.5, "car": 30})
	return New(mapper, searcher, estimator, router, nil, cats, cfg)
}

func TestBuild_FeasiblePlan(t *testing.T) {
	searcher := &fakeSearcher{byCategory: map[string][]*model.CandidatePOI{
		"museum": {
			nearbyPOI("m1", 48.2036, 16.3582, "museum", 90),
			nearbyPOI("m2", 48.2049, 16.3685, "museum", 60),
		},
		"landmark": {
			nearbyPOI("l1", 48.2048, 16.3720, "landmark", 45),
		},
	}}

	p := newTestPlanner(searcher, testConfig())
	res, err := p.Build(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if res.Summary.Stops == 0 {
		t.Fatal("expected at least one stop")
	}
	if len(res.Legs) != len(res.Stops)+1 {
		t.Fatalf("legs = %d, want stops+1 = %d", len(res.Legs), len(res.Stops)+1)
	}
	if res.Legs[0].FromID != model.LegStart {
		t.Errorf("first leg starts at %q", res.Legs[0].FromID)
	}
	if res.Legs[len(res.Legs)-1].ToID != model.LegEnd {
		t.Errorf("last leg ends at %q", res.Legs[len(res.Legs)-1].ToID)
	}

	prev := 0
	for i, stop := range res.Stops {
		if stop.ArriveOffset <= prev {
			t.Errorf("stop %d arrive offset %d not strictly after %d", i, stop.ArriveOffset, prev)
		}
		if stop.DepartOffset != stop.ArriveOffset+stop.VisitMinutes {
			t.Errorf("stop %d depart %d != arrive %d + visit %d", i, stop.DepartOffset, stop.ArriveOffset, stop.VisitMinutes)
		}
		prev = stop.ArriveOffset
	}

	final := res.Legs[len(res.Legs)-1].ArriveOffset
	if final > 240 {
		t.Errorf("final arrival %d exceeds budget 240", final)
	}
	if res.Summary.TotalVisitMinutes == 0 || res.Summary.TotalTravelMinutes == 0 {
		t.Errorf("summary not aggregated: %+v", res.Summary)
	}
}

func TestBuild_CommuteExceedsBudget(t *testing.T) {
	p := newTestPlanner(&fakeSearcher{}, testConfig())

	req := testRequest()
	// Vienna to Salzburg on foot.
	req.EndLat, req.EndLon = 47.8095, 13.0550
	req.MaxDurationMinutes = 240

	_, err := p.Build(context.Background(), req)
	var planErr *model.PlanError
	if !errors.As(err, &planErr) {
		t.Fatalf("expected PlanError, got %v", err)
	}
	if planErr.Reason != model.ReasonCommuteExceedsBudget {
		t.Fatalf("reason = %s, want commute_exceeds_budget", planErr.Reason)
	}
}

func TestBuild_NoPoisInIsochrone(t *testing.T) {
	p := newTestPlanner(&fakeSearcher{byCategory: map[string][]*model.CandidatePOI{}}, testConfig())

	_, err := p.Build(context.Background(), testRequest())
	var planErr *model.PlanError
	if !errors.As(err, &planErr) {
		t.Fatalf("expected PlanError, got %v", err)
	}
	if planErr.Reason != model.ReasonNoPoisInIsochrone {
		t.Fatalf("reason = %s, want no_pois_in_isochrone", planErr.Reason)
	}
}

func TestBuild_FarPoisOutsideCorridor(t *testing.T) {
	// Candidates exist but sit 50km away from the route.
	searcher := &fakeSearcher{byCategory: map[string][]*model.CandidatePOI{
		"museum": {nearbyPOI("far", 48.7, 17.0, "museum", 60)},
	}}
	p := newTestPlanner(searcher, testConfig())

	_, err := p.Build(context.Background(), testRequest())
	var planErr *model.PlanError
	if !errors.As(err, &planErr) || planErr.Reason != model.ReasonNoPoisInIsochrone {
		t.Fatalf("expected no_pois_in_isochrone, got %v", err)
	}
}

func TestBuild_NoOpenPois(t *testing.T) {
	closedMondays := &model.OpeningHours{Weekly: map[time.Weekday][]model.HoursInterval{
		time.Tuesday: {{OpenMinute: 540, CloseMinute: 1020}},
	}}

	poi := nearbyPOI("m1", 48.2036, 16.3582, "museum", 90)
	poi.Hours = closedMondays

	p := newTestPlanner(&fakeSearcher{byCategory: map[string][]*model.CandidatePOI{
		"museum": {poi},
	}}, testConfig())

	_, err := p.Build(context.Background(), testRequest())
	var planErr *model.PlanError
	if !errors.As(err, &planErr) {
		t.Fatalf("expected PlanError, got %v", err)
	}
	if planErr.Reason != model.ReasonNoOpenPois {
		t.Fatalf("reason = %s, want no_open_pois", planErr.Reason)
	}
}

func TestBuild_NoOpenPoisAtProjectedArrival(t *testing.T) {
	// The 09:00-11:00 window is long enough for the 100-minute visit,
	// so the optimistic pre-filter keeps the candidate. But departure
	// is 10:00: every projected arrival overruns the close, and with
	// no other candidate the plan must fail as closed, not succeed
	// with zero stops.
	morningOnly := &model.OpeningHours{Weekly: map[time.Weekday][]model.HoursInterval{
		time.Monday: {{OpenMinute: 9 * 60, CloseMinute: 11 * 60}},
	}}

	poi := nearbyPOI("m1", 48.2036, 16.3582, "museum", 100)
	poi.Hours = morningOnly

	p := newTestPlanner(&fakeSearcher{byCategory: map[string][]*model.CandidatePOI{
		"museum": {poi},
	}}, testConfig())

	_, err := p.Build(context.Background(), testRequest())
	var planErr *model.PlanError
	if !errors.As(err, &planErr) {
		t.Fatalf("expected PlanError, got %v", err)
	}
	if planErr.Reason != model.ReasonNoOpenPois {
		t.Fatalf("reason = %s, want no_open_pois", planErr.Reason)
	}
}

func TestBuild_ProviderOutageIsRetryable(t *testing.T) {
	p := newTestPlanner(&fakeSearcher{err: fmt.Errorf("upstream 503")}, testConfig())

	_, err := p.Build(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected error")
	}
	var planErr *model.PlanError
	if errors.As(err, &planErr) {
		t.Fatalf("provider outage must not be terminal, got PlanError %v", planErr)
	}
}

func TestBuild_TightBudgetYieldsZeroStops(t *testing.T) {
	// Budget barely covers the direct commute; every insertion must be
	// rejected, which is still a successful (empty) plan.
	searcher := &fakeSearcher{byCategory: map[string][]*model.CandidatePOI{
		"museum": {nearbyPOI("m1", 48.2036, 16.3582, "museum", 90)},
	}}
	p := newTestPlanner(searcher, testConfig())

	req := testRequest()
	req.MaxDurationMinutes = 60

	res, err := p.Build(context.Background(), req)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res.Summary.Stops != 0 {
		t.Fatalf("expected zero stops, got %d", res.Summary.Stops)
	}
	if len(res.Legs) != 1 {
		t.Fatalf("expected single direct leg, got %d", len(res.Legs))
	}
}

func TestBuild_MaxStopsRespected(t *testing.T) {
	var pois []*model.CandidatePOI
	for i := 0; i < 10; i++ {
		pois = append(pois, nearbyPOI(fmt.Sprintf("p%d", i), 48.2030+float64(i)*0.0015, 16.3650, "landmark", 20))
	}
	cfg := testConfig()
	cfg.MaxStops = 2

	p := newTestPlanner(&fakeSearcher{byCategory: map[string][]*model.CandidatePOI{"landmark": pois}}, cfg)

	req := testRequest()
	req.MaxDurationMinutes = 720
	req.Interests = "famous landmarks"

	res, err := p.Build(context.Background(), req)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res.Summary.Stops > 2 {
		t.Fatalf("stops = %d, want at most 2", res.Summary.Stops)
	}
}

func TestBuild_StrictHoursAtProjectedArrival(t *testing.T) {
	// Open Mondays only until 11:00. Departure is 10:00 and the walk
	// plus visit cannot finish by then, so the precise check must
	// reject what the optimistic pre-filter let through.
	morningOnly := &model.OpeningHours{Weekly: map[time.Weekday][]model.HoursInterval{
		time.Monday: {{OpenMinute: 9 * 60, CloseMinute: 11 * 60}},
	}}

	poi := nearbyPOI("m1", 48.2036, 16.3582, "museum", 110)
	poi.Hours = morningOnly

	open := nearbyPOI("l1", 48.2048, 16.3720, "landmark", 30)

	p := newTestPlanner(&fakeSearcher{byCategory: map[string][]*model.CandidatePOI{
		"museum":   {poi},
		"landmark": {open},
	}}, testConfig())

	res, err := p.Build(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, stop := range res.Stops {
		if stop.POIID == "m1" {
			t.Fatal("m1 cannot fit its window and must be skipped")
		}
	}
}
