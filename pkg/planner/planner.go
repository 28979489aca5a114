// Package planner builds a budget-constrained itinerary from a
// validated request: interests resolve to categories, candidates are
// gathered and scored, and greedy insertion packs the best ones into
// the time budget between the start and end points.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"tripweaver/pkg/config"
	"tripweaver/pkg/dwell"
	"tripweaver/pkg/geo"
	"tripweaver/pkg/interests"
	"tripweaver/pkg/llm"
	"tripweaver/pkg/model"
	"tripweaver/pkg/places"
	"tripweaver/pkg/routing"
)

// PlacesSearcher is the candidate source. Implemented by places.Client.
type PlacesSearcher interface {
	Search(ctx context.Context, center geo.Point, radiusKm float64, category string) ([]*model.CandidatePOI, error)
}

// Planner orchestrates one itinerary construction.
type Planner struct {
	interests *interests.Mapper
	places    PlacesSearcher
	dwell     *dwell.Estimator
	router    routing.Router
	provider  llm.Provider
	cats      *config.CategoriesConfig
	cfg       config.PlannerConfig
}

// New creates a Planner. provider may be nil to disable reranking.
func New(mapper *interests.Mapper, searcher PlacesSearcher, estimator *dwell.Estimator, router routing.Router, provider llm.Provider, cats *config.CategoriesConfig, cfg config.PlannerConfig) *Planner {
	return &Planner{
		interests: mapper,
		places:    searcher,
		dwell:     estimator,
		router:    router,
		provider:  provider,
		cats:      cats,
		cfg:       cfg,
	}
}

// Build constructs the itinerary. Infeasible areas return a
// *model.PlanError, which is terminal; any other error is transient and
// the job machinery will retry it.
func (p *Planner) Build(ctx context.Context, req *model.ItineraryRequest) (*model.ItineraryResult, error) {
	departure := req.DepartureTime
	if departure.IsZero() {
		departure = time.Now()
	}
	start := geo.Point{Lat: req.StartLat, Lon: req.StartLon}
	end := geo.Point{Lat: req.EndLat, Lon: req.EndLon}

	// The bare commute bounds everything else: if start to end alone
	// blows the budget, no itinerary exists.
	direct, err := p.router.Leg(ctx, start, end, req.Mode)
	if err != nil {
		return nil, model.NewPlanError(model.ReasonRoutingFailed, "cannot route from start to end: %v", err)
	}
	if direct.TravelMinutes > req.MaxDurationMinutes {
		return nil, model.NewPlanError(model.ReasonCommuteExceedsBudget,
			"direct commute takes %d minutes, budget is %d", direct.TravelMinutes, req.MaxDurationMinutes)
	}

	resolved := p.interests.Resolve(ctx, req.Interests)
	interestWeight := make(map[string]float64, len(resolved))
	for _, w := range resolved {
		interestWeight[w.Category] = w.Weight
	}

	candidates, err := p.gather(ctx, start, end, resolved)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, model.NewPlanError(model.ReasonNoPoisInIsochrone,
			"no POIs found within %.1f km of the route", p.cfg.SearchRadiusKm)
	}

	p.dwell.Enrich(ctx, candidates)

	// Optimistic hours pre-filter: a POI with no window long enough for
	// its visit on the departure day can never be scheduled.
	if p.cfg.StrictHours {
		day := departure.Weekday()
		open := candidates[:0]
		for _, poi := range candidates {
			if poi.Hours.AnyWindow(day, poi.DwellMinutes) {
				open = append(open, poi)
			}
		}
		if len(open) == 0 {
			return nil, model.NewPlanError(model.ReasonNoOpenPois,
				"all %d candidates are closed on %s", len(candidates), day)
		}
		candidates = open
	}

	radiusMeters := p.cfg.SearchRadiusKm * 1000
	scoreCandidates(candidates, p.cfg.Weights, p.cats, interestWeight, radiusMeters)
	candidates = diversify(candidates, p.cfg.H3Resolution, p.cfg.MaxPerCell)

	sort.SliceStable(candidates, func(i, j int) bool { return betterCandidate(candidates[i], candidates[j]) })
	if p.cfg.MaxCandidates > 0 && len(candidates) > p.cfg.MaxCandidates {
		candidates = candidates[:p.cfg.MaxCandidates]
	}

	if p.cfg.RerankEnabled {
		candidates = rerank(ctx, p.provider, req.Interests, candidates, p.cfg.RerankTop)
	}

	sched := newScheduler(p.router, req, departure, p.cfg.StrictHours, p.cfg.MaxStops)
	result, err := sched.build(ctx, req, candidates)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, errAllStopsClosed) {
			return nil, model.NewPlanError(model.ReasonNoOpenPois,
				"all %d candidates are closed at their projected arrival times", len(candidates))
		}
		return nil, model.NewPlanError(model.ReasonRoutingFailed, "leg materialization failed: %v", err)
	}

	slog.Info("Itinerary built",
		"stops", result.Summary.Stops,
		"travel_minutes", result.Summary.TotalTravelMinutes,
		"visit_minutes", result.Summary.TotalVisitMinutes,
		"budget", req.MaxDurationMinutes)
	return result, nil
}

// gather runs one places search per resolved category with bounded
// parallelism, then merges results keeping the heaviest category per
// POI. Candidates outside the start-end corridor are dropped. An error
// is returned only when every search failed, which signals a provider
// outage rather than an empty area.
func (p *Planner) gather(ctx context.Context, start, end geo.Point, resolved []interests.Weighted) ([]*model.CandidatePOI, error) {
	maxParallel := p.cfg.MaxParallel
	if maxParallel <= 0 {
		maxParallel = 1
	}

	sem := make(chan struct{}, maxParallel)
	var wg sync.WaitGroup
	batches := make([][]*model.CandidatePOI, len(resolved))
	errs := make([]error, len(resolved))

	for i, w := range resolved {
		wg.Add(1)
		go func(i int, category string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			searchCtx := ctx
			if timeout := time.Duration(p.cfg.ProviderTimeout); timeout > 0 {
				var cancel context.CancelFunc
				searchCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			pois, err := p.places.Search(searchCtx, start, p.cfg.SearchRadiusKm, category)
			if err != nil {
				slog.Warn("Category search failed", "category", category, "error", err)
				errs[i] = err
				return
			}
			batches[i] = pois
		}(i, w.Category)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if len(resolved) > 0 && failed == len(resolved) {
		return nil, fmt.Errorf("all %d category searches failed: %w", failed, errs[0])
	}

	merged := places.MergeBest(batches, p.cats.Weight)

	radiusMeters := p.cfg.SearchRadiusKm * 1000
	inCorridor := merged[:0]
	for _, poi := range merged {
		d := geo.CorridorDistance(geo.Point{Lat: poi.Lat, Lon: poi.Lon}, start, end)
		if d <= radiusMeters {
			inCorridor = append(inCorridor, poi)
		}
	}
	return inCorridor, nil
}
