// Package routing resolves travel legs between coordinates: distance
// and travel time for a given mode. The primary implementation talks to
// an OSRM-compatible backend; a straight-line fallback keeps planning
// alive when no backend is configured or reachable.
package routing

import (
	"context"

	"tripweaver/pkg/geo"
	"tripweaver/pkg/model"
)

// Leg is one resolved hop between two points.
type Leg struct {
	DistanceMeters int
	TravelMinutes  int
}

// Router resolves travel legs.
type Router interface {
	Leg(ctx context.Context, from, to geo.Point, mode model.TravelMode) (Leg, error)
}

// Chain tries each router in order, returning the first success.
type Chain struct {
	routers []Router
}

// NewChain builds a router chain. At least one router is required.
func NewChain(routers ...Router) *Chain {
	return &Chain{routers: routers}
}

func (c *Chain) Leg(ctx context.Context, from, to geo.Point, mode model.TravelMode) (Leg, error) {
	var lastErr error
	for _, r := range c.routers {
		leg, err := r.Leg(ctx, from, to, mode)
		if err == nil {
			return leg, nil
		}
		lastErr = err
	}
	return Leg{}, lastErr
}
