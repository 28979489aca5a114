package routing

import (
	"context"
	"fmt"
	"math"

	"tripweaver/pkg/geo"
	"tripweaver/pkg/model"
)

// detourFactor inflates straight-line distance to approximate a street
// network path.
const detourFactor = 1.3

// Fallback estimates legs from straight-line distance and an average
// speed per travel mode. Used when no routing backend is configured or
// the backend is down.
type Fallback struct {
	speedKmh map[string]float64
}

// NewFallback creates a Fallback with the given mode speeds in km/h.
func NewFallback(speedKmh map[string]float64) *Fallback {
	return &Fallback{speedKmh: speedKmh}
}

func (f *Fallback) Leg(ctx context.Context, from, to geo.Point, mode model.TravelMode) (Leg, error) {
	speed := f.speedKmh[string(mode)]
	if speed <= 0 {
		return Leg{}, fmt.Errorf("no fallback speed configured for mode %q", mode)
	}

	meters := geo.Distance(from, to) * detourFactor
	minutes := meters / 1000 / speed * 60

	return Leg{
		DistanceMeters: int(math.Round(meters)),
		TravelMinutes:  int(math.Ceil(minutes)),
	}, nil
}
