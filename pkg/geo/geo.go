// Package geo provides the small amount of spherical geometry the
// planner needs, on top of orb's haversine math.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// Point is a geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// Orb converts to an orb.Point (lon, lat order).
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// Distance returns the haversine distance between two points in meters.
func Distance(a, b Point) float64 {
	return orbgeo.DistanceHaversine(a.Orb(), b.Orb())
}

// CorridorDistance returns the distance in meters from p to the great
// segment between a and b, approximated on a local equirectangular
// plane. Good to well under a percent at city scale, which is all the
// corridor scoring needs.
func CorridorDistance(p, a, b Point) float64 {
	// Project around the segment midpoint so longitude scaling is stable.
	midLat := (a.Lat + b.Lat) / 2
	kx := math.Cos(midLat * math.Pi / 180)

	px, py := p.Lon*kx, p.Lat
	ax, ay := a.Lon*kx, a.Lat
	bx, by := b.Lon*kx, b.Lat

	dx, dy := bx-ax, by-ay
	segLenSq := dx*dx + dy*dy
	t := 0.0
	if segLenSq > 0 {
		t = ((px-ax)*dx + (py-ay)*dy) / segLenSq
		t = math.Max(0, math.Min(1, t))
	}

	nearest := Point{
		Lat: ay + t*dy,
		Lon: (ax + t*dx) / kx,
	}
	return Distance(p, nearest)
}
