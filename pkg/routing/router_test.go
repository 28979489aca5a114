package routing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"tripweaver/pkg/config"
	"tripweaver/pkg/geo"
	"tripweaver/pkg/model"
	"tripweaver/pkg/request"
)

var (
	stephansdom = geo.Point{Lat: 48.2086, Lon: 16.3731}
	schoenbrunn = geo.Point{Lat: 48.1845, Lon: 16.3122}
)

func TestClientLeg(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("overview") != "false" {
			t.Errorf("missing overview=false")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"code": "Ok", "routes": [{"distance": 6120.4, "duration": 4890}]}`)
	}))
	defer svr.Close()

	c := NewClient(request.New(nil), config.RoutingConfig{
		Endpoint: svr.URL,
		Profiles: map[string]string{"walking": "foot"},
	})

	leg, err := c.Leg(context.Background(), stephansdom, schoenbrunn, model.ModeWalking)
	if err != nil {
		t.Fatalf("leg: %v", err)
	}
	if leg.DistanceMeters != 6120 {
		t.Errorf("distance = %d, want 6120", leg.DistanceMeters)
	}
	// 4890s = 81.5min, rounded up.
	if leg.TravelMinutes != 82 {
		t.Errorf("minutes = %d, want 82", leg.TravelMinutes)
	}
}

func TestClientLeg_NoRoute(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code": "NoRoute", "routes": []}`)
	}))
	defer svr.Close()

	c := NewClient(request.New(nil), config.RoutingConfig{Endpoint: svr.URL})
	if _, err := c.Leg(context.Background(), stephansdom, schoenbrunn, model.ModeWalking); err == nil {
		t.Fatal("expected error for NoRoute response")
	}
}

func TestFallbackLeg(t *testing.T) {
	f := NewFallback(map[string]float64{"walking": 4.5})

	leg, err := f.Leg(context.Background(), stephansdom, schoenbrunn, model.ModeWalking)
	if err != nil {
		t.Fatalf("leg: %v", err)
	}
	// Straight line is roughly 5.3km; with the detour factor the
	// estimate lands near 6.9km.
	if leg.DistanceMeters < 6000 || leg.DistanceMeters > 8000 {
		t.Errorf("implausible distance %d", leg.DistanceMeters)
	}
	if leg.TravelMinutes < 80 || leg.TravelMinutes > 110 {
		t.Errorf("implausible walking time %d", leg.TravelMinutes)
	}
}

func TestFallbackLeg_UnknownMode(t *testing.T) {
	f := NewFallback(map[string]float64{"walking": 4.5})
	if _, err := f.Leg(context.Background(), stephansdom, schoenbrunn, model.ModeTransit); err == nil {
		t.Fatal("expected error for unconfigured mode")
	}
}

func TestChainFallsThrough(t *testing.T) {
	broken := NewClient(request.New(nil), config.RoutingConfig{}) // no endpoint
	chain := NewChain(broken, NewFallback(map[string]float64{"walking": 4.5}))

	leg, err := chain.Leg(context.Background(), stephansdom, schoenbrunn, model.ModeWalking)
	if err != nil {
		t.Fatalf("chain leg: %v", err)
	}
	if leg.TravelMinutes == 0 {
		t.Error("expected fallback result through the chain")
	}
}
