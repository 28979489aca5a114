package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strings"

	"tripweaver/pkg/config"
	"tripweaver/pkg/geo"
	"tripweaver/pkg/model"
	"tripweaver/pkg/request"
)

// Client resolves legs against an OSRM-compatible routing backend.
type Client struct {
	request  *request.Client
	endpoint string
	profiles map[string]string // travel mode -> osrm profile
}

// NewClient creates a routing client from configuration.
func NewClient(r *request.Client, cfg config.RoutingConfig) *Client {
	return &Client{request: r, endpoint: cfg.Endpoint, profiles: cfg.Profiles}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"` // meters
		Duration float64 `json:"duration"` // seconds
	} `json:"routes"`
}

func (c *Client) Leg(ctx context.Context, from, to geo.Point, mode model.TravelMode) (Leg, error) {
	if c.endpoint == "" {
		return Leg{}, fmt.Errorf("routing endpoint not configured")
	}

	profile := c.profiles[string(mode)]
	if profile == "" {
		profile = "foot"
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return Leg{}, fmt.Errorf("invalid routing endpoint: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + fmt.Sprintf("/route/v1/%s/%f,%f;%f,%f",
		profile, from.Lon, from.Lat, to.Lon, to.Lat)
	q := u.Query()
	q.Set("overview", "false")
	u.RawQuery = q.Encode()

	cacheKey := fmt.Sprintf("route:%s:%.5f,%.5f:%.5f,%.5f", profile, from.Lat, from.Lon, to.Lat, to.Lon)
	body, err := c.request.Get(ctx, u.String(), cacheKey)
	if err != nil {
		return Leg{}, fmt.Errorf("routing request failed: %w", err)
	}

	var resp osrmResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Leg{}, fmt.Errorf("failed to decode routing response: %w", err)
	}
	if resp.Code != "Ok" || len(resp.Routes) == 0 {
		return Leg{}, fmt.Errorf("no route found (code %s)", resp.Code)
	}

	route := resp.Routes[0]
	return Leg{
		DistanceMeters: int(math.Round(route.Distance)),
		// Round up so schedules never promise a faster trip than the
		// backend reported.
		TravelMinutes: int(math.Ceil(route.Duration / 60)),
	}, nil
}
