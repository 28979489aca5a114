// Package places talks to the POI search provider: one category query
// around a coordinate, results normalized into candidate POIs.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"tripweaver/pkg/config"
	"tripweaver/pkg/geo"
	"tripweaver/pkg/model"
	"tripweaver/pkg/request"
)

const defaultLimit = 20

// Client handles POI search API interactions.
type Client struct {
	request  *request.Client
	endpoint string
	key      string
	limit    int
}

// NewClient creates a places client from configuration.
func NewClient(r *request.Client, cfg config.PlacesConfig) *Client {
	limit := cfg.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Client{request: r, endpoint: cfg.Endpoint, key: cfg.Key, limit: limit}
}

// wire types for the provider request and response.
type searchRequest struct {
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	RadiusMeters int     `json:"radius_meters"`
	Category     string  `json:"category"`
	Limit        int     `json:"limit"`
}

type searchResponse struct {
	POIs []wirePOI `json:"pois"`
}

type wirePOI struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Address      string              `json:"address"`
	Lat          float64             `json:"lat"`
	Lon          float64             `json:"lon"`
	Category     string              `json:"category"`
	Rating       float64             `json:"rating"`
	ReviewCount  int                 `json:"review_count"`
	Tags         []string            `json:"tags"`
	DwellMinutes int                 `json:"dwell_minutes"`
	Hours        map[string][]string `json:"hours"` // weekday -> "HH:MM-HH:MM"
}

// Search fetches POIs of one category around the given point. Results
// carry their straight-line distance from the center; entries with
// missing ids or out-of-range coordinates are dropped.
func (c *Client) Search(ctx context.Context, center geo.Point, radiusKm float64, category string) ([]*model.CandidatePOI, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("places endpoint not configured")
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid places endpoint: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/search"

	payload, err := json.Marshal(searchRequest{
		Lat:          center.Lat,
		Lon:          center.Lon,
		RadiusMeters: int(radiusKm * 1000),
		Category:     category,
		Limit:        c.limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if c.key != "" {
		headers["X-Api-Key"] = c.key
	}

	cacheKey := fmt.Sprintf("places:%s:%.5f,%.5f:%d:%d", category, center.Lat, center.Lon, int(radiusKm*1000), c.limit)
	body, err := c.request.PostWithCache(ctx, u.String(), payload, headers, cacheKey)
	if err != nil {
		return nil, fmt.Errorf("places search failed: %w", err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode places response: %w", err)
	}

	var out []*model.CandidatePOI
	for i := range resp.POIs {
		poi, ok := c.normalize(&resp.POIs[i], center, category)
		if !ok {
			continue
		}
		out = append(out, poi)
	}
	return out, nil
}

func (c *Client) normalize(w *wirePOI, center geo.Point, category string) (*model.CandidatePOI, bool) {
	if w.ID == "" || w.Name == "" {
		return nil, false
	}
	if w.Lat < -90 || w.Lat > 90 || w.Lon < -180 || w.Lon > 180 {
		slog.Debug("Dropping POI with invalid coordinates", "id", w.ID, "lat", w.Lat, "lon", w.Lon)
		return nil, false
	}

	cat := strings.ToLower(strings.TrimSpace(w.Category))
	if cat == "" {
		cat = category
	}

	poi := &model.CandidatePOI{
		ID:             w.ID,
		Name:           w.Name,
		Address:        w.Address,
		Lat:            w.Lat,
		Lon:            w.Lon,
		Category:       cat,
		Rating:         w.Rating,
		ReviewCount:    w.ReviewCount,
		Tags:           w.Tags,
		DistanceMeters: int(geo.Distance(center, geo.Point{Lat: w.Lat, Lon: w.Lon})),
	}
	if w.DwellMinutes > 0 {
		poi.DwellMinutes = w.DwellMinutes
		poi.DwellEstimated = false
	}
	if hours, err := parseHours(w.Hours); err != nil {
		slog.Debug("Dropping unparseable hours, treating POI as always open", "id", w.ID, "error", err)
	} else {
		poi.Hours = hours
	}
	return poi, true
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
	"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// parseHours converts the wire schedule into OpeningHours. A nil or
// empty schedule returns nil, meaning always open.
func parseHours(wire map[string][]string) (*model.OpeningHours, error) {
	if len(wire) == 0 {
		return nil, nil
	}

	weekly := make(map[time.Weekday][]model.HoursInterval)
	for dayName, spans := range wire {
		day, ok := weekdays[strings.ToLower(strings.TrimSpace(dayName))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", dayName)
		}
		for _, span := range spans {
			iv, err := parseInterval(span)
			if err != nil {
				return nil, fmt.Errorf("day %s: %w", dayName, err)
			}
			weekly[day] = append(weekly[day], iv)
		}
	}
	if len(weekly) == 0 {
		return nil, nil
	}
	return &model.OpeningHours{Weekly: weekly}, nil
}

func parseInterval(span string) (model.HoursInterval, error) {
	parts := strings.Split(span, "-")
	if len(parts) != 2 {
		return model.HoursInterval{}, fmt.Errorf("malformed interval %q", span)
	}
	open, err := parseClock(strings.TrimSpace(parts[0]))
	if err != nil {
		return model.HoursInterval{}, err
	}
	close, err := parseClock(strings.TrimSpace(parts[1]))
	if err != nil {
		return model.HoursInterval{}, err
	}
	// "00:00" as a closing time means end of day.
	if close == 0 {
		close = 24 * 60
	}
	if close <= open {
		return model.HoursInterval{}, fmt.Errorf("interval %q closes before it opens", span)
	}
	return model.HoursInterval{OpenMinute: open, CloseMinute: close}, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("malformed time %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// MergeBest deduplicates candidates by id, keeping the occurrence with
// the higher category weight when the same POI shows up in several
// category searches.
func MergeBest(batches [][]*model.CandidatePOI, weightOf func(category string) float64) []*model.CandidatePOI {
	best := make(map[string]*model.CandidatePOI)
	var order []string
	for _, batch := range batches {
		for _, poi := range batch {
			prev, seen := best[poi.ID]
			if !seen {
				best[poi.ID] = poi
				order = append(order, poi.ID)
				continue
			}
			if weightOf(poi.Category) > weightOf(prev.Category) {
				best[poi.ID] = poi
			}
		}
	}

	out := make([]*model.CandidatePOI, 0, len(order))
	for _, id := range order {
		out = append(out, best[id])
	}
	return out
}
