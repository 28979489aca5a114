package planner

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/uber/h3-go/v4"

	"tripweaver/pkg/config"
	"tripweaver/pkg/model"
)

// scoreCandidates fills Score and ScoreDetails on every candidate. The
// score is a multiplier chain over a base of 1.0 so each factor stays
// inspectable in the details log.
func scoreCandidates(pois []*model.CandidatePOI, weights config.ScoreWeights, cats *config.CategoriesConfig, interestWeight map[string]float64, radiusMeters float64) {
	for _, poi := range pois {
		score := 1.0
		var logs []string
		logs = append(logs, "Base Score: 1.0")

		// Rating: 2.5 stars is neutral, 5 stars doubles.
		if poi.Rating > 0 {
			mult := math.Pow(poi.Rating/2.5, weights.Rating)
			score *= mult
			logs = append(logs, fmt.Sprintf("Rating (%.1f): x%.2f", poi.Rating, mult))
		}

		// Review volume: logarithmic, saturating.
		if poi.ReviewCount > 0 {
			mult := 1.0 + weights.Reviews*math.Log10(1+float64(poi.ReviewCount))/4.0
			score *= mult
			logs = append(logs, fmt.Sprintf("Reviews (%d): x%.2f", poi.ReviewCount, mult))
		}

		// Category affinity: table weight times the traveler's interest
		// weight for this category.
		catMult := cats.Weight(poi.Category)
		if iw, ok := interestWeight[poi.Category]; ok && iw > 0 {
			catMult *= iw
		}
		if catMult != 1.0 {
			mult := math.Pow(catMult, weights.Category)
			score *= mult
			logs = append(logs, fmt.Sprintf("Category (%s): x%.2f", poi.Category, mult))
		}

		// Proximity: 1.0 at the start point, 0.5 at the search radius.
		if radiusMeters > 0 && poi.DistanceMeters > 0 {
			mult := math.Pow(1.0/(1.0+float64(poi.DistanceMeters)/radiusMeters), weights.Proximity)
			score *= mult
			logs = append(logs, fmt.Sprintf("Proximity (%dm): x%.2f", poi.DistanceMeters, mult))
		}

		poi.Score = score
		poi.ScoreDetails = strings.Join(logs, "\n")
	}
}

// betterCandidate orders candidates for selection: composite score,
// then rating, then id so equal-scoring candidates sort the same way
// on every run.
func betterCandidate(a, b *model.CandidatePOI) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Rating != b.Rating {
		return a.Rating > b.Rating
	}
	return a.ID < b.ID
}

// diversify caps how many candidates survive per H3 cell, keeping the
// highest scored ones. This spreads the itinerary across the area
// instead of clustering around one busy block.
func diversify(pois []*model.CandidatePOI, resolution, maxPerCell int) []*model.CandidatePOI {
	if maxPerCell <= 0 {
		return pois
	}

	sorted := make([]*model.CandidatePOI, len(pois))
	copy(sorted, pois)
	sort.SliceStable(sorted, func(i, j int) bool { return betterCandidate(sorted[i], sorted[j]) })

	perCell := make(map[h3.Cell]int)
	out := make([]*model.CandidatePOI, 0, len(sorted))
	for _, poi := range sorted {
		cell, err := h3.LatLngToCell(h3.NewLatLng(poi.Lat, poi.Lon), resolution)
		if err != nil {
			// Unindexable coordinates are rare; keep the candidate
			// rather than drop it.
			slog.Debug("H3 indexing failed", "id", poi.ID, "error", err)
			out = append(out, poi)
			continue
		}
		if perCell[cell] >= maxPerCell {
			continue
		}
		perCell[cell]++
		out = append(out, poi)
	}
	return out
}
