// Package dwell assigns each candidate POI a visit length in minutes.
// Provider-supplied values pass through; the rest are estimated by the
// LLM in one batch, with category defaults covering failures. All
// values are clamped to the configured floor and ceiling.
package dwell

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"tripweaver/pkg/config"
	"tripweaver/pkg/llm"
	"tripweaver/pkg/model"
)

// ProfileName selects the LLM profile used for dwell estimation.
const ProfileName = "dwell"

// Estimator fills in dwell times for candidates.
type Estimator struct {
	provider llm.Provider
	cats     *config.CategoriesConfig
	floor    int
	ceiling  int
}

// NewEstimator creates an Estimator. provider may be nil, in which case
// only category defaults are used.
func NewEstimator(provider llm.Provider, cats *config.CategoriesConfig, cfg config.PlannerConfig) *Estimator {
	return &Estimator{
		provider: provider,
		cats:     cats,
		floor:    cfg.DwellFloorMin,
		ceiling:  cfg.DwellCeilingMin,
	}
}

// Enrich sets DwellMinutes on every candidate in place. Candidates that
// already carry a provider value keep it (clamped). Estimation failures
// degrade to category defaults and are only logged.
func (e *Estimator) Enrich(ctx context.Context, pois []*model.CandidatePOI) {
	var unknown []*model.CandidatePOI
	for _, poi := range pois {
		if poi.DwellMinutes > 0 {
			poi.DwellMinutes = e.clamp(poi.DwellMinutes)
			continue
		}
		unknown = append(unknown, poi)
	}
	if len(unknown) == 0 {
		return
	}

	estimates := e.estimateLLM(ctx, unknown)
	for _, poi := range unknown {
		if minutes, ok := estimates[poi.ID]; ok && minutes > 0 {
			poi.DwellMinutes = e.clamp(minutes)
			poi.DwellEstimated = true
			continue
		}
		poi.DwellMinutes = e.clamp(e.cats.DwellDefault(poi.Category))
		poi.DwellEstimated = true
	}
}

// estimateLLM asks for all unknown dwell times in one call. A nil map
// is returned on any failure.
func (e *Estimator) estimateLLM(ctx context.Context, pois []*model.CandidatePOI) map[string]int {
	if e.provider == nil || !e.provider.HasProfile(ProfileName) {
		return nil
	}

	var sb strings.Builder
	for _, poi := range pois {
		fmt.Fprintf(&sb, "- id=%s name=%q category=%s\n", poi.ID, poi.Name, poi.Category)
	}

	prompt := fmt.Sprintf(`Estimate how long a typical tourist spends at each place, in minutes.

Places:
%s
Return JSON: {"estimates": {"<id>": <minutes>, ...}}
Use realistic visit lengths between %d and %d minutes.`, sb.String(), e.floor, e.ceiling)

	var resp struct {
		Estimates map[string]int `json:"estimates"`
	}
	if err := e.provider.GenerateJSON(ctx, ProfileName, prompt, &resp); err != nil {
		slog.Warn("LLM dwell estimation failed, using category defaults", "count", len(pois), "error", err)
		return nil
	}
	return resp.Estimates
}

func (e *Estimator) clamp(minutes int) int {
	if e.floor > 0 && minutes < e.floor {
		return e.floor
	}
	if e.ceiling > 0 && minutes > e.ceiling {
		return e.ceiling
	}
	return minutes
}
