package dwell

import (
	"context"
	"testing"

	"tripweaver/pkg/config"
	"tripweaver/pkg/llm"
	"tripweaver/pkg/model"
)

func plannerCfg() config.PlannerConfig {
	return config.PlannerConfig{DwellFloorMin: 15, DwellCeilingMin: 180}
}

func TestEnrich_ProviderValueKept(t *testing.T) {
	e := NewEstimator(nil, config.DefaultCategories(), plannerCfg())
	pois := []*model.CandidatePOI{
		{ID: "a", Category: "museum", DwellMinutes: 60},
		{ID: "b", Category: "museum", DwellMinutes: 500},
	}
	e.Enrich(context.Background(), pois)

	if pois[0].DwellMinutes != 60 || pois[0].DwellEstimated {
		t.Errorf("provider value should pass through, got %+v", pois[0])
	}
	if pois[1].DwellMinutes != 180 {
		t.Errorf("expected ceiling clamp to 180, got %d", pois[1].DwellMinutes)
	}
}

func TestEnrich_LLMEstimates(t *testing.T) {
	mock := llm.NewMock()
	mock.Respond(ProfileName, `{"estimates": {"a": 75, "b": 5}}`)

	e := NewEstimator(mock, config.DefaultCategories(), plannerCfg())
	pois := []*model.CandidatePOI{
		{ID: "a", Category: "museum"},
		{ID: "b", Category: "cafe"},
		{ID: "c", Category: "park"},
	}
	e.Enrich(context.Background(), pois)

	if pois[0].DwellMinutes != 75 || !pois[0].DwellEstimated {
		t.Errorf("expected LLM estimate 75, got %+v", pois[0])
	}
	if pois[1].DwellMinutes != 15 {
		t.Errorf("expected floor clamp to 15, got %d", pois[1].DwellMinutes)
	}
	// Missing from the LLM response: category default applies.
	if pois[2].DwellMinutes != 40 || !pois[2].DwellEstimated {
		t.Errorf("expected park default 40, got %+v", pois[2])
	}
}

func TestEnrich_LLMFailureFallsBack(t *testing.T) {
	// Mock without a registered response errors on every call.
	e := NewEstimator(llm.NewMock(), config.DefaultCategories(), plannerCfg())
	pois := []*model.CandidatePOI{{ID: "a", Category: "museum"}}
	e.Enrich(context.Background(), pois)

	if pois[0].DwellMinutes != 90 || !pois[0].DwellEstimated {
		t.Errorf("expected museum default 90, got %+v", pois[0])
	}
}
