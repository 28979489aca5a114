package planner

import (
	"context"
	"strings"
	"testing"

	"tripweaver/pkg/config"
	"tripweaver/pkg/llm"
	"tripweaver/pkg/model"
)

func TestScoreCandidates(t *testing.T) {
	cats := config.DefaultCategories()
	weights := config.ScoreWeights{Rating: 1.0, Reviews: 0.5, Category: 1.0, Proximity: 1.0}

	good := &model.CandidatePOI{ID: "good", Category: "museum", Rating: 4.8, ReviewCount: 5000, DistanceMeters: 500}
	poor := &model.CandidatePOI{ID: "poor", Category: "museum", Rating: 2.0, ReviewCount: 10, DistanceMeters: 4500}

	scoreCandidates([]*model.CandidatePOI{good, poor}, weights, cats, map[string]float64{"museum": 1.5}, 5000)

	if good.Score <= poor.Score {
		t.Fatalf("good (%.2f) should outscore poor (%.2f)", good.Score, poor.Score)
	}
	for _, label := range []string{"Base Score", "Rating", "Reviews", "Category", "Proximity"} {
		if !strings.Contains(good.ScoreDetails, label) {
			t.Errorf("score details missing %q:\n%s", label, good.ScoreDetails)
		}
	}
}

func TestScoreCandidates_UnratedNeutral(t *testing.T) {
	cats := config.DefaultCategories()
	weights := config.ScoreWeights{Rating: 1.0, Reviews: 0.5, Category: 1.0, Proximity: 1.0}

	unrated := &model.CandidatePOI{ID: "u", Category: "park"}
	scoreCandidates([]*model.CandidatePOI{unrated}, weights, cats, nil, 5000)

	if unrated.Score <= 0 {
		t.Fatalf("unrated POI must keep a positive score, got %.2f", unrated.Score)
	}
	if strings.Contains(unrated.ScoreDetails, "Rating") {
		t.Error("no rating multiplier expected for unrated POI")
	}
}

func TestBetterCandidate_TieBreaks(t *testing.T) {
	// An unrated POI and a 2.5-star POI both take x1.0 on the rating
	// factor, so their composite scores tie. Selection must still
	// prefer the rated one, and fall back to id on a full tie.
	unrated := &model.CandidatePOI{ID: "u", Score: 1.0}
	rated := &model.CandidatePOI{ID: "r", Score: 1.0, Rating: 2.5}
	if !betterCandidate(rated, unrated) {
		t.Error("equal scores must prefer the higher rating")
	}
	if betterCandidate(unrated, rated) {
		t.Error("lower rating must not win a score tie")
	}

	a := &model.CandidatePOI{ID: "a", Score: 1.0, Rating: 4.0}
	b := &model.CandidatePOI{ID: "b", Score: 1.0, Rating: 4.0}
	if !betterCandidate(a, b) || betterCandidate(b, a) {
		t.Error("full ties must order by id")
	}

	low := &model.CandidatePOI{ID: "z", Score: 2.0}
	if !betterCandidate(low, rated) {
		t.Error("score must dominate rating and id")
	}
}

func TestDiversify(t *testing.T) {
	// Five candidates on the same spot, two elsewhere.
	var pois []*model.CandidatePOI
	for i := 0; i < 5; i++ {
		pois = append(pois, &model.CandidatePOI{ID: string(rune('a' + i)), Lat: 48.2082, Lon: 16.3738, Score: float64(5 - i)})
	}
	pois = append(pois,
		&model.CandidatePOI{ID: "x", Lat: 48.19, Lon: 16.30, Score: 0.5},
		&model.CandidatePOI{ID: "y", Lat: 48.22, Lon: 16.40, Score: 0.4},
	)

	out := diversify(pois, 9, 2)
	if len(out) != 4 {
		t.Fatalf("expected 2 from the cluster + 2 singletons, got %d", len(out))
	}
	if out[0].ID != "a" || out[1].ID != "b" {
		t.Errorf("cluster survivors should be the top scored, got %s %s", out[0].ID, out[1].ID)
	}
}

func TestRerank_ReorderOnly(t *testing.T) {
	mock := llm.NewMock()
	mock.Respond(RerankProfile, `{"order": ["c", "a", "ghost"]}`)

	pois := []*model.CandidatePOI{
		{ID: "a", Score: 3},
		{ID: "b", Score: 2},
		{ID: "c", Score: 1},
		{ID: "d", Score: 0.5},
	}

	out := rerank(context.Background(), mock, "anything", pois, 3)
	if len(out) != 4 {
		t.Fatalf("rerank changed the candidate count: %d", len(out))
	}
	wantOrder := []string{"c", "a", "b", "d"}
	for i, want := range wantOrder {
		if out[i].ID != want {
			t.Fatalf("order[%d] = %s, want %s (full: %v)", i, out[i].ID, want, ids(out))
		}
	}
}

func TestRerank_FailureKeepsOrder(t *testing.T) {
	mock := llm.NewMock()
	mock.Respond(RerankProfile, `not json at all`)

	pois := []*model.CandidatePOI{{ID: "a"}, {ID: "b"}}
	out := rerank(context.Background(), mock, "anything", pois, 2)
	if out[0].ID != "a" || out[1].ID != "b" {
		t.Fatalf("failed rerank must keep score order, got %v", ids(out))
	}
}

func TestRerank_SkippedWithoutProfile(t *testing.T) {
	mock := llm.NewMock()

	pois := []*model.CandidatePOI{{ID: "a"}, {ID: "b"}}
	out := rerank(context.Background(), mock, "anything", pois, 2)
	if out[0].ID != "a" || out[1].ID != "b" {
		t.Fatalf("unprofiled rerank must keep score order, got %v", ids(out))
	}
	if len(mock.Calls()) != 0 {
		t.Fatalf("no model call expected without a rerank profile, got %v", mock.Calls())
	}
}

func ids(pois []*model.CandidatePOI) []string {
	var out []string
	for _, p := range pois {
		out = append(out, p.ID)
	}
	return out
}
