package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"tripweaver/pkg/llm"
	"tripweaver/pkg/model"
)

// RerankProfile selects the LLM profile used for candidate reranking.
const RerankProfile = "rerank"

// rerank asks the LLM to reorder the top candidates by fit to the
// traveler's interests. The step is advisory and strictly a reorder:
// no candidate is added, dropped, or rescored. Any failure keeps the
// original order.
func rerank(ctx context.Context, provider llm.Provider, interests string, pois []*model.CandidatePOI, top int) []*model.CandidatePOI {
	if provider == nil || !provider.HasProfile(RerankProfile) || top <= 1 || len(pois) <= 1 {
		return pois
	}
	if top > len(pois) {
		top = len(pois)
	}
	head := pois[:top]

	var sb strings.Builder
	for _, poi := range head {
		fmt.Fprintf(&sb, "- id=%s name=%q category=%s\n", poi.ID, poi.Name, poi.Category)
	}
	prompt := fmt.Sprintf(`Order these places from best to worst fit for a traveler interested in: %q

%s
Return JSON: {"order": ["<id>", ...]} containing exactly the ids above.`,
		interests, sb.String())

	var resp struct {
		Order []string `json:"order"`
	}
	if err := provider.GenerateJSON(ctx, RerankProfile, prompt, &resp); err != nil {
		slog.Warn("Rerank failed, keeping score order", "error", err)
		return pois
	}

	byID := make(map[string]*model.CandidatePOI, top)
	for _, poi := range head {
		byID[poi.ID] = poi
	}

	reordered := make([]*model.CandidatePOI, 0, len(pois))
	for _, id := range resp.Order {
		if poi, ok := byID[id]; ok {
			reordered = append(reordered, poi)
			delete(byID, id)
		}
	}
	// Ids the model dropped or mangled keep their score order at the
	// back of the reranked block.
	for _, poi := range head {
		if _, pending := byID[poi.ID]; pending {
			reordered = append(reordered, poi)
		}
	}
	return append(reordered, pois[top:]...)
}
