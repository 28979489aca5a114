// Package interests resolves a traveler's free-text interests into the
// weighted POI categories the planner searches for. An LLM does the
// mapping when one is available; a keyword table covers the rest, so
// resolution never fails outright.
package interests

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"tripweaver/pkg/config"
	"tripweaver/pkg/llm"
)

// ProfileName selects the LLM profile used for interest mapping.
const ProfileName = "interests"

// maxCategories caps how many categories one request resolves to.
const maxCategories = 5

// Weighted is one resolved category with its affinity weight.
type Weighted struct {
	Category string
	Weight   float64
}

// Mapper resolves free-text interests to known categories.
type Mapper struct {
	provider llm.Provider
	cats     *config.CategoriesConfig
}

// NewMapper creates a Mapper. provider may be nil, in which case only
// the keyword table is used.
func NewMapper(provider llm.Provider, cats *config.CategoriesConfig) *Mapper {
	return &Mapper{provider: provider, cats: cats}
}

// llmResponse is the JSON shape requested from the model.
type llmResponse struct {
	Categories []struct {
		Name   string  `json:"name"`
		Weight float64 `json:"weight"`
	} `json:"categories"`
}

// Resolve maps the interests text to weighted categories. Empty or
// unrecognized input yields the default category set. The error path
// inside (LLM failure, bad JSON) degrades to the keyword table and is
// only logged.
func (m *Mapper) Resolve(ctx context.Context, interests string) []Weighted {
	interests = strings.TrimSpace(interests)
	if interests == "" {
		return m.defaults()
	}

	if m.provider != nil && m.provider.HasProfile(ProfileName) {
		if resolved, err := m.resolveLLM(ctx, interests); err == nil && len(resolved) > 0 {
			return resolved
		} else if err != nil {
			slog.Warn("LLM interest mapping failed, using keyword table", "error", err)
		}
	}

	if resolved := m.resolveKeywords(interests); len(resolved) > 0 {
		return resolved
	}
	return m.defaults()
}

func (m *Mapper) resolveLLM(ctx context.Context, interests string) ([]Weighted, error) {
	prompt := fmt.Sprintf(`You map a traveler's stated interests to sightseeing categories.

Known categories: %s

Traveler interests: %q

Return JSON: {"categories": [{"name": "<category>", "weight": <0.1-2.0>}]}
Use only the known categories. Pick at most %d, weighted by how strongly
the interests match. Return an empty list if nothing fits.`,
		strings.Join(m.cats.Names(), ", "), interests, maxCategories)

	var resp llmResponse
	if err := m.provider.GenerateJSON(ctx, ProfileName, prompt, &resp); err != nil {
		return nil, err
	}

	var out []Weighted
	for _, c := range resp.Categories {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if !m.cats.Known(name) {
			slog.Debug("LLM returned unknown category, skipping", "category", c.Name)
			continue
		}
		w := c.Weight
		if w <= 0 || w > 2.0 {
			w = 1.0
		}
		out = append(out, Weighted{Category: name, Weight: w})
		if len(out) == maxCategories {
			break
		}
	}
	return dedupe(out), nil
}

// resolveKeywords matches interest tokens against each category's
// keyword list from configuration.
func (m *Mapper) resolveKeywords(interests string) []Weighted {
	text := strings.ToLower(interests)

	var out []Weighted
	for _, name := range m.cats.Names() {
		cat := m.cats.Categories[name]
		matched := false
		for _, kw := range cat.Keywords {
			if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
				matched = true
				break
			}
		}
		if !matched && strings.Contains(text, name) {
			matched = true
		}
		if matched {
			out = append(out, Weighted{Category: name, Weight: m.cats.Weight(name)})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Category < out[j].Category
	})
	if len(out) > maxCategories {
		out = out[:maxCategories]
	}
	return out
}

// defaults returns the configured default categories at their table weights.
func (m *Mapper) defaults() []Weighted {
	var out []Weighted
	for _, name := range m.cats.Defaults {
		if m.cats.Known(name) {
			out = append(out, Weighted{Category: name, Weight: m.cats.Weight(name)})
		}
	}
	return out
}

func dedupe(in []Weighted) []Weighted {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, w := range in {
		if seen[w.Category] {
			continue
		}
		seen[w.Category] = true
		out = append(out, w)
	}
	return out
}
