package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category holds per-category planning configuration.
type Category struct {
	Weight       float64  `yaml:"weight"`
	DwellMinutes int      `yaml:"dwell_minutes"`
	Keywords     []string `yaml:"keywords"`
}

// CategoriesConfig maps POI category identifiers to their configuration.
// Defaults lists the categories used when interests cannot be resolved.
type CategoriesConfig struct {
	Categories map[string]Category `yaml:"categories"`
	Defaults   []string            `yaml:"defaults"`
}

// DefaultCategories returns the built-in category table.
func DefaultCategories() *CategoriesConfig {
	return &CategoriesConfig{
		Categories: map[string]Category{
			"museum":     {Weight: 1.2, DwellMinutes: 90, Keywords: []string{"museum", "gallery", "art", "exhibition", "history"}},
			"landmark":   {Weight: 1.3, DwellMinutes: 45, Keywords: []string{"landmark", "monument", "castle", "palace", "cathedral", "church", "architecture", "sight"}},
			"park":       {Weight: 1.0, DwellMinutes: 40, Keywords: []string{"park", "garden", "nature", "outdoor", "walk", "lake"}},
			"viewpoint":  {Weight: 1.1, DwellMinutes: 25, Keywords: []string{"view", "viewpoint", "panorama", "skyline", "tower"}},
			"restaurant": {Weight: 0.9, DwellMinutes: 75, Keywords: []string{"food", "restaurant", "cuisine", "dinner", "lunch", "street food"}},
			"cafe":       {Weight: 0.8, DwellMinutes: 40, Keywords: []string{"cafe", "coffee", "bakery", "pastry", "dessert"}},
			"market":     {Weight: 0.9, DwellMinutes: 45, Keywords: []string{"market", "bazaar", "shopping", "crafts", "souvenir"}},
			"theater":    {Weight: 0.9, DwellMinutes: 60, Keywords: []string{"theater", "theatre", "opera", "concert", "music", "show"}},
		},
		Defaults: []string{"landmark", "museum", "park"},
	}
}

// LoadCategories loads a category table from a YAML file, or the
// built-in defaults if path is empty.
func LoadCategories(path string) (*CategoriesConfig, error) {
	if path == "" {
		return DefaultCategories(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read categories file: %w", err)
	}

	var cfg CategoriesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse categories file: %w", err)
	}

	// Normalize keys so lookups never miss on case.
	normalized := make(map[string]Category, len(cfg.Categories))
	for k, v := range cfg.Categories {
		normalized[strings.ToLower(k)] = v
	}
	cfg.Categories = normalized

	if len(cfg.Categories) == 0 {
		return nil, fmt.Errorf("categories file %s defines no categories", path)
	}
	if len(cfg.Defaults) == 0 {
		cfg.Defaults = DefaultCategories().Defaults
	}
	return &cfg, nil
}

// Known reports whether the identifier is a configured category.
func (c *CategoriesConfig) Known(cat string) bool {
	_, ok := c.Categories[strings.ToLower(cat)]
	return ok
}

// Weight returns the score weight for a category, 1.0 when unknown.
func (c *CategoriesConfig) Weight(cat string) float64 {
	if entry, ok := c.Categories[strings.ToLower(cat)]; ok && entry.Weight > 0 {
		return entry.Weight
	}
	return 1.0
}

// DwellDefault returns the default visit length for a category.
func (c *CategoriesConfig) DwellDefault(cat string) int {
	if entry, ok := c.Categories[strings.ToLower(cat)]; ok && entry.DwellMinutes > 0 {
		return entry.DwellMinutes
	}
	return 45
}

// Names returns all configured category identifiers, sorted.
func (c *CategoriesConfig) Names() []string {
	names := make([]string, 0, len(c.Categories))
	for name := range c.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
