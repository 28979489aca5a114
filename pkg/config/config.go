package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	DB      DBConfig      `yaml:"db"`
	Server  ServerConfig  `yaml:"server"`
	Queue   QueueConfig   `yaml:"queue"`
	Jobs    JobsConfig    `yaml:"jobs"`
	Planner PlannerConfig `yaml:"planner"`
	LLM     LLMConfig     `yaml:"llm"`
	Places  PlacesConfig  `yaml:"places"`
	Routing RoutingConfig `yaml:"routing"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// QueueConfig selects and tunes the work queue backend.
type QueueConfig struct {
	// Backend: "sqlite", "redis" or "memory".
	Backend           string      `yaml:"backend"`
	VisibilityTimeout Duration    `yaml:"visibility_timeout"`
	PollInterval      Duration    `yaml:"poll_interval"`
	Redis             RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis connection settings for the redis queue backend.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// Key prefix so several deployments can share one instance.
	Namespace string `yaml:"namespace"`
}

// JobsConfig holds the job lifecycle settings.
type JobsConfig struct {
	TTL           Duration `yaml:"ttl"`
	AttemptCap    int      `yaml:"attempt_cap"`
	SweepInterval Duration `yaml:"sweep_interval"`
	Workers       int      `yaml:"workers"`
	// Margin subtracted from the queue visibility timeout to form the
	// per-job planning deadline, so the lease outlives the work.
	DeadlineMargin Duration `yaml:"deadline_margin"`
}

// ScoreWeights tunes the composite candidate score.
type ScoreWeights struct {
	Rating    float64 `yaml:"rating"`
	Reviews   float64 `yaml:"reviews"`
	Category  float64 `yaml:"category"`
	Proximity float64 `yaml:"proximity"`
}

// PlannerConfig holds the construction algorithm settings.
type PlannerConfig struct {
	SearchRadiusKm   float64      `yaml:"search_radius_km"`
	MaxStops         int          `yaml:"max_stops"`
	MaxCandidates    int          `yaml:"max_candidates"`
	MaxParallel      int          `yaml:"max_parallel"`
	ProviderTimeout  Duration     `yaml:"provider_timeout"`
	StrictHours      bool         `yaml:"strict_hours"`
	DwellFloorMin    int          `yaml:"dwell_floor_minutes"`
	DwellCeilingMin  int          `yaml:"dwell_ceiling_minutes"`
	Weights          ScoreWeights `yaml:"weights"`
	H3Resolution     int          `yaml:"h3_resolution"`
	MaxPerCell       int          `yaml:"max_per_cell"`
	RerankEnabled    bool         `yaml:"rerank_enabled"`
	RerankTop        int          `yaml:"rerank_top"`
	// CategoriesFile points at an external category table. Empty means
	// the built-in table.
	CategoriesFile string `yaml:"categories_file"`
	// Fallback speeds used only when the routing collaborator is
	// unavailable, km/h per travel mode.
	AvgSpeedKmh map[string]float64 `yaml:"avg_speed_kmh"`
}

// LLMConfig holds settings for the LLM provider.
type LLMConfig struct {
	Provider string            `yaml:"provider"` // "gemini", "mock"
	Model    string            `yaml:"model"`
	Key      string            `yaml:"key"`
	Profiles map[string]string `yaml:"profiles"` // intent -> model
}

// PlacesConfig holds the POI search provider settings.
type PlacesConfig struct {
	Endpoint string `yaml:"endpoint"`
	Key      string `yaml:"key"`
	Limit    int    `yaml:"limit"` // per-category result cap
}

// RoutingConfig holds the route/leg provider settings.
type RoutingConfig struct {
	Endpoint string `yaml:"endpoint"` // OSRM-compatible; empty enables fallback only
	// Profile per travel mode, e.g. walking -> foot.
	Profiles        map[string]string `yaml:"profiles"`
	FallbackEnabled bool              `yaml:"fallback_enabled"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Server:   LogSettings{Path: "./logs/server.log", Level: "INFO"},
			Requests: LogSettings{Path: "./logs/requests.log", Level: "INFO"},
		},
		DB: DBConfig{
			Path: "./data/tripweaver.db",
		},
		Server: ServerConfig{
			Address: "localhost:8420",
		},
		Queue: QueueConfig{
			Backend:           "sqlite",
			VisibilityTimeout: Duration(5 * time.Minute),
			PollInterval:      Duration(500 * time.Millisecond),
			Redis: RedisConfig{
				Address:   "localhost:6379",
				Namespace: "tripweaver",
			},
		},
		Jobs: JobsConfig{
			TTL:            Duration(24 * time.Hour),
			AttemptCap:     3,
			SweepInterval:  Duration(10 * time.Minute),
			Workers:        2,
			DeadlineMargin: Duration(30 * time.Second),
		},
		Planner: PlannerConfig{
			SearchRadiusKm:  5.0,
			MaxStops:        6,
			MaxCandidates:   60,
			MaxParallel:     4,
			ProviderTimeout: Duration(30 * time.Second),
			StrictHours:     true,
			DwellFloorMin:   15,
			DwellCeilingMin: 180,
			Weights: ScoreWeights{
				Rating:    1.0,
				Reviews:   0.5,
				Category:  1.0,
				Proximity: 1.0,
			},
			H3Resolution:  9,
			MaxPerCell:    3,
			RerankEnabled: true,
			RerankTop:     20,
			AvgSpeedKmh: map[string]float64{
				"walking": 4.5,
				"transit": 18.0,
				"car":     30.0,
			},
		},
		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.5-flash-lite",
			Key:      "",
			Profiles: map[string]string{
				"interests": "gemini-2.5-flash-lite",
				"dwell":     "gemini-2.5-flash-lite",
				"rerank":    "gemini-2.5-flash",
			},
		},
		Places: PlacesConfig{
			Endpoint: "",
			Limit:    20,
		},
		Routing: RoutingConfig{
			Endpoint: "",
			Profiles: map[string]string{
				"walking": "foot",
				"transit": "driving",
				"car":     "driving",
			},
			FallbackEnabled: true,
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it is created with default values.
// Existing files are merged over defaults but never rewritten, to
// preserve user formatting and comments.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	// Secrets fall back to the environment; never written to disk.
	if cfg.LLM.Key == "" {
		cfg.LLM.Key = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Places.Key == "" {
		cfg.Places.Key = os.Getenv("PLACES_API_KEY")
	}
	if cfg.Queue.Redis.Password == "" {
		cfg.Queue.Redis.Password = os.Getenv("REDIS_PASSWORD")
	}

	return cfg, nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# TripWeaver Configuration
# -----------------------
# Duration units: ns, us, ms, s, m, h, d (day), w (week)
# queue.backend options: sqlite, redis, memory

`)
	data = append(header, data...)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return Save(path, DefaultConfig())
}
