package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/samtoma/Headhunter-sub000/pkg/models"
)

// Config holds all configuration for the dashboard server.
type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Redis    RedisConfig
	Roster   RosterConfig
	Pipeline PipelineConfig
	Grid     GridConfig
	Upload   UploadConfig
}

type ServerConfig struct {
	Port            int
	Env             string
	RateLimitPerMin int
}

type BackendConfig struct {
	BaseURL       string
	Token         string
	Timeout       time.Duration
	UploadTimeout time.Duration
}

type RedisConfig struct {
	URL      string
	CacheTTL time.Duration
}

type RosterConfig struct {
	PageSize        int
	RefreshInterval time.Duration
}

type PipelineConfig struct {
	Stages []string
}

type GridConfig struct {
	CardWidth int
	Gap       int
	RowHeight int
	Overscan  int
}

type UploadConfig struct {
	DismissDelay time.Duration
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("HEADHUNTER_PORT", 8080),
			Env:             envString("HEADHUNTER_ENV", "development"),
			RateLimitPerMin: envInt("RATE_LIMIT_PER_MIN", 120),
		},
		Backend: BackendConfig{
			BaseURL:       strings.TrimRight(os.Getenv("BACKEND_BASE_URL"), "/"),
			Token:         os.Getenv("BACKEND_TOKEN"),
			Timeout:       envDuration("BACKEND_TIMEOUT", 30*time.Second),
			UploadTimeout: envDuration("UPLOAD_TIMEOUT", 10*time.Minute),
		},
		Redis: RedisConfig{
			URL:      os.Getenv("REDIS_URL"),
			CacheTTL: envDuration("CACHE_TTL", 30*time.Second),
		},
		Roster: RosterConfig{
			PageSize:        envInt("ROSTER_PAGE_SIZE", 50),
			RefreshInterval: envDuration("ROSTER_REFRESH_INTERVAL", 30*time.Second),
		},
		Pipeline: PipelineConfig{
			Stages: envList("PIPELINE_STAGES", models.DefaultStages),
		},
		Grid: GridConfig{
			CardWidth: envInt("GRID_CARD_WIDTH", 320),
			Gap:       envInt("GRID_GAP", 24),
			RowHeight: envInt("GRID_ROW_HEIGHT", 380),
			Overscan:  envInt("GRID_OVERSCAN", 1),
		},
		Upload: UploadConfig{
			DismissDelay: envDuration("UPLOAD_DISMISS_DELAY", 3*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("BACKEND_BASE_URL is required")
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("BACKEND_BASE_URL must start with http:// or https://, got %q", c.Backend.BaseURL)
	}

	if c.Redis.URL != "" && !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("REDIS_URL must start with redis:// or rediss://, got %q", c.Redis.URL)
	}

	if c.Roster.PageSize <= 0 {
		return fmt.Errorf("ROSTER_PAGE_SIZE must be positive, got %d", c.Roster.PageSize)
	}
	if c.Roster.RefreshInterval < 0 {
		return fmt.Errorf("ROSTER_REFRESH_INTERVAL must not be negative")
	}

	if len(c.Pipeline.Stages) == 0 {
		return fmt.Errorf("PIPELINE_STAGES must list at least one stage")
	}
	seen := make(map[string]bool, len(c.Pipeline.Stages))
	for _, s := range c.Pipeline.Stages {
		if seen[s] {
			return fmt.Errorf("PIPELINE_STAGES contains duplicate stage %q", s)
		}
		seen[s] = true
	}
	if !seen[models.StageNew] {
		return fmt.Errorf("PIPELINE_STAGES must include %q", models.StageNew)
	}

	if c.Grid.CardWidth <= 0 || c.Grid.RowHeight <= 0 {
		return fmt.Errorf("GRID_CARD_WIDTH and GRID_ROW_HEIGHT must be positive")
	}
	if c.Grid.Gap < 0 || c.Grid.Overscan < 0 {
		return fmt.Errorf("GRID_GAP and GRID_OVERSCAN must not be negative")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// envList splits a comma-separated variable, dropping blank items.
func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return append([]string(nil), defaultVal...)
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
