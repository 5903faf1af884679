package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration. It is populated in
// strict priority order: defaults -> file1 -> file2 -> ... -> env -> CLI.
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Server      ServerConfig   `toml:"server"`
	Storage     StorageConfig  `toml:"storage"`
	Logging     LoggingConfig  `toml:"logging"`
	Crawl       CrawlEngineConfig `toml:"crawl"`
	Capture     CaptureConfig  `toml:"capture"`
	Visual      VisualConfig   `toml:"visual"`
	Functional  FunctionalConfig `toml:"functional"`
	Data        DataConfig     `toml:"data"`
	Gemini      GeminiConfig   `toml:"gemini"`
	Claude      ClaudeConfig   `toml:"claude"`
	LLM         LLMConfig      `toml:"llm"`
	RateLimit   RateLimitConfig `toml:"rate_limit"`
}

type ServerConfig struct {
	Port           int      `toml:"port"`
	Host           string   `toml:"host"`
	AllowedOrigins []string `toml:"allowed_origins"` // CORS allow-list, consulted only when Environment == "production"
}

type StorageConfig struct {
	DataDir string `toml:"data_dir"` // directory containing snapshot.json and artifacts/
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // default "15:04:05.000"
}

// CrawlEngineConfig tunes global crawl-engine behavior shared across jobs.
// A job's own CrawlConfig (models.CrawlConfig) narrows these defaults further
// on a per-job basis.
type CrawlEngineConfig struct {
	NavigationTimeout time.Duration `toml:"navigation_timeout"` // per-page fetch timeout, default 30s
	MaxPages          int           `toml:"max_pages"`          // not consulted by the crawl stage; a crawl is bounded only by the job's CrawlConfig.MaxPages
	UserAgent         string        `toml:"user_agent"`
}

// CaptureConfig tunes the capture stage's viewport and timeout behavior.
type CaptureConfig struct {
	Viewports        []ViewportConfig `toml:"viewports"`
	NavigationTimeout time.Duration   `toml:"navigation_timeout"`
	PoolSize         int             `toml:"pool_size"` // number of headless browser instances
}

type ViewportConfig struct {
	Name   string `toml:"name"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

// VisualConfig tunes the visual diff stage thresholds.
type VisualConfig struct {
	DiffThreshold        float64 `toml:"diff_threshold"`         // default 0.1
	LayoutShiftMinPixels int     `toml:"layout_shift_min_pixels"` // default 5
}

// FunctionalConfig tunes the functional QA stage.
type FunctionalConfig struct {
	FormSubmitTimeout time.Duration `toml:"form_submit_timeout"` // default 10s
	LinkProbeTimeout  time.Duration `toml:"link_probe_timeout"`  // default 10s
}

// DataConfig tunes the data integrity stage.
type DataConfig struct {
	MatchSimilarityThreshold   float64 `toml:"match_similarity_threshold"`   // default 0.9
	PartialSimilarityThreshold float64 `toml:"partial_similarity_threshold"` // default 0.5
}

// GeminiConfig contains Google Gemini API configuration for the reasoner.
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"` // default "gemini-2.0-flash"
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API configuration for the reasoner.
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"` // default "claude-haiku-3-5-20241022"
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

// LLMProvider identifies a reasoner backend.
type LLMProvider string

const (
	LLMProviderGemini LLMProvider = "gemini"
	LLMProviderClaude LLMProvider = "claude"
	LLMProviderNone   LLMProvider = "" // no key resolved -> rule-based fallback
)

// LLMConfig contains provider-selection configuration for the reasoner.
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"`
}

// RateLimitConfig tunes the per-origin and per-provider token buckets.
type RateLimitConfig struct {
	SiteRequestsPerSecond float64 `toml:"site_requests_per_second"` // default 5
	SiteBurst             int     `toml:"site_burst"`               // default 5
	LLMRequestsPerSecond  float64 `toml:"llm_requests_per_second"`  // default 1
	LLMBurst              int     `toml:"llm_burst"`                // default 2
}

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 4000,
			Host: "localhost",
		},
		Storage: StorageConfig{
			DataDir: "./backend/data",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Crawl: CrawlEngineConfig{
			NavigationTimeout: 30 * time.Second,
			MaxPages:          200,
			UserAgent:         "parityguard/1.0 (+migration-assurance)",
		},
		Capture: CaptureConfig{
			Viewports: []ViewportConfig{
				{Name: "desktop", Width: 1920, Height: 1080},
				{Name: "tablet", Width: 768, Height: 1024},
				{Name: "mobile", Width: 375, Height: 667},
			},
			NavigationTimeout: 30 * time.Second,
			PoolSize:          2,
		},
		Visual: VisualConfig{
			DiffThreshold:        0.1,
			LayoutShiftMinPixels: 5,
		},
		Functional: FunctionalConfig{
			FormSubmitTimeout: 10 * time.Second,
			LinkProbeTimeout:  10 * time.Second,
		},
		Data: DataConfig{
			MatchSimilarityThreshold:   0.9,
			PartialSimilarityThreshold: 0.5,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.0-flash",
			Timeout:     "5m",
			Temperature: 0.2,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   4096,
			Timeout:     "5m",
			Temperature: 0.2,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		RateLimit: RateLimitConfig{
			SiteRequestsPerSecond: 5,
			SiteBurst:             5,
			LLMRequestsPerSecond:  1,
			LLMBurst:              2,
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier
// files. CLI flag overrides are applied afterward via ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies PARITYGUARD_*-prefixed environment variable
// overrides to config. Overrides everything loaded from files.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PARITYGUARD_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if port := os.Getenv("PARITYGUARD_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("PARITYGUARD_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		config.Storage.DataDir = dataDir
	}

	if level := os.Getenv("PARITYGUARD_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("PARITYGUARD_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("PARITYGUARD_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if maxPages := os.Getenv("PARITYGUARD_CRAWL_MAX_PAGES"); maxPages != "" {
		if mp, err := strconv.Atoi(maxPages); err == nil {
			config.Crawl.MaxPages = mp
		}
	}
	if navTimeout := os.Getenv("PARITYGUARD_CRAWL_NAVIGATION_TIMEOUT"); navTimeout != "" {
		if d, err := time.ParseDuration(navTimeout); err == nil {
			config.Crawl.NavigationTimeout = d
		}
	}

	if poolSize := os.Getenv("PARITYGUARD_CAPTURE_POOL_SIZE"); poolSize != "" {
		if ps, err := strconv.Atoi(poolSize); err == nil {
			config.Capture.PoolSize = ps
		}
	}

	if threshold := os.Getenv("PARITYGUARD_VISUAL_DIFF_THRESHOLD"); threshold != "" {
		if t, err := strconv.ParseFloat(threshold, 64); err == nil {
			config.Visual.DiffThreshold = t
		}
	}

	// Provider API keys: the cloud reasoner is selected when a Gemini or
	// Claude key resolves (see LLMConfigured), otherwise the rule-based
	// fallback is used. LLM_ENDPOINT, LLM_API_KEY and LLM_DEPLOYMENT_NAME are
	// not read.
	if apiKey := os.Getenv("PARITYGUARD_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	} else if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("PARITYGUARD_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}

	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	} else if apiKey := os.Getenv("PARITYGUARD_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if model := os.Getenv("PARITYGUARD_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}

	if provider := os.Getenv("PARITYGUARD_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config. CLI
// flags have the highest priority in the layering.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ResolveAPIKey resolves an API key by name with environment variable
// priority. Resolution order: environment variables -> config fallback.
// The KV-store tier the source resolved through no longer exists in this
// module's storage layer (§4.1 has no key/value store), so this is a
// two-tier resolution rather than the source's three-tier one.
func ResolveAPIKey(name string, configFallback string) (string, error) {
	envMapping := map[string][]string{
		"gemini_api_key":    {"PARITYGUARD_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"anthropic_api_key": {"ANTHROPIC_API_KEY", "PARITYGUARD_CLAUDE_API_KEY"},
	}

	if envVarNames, ok := envMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key %q not found in environment or config", name)
}

// IsProduction returns true if the environment is set to production.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// LLMConfigured reports whether enough configuration is present to attempt a
// cloud reasoner call: true when either a Gemini or a Claude API key
// resolves. Used by the reasoner factory
// to decide between the LLM reasoner and the rule-based fallback.
func (c *Config) LLMConfigured() bool {
	geminiKey, _ := ResolveAPIKey("gemini_api_key", c.Gemini.APIKey)
	claudeKey, _ := ResolveAPIKey("anthropic_api_key", c.Claude.APIKey)
	return geminiKey != "" || claudeKey != ""
}
