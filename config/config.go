package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
	Output    OutputConfig
}

// CacheConfig controls the extraction response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 100
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"

	// MaxConcurrentRuns bounds how many extraction runs may hold a browser
	// at the same time.
	MaxConcurrentRuns int // default: 2
}

// BrowserConfig controls the browser execution environment.
type BrowserConfig struct {
	// CDPURL connects to an already running browser instead of launching
	// one. Accepts a ws:// debugger URL or an http://host:port endpoint.
	CDPURL string

	// Headless controls whether a launched browser runs headless.
	Headless bool // default: true

	// DefaultProxy is the proxy URL passed to a launched browser.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Stealth injects go-rod/stealth before navigation.
	Stealth bool // default: true
}

// ScraperConfig controls the extraction run.
type ScraperConfig struct {
	// StartURL is the page the CLI extracts from when no argument is given.
	StartURL string

	// RunTimeout bounds a whole run.
	RunTimeout time.Duration // default: 10m

	// MaxRunTimeout caps the per-request timeout accepted by the API.
	MaxRunTimeout time.Duration // default: 30m

	// NavigationTimeout is the max time for the initial navigation.
	NavigationTimeout time.Duration // default: 30s

	// OverlaySelector identifies the blocking overlay removed before scanning.
	OverlaySelector string // default: "div[data-testid='turnstile/overlay']"

	// ContainerSelector identifies virtualized item containers.
	ContainerSelector string // default: "div[data-testid='VirtualGridContainer']"

	// ItemSelector identifies clickable items inside a container.
	ItemSelector string // default: "div[data-testid='MenuItem']"

	// ResponseMatch is the URL substring of the per-item detail response.
	ResponseMatch string // default: "graphql/itemPage"

	// RecordPath is the dot path to the object holding the item fields.
	RecordPath string // default: "data.itemPage.itemHeader"

	// ResponseTimeout bounds the wait for an item's detail response.
	ResponseTimeout time.Duration // default: 10s

	// SettleInterval, SettleMin and SettleMax shape the wait-until-stable
	// poll after a container is scrolled into view.
	SettleInterval time.Duration // default: 150ms
	SettleMin      time.Duration // default: 300ms
	SettleMax      time.Duration // default: 1s

	// ResetSettle is the wait after Escape is pressed.
	ResetSettle time.Duration // default: 1s

	// ItemRetries is how many extra attempts a failed item gets.
	ItemRetries int // default: 1

	// ClicksPerSecond paces item clicks. 0 disables pacing.
	ClicksPerSecond float64 // default: 0

	// DescriptionFormat is the default description normalization:
	// "raw", "text" or "markdown".
	DescriptionFormat string // default: "raw"

	// BlockedResourceTypes lists resource types to block while extracting.
	// Empty by default: blocking uses the Fetch domain, which must not be
	// combined with Network event capture on some Chromium versions.
	BlockedResourceTypes []string

	// BlockAds fails requests to known ad and analytics hosts. Same caveat
	// as BlockedResourceTypes.
	BlockAds bool // default: false

	// DuplicateThreshold is the max SimHash distance for two records to be
	// reported as near-duplicates. Negative disables the report.
	DuplicateThreshold int // default: 3
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per API key.
	Burst int // default: 3
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json", "text" or "color"; default: "json"

	// File, when set, receives a copy of every log line with rotation.
	File string

	MaxSizeMB  int // default: 25
	MaxBackups int // default: 10
	MaxAgeDays int // default: 14
}

// OutputConfig controls where the CLI writes its result.
type OutputConfig struct {
	// Path is the JSON file receiving the extracted records.
	Path string // default: "menu_items.json"
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment take precedence.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Host:              envOr("MENUGRAB_HOST", "0.0.0.0"),
			Port:              envIntOr("MENUGRAB_PORT", 8080),
			Mode:              envOr("MENUGRAB_MODE", "release"),
			MaxConcurrentRuns: envIntOr("MENUGRAB_MAX_CONCURRENT_RUNS", 2),
		},
		Browser: BrowserConfig{
			CDPURL:       os.Getenv("MENUGRAB_CDP_URL"),
			Headless:     envBoolOr("MENUGRAB_HEADLESS", true),
			DefaultProxy: os.Getenv("MENUGRAB_PROXY"),
			NoSandbox:    envBoolOr("MENUGRAB_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("MENUGRAB_BROWSER_BIN"),
			Stealth:      envBoolOr("MENUGRAB_STEALTH", true),
		},
		Scraper: ScraperConfig{
			StartURL:             os.Getenv("MENUGRAB_START_URL"),
			RunTimeout:           envDurationOr("MENUGRAB_RUN_TIMEOUT", 10*time.Minute),
			MaxRunTimeout:        envDurationOr("MENUGRAB_MAX_RUN_TIMEOUT", 30*time.Minute),
			NavigationTimeout:    envDurationOr("MENUGRAB_NAV_TIMEOUT", 30*time.Second),
			OverlaySelector:      envOr("MENUGRAB_OVERLAY_SELECTOR", "div[data-testid='turnstile/overlay']"),
			ContainerSelector:    envOr("MENUGRAB_CONTAINER_SELECTOR", "div[data-testid='VirtualGridContainer']"),
			ItemSelector:         envOr("MENUGRAB_ITEM_SELECTOR", "div[data-testid='MenuItem']"),
			ResponseMatch:        envOr("MENUGRAB_RESPONSE_MATCH", "graphql/itemPage"),
			RecordPath:           envOr("MENUGRAB_RECORD_PATH", "data.itemPage.itemHeader"),
			ResponseTimeout:      envDurationOr("MENUGRAB_RESPONSE_TIMEOUT", 10*time.Second),
			SettleInterval:       envDurationOr("MENUGRAB_SETTLE_INTERVAL", 150*time.Millisecond),
			SettleMin:            envDurationOr("MENUGRAB_SETTLE_MIN", 300*time.Millisecond),
			SettleMax:            envDurationOr("MENUGRAB_SETTLE_MAX", time.Second),
			ResetSettle:          envDurationOr("MENUGRAB_RESET_SETTLE", time.Second),
			ItemRetries:          envIntOr("MENUGRAB_ITEM_RETRIES", 1),
			ClicksPerSecond:      envFloatOr("MENUGRAB_CLICKS_PER_SECOND", 0),
			DescriptionFormat:    envOr("MENUGRAB_DESCRIPTION_FORMAT", "raw"),
			BlockedResourceTypes: envSliceOr("MENUGRAB_BLOCKED_RESOURCES", nil),
			BlockAds:             envBoolOr("MENUGRAB_BLOCK_ADS", false),
			DuplicateThreshold:   envIntOr("MENUGRAB_DUPLICATE_THRESHOLD", 3),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("MENUGRAB_AUTH_ENABLED", true),
			APIKeys: envSliceOr("MENUGRAB_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("MENUGRAB_RATE_RPS", 1.0),
			Burst:             envIntOr("MENUGRAB_RATE_BURST", 3),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("MENUGRAB_CACHE_MAX_ENTRIES", 100),
		},
		Log: LogConfig{
			Level:      envOr("MENUGRAB_LOG_LEVEL", "info"),
			Format:     envOr("MENUGRAB_LOG_FORMAT", "json"),
			File:       os.Getenv("MENUGRAB_LOG_FILE"),
			MaxSizeMB:  envIntOr("MENUGRAB_LOG_MAX_SIZE_MB", 25),
			MaxBackups: envIntOr("MENUGRAB_LOG_MAX_BACKUPS", 10),
			MaxAgeDays: envIntOr("MENUGRAB_LOG_MAX_AGE_DAYS", 14),
		},
		Output: OutputConfig{
			Path: envOr("MENUGRAB_OUTPUT", "menu_items.json"),
		},
	}
}

// Validate checks the values a run cannot start without. Every problem is
// reported, not just the first.
func (c *Config) Validate() error {
	var errs []error

	sc := c.Scraper
	for name, sel := range map[string]string{
		"MENUGRAB_OVERLAY_SELECTOR":   sc.OverlaySelector,
		"MENUGRAB_CONTAINER_SELECTOR": sc.ContainerSelector,
		"MENUGRAB_ITEM_SELECTOR":      sc.ItemSelector,
	} {
		if err := ValidateSelector(sel); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if strings.TrimSpace(sc.ResponseMatch) == "" {
		errs = append(errs, errors.New("MENUGRAB_RESPONSE_MATCH must not be empty"))
	}
	if sc.ResponseTimeout <= 0 {
		errs = append(errs, errors.New("MENUGRAB_RESPONSE_TIMEOUT must be positive"))
	}
	if sc.SettleMax < sc.SettleMin {
		errs = append(errs, errors.New("MENUGRAB_SETTLE_MAX must not be below MENUGRAB_SETTLE_MIN"))
	}
	if sc.ItemRetries < 0 {
		errs = append(errs, errors.New("MENUGRAB_ITEM_RETRIES must not be negative"))
	}
	switch sc.DescriptionFormat {
	case "raw", "text", "markdown":
	default:
		errs = append(errs, fmt.Errorf("MENUGRAB_DESCRIPTION_FORMAT: unknown format %q", sc.DescriptionFormat))
	}
	if c.Server.MaxConcurrentRuns <= 0 {
		errs = append(errs, errors.New("MENUGRAB_MAX_CONCURRENT_RUNS must be positive"))
	}

	return errors.Join(errs...)
}

// ValidateSelector reports whether sel is a CSS selector the browser and
// the HTML tooling can both evaluate.
func ValidateSelector(sel string) error {
	if strings.TrimSpace(sel) == "" {
		return errors.New("empty selector")
	}
	if _, err := cascadia.ParseGroup(sel); err != nil {
		return fmt.Errorf("invalid selector %q: %w", sel, err)
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
