package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Scraper.ContainerSelector != "div[data-testid='VirtualGridContainer']" {
		t.Errorf("ContainerSelector = %q", cfg.Scraper.ContainerSelector)
	}
	if cfg.Scraper.ItemSelector != "div[data-testid='MenuItem']" {
		t.Errorf("ItemSelector = %q", cfg.Scraper.ItemSelector)
	}
	if cfg.Scraper.ResponseMatch != "graphql/itemPage" {
		t.Errorf("ResponseMatch = %q", cfg.Scraper.ResponseMatch)
	}
	if cfg.Scraper.SettleMax != time.Second {
		t.Errorf("SettleMax = %v, want 1s", cfg.Scraper.SettleMax)
	}
	if cfg.Scraper.ItemRetries != 1 {
		t.Errorf("ItemRetries = %d, want 1", cfg.Scraper.ItemRetries)
	}
	if cfg.Output.Path != "menu_items.json" {
		t.Errorf("Output.Path = %q", cfg.Output.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MENUGRAB_RESPONSE_TIMEOUT", "3s")
	t.Setenv("MENUGRAB_ITEM_RETRIES", "0")
	t.Setenv("MENUGRAB_API_KEYS", "a, b,,c")
	t.Setenv("MENUGRAB_HEADLESS", "false")
	t.Setenv("MENUGRAB_CLICKS_PER_SECOND", "2.5")
	t.Setenv("MENUGRAB_PORT", "not-a-number")

	cfg := Load()

	if cfg.Scraper.ResponseTimeout != 3*time.Second {
		t.Errorf("ResponseTimeout = %v, want 3s", cfg.Scraper.ResponseTimeout)
	}
	if cfg.Scraper.ItemRetries != 0 {
		t.Errorf("ItemRetries = %d, want 0", cfg.Scraper.ItemRetries)
	}
	if got := strings.Join(cfg.Auth.APIKeys, "|"); got != "a|b|c" {
		t.Errorf("APIKeys = %q, want a|b|c", got)
	}
	if cfg.Browser.Headless {
		t.Error("Headless should be false")
	}
	if cfg.Scraper.ClicksPerSecond != 2.5 {
		t.Errorf("ClicksPerSecond = %v, want 2.5", cfg.Scraper.ClicksPerSecond)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("unparsable port should fall back to 8080, got %d", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad container selector", func(c *Config) { c.Scraper.ContainerSelector = "div[" }, "MENUGRAB_CONTAINER_SELECTOR"},
		{"empty item selector", func(c *Config) { c.Scraper.ItemSelector = " " }, "MENUGRAB_ITEM_SELECTOR"},
		{"empty match", func(c *Config) { c.Scraper.ResponseMatch = "" }, "MENUGRAB_RESPONSE_MATCH"},
		{"zero response timeout", func(c *Config) { c.Scraper.ResponseTimeout = 0 }, "MENUGRAB_RESPONSE_TIMEOUT"},
		{"settle bounds", func(c *Config) { c.Scraper.SettleMax = 10 * time.Millisecond }, "MENUGRAB_SETTLE_MAX"},
		{"negative retries", func(c *Config) { c.Scraper.ItemRetries = -1 }, "MENUGRAB_ITEM_RETRIES"},
		{"unknown format", func(c *Config) { c.Scraper.DescriptionFormat = "pdf" }, "MENUGRAB_DESCRIPTION_FORMAT"},
		{"no runs", func(c *Config) { c.Server.MaxConcurrentRuns = 0 }, "MENUGRAB_MAX_CONCURRENT_RUNS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %s", err, tt.wantErr)
			}
		})
	}
}
