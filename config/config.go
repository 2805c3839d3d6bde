package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds the sync engine configuration.
type Config struct {
	Source          string
	BaseURL         string
	ListPagePath    string // fmt pattern taking the page number
	DetailPagePath  string // fmt pattern taking the external id
	PageSize        int    // items per full listing page
	PageBudget      int    // pages processed per invocation before pausing
	PageDelay       time.Duration
	Timeout         time.Duration
	UserAgents      []string
	AcceptLanguage  string
	DBPath          string
	SelectorsFile   string
	StalenessWindow time.Duration
	DetailCacheSize int

	// API ingestion path.
	APIBaseURL    string
	APIPageSize   int
	DailyQuota    int
	HourlyQuota   int
	QuotaTimezone string

	MetricsAddr string
	ExportFile  string
	Verbose     bool
}

// DefaultConfig returns conservative defaults for the catalog target.
func DefaultConfig() *Config {
	return &Config{
		Source:         "catalog",
		BaseURL:        "https://catalog.example.com",
		ListPagePath:   "/works/list/page/%d",
		DetailPagePath: "/works/%s",
		PageSize:       100,
		PageBudget:     5,
		PageDelay:      2 * time.Second,
		Timeout:        15 * time.Second,
		UserAgents: []string{
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Safari/605.1.15",
		},
		AcceptLanguage:  "ja,en-US;q=0.8,en;q=0.6",
		DBPath:          "data/catalog.db",
		StalenessWindow: 24 * time.Hour,
		DetailCacheSize: 256,
		APIBaseURL:      "https://api.example.com/v1",
		APIPageSize:     50,
		DailyQuota:      10000,
		HourlyQuota:     1200,
		QuotaTimezone:   "Asia/Tokyo",
		MetricsAddr:     "",
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("source cannot be empty")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if c.ListPagePath == "" {
		return fmt.Errorf("list page path cannot be empty")
	}
	if c.DetailPagePath == "" {
		return fmt.Errorf("detail page path cannot be empty")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive")
	}
	if c.PageBudget <= 0 {
		return fmt.Errorf("page budget must be positive")
	}
	if c.PageDelay < 0 {
		return fmt.Errorf("page delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if len(c.UserAgents) == 0 {
		return fmt.Errorf("at least one user agent is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.StalenessWindow <= 0 {
		return fmt.Errorf("staleness window must be positive")
	}
	if c.DetailCacheSize <= 0 {
		return fmt.Errorf("detail cache size must be positive")
	}
	if c.APIPageSize <= 0 {
		return fmt.Errorf("api page size must be positive")
	}
	if c.DailyQuota <= 0 {
		return fmt.Errorf("daily quota must be positive")
	}
	if c.HourlyQuota <= 0 {
		return fmt.Errorf("hourly quota must be positive")
	}
	if c.HourlyQuota > c.DailyQuota {
		return fmt.Errorf("hourly quota (%d) cannot exceed daily quota (%d)", c.HourlyQuota, c.DailyQuota)
	}
	if _, err := time.LoadLocation(c.QuotaTimezone); err != nil {
		return fmt.Errorf("invalid quota timezone: %w", err)
	}
	return nil
}

// ListPageURL builds the absolute listing URL for a page number.
func (c *Config) ListPageURL(page int) string {
	return c.BaseURL + fmt.Sprintf(c.ListPagePath, page)
}

// DetailPageURL builds the absolute detail URL for an external id.
func (c *Config) DetailPageURL(id string) string {
	return c.BaseURL + fmt.Sprintf(c.DetailPagePath, id)
}
