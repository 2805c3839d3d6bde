package config

import (
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "empty source",
			mutate: func(cfg *Config) {
				cfg.Source = ""
			},
			wantErr: "source",
		},
		{
			name: "empty base url",
			mutate: func(cfg *Config) {
				cfg.BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "http://"
			},
			wantErr: "base URL",
		},
		{
			name: "zero page budget",
			mutate: func(cfg *Config) {
				cfg.PageBudget = 0
			},
			wantErr: "page budget",
		},
		{
			name: "negative page delay",
			mutate: func(cfg *Config) {
				cfg.PageDelay = -1 * time.Second
			},
			wantErr: "page delay",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "no user agents",
			mutate: func(cfg *Config) {
				cfg.UserAgents = nil
			},
			wantErr: "user agent",
		},
		{
			name: "zero staleness window",
			mutate: func(cfg *Config) {
				cfg.StalenessWindow = 0
			},
			wantErr: "staleness",
		},
		{
			name: "hourly quota above daily",
			mutate: func(cfg *Config) {
				cfg.HourlyQuota = cfg.DailyQuota + 1
			},
			wantErr: "hourly quota",
		},
		{
			name: "unknown quota timezone",
			mutate: func(cfg *Config) {
				cfg.QuotaTimezone = "Mars/Olympus"
			},
			wantErr: "timezone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestPageURLHelpers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = "https://catalog.example.com"

	if got := cfg.ListPageURL(3); got != "https://catalog.example.com/works/list/page/3" {
		t.Fatalf("unexpected list url: %s", got)
	}
	if got := cfg.DetailPageURL("RJ123456"); got != "https://catalog.example.com/works/RJ123456" {
		t.Fatalf("unexpected detail url: %s", got)
	}
}
