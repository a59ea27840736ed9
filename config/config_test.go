package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	if cfg.Timeout != 15*time.Second {
		t.Fatalf("timeout = %v", cfg.Timeout)
	}
	if cfg.PageDelay != 600*time.Millisecond {
		t.Fatalf("page delay = %v", cfg.PageDelay)
	}
	if cfg.MaxPages != 30 {
		t.Fatalf("max pages = %d", cfg.MaxPages)
	}
	if cfg.ScrapeTimeout != 120*time.Second {
		t.Fatalf("scrape timeout = %v", cfg.ScrapeTimeout)
	}
	if cfg.ListenAddr != ":8001" {
		t.Fatalf("listen addr = %q", cfg.ListenAddr)
	}
	if cfg.DataRoot != "searching_film_data" {
		t.Fatalf("data root = %q", cfg.DataRoot)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty url",
			mutate:  func(c *Config) { c.URL = "" },
			wantErr: "URL cannot be empty",
		},
		{
			name:    "url without host",
			mutate:  func(c *Config) { c.URL = "/relative/path" },
			wantErr: "URL must include a host",
		},
		{
			name:    "empty data root",
			mutate:  func(c *Config) { c.DataRoot = "" },
			wantErr: "data root cannot be empty",
		},
		{
			name:    "empty user agent",
			mutate:  func(c *Config) { c.UserAgent = "" },
			wantErr: "user agent cannot be empty",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Timeout = 0 },
			wantErr: "timeout must be positive",
		},
		{
			name:    "negative page delay",
			mutate:  func(c *Config) { c.PageDelay = -time.Second },
			wantErr: "page delay cannot be negative",
		},
		{
			name:    "zero max pages",
			mutate:  func(c *Config) { c.MaxPages = 0 },
			wantErr: "max pages must be positive",
		},
		{
			name:    "zero scrape timeout",
			mutate:  func(c *Config) { c.ScrapeTimeout = 0 },
			wantErr: "scrape timeout must be positive",
		},
		{
			name:   "zero page delay allowed",
			mutate: func(c *Config) { c.PageDelay = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvString(t *testing.T) {
	const key = "SCRAPER_TEST_STRING"

	if _, ok := EnvString(key); ok {
		t.Fatalf("unset variable reported present")
	}

	t.Setenv(key, "")
	if _, ok := EnvString(key); ok {
		t.Fatalf("empty variable reported present")
	}

	t.Setenv(key, "value")
	got, ok := EnvString(key)
	if !ok || got != "value" {
		t.Fatalf("EnvString = %q %v", got, ok)
	}
}

func TestEnvInt(t *testing.T) {
	const key = "SCRAPER_TEST_INT"

	if _, ok, err := EnvInt(key); ok || err != nil {
		t.Fatalf("unset variable: ok=%v err=%v", ok, err)
	}

	t.Setenv(key, "12")
	got, ok, err := EnvInt(key)
	if err != nil || !ok || got != 12 {
		t.Fatalf("EnvInt = %d %v %v", got, ok, err)
	}

	t.Setenv(key, "not-a-number")
	if _, _, err := EnvInt(key); err == nil {
		t.Fatalf("expected parse error")
	}
}
