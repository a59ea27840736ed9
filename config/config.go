package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// DefaultURL is offered at the interactive prompt when no URL argument was
// given on the command line.
const DefaultURL = "https://www.cinemas/nos.pt/filmes"

// Config holds scraper and gateway configuration.
type Config struct {
	URL           string
	Film          string
	SalleName     string
	DataRoot      string
	UserAgent     string
	Timeout       time.Duration
	PageDelay     time.Duration
	MaxPages      int
	ScrapeTimeout time.Duration
	ListenAddr    string
	StaticDir     string
	Verbose       bool
}

// DefaultConfig returns the defaults observed against the live target.
func DefaultConfig() *Config {
	return &Config{
		URL:           DefaultURL,
		DataRoot:      "searching_film_data",
		UserAgent:     "MyScraper/1.0 (+briac.le.meillat@gmail.com) - scraping for research",
		Timeout:       15 * time.Second,
		PageDelay:     600 * time.Millisecond,
		MaxPages:      30,
		ScrapeTimeout: 120 * time.Second,
		ListenAddr:    ":8001",
		StaticDir:     ".",
		Verbose:       false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("URL must include a host")
	}

	if c.DataRoot == "" {
		return fmt.Errorf("data root cannot be empty")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.PageDelay < 0 {
		return fmt.Errorf("page delay cannot be negative")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.ScrapeTimeout <= 0 {
		return fmt.Errorf("scrape timeout must be positive")
	}

	return nil
}

// EnvString reads a string environment override.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// EnvInt reads an integer environment override.
func EnvInt(key string) (int, bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return parsed, true, nil
}
