// Package wikiconfig provides configuration management for wikitool,
// following the same defaults -> file -> env precedence as the
// teacher wiki's config package.
package wikiconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds every setting wikitool's engine, store, fs, and
// mediawiki packages need at runtime.
type Config struct {
	// Core
	Debug    bool
	LogLevel string

	// Paths
	DatabasePath string
	ContentDir   string
	TemplatesDir string
	NamespaceConfigPath string

	// MediaWiki API
	APIURL    string
	Username  string
	Password  string
	UserAgent string

	// Rate limiting
	RateLimitPerSecond float64
	RateLimitBurst     int
	WikimediaRateLimitPerSecond float64

	// Retry
	MaxRetries      int
	RetryBaseDelayMS int

	// Batch sizes
	FetchBatchSize int
	EditBatchSize  int

	// Behavior
	DryRun bool
}

// Default returns a Config with sane defaults for pointing at a local
// or low-traffic MediaWiki instance.
func Default() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "INFO",

		DatabasePath:        "wikitool.db",
		ContentDir:          "wiki_content",
		TemplatesDir:        "templates",
		NamespaceConfigPath: "config/remilia-parser.json",

		APIURL:    "",
		Username:  "",
		Password:  "",
		UserAgent: "wikitool/1.0 (+https://github.com/remiliacorporation/wikitool)",

		RateLimitPerSecond:          5,
		RateLimitBurst:              5,
		WikimediaRateLimitPerSecond: 1,

		MaxRetries:       3,
		RetryBaseDelayMS: 500,

		FetchBatchSize: 50,
		EditBatchSize:  1,

		DryRun: false,
	}
}

// LoadFromEnv overlays environment variables onto c, leaving any
// setting whose variable is unset untouched.
func (c *Config) LoadFromEnv() {
	getEnv := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	getEnvBool := func(key string, fallback bool) bool {
		v := os.Getenv(key)
		if v == "" {
			return fallback
		}
		v = strings.ToLower(v)
		return v == "true" || v == "yes" || v == "on" || v == "1"
	}

	getEnvInt := func(key string, fallback int) int {
		v := os.Getenv(key)
		if v == "" {
			return fallback
		}
		i, err := strconv.Atoi(v)
		if err != nil {
			return fallback
		}
		return i
	}

	getEnvFloat := func(key string, fallback float64) float64 {
		v := os.Getenv(key)
		if v == "" {
			return fallback
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fallback
		}
		return f
	}

	c.Debug = getEnvBool("WIKITOOL_DEBUG", c.Debug)
	c.LogLevel = getEnv("WIKITOOL_LOG_LEVEL", c.LogLevel)

	c.DatabasePath = getEnv("WIKITOOL_DATABASE_PATH", c.DatabasePath)
	c.ContentDir = getEnv("WIKITOOL_CONTENT_DIR", c.ContentDir)
	c.TemplatesDir = getEnv("WIKITOOL_TEMPLATES_DIR", c.TemplatesDir)
	c.NamespaceConfigPath = getEnv("WIKITOOL_NAMESPACE_CONFIG", c.NamespaceConfigPath)

	c.APIURL = getEnv("WIKITOOL_API_URL", c.APIURL)
	c.Username = getEnv("WIKITOOL_USERNAME", c.Username)
	c.Password = getEnv("WIKITOOL_PASSWORD", c.Password)
	c.UserAgent = getEnv("WIKITOOL_USER_AGENT", c.UserAgent)

	c.RateLimitPerSecond = getEnvFloat("WIKITOOL_RATE_LIMIT", c.RateLimitPerSecond)
	c.RateLimitBurst = getEnvInt("WIKITOOL_RATE_LIMIT_BURST", c.RateLimitBurst)
	c.WikimediaRateLimitPerSecond = getEnvFloat("WIKITOOL_WIKIMEDIA_RATE_LIMIT", c.WikimediaRateLimitPerSecond)

	c.MaxRetries = getEnvInt("WIKITOOL_MAX_RETRIES", c.MaxRetries)
	c.RetryBaseDelayMS = getEnvInt("WIKITOOL_RETRY_BASE_DELAY_MS", c.RetryBaseDelayMS)

	c.FetchBatchSize = getEnvInt("WIKITOOL_FETCH_BATCH_SIZE", c.FetchBatchSize)
	c.EditBatchSize = getEnvInt("WIKITOOL_EDIT_BATCH_SIZE", c.EditBatchSize)

	c.DryRun = getEnvBool("WIKITOOL_DRY_RUN", c.DryRun)
}

// Validate checks that settings required to talk to a live wiki are
// present. DryRun and rebuild-index runs can skip credentials
// entirely, so Validate is deliberately not called unconditionally —
// see cmd/wikitool.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return fmt.Errorf("wikiconfig: WIKITOOL_API_URL must be set")
	}
	if c.RateLimitPerSecond <= 0 {
		return fmt.Errorf("wikiconfig: rate limit must be positive, got %v", c.RateLimitPerSecond)
	}
	if c.FetchBatchSize <= 0 || c.FetchBatchSize > 500 {
		return fmt.Errorf("wikiconfig: fetch batch size must be in (0, 500], got %d", c.FetchBatchSize)
	}
	if strings.TrimSpace(c.ContentDir) == "" || strings.TrimSpace(c.TemplatesDir) == "" {
		return fmt.Errorf("wikiconfig: content and templates directories must be set")
	}
	return nil
}

// Load creates a Config from defaults, an optional JSON file, and the
// environment, in that order of increasing precedence — matching the
// teacher's defaults -> file -> env layering (internal/config/file.go),
// with the file format swapped for JSON to match the rest of
// wikitool's on-disk configuration (namespace table, sync state).
func Load(filePath string) (*Config, error) {
	cfg := Default()
	if filePath != "" {
		if err := LoadFromFile(cfg, filePath); err != nil {
			return nil, err
		}
	}
	cfg.LoadFromEnv()
	return cfg, nil
}
