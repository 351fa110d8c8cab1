package wikiconfig

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// fileConfig holds configuration values loaded from a JSON file. All
// fields are pointers so LoadFromFile can distinguish "not set" from
// the zero value, the same trick the teacher's FileConfig uses for
// its YAML equivalent.
type fileConfig struct {
	Debug    *bool   `json:"debug"`
	LogLevel *string `json:"log_level"`

	DatabasePath        *string `json:"database_path"`
	ContentDir          *string `json:"content_dir"`
	TemplatesDir        *string `json:"templates_dir"`
	NamespaceConfigPath *string `json:"namespace_config_path"`

	APIURL    *string `json:"api_url"`
	Username  *string `json:"username"`
	UserAgent *string `json:"user_agent"`

	RateLimitPerSecond          *float64 `json:"rate_limit_per_second"`
	RateLimitBurst              *int     `json:"rate_limit_burst"`
	WikimediaRateLimitPerSecond *float64 `json:"wikimedia_rate_limit_per_second"`

	MaxRetries       *int `json:"max_retries"`
	RetryBaseDelayMS *int `json:"retry_base_delay_ms"`

	FetchBatchSize *int `json:"fetch_batch_size"`
	EditBatchSize  *int `json:"edit_batch_size"`

	DryRun *bool `json:"dry_run"`
}

// readFileConfig reads and parses a JSON configuration file.
func readFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wikiconfig: reading config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("wikiconfig: parsing config file %s: %w", path, err)
	}
	return &fc, nil
}

// applyTo applies non-nil file config values onto cfg.
func (fc *fileConfig) applyTo(cfg *Config) {
	if fc.Debug != nil {
		cfg.Debug = *fc.Debug
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.DatabasePath != nil {
		cfg.DatabasePath = *fc.DatabasePath
	}
	if fc.ContentDir != nil {
		cfg.ContentDir = *fc.ContentDir
	}
	if fc.TemplatesDir != nil {
		cfg.TemplatesDir = *fc.TemplatesDir
	}
	if fc.NamespaceConfigPath != nil {
		cfg.NamespaceConfigPath = *fc.NamespaceConfigPath
	}
	if fc.APIURL != nil {
		cfg.APIURL = *fc.APIURL
	}
	if fc.Username != nil {
		cfg.Username = *fc.Username
	}
	if fc.UserAgent != nil {
		cfg.UserAgent = *fc.UserAgent
	}
	if fc.RateLimitPerSecond != nil {
		cfg.RateLimitPerSecond = *fc.RateLimitPerSecond
	}
	if fc.RateLimitBurst != nil {
		cfg.RateLimitBurst = *fc.RateLimitBurst
	}
	if fc.WikimediaRateLimitPerSecond != nil {
		cfg.WikimediaRateLimitPerSecond = *fc.WikimediaRateLimitPerSecond
	}
	if fc.MaxRetries != nil {
		cfg.MaxRetries = *fc.MaxRetries
	}
	if fc.RetryBaseDelayMS != nil {
		cfg.RetryBaseDelayMS = *fc.RetryBaseDelayMS
	}
	if fc.FetchBatchSize != nil {
		cfg.FetchBatchSize = *fc.FetchBatchSize
	}
	if fc.EditBatchSize != nil {
		cfg.EditBatchSize = *fc.EditBatchSize
	}
	if fc.DryRun != nil {
		cfg.DryRun = *fc.DryRun
	}
}

// LoadFromFile overlays a JSON config file onto cfg. Password and
// rarely-needed per-run overrides are deliberately absent from the
// file schema — they belong in the environment or a .env file, never
// committed alongside the namespace config.
func LoadFromFile(cfg *Config, path string) error {
	fc, err := readFileConfig(path)
	if err != nil {
		return err
	}
	fc.applyTo(cfg)
	return nil
}
