package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/nfowatch/internal/infra/fetcher"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := AppConfig{
		NFO: NFOConfig{
			ProcessIMDb: true,
			ProcessTV:   true,
			MaxRetries:  5,
		},
	}
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied, for running
// without a config file.
func Default() *AppConfig {
	cfg := AppConfig{
		NFO: NFOConfig{
			ProcessIMDb: true,
			ProcessTV:   true,
			MaxRetries:  5,
		},
	}
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *AppConfig) {
	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Redis.LeaseTTL == 0 {
		cfg.Redis.LeaseTTL = 10 * time.Minute
	}
	if cfg.Fetcher.Timeout == 0 {
		cfg.Fetcher.Timeout = 30 * time.Second
	}
	if cfg.Fetcher.Retry.MaxAttempts == 0 {
		cfg.Fetcher.Retry = fetcher.DefaultRetryConfig
	}

	nfo := &cfg.NFO
	if nfo.MaxPerRun <= 0 {
		nfo.MaxPerRun = 100
	}
	if nfo.TmpPath == "" {
		nfo.TmpPath = filepath.Join(os.TempDir(), "nfowatch")
	}
	if nfo.Prober == "" {
		nfo.Prober = "library"
	}
	if nfo.FileBinary == "" {
		nfo.FileBinary = "file"
	}
	if nfo.FFprobeBinary == "" {
		nfo.FFprobeBinary = "ffprobe"
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *AppConfig) Validate() error {
	switch c.NFO.Prober {
	case "library", "file":
	default:
		return fmt.Errorf("invalid nfo.prober %q: want library or file", c.NFO.Prober)
	}
	if c.NFO.MinSizeMB < 0 || c.NFO.MaxSizeGB < 0 {
		return fmt.Errorf("nfo size bounds must not be negative")
	}
	if c.NFO.Interval < 0 {
		return fmt.Errorf("nfo.interval must not be negative")
	}
	return nil
}

// ValidatePipeline checks the settings a processing pass needs on top of
// Validate. A pass without a reachable gateway would fail every fetch and
// quarantine releases that were never tried.
func (c *AppConfig) ValidatePipeline() error {
	if c.Fetcher.BaseURL == "" {
		return fmt.Errorf("fetcher.base_url is required to process releases")
	}
	u, err := url.Parse(c.Fetcher.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid fetcher.base_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid fetcher.base_url %q: want an absolute http(s) URL", c.Fetcher.BaseURL)
	}
	return nil
}
