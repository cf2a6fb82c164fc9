package config

import (
	"time"

	"github.com/vietddude/nfowatch/internal/infra/fetcher"
	redisclient "github.com/vietddude/nfowatch/internal/infra/redis"
	"github.com/vietddude/nfowatch/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Database postgres.Config    `yaml:"database"`
	Redis    redisclient.Config `yaml:"redis"`
	Fetcher  fetcher.Config     `yaml:"fetcher"`
	NFO      NFOConfig          `yaml:"nfo"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"` // negative disables the health/metrics server
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// NFOConfig holds the NFO pipeline settings.
type NFOConfig struct {
	MaxPerRun  int   `yaml:"max_per_run"`
	MaxRetries int   `yaml:"max_retries"`
	MinSizeMB  int64 `yaml:"min_size_mb"` // 0 = no lower bound
	MaxSizeGB  int64 `yaml:"max_size_gb"` // 0 = no upper bound

	TmpPath       string `yaml:"tmp_path"`
	Prober        string `yaml:"prober"` // library, file
	FileBinary    string `yaml:"file_binary"`
	FFprobeBinary string `yaml:"ffprobe_binary"`

	// Interval between passes; 0 runs a single pass.
	Interval   time.Duration `yaml:"interval"`
	GroupID    int64         `yaml:"group_id"`
	GUIDPrefix string        `yaml:"guid_prefix"`

	ProcessIMDb bool `yaml:"process_imdb"`
	ProcessTV   bool `yaml:"process_tv"`
}
