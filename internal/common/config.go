package common

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment    string               `toml:"environment"` // "development" or "production"
	Server         ServerConfig         `toml:"server"`
	Storage        StorageConfig        `toml:"storage"`
	Logging        LoggingConfig        `toml:"logging"`
	Sync           SyncConfig           `toml:"sync"`
	TestManagement TestManagementConfig `toml:"test_management"`
	Trackers       TrackerDirConfig     `toml:"trackers"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=0,max=65535"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// SyncConfig controls the synchronization job.
type SyncConfig struct {
	Enabled     bool   `toml:"enabled"`
	Schedule    string `toml:"schedule"`      // Cron schedule format
	PageSize    int    `toml:"page_size"`     // Incident batch size per request
	KeepResults int    `toml:"keep_results"`  // Per-record results retained per project run (0 = all)
	AutoStart   bool   `toml:"auto_start"`    // Run a pass immediately on startup
	MaxRunsKept int    `toml:"max_runs_kept"` // Run history retention
}

// TestManagementConfig holds the connection to the test-management server.
type TestManagementConfig struct {
	BaseURL        string  `toml:"base_url" validate:"required,url"`
	Username       string  `toml:"username" validate:"required"`
	APIKey         string  `toml:"api_key" validate:"required"`
	RequestTimeout string  `toml:"request_timeout"` // e.g. "30s"
	RatePerSecond  float64 `toml:"rate_per_second"` // Request rate limit (0 = unlimited)
}

// TrackerDirConfig contains configuration for tracker definition file loading
type TrackerDirConfig struct {
	Dir string `toml:"dir"` // Directory containing tracker files (TOML/YAML)
}

// DefaultConfig returns a config populated with sensible defaults. File,
// environment, and flag values layer on top.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8190,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/nexo",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Sync: SyncConfig{
			Enabled:     true,
			Schedule:    "*/15 * * * *",
			PageSize:    100,
			MaxRunsKept: 200,
		},
		Trackers: TrackerDirConfig{
			Dir: "./trackers",
		},
	}
}

// LoadFromFiles loads configuration with layered precedence:
// defaults -> file1 -> file2 -> ... -> environment variables.
// Later files override earlier ones.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// Validate checks the resolved configuration before startup.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("NEXO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("NEXO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("NEXO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if path := os.Getenv("NEXO_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	if level := os.Getenv("NEXO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if schedule := os.Getenv("NEXO_SYNC_SCHEDULE"); schedule != "" {
		config.Sync.Schedule = schedule
	}
	if enabled := os.Getenv("NEXO_SYNC_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Sync.Enabled = b
		}
	}

	if baseURL := os.Getenv("NEXO_TM_BASE_URL"); baseURL != "" {
		config.TestManagement.BaseURL = baseURL
	}
	if username := os.Getenv("NEXO_TM_USERNAME"); username != "" {
		config.TestManagement.Username = username
	}
	if apiKey := os.Getenv("NEXO_TM_API_KEY"); apiKey != "" {
		config.TestManagement.APIKey = apiKey
	}

	if dir := os.Getenv("NEXO_TRACKERS_DIR"); dir != "" {
		config.Trackers.Dir = dir
	}
}
