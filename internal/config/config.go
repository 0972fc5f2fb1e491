package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// LogLevel specifies the logging verbosity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat specifies the log output format.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// RapsConfig holds settings for the external raps CLI.
type RapsConfig struct {
	// Binary is the raps executable name or path, resolved via PATH.
	Binary string `toml:"binary"`

	// StepTimeout is the hard wall-clock limit for one step command.
	StepTimeout time.Duration `toml:"step_timeout"`

	// CleanupTimeout is the shorter limit applied to cleanup commands.
	CleanupTimeout time.Duration `toml:"cleanup_timeout"`
}

// EngineConfig holds workflow engine settings.
type EngineConfig struct {
	// RetryAttempts is the default per-step attempt budget when a step
	// declares none. 1 means no automatic retry.
	RetryAttempts int `toml:"retry_attempts"`

	// CleanupWorkers bounds concurrent cleanup commands. 1 preserves
	// strict reverse-creation teardown ordering.
	CleanupWorkers int `toml:"cleanup_workers"`

	// EventBuffer is the reporter channel capacity. Events beyond it are
	// dropped rather than blocking the engine.
	EventBuffer int `toml:"event_buffer"`
}

// PathsConfig holds path configuration.
type PathsConfig struct {
	WorkflowsDir string `toml:"workflows_dir"`
	LogsDir      string `toml:"logs_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  LogLevel  `toml:"level"`
	Format LogFormat `toml:"format"`
	File   string    `toml:"file"`
}

// Config is the main configuration struct for rapsflow.
type Config struct {
	Version string        `toml:"version"`
	Raps    RapsConfig    `toml:"raps"`
	Engine  EngineConfig  `toml:"engine"`
	Paths   PathsConfig   `toml:"paths"`
	Logging LoggingConfig `toml:"logging"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Version: "1",
		Raps: RapsConfig{
			Binary:         "raps",
			StepTimeout:    5 * time.Minute,
			CleanupTimeout: time.Minute,
		},
		Engine: EngineConfig{
			RetryAttempts:  1,
			CleanupWorkers: 1,
			EventBuffer:    256,
		},
		Paths: PathsConfig{
			WorkflowsDir: "workflows",
			LogsDir:      ".rapsflow/logs",
		},
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
			File:   "",
		},
	}
}

// Load loads configuration from file, merging with defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if no config file
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from the standard locations in a directory.
// Applies in order: defaults -> ~/.rapsflow/config.toml -> <dir>/.rapsflow/config.toml
// Later configs override earlier ones (project-level takes precedence).
func LoadFromDir(dir string) (*Config, error) {
	cfg := Default()

	// Load global config first (if exists)
	home, err := os.UserHomeDir()
	if err == nil {
		globalConfig := filepath.Join(home, ".rapsflow", "config.toml")
		if data, err := os.ReadFile(globalConfig); err == nil {
			if _, err := toml.Decode(string(data), cfg); err != nil {
				return nil, fmt.Errorf("parsing global config: %w", err)
			}
		}
	}

	// Load project config (overrides global)
	projectConfig := filepath.Join(dir, ".rapsflow", "config.toml")
	if data, err := os.ReadFile(projectConfig); err == nil {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing project config: %w", err)
		}
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("config version is required")
	}
	if c.Raps.Binary == "" {
		return fmt.Errorf("raps binary is required")
	}
	if c.Raps.StepTimeout <= 0 {
		return fmt.Errorf("step_timeout must be positive")
	}
	if c.Raps.CleanupTimeout <= 0 {
		return fmt.Errorf("cleanup_timeout must be positive")
	}
	if c.Engine.RetryAttempts < 1 {
		return fmt.Errorf("retry_attempts must be at least 1")
	}
	if c.Engine.CleanupWorkers < 1 {
		return fmt.Errorf("cleanup_workers must be at least 1")
	}
	if c.Paths.WorkflowsDir == "" {
		return fmt.Errorf("workflows_dir is required")
	}
	return nil
}

// WorkflowsDir returns the absolute workflows directory path.
func (c *Config) WorkflowsDir(baseDir string) string {
	if filepath.IsAbs(c.Paths.WorkflowsDir) {
		return c.Paths.WorkflowsDir
	}
	return filepath.Join(baseDir, c.Paths.WorkflowsDir)
}

// LogFile returns the absolute log file path, or empty if file logging is
// disabled.
func (c *Config) LogFile(baseDir string) string {
	if c.Logging.File == "" {
		return ""
	}
	if filepath.IsAbs(c.Logging.File) {
		return c.Logging.File
	}
	if filepath.IsAbs(c.Paths.LogsDir) {
		return filepath.Join(c.Paths.LogsDir, c.Logging.File)
	}
	return filepath.Join(baseDir, c.Paths.LogsDir, c.Logging.File)
}
