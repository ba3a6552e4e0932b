package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// HomeEnvVar overrides the directory holding logs and the response cache.
	HomeEnvVar = "CREWLOCAL_HOME"

	// OllamaURLEnvVar overrides ollama.base_url from the config file.
	OllamaURLEnvVar = "CREWLOCAL_OLLAMA_URL"

	// DefaultModel is the model agents use when neither the crew nor the config names one.
	DefaultModel = "ollama/qwen2.5:7b"
)

// OllamaConfig represents the model server connection settings
type OllamaConfig struct {
	// BaseURL is the root URL of the Ollama HTTP API
	BaseURL string `yaml:"base_url"`

	// Timeout bounds a single HTTP request, including generation
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig represents response cache settings
type CacheConfig struct {
	// Path is the SQLite database file (":memory:" keeps it in process)
	Path string `yaml:"path"`
}

// Config represents crewlocal configuration options
type Config struct {
	// Ollama contains the model server settings
	Ollama OllamaConfig `yaml:"ollama"`

	// DefaultModel is used by agents that do not name an llm
	DefaultModel string `yaml:"default_model"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs will be written
	LogDir string `yaml:"log_dir"`

	// OutputDir prefixes task output files; empty keeps crew paths as written
	OutputDir string `yaml:"output_dir"`

	// Cache contains response cache settings
	Cache CacheConfig `yaml:"cache"`
}

// Home returns the crewlocal state directory: $CREWLOCAL_HOME or ".crewlocal".
func Home() string {
	if home := os.Getenv(HomeEnvVar); home != "" {
		return home
	}
	return ".crewlocal"
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	home := Home()
	return &Config{
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Timeout: 5 * time.Minute,
		},
		DefaultModel: DefaultModel,
		LogLevel:     "info",
		LogDir:       filepath.Join(home, "logs"),
		OutputDir:    "",
		Cache: CacheConfig{
			Path: filepath.Join(home, "cache.db"),
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg.applyEnv()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Durations are strings in YAML ("5m"), so decode into a mirror struct first
	type yamlConfig struct {
		Ollama struct {
			BaseURL string `yaml:"base_url"`
			Timeout string `yaml:"timeout"`
		} `yaml:"ollama"`
		DefaultModel string      `yaml:"default_model"`
		LogLevel     string      `yaml:"log_level"`
		LogDir       string      `yaml:"log_dir"`
		OutputDir    string      `yaml:"output_dir"`
		Cache        CacheConfig `yaml:"cache"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.Ollama.BaseURL != "" {
		cfg.Ollama.BaseURL = yamlCfg.Ollama.BaseURL
	}
	if yamlCfg.Ollama.Timeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.Ollama.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama.timeout format %q: %w", yamlCfg.Ollama.Timeout, err)
		}
		cfg.Ollama.Timeout = timeout
	}
	if yamlCfg.DefaultModel != "" {
		cfg.DefaultModel = yamlCfg.DefaultModel
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.LogDir != "" {
		cfg.LogDir = yamlCfg.LogDir
	}
	if yamlCfg.OutputDir != "" {
		cfg.OutputDir = yamlCfg.OutputDir
	}
	if yamlCfg.Cache.Path != "" {
		cfg.Cache.Path = yamlCfg.Cache.Path
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv applies environment overrides on top of file values.
func (c *Config) applyEnv() {
	if url := os.Getenv(OllamaURLEnvVar); url != "" {
		c.Ollama.BaseURL = url
	}
}

// LoadConfigFromDir loads configuration from .crewlocal/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ".crewlocal", "config.yaml")
	return LoadConfig(configPath)
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
// A true verbose flag lowers the log level to debug
func (c *Config) MergeWithFlags(model *string, timeout *time.Duration, logDir *string, outputDir *string, verbose *bool) {
	if model != nil {
		c.DefaultModel = *model
	}
	if timeout != nil {
		c.Ollama.Timeout = *timeout
	}
	if logDir != nil {
		c.LogDir = *logDir
	}
	if outputDir != nil {
		c.OutputDir = *outputDir
	}
	if verbose != nil && *verbose && logLevelRank(c.LogLevel) > logLevelRank("debug") {
		c.LogLevel = "debug"
	}
}

func logLevelRank(level string) int {
	switch level {
	case "trace":
		return 0
	case "debug":
		return 1
	case "info":
		return 2
	case "warn":
		return 3
	case "error":
		return 4
	default:
		return 2
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.Ollama.BaseURL == "" {
		return fmt.Errorf("ollama.base_url cannot be empty")
	}

	// Timeout can be 0 (no timeout) or positive, negative is invalid
	if c.Ollama.Timeout < 0 {
		return fmt.Errorf("ollama.timeout must be >= 0, got %v", c.Ollama.Timeout)
	}

	if c.DefaultModel == "" {
		return fmt.Errorf("default_model cannot be empty")
	}

	return nil
}
