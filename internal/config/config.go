package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Pet           Pet           `yaml:"pet"`
	Analysis      Analysis      `yaml:"analysis"`
	Recalls       Recalls       `yaml:"recalls"`
	Summarization Summarization `yaml:"summarization"`
	Output        Output        `yaml:"output"`
	Server        Server        `yaml:"server"`
	Logging       Logging       `yaml:"logging"`
}

type Pet struct {
	Name string `yaml:"name"`
}

type Analysis struct {
	WindowDays int    `yaml:"window_days"`
	Timezone   string `yaml:"timezone"`
}

type Recalls struct {
	Enabled      bool     `yaml:"enabled"`
	Feeds        []Feed   `yaml:"feeds"`
	Keywords     []string `yaml:"keywords"`
	LookbackDays int      `yaml:"lookback_days"`
	FetchTimeout int      `yaml:"fetch_timeout_seconds"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type Summarization struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	OllamaURL   string `yaml:"ollama_url"`
	OpenAIModel string `yaml:"openai_model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	MaxTokens   int    `yaml:"max_tokens"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ConfigDir returns the XDG config directory for gutcheck.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "gutcheck")
}

// DataDir returns the XDG data directory for gutcheck.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "gutcheck")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/gutcheck/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'gutcheck init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the embedded default config.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Analysis: Analysis{WindowDays: 7},
		Recalls: Recalls{
			Enabled:      true,
			LookbackDays: 30,
			FetchTimeout: 15,
		},
		Summarization: Summarization{
			Provider:    "ollama",
			Model:       "qwen2.5:7b",
			OllamaURL:   "http://localhost:11434",
			OpenAIModel: "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:   512,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "info", Format: "text"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the analysis cannot work with.
func (c *Config) Validate() error {
	if c.Analysis.WindowDays <= 0 {
		return fmt.Errorf("analysis.window_days must be positive, got %d", c.Analysis.WindowDays)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// Location resolves analysis.timezone. Empty means the machine's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Analysis.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Analysis.Timezone)
	if err != nil {
		return nil, fmt.Errorf("analysis.timezone %q: %w", c.Analysis.Timezone, err)
	}
	return loc, nil
}

// FetchTimeout returns the recall fetch timeout as a duration.
func (c *Config) FetchTimeout() time.Duration {
	if c.Recalls.FetchTimeout <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Recalls.FetchTimeout) * time.Second
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DBPath is where the journal database lives.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), "gutcheck.db")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
