package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/hochfrequenz/taskforge/internal/batch"
	"github.com/hochfrequenz/taskforge/internal/progress"
)

// Config holds all application configuration
type Config struct {
	General       GeneralConfig         `toml:"general"`
	Generation    GenerationConfig      `toml:"generation"`
	Notifications NotificationsConfig   `toml:"notifications"`
	Web           WebConfig             `toml:"web"`
	Schedules     []batch.ScheduleEntry `toml:"schedule"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	DatabasePath           string `toml:"database_path"`
	BatchSize              int    `toml:"batch_size"`
	MaxParallelGenerations int    `toml:"max_parallel_generations"`
	AvgSecondsPerItem      int    `toml:"avg_seconds_per_item"`
	CleanupOnCancel        bool   `toml:"cleanup_on_cancel"`
}

// GenerationConfig holds LLM settings for task generation
type GenerationConfig struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	Desktop      bool   `toml:"desktop"`
	SlackWebhook string `toml:"slack_webhook"`
}

// WebConfig holds web API settings
type WebConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			DatabasePath:           filepath.Join(home, ".taskforge", "taskforge.db"),
			BatchSize:              batch.DefaultSize,
			MaxParallelGenerations: 4,
			AvgSecondsPerItem:      progress.DefaultSecondsPerItem,
		},
		Generation: GenerationConfig{
			Provider:  "anthropic",
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 16000,
		},
		Notifications: NotificationsConfig{
			Desktop: true,
		},
		Web: WebConfig{
			Port: 8080,
			Host: "127.0.0.1",
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)

	for i := range cfg.Schedules {
		if err := cfg.Schedules[i].Validate(); err != nil {
			return nil, fmt.Errorf("schedule %d: %w", i+1, err)
		}
	}

	return cfg, nil
}

// Save writes the configuration to a TOML file, creating parent directories
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "taskforge", "config.toml")
}
