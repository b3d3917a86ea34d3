package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Mailbox backend identifiers.
const (
	BackendGmail = "gmail"
	BackendIMAP  = "imap"
)

// MailboxConfig holds the settings for the configured mailbox account.
type MailboxConfig struct {
	// Backend selects the mailbox implementation ("gmail" or "imap").
	Backend string `mapstructure:"backend" yaml:"backend"`

	// Username is the account address (IMAP login, or the Gmail
	// account the stored token belongs to).
	Username string `mapstructure:"username" yaml:"username"`

	// Host and Port are the IMAP server address; unused for Gmail.
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`

	// TLS selects implicit TLS for IMAP; STARTTLS otherwise.
	TLS bool `mapstructure:"tls" yaml:"tls"`
}

// AIConfig holds settings for the analyzer integration.
type AIConfig struct {
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	Model      string `mapstructure:"model" yaml:"model"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme      string `mapstructure:"theme" yaml:"theme"`
	FetchLimit int    `mapstructure:"fetch_limit" yaml:"fetch_limit"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Mailbox MailboxConfig `mapstructure:"mailbox" yaml:"mailbox"`
	AI      AIConfig      `mapstructure:"ai" yaml:"ai"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/inboxsummarizer/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "inboxsummarizer", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Mailbox: MailboxConfig{
			Backend: BackendGmail,
			TLS:     true,
		},
		AI: AIConfig{
			BaseURL:    "http://localhost:11434",
			Model:      "gemma:2b",
			TimeoutSec: 120,
		},
		Display: DisplayConfig{
			Theme:      "default",
			FetchLimit: 10,
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("mailbox.backend", BackendGmail)
	v.SetDefault("mailbox.tls", true)
	v.SetDefault("ai.base_url", "http://localhost:11434")
	v.SetDefault("ai.model", "gemma:2b")
	v.SetDefault("ai.timeout_sec", 120)
	v.SetDefault("display.theme", "default")
	v.SetDefault("display.fetch_limit", 10)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Display.FetchLimit < 1 {
		cfg.Display.FetchLimit = 10
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("mailbox", cfg.Mailbox)
	v.Set("ai", cfg.AI)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
