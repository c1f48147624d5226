package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

const (
	DefaultBaseURL        = "http://127.0.0.1:8000"
	DefaultTimeout        = 60 * time.Second
	DefaultUploadTimeout  = 5 * time.Minute
	DefaultFailureMessage = "Sorry, I encountered an error. Please try again."
)

// DefaultExportTemplate renders a transcript as markdown. Triple braces
// keep message text unescaped.
const DefaultExportTemplate = `# {{{title}}}

Conversation: {{id}}
{{#messages}}

**{{label}}**{{#failed}} _(failed)_{{/failed}}

{{{text}}}
{{/messages}}
`

type Config struct {
	BaseURL        string        `toml:"base_url"`
	Timeout        time.Duration `toml:"timeout"`
	UploadTimeout  time.Duration `toml:"upload_timeout"`
	DBPath         string        `toml:"db_path"`
	LogLevel       string        `toml:"log_level"`
	LogFormat      string        `toml:"log_format"`
	LogFile        string        `toml:"log_file"`
	FailureMessage string        `toml:"failure_message"`
	ExportTemplate string        `toml:"export_template"` // Path to a mustache template (optional)
}

// Dir returns ~/.config/chatify
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "~"
	}
	return filepath.Join(home, ".config", "chatify")
}

// DefaultPath returns the config file location
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// Default returns a config populated with defaults only
func Default() *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		Timeout:        DefaultTimeout,
		UploadTimeout:  DefaultUploadTimeout,
		DBPath:         filepath.Join(Dir(), "chatify.db"),
		LogLevel:       "warn",
		LogFormat:      "text",
		LogFile:        filepath.Join(Dir(), "chatify.log"),
		FailureMessage: DefaultFailureMessage,
	}
}

// Load reads the TOML config at path on top of the defaults.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	cfg.normalize()
	return cfg, nil
}

// Overlay applies environment and flag values bound in v. Only keys that
// were explicitly set win over the file.
func (c *Config) Overlay(v *viper.Viper) {
	if v == nil {
		return
	}
	if v.IsSet("base_url") {
		c.BaseURL = v.GetString("base_url")
	}
	if v.IsSet("timeout") {
		c.Timeout = v.GetDuration("timeout")
	}
	if v.IsSet("upload_timeout") {
		c.UploadTimeout = v.GetDuration("upload_timeout")
	}
	if v.IsSet("db_path") {
		c.DBPath = v.GetString("db_path")
	}
	if v.IsSet("log_level") {
		c.LogLevel = v.GetString("log_level")
	}
	if v.IsSet("log_format") {
		c.LogFormat = v.GetString("log_format")
	}
	if v.IsSet("log_file") {
		c.LogFile = v.GetString("log_file")
	}
	c.normalize()
}

// Save writes the config as TOML, creating the parent directory
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// LoadExportTemplate returns the custom export template if configured,
// otherwise the built-in one
func (c *Config) LoadExportTemplate() string {
	if c.ExportTemplate == "" {
		return DefaultExportTemplate
	}
	data, err := os.ReadFile(c.ExportTemplate)
	if err != nil {
		return DefaultExportTemplate
	}
	return string(data)
}

func (c *Config) normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UploadTimeout <= 0 {
		c.UploadTimeout = DefaultUploadTimeout
	}
	if strings.TrimSpace(c.FailureMessage) == "" {
		c.FailureMessage = DefaultFailureMessage
	}
}
