// Package config loads application settings from a TOML file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

var ErrMissingAPIKey = errors.New("no API key configured for backend")

const (
	BackendGemini     = "gemini"
	BackendOpenRouter = "openrouter"
)

type Config struct {
	Backend  string `toml:"backend"`
	DataDir  string `toml:"data_dir"`
	LogFile  string `toml:"log_file"`
	Verbose  bool   `toml:"verbose"`
	Markdown struct {
		Style    string `toml:"style"`
		WordWrap int    `toml:"word_wrap"`
	} `toml:"markdown"`
	Session struct {
		// Zero means no timeout.
		TimeoutSeconds int `toml:"timeout_seconds"`
		// Zero replays the whole conversation.
		MaxReplayMessages int `toml:"max_replay_messages"`
	} `toml:"session"`

	// Keys come from the environment only and are never written back.
	GeminiAPIKey     string `toml:"-"`
	OpenRouterAPIKey string `toml:"-"`
}

func Default() Config {
	var c Config
	c.Backend = BackendGemini
	c.Markdown.Style = "auto"
	c.Markdown.WordWrap = 100
	return c
}

// DefaultPath is ~/.config/lumen/config.toml (or the platform equivalent).
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "lumen", "config.toml"), nil
}

// Load starts from Default, decodes path when it exists, then applies
// environment overrides. An empty path means DefaultPath.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LUMEN_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("LUMEN_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	c.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if c.GeminiAPIKey == "" {
		c.GeminiAPIKey = os.Getenv("GOOGLE_API_KEY")
	}
	c.OpenRouterAPIKey = os.Getenv("OPENROUTER_API_KEY")
}

func (c Config) Validate() error {
	switch c.Backend {
	case BackendGemini, BackendOpenRouter:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendGemini, BackendOpenRouter)
	}
	if c.Markdown.WordWrap < 0 || c.Session.TimeoutSeconds < 0 || c.Session.MaxReplayMessages < 0 {
		return errors.New("word_wrap, timeout_seconds and max_replay_messages must not be negative")
	}
	return nil
}

// APIKey returns the key for the selected backend.
func (c Config) APIKey() (string, error) {
	key := c.GeminiAPIKey
	env := "GEMINI_API_KEY"
	if c.Backend == BackendOpenRouter {
		key, env = c.OpenRouterAPIKey, "OPENROUTER_API_KEY"
	}
	if key == "" {
		return "", fmt.Errorf("%w %s: set %s", ErrMissingAPIKey, c.Backend, env)
	}
	return key, nil
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.Session.TimeoutSeconds) * time.Second
}

// LogPath is the log file location, defaulting to lumen.log in the data dir.
func (c Config) LogPath(dataDir string) string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(dataDir, "lumen.log")
}

// Save writes cfg as TOML with owner-only permissions.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
