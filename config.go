package studyplan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/brunobiangulo/studyplan/store"
)

// Config holds all configuration for the study-plan engine.
type Config struct {
	// DBPath is the full path to the session database: a SQLite file or a
	// Badger directory depending on StoreBackend.
	// If empty, defaults to ~/.studyplan/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	// Defaults to "studyplan".
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. Options: "home" (default) uses ~/.studyplan/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// StoreBackend selects the session store: sqlite (default), badger or
	// memory.
	StoreBackend string `json:"store_backend" yaml:"store_backend"`

	// Session lifetime and how often expired sessions are swept.
	SessionTTLMinutes    int `json:"session_ttl_minutes" yaml:"session_ttl_minutes"`
	SweepIntervalMinutes int `json:"sweep_interval_minutes" yaml:"sweep_interval_minutes"`

	// MaxUploadMB caps the size of an uploaded document.
	MaxUploadMB int `json:"max_upload_mb" yaml:"max_upload_mb"`

	// Chat is the optional LLM used by the LLM extraction path. An empty
	// provider disables that path.
	Chat LLMConfig `json:"chat" yaml:"chat"`

	// LLMMaxChars bounds the document text sent to the LLM (0 = no limit).
	LLMMaxChars int `json:"llm_max_chars" yaml:"llm_max_chars"`
}

// LLMConfig configures a single LLM provider endpoint.
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"` // ollama, openai, gemini, custom
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`

	// TimeoutSeconds bounds one request to the provider (0 = 120s).
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds"`
	// MaxRetries is the retry budget for rate limits and gateway errors
	// (0 = 3, negative disables retries).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// DefaultConfig returns a Config with sensible defaults. Sessions live in
// ~/.studyplan/studyplan.db for one hour.
func DefaultConfig() Config {
	return Config{
		DBName:               "studyplan",
		StorageDir:           "home",
		StoreBackend:         store.BackendSQLite,
		SessionTTLMinutes:    60,
		SweepIntervalMinutes: 30,
		MaxUploadMB:          32,
		LLMMaxChars:          60000,
	}
}

// LoadConfig reads a JSON or YAML file (by extension) on top of
// DefaultConfig and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".json":
		err = json.Unmarshal(data, &cfg)
	default:
		return cfg, fmt.Errorf("%w: unsupported config file %q", ErrInvalidConfig, path)
	}
	if err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return cfg, cfg.Validate()
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "", store.BackendSQLite, store.BackendBadger, store.BackendMemory:
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	if c.SessionTTLMinutes <= 0 {
		return fmt.Errorf("%w: session_ttl_minutes must be positive", ErrInvalidConfig)
	}
	if c.SweepIntervalMinutes <= 0 {
		return fmt.Errorf("%w: sweep_interval_minutes must be positive", ErrInvalidConfig)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("%w: max_upload_mb must be positive", ErrInvalidConfig)
	}
	if c.LLMMaxChars < 0 {
		return fmt.Errorf("%w: llm_max_chars must not be negative", ErrInvalidConfig)
	}
	if c.Chat.TimeoutSeconds < 0 {
		return fmt.Errorf("%w: chat.timeout_seconds must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ApplyEnv overrides c from STUDYPLAN_* environment variables. A bare
// GEMINI_API_KEY selects the gemini provider when none is configured, and
// OPENAI_API_KEY or GEMINI_API_KEY fill in a missing chat key.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("STUDYPLAN_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("STUDYPLAN_STORE"); v != "" {
		c.StoreBackend = v
	}
	if v := os.Getenv("STUDYPLAN_CHAT_PROVIDER"); v != "" {
		c.Chat.Provider = v
	}
	if v := os.Getenv("STUDYPLAN_CHAT_MODEL"); v != "" {
		c.Chat.Model = v
	}
	if v := os.Getenv("STUDYPLAN_CHAT_BASE_URL"); v != "" {
		c.Chat.BaseURL = v
	}
	if v := os.Getenv("STUDYPLAN_CHAT_API_KEY"); v != "" {
		c.Chat.APIKey = v
	}

	if c.Chat.Provider == "" && os.Getenv("GEMINI_API_KEY") != "" {
		c.Chat.Provider = "gemini"
	}
	if c.Chat.APIKey == "" {
		switch c.Chat.Provider {
		case "gemini":
			c.Chat.APIKey = os.Getenv("GEMINI_API_KEY")
		case "openai":
			c.Chat.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

// SessionTTL is SessionTTLMinutes as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// SweepInterval is SweepIntervalMinutes as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMinutes) * time.Minute
}

// MaxUploadBytes is MaxUploadMB in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "studyplan"
	}
	if c.StoreBackend == store.BackendBadger {
		name += ".badger"
	} else {
		name += ".db"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name // fallback to cwd
		}
		return filepath.Join(home, ".studyplan", name)
	}
}
