package studyplan

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.SessionTTL().Minutes() != 60 || cfg.SweepInterval().Minutes() != 30 {
		t.Errorf("ttl/sweep = %v/%v", cfg.SessionTTL(), cfg.SweepInterval())
	}
	if cfg.MaxUploadBytes() != 32<<20 {
		t.Errorf("max upload = %d", cfg.MaxUploadBytes())
	}
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "cfg.yaml",
			content: `store_backend: badger
session_ttl_minutes: 15
chat:
  provider: gemini
  model: gemini-2.5-flash
  timeout_seconds: 30
  max_retries: 1
`,
		},
		{
			name:    "json",
			file:    "cfg.json",
			content: `{"store_backend":"badger","session_ttl_minutes":15,"chat":{"provider":"gemini","model":"gemini-2.5-flash","timeout_seconds":30,"max_retries":1}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeFile(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("LoadConfig: %v", err)
			}
			if cfg.StoreBackend != "badger" || cfg.SessionTTLMinutes != 15 {
				t.Errorf("cfg = %+v", cfg)
			}
			if cfg.Chat.Provider != "gemini" || cfg.Chat.Model != "gemini-2.5-flash" ||
				cfg.Chat.TimeoutSeconds != 30 || cfg.Chat.MaxRetries != 1 {
				t.Errorf("chat = %+v", cfg.Chat)
			}
			// Unset fields keep their defaults.
			if cfg.SweepIntervalMinutes != 30 || cfg.DBName != "studyplan" {
				t.Errorf("defaults lost: %+v", cfg)
			}
		})
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown extension", "cfg.toml", "a = 1"},
		{"bad yaml", "cfg.yaml", "store_backend: [unclosed"},
		{"bad backend", "cfg.json", `{"store_backend":"redis"}`},
		{"negative ttl", "cfg.json", `{"session_ttl_minutes":-5}`},
		{"zero upload", "cfg.yml", "max_upload_mb: 0"},
		{"negative chat timeout", "cfg.json", `{"chat":{"timeout_seconds":-1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, tt.file, tt.content))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestResolveDBPath(t *testing.T) {
	cfg := Config{DBPath: "/tmp/x.db"}
	if got := cfg.resolveDBPath(); got != "/tmp/x.db" {
		t.Errorf("explicit path = %q", got)
	}

	cfg = Config{DBName: "plans", StorageDir: "local"}
	if got := cfg.resolveDBPath(); got != "plans.db" {
		t.Errorf("local path = %q", got)
	}

	cfg = Config{StorageDir: "local", StoreBackend: "badger"}
	if got := cfg.resolveDBPath(); got != "studyplan.badger" {
		t.Errorf("badger path = %q", got)
	}

	cfg = Config{}
	if got := cfg.resolveDBPath(); !strings.HasSuffix(got, "studyplan.db") {
		t.Errorf("home path = %q", got)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("STUDYPLAN_STORE", "badger")
	t.Setenv("STUDYPLAN_CHAT_PROVIDER", "")
	t.Setenv("STUDYPLAN_CHAT_API_KEY", "")
	t.Setenv("STUDYPLAN_CHAT_MODEL", "gemini-2.5-pro")
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg := DefaultConfig()
	cfg.ApplyEnv()
	if cfg.StoreBackend != "badger" {
		t.Errorf("StoreBackend = %q", cfg.StoreBackend)
	}
	if cfg.Chat.Provider != "gemini" || cfg.Chat.APIKey != "g-key" || cfg.Chat.Model != "gemini-2.5-pro" {
		t.Errorf("Chat = %+v", cfg.Chat)
	}

	t.Setenv("STUDYPLAN_CHAT_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "o-key")
	cfg = DefaultConfig()
	cfg.ApplyEnv()
	if cfg.Chat.Provider != "openai" || cfg.Chat.APIKey != "o-key" {
		t.Errorf("Chat = %+v", cfg.Chat)
	}
}
