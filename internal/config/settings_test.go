package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fpt/cobrowse/internal/infra"
)

func TestCreateDefaultSettingsFile(t *testing.T) {
	tempDir := t.TempDir()

	settingsPath := filepath.Join(tempDir, ".cobrowse", "settings.json")
	settings, err := createSettingsFileAtPath(settingsPath)
	if err != nil {
		t.Fatalf("createSettingsFileAtPath failed: %v", err)
	}

	if settings.LLM.Backend != "gemini" {
		t.Errorf("Expected backend 'gemini', got '%s'", settings.LLM.Backend)
	}
	if settings.LLM.Model != "gemini-3-flash-preview" {
		t.Errorf("Expected model 'gemini-3-flash-preview', got '%s'", settings.LLM.Model)
	}

	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		t.Fatal("Settings file was not created")
	}

	loadedSettings, err := LoadSettings(settingsPath)
	if err != nil {
		t.Fatalf("Failed to load created settings file: %v", err)
	}
	if loadedSettings.Browser.Mode != BrowserModeStatic {
		t.Errorf("Expected browser mode 'static', got '%s'", loadedSettings.Browser.Mode)
	}
	if loadedSettings.Server.Addr != DefaultServerAddr {
		t.Errorf("Expected server addr %s, got %s", DefaultServerAddr, loadedSettings.Server.Addr)
	}
}

func TestLoadSettingsCreatesFileWhenNoneExists(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Chdir(tempDir)

	settings, err := LoadSettings("")
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if settings == nil {
		t.Fatal("Expected non-nil settings")
	}

	expectedPath := filepath.Join(tempDir, ".cobrowse", "settings.json")
	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Fatal("Settings file was not created in home directory")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	repo := infra.NewInMemorySettingsRepository()
	if err := repo.Save([]byte(`{"llm":{"backend":"ollama"},"browser":{"mode":"rod"}}`)); err != nil {
		t.Fatal(err)
	}

	settings := NewSettingsWithRepository(repo)
	if err := settings.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if settings.LLM.Model != "gpt-oss:latest" {
		t.Errorf("Expected ollama default model, got %q", settings.LLM.Model)
	}
	if settings.LLM.BaseURL != "http://localhost:11434" {
		t.Errorf("Expected ollama base URL, got %q", settings.LLM.BaseURL)
	}
	if settings.Browser.Mode != BrowserModeRod {
		t.Errorf("Expected rod mode to be kept, got %q", settings.Browser.Mode)
	}
	if settings.Browser.NavigationTimeoutDuration() != 30*time.Second {
		t.Errorf("Expected 30s navigation timeout, got %v", settings.Browser.NavigationTimeoutDuration())
	}
	if settings.Log.Level != "info" {
		t.Errorf("Expected info log level, got %q", settings.Log.Level)
	}
}

func TestLoadWithoutData(t *testing.T) {
	settings := NewSettings()
	err := settings.Load()
	if !errors.Is(err, infra.ErrSettingsNotFound) {
		t.Fatalf("Expected ErrSettingsNotFound, got %v", err)
	}
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		env     map[string]string
		wantErr bool
		missing bool
	}{
		{
			name:    "gemini with key",
			env:     map[string]string{"GEMINI_API_KEY": "k"},
			wantErr: false,
		},
		{
			name:    "gemini without key",
			env:     map[string]string{"GEMINI_API_KEY": ""},
			wantErr: true,
			missing: true,
		},
		{
			name:    "ollama needs no key",
			mutate:  func(s *Settings) { s.LLM = GetDefaultLLMSettingsForBackend("ollama") },
			wantErr: false,
		},
		{
			name:    "anthropic without key",
			mutate:  func(s *Settings) { s.LLM = GetDefaultLLMSettingsForBackend("anthropic") },
			env:     map[string]string{"ANTHROPIC_API_KEY": ""},
			wantErr: true,
			missing: true,
		},
		{
			name:    "unknown backend",
			mutate:  func(s *Settings) { s.LLM.Backend = "llamafile" },
			wantErr: true,
		},
		{
			name: "unknown browser mode",
			mutate: func(s *Settings) {
				s.LLM = GetDefaultLLMSettingsForBackend("ollama")
				s.Browser.Mode = "webkit"
			},
			wantErr: true,
		},
		{
			name: "bad navigation timeout",
			mutate: func(s *Settings) {
				s.LLM = GetDefaultLLMSettingsForBackend("ollama")
				s.Browser.NavigationTimeout = "soon"
			},
			wantErr: true,
		},
		{
			name: "bad log level",
			mutate: func(s *Settings) {
				s.LLM = GetDefaultLLMSettingsForBackend("ollama")
				s.Log.Level = "loud"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			settings := GetDefaultSettings()
			if tt.mutate != nil {
				tt.mutate(settings)
			}

			err := ValidateSettings(settings)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.missing && !errors.Is(err, ErrAPIKeyMissing) {
				t.Errorf("Expected ErrAPIKeyMissing, got %v", err)
			}
		})
	}
}

func TestUnconfiguredMessage(t *testing.T) {
	want := "API key not configured. Please set GEMINI_API_KEY in your environment variables."
	if got := UnconfiguredMessage("gemini"); got != want {
		t.Errorf("UnconfiguredMessage() = %q, want %q", got, want)
	}
}

func TestNewUserConfig(t *testing.T) {
	base := filepath.Join(t.TempDir(), ".cobrowse")
	cfg, err := NewUserConfig(base)
	if err != nil {
		t.Fatalf("NewUserConfig failed: %v", err)
	}
	if _, err := os.Stat(cfg.LogsDir); err != nil {
		t.Errorf("logs dir not created: %v", err)
	}
	if cfg.HistoryFile != filepath.Join(base, "history.txt") {
		t.Errorf("unexpected history file %s", cfg.HistoryFile)
	}
}
