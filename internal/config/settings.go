package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fpt/cobrowse/internal/infra"
	"github.com/fpt/cobrowse/internal/repository"
	pkgLogger "github.com/fpt/cobrowse/pkg/logger"
)

// Supported values for BrowserSettings.Mode.
const (
	BrowserModeStatic = "static"
	BrowserModeRod    = "rod"
)

// ErrAPIKeyMissing means the selected backend has no credential in the environment.
var ErrAPIKeyMissing = errors.New("API key not configured")

// DefaultServerAddr is where the Connect service and the site listen.
const DefaultServerAddr = "localhost:8080"

// Settings represents the main application settings
type Settings struct {
	LLM     LLMSettings     `json:"llm"`
	Browser BrowserSettings `json:"browser"`
	Site    SiteSettings    `json:"site"`
	Server  ServerSettings  `json:"server"`
	Log     LogSettings     `json:"log"`

	// Repository for persistence (nil for in-memory only)
	settingsRepository repository.SettingsRepository `json:"-"`
}

// LLMSettings contains LLM client configuration
type LLMSettings struct {
	Backend   string `json:"backend"`              // "gemini", "anthropic", "openai", or "ollama"
	Model     string `json:"model"`                // model name
	BaseURL   string `json:"base_url,omitempty"`   // for ollama or openai (Azure)
	MaxTokens int    `json:"max_tokens,omitempty"` // maximum tokens for model responses (0 = use model default)
}

// BrowserSettings selects the page the assistant co-browses.
type BrowserSettings struct {
	Mode              string `json:"mode"`                         // "static" (parsed in memory) or "rod" (live Chrome)
	URL               string `json:"url,omitempty"`                // page to open in rod mode; empty serves the built-in site
	Headless          bool   `json:"headless"`                     // rod only
	Bin               string `json:"bin,omitempty"`                // Chrome binary; empty lets rod download one
	NavigationTimeout string `json:"navigation_timeout,omitempty"` // Go duration, e.g. "30s"
}

// SiteSettings points at the portfolio content.
type SiteSettings struct {
	DataPath    string `json:"data_path,omitempty"`    // YAML portfolio; empty uses the embedded sample
	PersonaPath string `json:"persona_path,omitempty"` // persona markdown; empty uses the embedded one
	Owner       string `json:"owner,omitempty"`        // overrides the name from the portfolio data
}

// ServerSettings configures the Connect service.
type ServerSettings struct {
	Addr string `json:"addr"`
}

// LogSettings configures logging.
type LogSettings struct {
	Level string `json:"level"`
}

// NavigationTimeoutDuration parses NavigationTimeout; zero when unset or invalid.
func (b BrowserSettings) NavigationTimeoutDuration() time.Duration {
	if b.NavigationTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(b.NavigationTimeout)
	if err != nil {
		return 0
	}
	return d
}

// NewSettings creates new settings with in-memory repository
func NewSettings() *Settings {
	return NewSettingsWithRepository(infra.NewInMemorySettingsRepository())
}

// NewSettingsWithRepository creates new settings with injected repository
func NewSettingsWithRepository(settingsRepository repository.SettingsRepository) *Settings {
	settings := GetDefaultSettings()
	settings.settingsRepository = settingsRepository
	return settings
}

// NewSettingsWithPath creates new settings with file-based repository
func NewSettingsWithPath(configPath string) *Settings {
	repo := infra.NewFileSettingsRepository(configPath)
	return NewSettingsWithRepository(repo)
}

// Load loads settings from the repository
func (s *Settings) Load() error {
	if s.settingsRepository == nil {
		return fmt.Errorf("no settings repository configured")
	}

	data, err := s.settingsRepository.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("failed to parse settings: %w", err)
	}

	// Apply defaults for missing fields
	applyDefaults(s)
	return nil
}

// Save saves settings to the repository
func (s *Settings) Save() error {
	if s.settingsRepository == nil {
		return fmt.Errorf("no settings repository configured")
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	return s.settingsRepository.Save(data)
}

// LoadSettings loads application settings from a JSON file
func LoadSettings(configPath string) (*Settings, error) {
	// Create settings with file repository
	settings := NewSettingsWithPath(configPath)

	// If config path is empty, search for existing settings file
	if configPath == "" {
		foundPath, _ := settings.settingsRepository.FindSettingsFile()
		if foundPath == "" {
			// No settings file found, create default one and return defaults
			return createDefaultSettingsFile()
		}
	}

	// Try to load settings
	err := settings.Load()
	if err != nil {
		// If file doesn't exist and a specific path was provided, create it
		if configPath != "" {
			if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) {
				createdSettings, _ := createSettingsFileAtPath(configPath)
				return createdSettings, nil
			}
			return nil, err
		}
		// Otherwise return defaults
		return GetDefaultSettings(), nil
	}

	return settings, nil
}

// GetDefaultSettings returns default application settings
func GetDefaultSettings() *Settings {
	return &Settings{
		LLM: GetDefaultLLMSettingsForBackend("gemini"),
		Browser: BrowserSettings{
			Mode:              BrowserModeStatic,
			Headless:          true,
			NavigationTimeout: "30s",
		},
		Server: ServerSettings{
			Addr: DefaultServerAddr,
		},
		Log: LogSettings{
			Level: "info",
		},
	}
}

// GetDefaultLLMSettingsForBackend returns default LLM settings for a specific backend
func GetDefaultLLMSettingsForBackend(backend string) LLMSettings {
	switch backend {
	case "ollama":
		return LLMSettings{
			Backend: "ollama",
			Model:   "gpt-oss:latest",
			BaseURL: "http://localhost:11434",
		}
	case "anthropic", "claude":
		return LLMSettings{
			Backend: "anthropic",
			Model:   "claude-sonnet-4-5-20250929",
		}
	case "openai":
		return LLMSettings{
			Backend: "openai",
			Model:   "gpt-5-mini",
		}
	default:
		return LLMSettings{
			Backend: "gemini",
			Model:   "gemini-3-flash-preview",
		}
	}
}

// applyDefaults fills in missing fields with default values
func applyDefaults(settings *Settings) {
	defaults := GetDefaultSettings()

	if settings.LLM.Backend == "" {
		settings.LLM.Backend = defaults.LLM.Backend
	}
	if settings.LLM.Model == "" {
		settings.LLM.Model = GetDefaultLLMSettingsForBackend(settings.LLM.Backend).Model
	}
	if settings.LLM.BaseURL == "" && settings.LLM.Backend == "ollama" {
		settings.LLM.BaseURL = GetDefaultLLMSettingsForBackend("ollama").BaseURL
	}

	if settings.Browser.Mode == "" {
		settings.Browser.Mode = defaults.Browser.Mode
	}
	if settings.Browser.NavigationTimeout == "" {
		settings.Browser.NavigationTimeout = defaults.Browser.NavigationTimeout
	}
	if settings.Server.Addr == "" {
		settings.Server.Addr = defaults.Server.Addr
	}
	if settings.Log.Level == "" {
		settings.Log.Level = defaults.Log.Level
	}
}

// APIKeyEnv names the environment variable holding the backend's credential.
// Ollama needs none.
func APIKeyEnv(backend string) string {
	switch backend {
	case "anthropic", "claude":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	}
	return ""
}

// UnconfiguredMessage is shown in place of chat when the credential is missing.
func UnconfiguredMessage(backend string) string {
	return fmt.Sprintf("API key not configured. Please set %s in your environment variables.", APIKeyEnv(backend))
}

// ValidateSettings validates the settings configuration
func ValidateSettings(settings *Settings) error {
	switch settings.LLM.Backend {
	case "ollama", "anthropic", "openai", "gemini":
	default:
		return fmt.Errorf("unsupported LLM backend: %s (must be 'gemini', 'anthropic', 'openai', or 'ollama')", settings.LLM.Backend)
	}

	if settings.LLM.Model == "" {
		return fmt.Errorf("LLM model is required")
	}

	if env := APIKeyEnv(settings.LLM.Backend); env != "" && os.Getenv(env) == "" {
		return fmt.Errorf("%w: set %s environment variable", ErrAPIKeyMissing, env)
	}

	switch settings.Browser.Mode {
	case BrowserModeStatic, BrowserModeRod:
	default:
		return fmt.Errorf("unsupported browser mode: %s (must be 'static' or 'rod')", settings.Browser.Mode)
	}
	if settings.Browser.NavigationTimeout != "" {
		if _, err := time.ParseDuration(settings.Browser.NavigationTimeout); err != nil {
			return fmt.Errorf("invalid navigation_timeout %q: %w", settings.Browser.NavigationTimeout, err)
		}
	}

	switch pkgLogger.LogLevel(settings.Log.Level) {
	case pkgLogger.LogLevelDebug, pkgLogger.LogLevelInfo, pkgLogger.LogLevelWarn, pkgLogger.LogLevelError:
	default:
		return fmt.Errorf("unsupported log level: %s", settings.Log.Level)
	}
	return nil
}

// createDefaultSettingsFile creates a default settings.json file in ~/.cobrowse/
func createDefaultSettingsFile() (*Settings, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return GetDefaultSettings(), nil // Fall back to defaults without file creation
	}

	settingsPath := filepath.Join(homeDir, infra.SettingsDirName, infra.SettingsFileName)
	return createSettingsFileAtPath(settingsPath)
}

// createSettingsFileAtPath creates a default settings file at the specified path
func createSettingsFileAtPath(settingsPath string) (*Settings, error) {
	settings := NewSettingsWithPath(settingsPath)

	if err := settings.Save(); err != nil {
		// Return defaults without repository if saving fails
		return GetDefaultSettings(), nil
	}

	logger := pkgLogger.NewComponentLogger("settings")
	logger.InfoWithIntention(pkgLogger.IntentionConfig, "Created default settings file", "path", settingsPath)
	logger.InfoWithIntention(pkgLogger.IntentionStatus, "You can edit this file to customize your configuration")

	return settings, nil
}
