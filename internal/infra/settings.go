package infra

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrSettingsNotFound is returned by Load when no settings file exists.
var ErrSettingsNotFound = errors.New("settings file not found")

const (
	SettingsDirName  = ".cobrowse"
	SettingsFileName = "settings.json"
)

// FileSettingsRepository represents file-persisted settings repository
type FileSettingsRepository struct {
	configPath string // Specific path (empty means search for file)
}

// InMemorySettingsRepository represents in-memory-only settings repository
type InMemorySettingsRepository struct {
	data []byte
}

// NewFileSettingsRepository creates a new file-based settings repository
func NewFileSettingsRepository(configPath string) *FileSettingsRepository {
	return &FileSettingsRepository{
		configPath: configPath,
	}
}

// NewInMemorySettingsRepository creates a new in-memory settings repository
func NewInMemorySettingsRepository() *InMemorySettingsRepository {
	return &InMemorySettingsRepository{}
}

// FileSettingsRepository methods
func (fr *FileSettingsRepository) Load() ([]byte, error) {
	configPath := fr.configPath
	if configPath == "" {
		// Search for settings file
		foundPath, err := fr.FindSettingsFile()
		if err != nil {
			return nil, err
		}
		if foundPath == "" {
			return nil, ErrSettingsNotFound
		}
		configPath = foundPath
	}

	// Check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrSettingsNotFound, configPath)
	}

	// Read file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	return data, nil
}

func (fr *FileSettingsRepository) Save(data []byte) error {
	configPath := fr.configPath
	if configPath == "" {
		// Try to find existing settings file first
		foundPath, _ := fr.FindSettingsFile()
		if foundPath != "" {
			configPath = foundPath
		} else {
			// No existing file, save to ~/.cobrowse
			configPath = defaultSettingsPath()
		}
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return nil
}

// FindSettingsFile looks in ./.cobrowse, then $HOME/.cobrowse.
func (fr *FileSettingsRepository) FindSettingsFile() (string, error) {
	currentDirPath := filepath.Join(SettingsDirName, SettingsFileName)
	if _, err := os.Stat(currentDirPath); err == nil {
		return currentDirPath, nil
	}

	if homeDirPath := defaultSettingsPath(); homeDirPath != "" {
		if _, err := os.Stat(homeDirPath); err == nil {
			return homeDirPath, nil
		}
	}

	// No settings file found
	return "", nil
}

// Path returns the configured path, which may be empty.
func (fr *FileSettingsRepository) Path() string {
	return fr.configPath
}

// defaultSettingsPath is $HOME/.cobrowse/settings.json, or "" without a home.
func defaultSettingsPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, SettingsDirName, SettingsFileName)
}

// InMemorySettingsRepository methods
func (mr *InMemorySettingsRepository) Load() ([]byte, error) {
	if mr.data == nil {
		return nil, ErrSettingsNotFound
	}
	return mr.data, nil
}

func (mr *InMemorySettingsRepository) Save(data []byte) error {
	mr.data = make([]byte, len(data))
	copy(mr.data, data)
	return nil
}

func (mr *InMemorySettingsRepository) FindSettingsFile() (string, error) {
	// In-memory repository doesn't have files
	return "", nil
}
