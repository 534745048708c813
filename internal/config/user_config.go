package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fpt/cobrowse/internal/infra"
)

// UserConfig manages per-user data directories
type UserConfig struct {
	BaseDir     string // $HOME/.cobrowse
	LogsDir     string // $HOME/.cobrowse/logs
	HistoryFile string // $HOME/.cobrowse/history.txt (REPL slash commands)
}

// DefaultUserConfig creates the default user configuration
func DefaultUserConfig() (*UserConfig, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	return NewUserConfig(filepath.Join(homeDir, infra.SettingsDirName))
}

// NewUserConfig roots the user directories at baseDir and creates them.
func NewUserConfig(baseDir string) (*UserConfig, error) {
	config := &UserConfig{
		BaseDir:     baseDir,
		LogsDir:     filepath.Join(baseDir, "logs"),
		HistoryFile: filepath.Join(baseDir, "history.txt"),
	}

	if err := config.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create user directories: %w", err)
	}
	return config, nil
}

// EnsureDirectories creates the user configuration directories if they don't exist
func (c *UserConfig) EnsureDirectories() error {
	for _, dir := range []string{c.BaseDir, c.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
