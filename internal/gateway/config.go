package gateway

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// GatewayConfig is the top-level configuration for the chat gateway.
type GatewayConfig struct {
	ServerAddr     string        `json:"server_addr"`     // Connect service base URL, e.g. "http://localhost:8080"
	SessionTimeout string        `json:"session_timeout"` // idle time before a session is closed (Go duration, default "30m")
	ExecuteTools   bool          `json:"execute_tools"`   // run proposed actions on the session page
	Discord        DiscordConfig `json:"discord"`
}

// DiscordConfig holds Discord bot configuration.
type DiscordConfig struct {
	Token             string   `json:"token"`
	AllowedGuildIDs   []string `json:"allowed_guild_ids"`
	AllowedChannelIDs []string `json:"allowed_channel_ids"`
	AllowedUserIDs    []string `json:"allowed_user_ids"`
	MentionOnly       bool     `json:"mention_only"` // In guilds, only respond when @mentioned
}

// LoadGatewayConfig loads configuration from a JSON file.
func LoadGatewayConfig(path string) (*GatewayConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway config %s: %w", path, err)
	}

	cfg := DefaultGatewayConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse gateway config: %w", err)
	}
	if env := os.Getenv("DISCORD_BOT_TOKEN"); cfg.Discord.Token == "" && env != "" {
		cfg.Discord.Token = env
	}
	return cfg, nil
}

// DefaultGatewayConfig returns sensible defaults.
func DefaultGatewayConfig() *GatewayConfig {
	return &GatewayConfig{
		ServerAddr:     "http://localhost:8080",
		SessionTimeout: "30m",
		ExecuteTools:   true,
	}
}

// IdleTimeout parses SessionTimeout; invalid or non-positive values give 30 minutes.
func (c *GatewayConfig) IdleTimeout() time.Duration {
	d, err := time.ParseDuration(c.SessionTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cobrowse", "gateway.json")
}
