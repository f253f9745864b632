package config

import (
	"os"
	"path/filepath"

	"elevenlabs-mcp/internal/protocol"
)

const appDirName = "elevenlabs-mcp"

type Config struct {
	ElevenLabs ElevenLabsConfig `toml:"elevenlabs"`
	Files      FilesConfig      `toml:"files"`
	HTTP       HTTPConfig       `toml:"http"`
	Ledger     LedgerConfig     `toml:"ledger"`
	LogLevel   string           `toml:"log_level"`

	// APIKey is only read from the environment or dotenv files and is never
	// written to config.toml.
	APIKey string `toml:"-"`
}

type ElevenLabsConfig struct {
	BaseURL        string `toml:"base_url"`
	DefaultVoiceID string `toml:"default_voice_id"`
}

type FilesConfig struct {
	// BasePath resolves relative output directories and permits relative
	// input file paths. Empty disables both.
	BasePath string `toml:"base_path"`
}

type HTTPConfig struct {
	Listen         string   `toml:"listen"`
	MCPPath        string   `toml:"mcp_path"`
	AllowedOrigins []string `toml:"allowed_origins"`
	RateLimitRPS   float64  `toml:"rate_limit_rps"`
	RateLimitBurst int      `toml:"rate_limit_burst"`
	// TrustedProxies lists peers (IPs or CIDRs) whose X-Forwarded-For header
	// is used to find the client address for rate limiting.
	TrustedProxies []string `toml:"trusted_proxies"`
}

type LedgerConfig struct {
	// Path of the sqlite ledger of generated files. Empty disables it.
	Path string `toml:"path"`
}

func Default() Config {
	return Config{
		ElevenLabs: ElevenLabsConfig{
			BaseURL:        protocol.DefaultBaseURL,
			DefaultVoiceID: protocol.DefaultVoiceID,
		},
		HTTP: HTTPConfig{
			Listen:  protocol.DefaultListenAddr,
			MCPPath: protocol.DefaultMCPPath,
			AllowedOrigins: []string{
				"http://localhost",
				"http://127.0.0.1",
			},
			RateLimitRPS:   10,
			RateLimitBurst: 20,
			TrustedProxies: []string{
				"127.0.0.1/32",
				"::1/128",
			},
		},
		Ledger: LedgerConfig{
			Path: defaultLedgerPath(),
		},
		LogLevel: "info",
	}
}

func defaultLedgerPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, appDirName, "ledger.sqlite")
}

// DefaultConfigPath returns the path to the user's config.toml file.
func DefaultConfigPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appDirName, "config.toml"), nil
}
