package config

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"elevenlabs-mcp/internal/protocol"
)

// Options controls where Load reads from. The zero value reads the default
// config.toml, .env.local and .env from the working directory, and the process
// environment.
type Options struct {
	ConfigPath  string
	DotEnvFiles []string
	// Env replaces the process environment when non-nil.
	Env map[string]string
}

var defaultDotEnvFiles = []string{".env.local", ".env"}

// Load builds the effective config: defaults, then config.toml, then
// .env/.env.local, then the environment. The process environment is never
// modified.
func Load(opts Options) (Config, error) {
	cfg := Default()

	path, err := resolveConfigPath(opts.ConfigPath)
	if err != nil {
		return Config{}, err
	}
	if err := mergeConfigFile(&cfg, path); err != nil {
		return Config{}, err
	}

	env, err := environment(opts)
	if err != nil {
		return Config{}, err
	}
	mergeEnv(&cfg, env)
	return cfg, nil
}

func resolveConfigPath(path string) (string, error) {
	if strings.TrimSpace(path) != "" {
		return path, nil
	}
	return DefaultConfigPath()
}

func mergeConfigFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat config: %w", err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// environment merges dotenv files under the real (or injected) environment.
// Earlier dotenv files win over later ones.
func environment(opts Options) (map[string]string, error) {
	files := opts.DotEnvFiles
	if files == nil {
		files = defaultDotEnvFiles
	}

	env := map[string]string{}
	for i := len(files) - 1; i >= 0; i-- {
		values, err := godotenv.Read(files[i])
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("load dotenv %s: %w", files[i], err)
		}
		for k, v := range values {
			env[k] = v
		}
	}

	if opts.Env != nil {
		for k, v := range opts.Env {
			env[k] = v
		}
		return env, nil
	}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		env[k] = v
	}
	return env, nil
}

func mergeEnv(cfg *Config, env map[string]string) {
	get := func(key string) string {
		return strings.TrimSpace(env[key])
	}
	if v := get(protocol.EnvAPIKey); v != "" {
		cfg.APIKey = v
	}
	if v := get(protocol.EnvBasePath); v != "" {
		cfg.Files.BasePath = v
	}
	if v := get(protocol.EnvBaseURL); v != "" {
		cfg.ElevenLabs.BaseURL = v
	}
	if v := get(protocol.EnvDefaultVoiceID); v != "" {
		cfg.ElevenLabs.DefaultVoiceID = v
	}
	if v := get(protocol.EnvLogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := get(protocol.EnvHTTPListen); v != "" {
		cfg.HTTP.Listen = v
	}
	if v := get(protocol.EnvHTTPPath); v != "" {
		cfg.HTTP.MCPPath = v
	}
	if v, ok := env[protocol.EnvLedgerPath]; ok {
		// An explicitly empty value disables the ledger.
		cfg.Ledger.Path = strings.TrimSpace(v)
	}
	if v := get(protocol.EnvAllowedOrigins); v != "" {
		cfg.HTTP.AllowedOrigins = appendOrigins(cfg.HTTP.AllowedOrigins, v)
	}
	if v := get(protocol.EnvRateLimitRPS); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.HTTP.RateLimitRPS = f
		}
	}
	if v := get(protocol.EnvTrustedProxies); v != "" {
		cfg.HTTP.TrustedProxies = MergeTrustedProxies(cfg.HTTP.TrustedProxies, v)
	}
}

// MergeTrustedProxies appends comma-separated proxies to existing, keeping
// first-seen order. Entries are normalized to CIDR form; malformed ones are
// dropped.
func MergeTrustedProxies(existing []string, csv string) []string {
	out := make([]string, 0, len(existing))
	seen := make(map[string]struct{}, len(existing))
	add := func(value string) {
		key := NormalizeTrustedProxy(value)
		if key == "" {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	for _, v := range existing {
		add(v)
	}
	for _, v := range strings.Split(csv, ",") {
		add(v)
	}
	return out
}

// NormalizeTrustedProxy returns value as a CIDR string, or "" when it is
// neither an IP nor a CIDR. A bare IP becomes a single-host network.
func NormalizeTrustedProxy(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if strings.Contains(value, "/") {
		_, network, err := net.ParseCIDR(value)
		if err != nil {
			return ""
		}
		return network.String()
	}
	ip := net.ParseIP(value)
	if ip == nil {
		return ""
	}
	if v4 := ip.To4(); v4 != nil {
		return (&net.IPNet{IP: v4, Mask: net.CIDRMask(32, 32)}).String()
	}
	return (&net.IPNet{IP: ip, Mask: net.CIDRMask(128, 128)}).String()
}

func appendOrigins(existing []string, csv string) []string {
	out := append([]string(nil), existing...)
	seen := make(map[string]struct{}, len(out))
	for _, o := range out {
		seen[o] = struct{}{}
	}
	for _, o := range strings.Split(csv, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" {
			continue
		}
		if _, ok := seen[o]; ok {
			continue
		}
		seen[o] = struct{}{}
		out = append(out, o)
	}
	return out
}

// Save writes cfg to path as TOML. An empty path uses DefaultConfigPath.
func Save(path string, cfg Config) error {
	path, err := resolveConfigPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
