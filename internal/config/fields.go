package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"elevenlabs-mcp/internal/protocol"
)

// FieldSource indicates where a config value originates.
type FieldSource string

const (
	SourceDefault     FieldSource = "default"
	SourceConfigFile  FieldSource = "config.toml"
	SourceDotEnv      FieldSource = ".env"
	SourceDotEnvLocal FieldSource = ".env.local"
	SourceEnv         FieldSource = "env"
)

// FieldInfo describes a single configurable field and its provenance.
type FieldInfo struct {
	Key       string
	Value     string
	Source    FieldSource
	Sensitive bool
}

type fieldDef struct {
	Key       string
	EnvVar    string
	Sensitive bool
}

var fieldDefs = []fieldDef{
	{Key: "elevenlabs.base_url", EnvVar: protocol.EnvBaseURL},
	{Key: "elevenlabs.default_voice_id", EnvVar: protocol.EnvDefaultVoiceID},
	{Key: "files.base_path", EnvVar: protocol.EnvBasePath},
	{Key: "http.listen", EnvVar: protocol.EnvHTTPListen},
	{Key: "http.mcp_path", EnvVar: protocol.EnvHTTPPath},
	{Key: "ledger.path", EnvVar: protocol.EnvLedgerPath},
	{Key: "log_level", EnvVar: protocol.EnvLogLevel},
	{Key: protocol.EnvAPIKey, EnvVar: protocol.EnvAPIKey, Sensitive: true},
}

// FieldKeys lists the keys accepted by ApplyField and ValidateField.
func FieldKeys() []string {
	out := make([]string, 0, len(fieldDefs))
	for _, fd := range fieldDefs {
		if fd.Sensitive {
			continue
		}
		out = append(out, fd.Key)
	}
	return out
}

// EnvVarForField returns the environment variable mapped to a field key.
func EnvVarForField(key string) string {
	for _, fd := range fieldDefs {
		if fd.Key == key {
			return fd.EnvVar
		}
	}
	return ""
}

func fieldValueFromConfig(cfg Config, key string) string {
	switch key {
	case "elevenlabs.base_url":
		return cfg.ElevenLabs.BaseURL
	case "elevenlabs.default_voice_id":
		return cfg.ElevenLabs.DefaultVoiceID
	case "files.base_path":
		return cfg.Files.BasePath
	case "http.listen":
		return cfg.HTTP.Listen
	case "http.mcp_path":
		return cfg.HTTP.MCPPath
	case "ledger.path":
		return cfg.Ledger.Path
	case "log_level":
		return cfg.LogLevel
	case protocol.EnvAPIKey:
		return cfg.APIKey
	default:
		return ""
	}
}

// EffectiveFields reports each field with the source that provided it,
// checked in precedence order: env, .env.local, .env, config.toml, default.
func EffectiveFields(cfg Config, opts Options) []FieldInfo {
	dotEnvLocal := readDotFile(".env.local")
	dotEnv := readDotFile(".env")
	lookupEnv := os.LookupEnv
	if opts.Env != nil {
		lookupEnv = func(k string) (string, bool) {
			v, ok := opts.Env[k]
			return v, ok
		}
	}

	def := Default()
	fileCfg := def
	if path, err := resolveConfigPath(opts.ConfigPath); err == nil {
		if err := mergeConfigFile(&fileCfg, path); err != nil {
			// a malformed config.toml is reported by Load; here it only
			// means no value can be attributed to the file
			fileCfg = def
		}
	}

	result := make([]FieldInfo, 0, len(fieldDefs))
	for _, fd := range fieldDefs {
		fi := FieldInfo{
			Key:       fd.Key,
			Value:     fieldValueFromConfig(cfg, fd.Key),
			Sensitive: fd.Sensitive,
		}
		switch {
		case hasValue(lookupEnv, fd.EnvVar):
			fi.Source = SourceEnv
		case dotEnvLocal[fd.EnvVar] != "":
			fi.Source = SourceDotEnvLocal
		case dotEnv[fd.EnvVar] != "":
			fi.Source = SourceDotEnv
		case !fd.Sensitive && fieldValueFromConfig(fileCfg, fd.Key) != fieldValueFromConfig(def, fd.Key):
			fi.Source = SourceConfigFile
		default:
			fi.Source = SourceDefault
		}
		result = append(result, fi)
	}
	return result
}

func hasValue(lookup func(string) (string, bool), key string) bool {
	v, ok := lookup(key)
	return ok && strings.TrimSpace(v) != ""
}

func readDotFile(name string) map[string]string {
	vals, err := godotenv.Read(name)
	if err != nil {
		return nil
	}
	return vals
}

// Redact masks a secret for display, keeping the last four characters.
func Redact(value string) string {
	if value == "" {
		return "(not set)"
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

// ValidateField checks whether value is valid for the given field key.
func ValidateField(key, value string) error {
	switch key {
	case "elevenlabs.base_url":
		if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
			return errors.New("elevenlabs.base_url must start with \"http://\" or \"https://\"")
		}
	case "elevenlabs.default_voice_id":
		if strings.TrimSpace(value) == "" {
			return errors.New("elevenlabs.default_voice_id must not be empty")
		}
	case "files.base_path", "ledger.path":
		if value != "" && strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must not be whitespace-only", key)
		}
	case "http.listen":
		_, port, err := net.SplitHostPort(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("http.listen must be host:port (e.g. %q): %w", protocol.DefaultListenAddr, err)
		}
		n, err := strconv.Atoi(port)
		if err != nil || n < 0 || n > 65535 {
			return fmt.Errorf("http.listen port out of range in %q", value)
		}
	case "http.mcp_path":
		if !strings.HasPrefix(value, "/") {
			return errors.New("http.mcp_path must start with \"/\"")
		}
	case "log_level":
		if !stringIn(value, LogLevels) {
			return fmt.Errorf("log_level must be one of %s, got %q", strings.Join(LogLevels, ", "), value)
		}
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

// ApplyField sets a field on the config struct by key name.
func ApplyField(cfg *Config, key, value string) {
	switch key {
	case "elevenlabs.base_url":
		cfg.ElevenLabs.BaseURL = value
	case "elevenlabs.default_voice_id":
		cfg.ElevenLabs.DefaultVoiceID = value
	case "files.base_path":
		cfg.Files.BasePath = value
	case "http.listen":
		cfg.HTTP.Listen = value
	case "http.mcp_path":
		cfg.HTTP.MCPPath = value
	case "ledger.path":
		cfg.Ledger.Path = value
	case "log_level":
		cfg.LogLevel = value
	}
}
