package config

import (
	"fmt"
	"strings"

	"elevenlabs-mcp/internal/protocol"
)

var LogLevels = []string{"debug", "info", "warn", "error"}

// Validate checks required fields and enum constraints. Errors carry an
// actionable hint so the CLI can print them and exit 2.
func Validate(cfg *Config, requireAPIKey bool) error {
	if cfg == nil {
		return fmt.Errorf("CONFIG_INVALID: nil config")
	}
	if requireAPIKey && strings.TrimSpace(cfg.APIKey) == "" {
		return fmt.Errorf("CONFIG_INVALID: Missing %s\nSet env: %s=...\nOr run: elevenlabs-mcp config set-key", protocol.EnvAPIKey, protocol.EnvAPIKey)
	}
	for _, key := range FieldKeys() {
		value := fieldValueFromConfig(*cfg, key)
		if err := ValidateField(key, value); err != nil {
			return fmt.Errorf("CONFIG_INVALID: %w", err)
		}
	}
	for _, proxy := range cfg.HTTP.TrustedProxies {
		if NormalizeTrustedProxy(proxy) == "" {
			return fmt.Errorf("CONFIG_INVALID: http.trusted_proxies entry %q is not an IP or CIDR", proxy)
		}
	}
	if cfg.HTTP.RateLimitRPS < 0 || cfg.HTTP.RateLimitBurst < 0 {
		return fmt.Errorf("CONFIG_INVALID: http.rate_limit_rps and http.rate_limit_burst must be >= 0")
	}
	return nil
}

func stringIn(s string, allowed []string) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}
