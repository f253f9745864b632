package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"elevenlabs-mcp/internal/config"
	"elevenlabs-mcp/internal/protocol"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write config.toml with defaults and optionally store the API key",
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective config with the source of each value (secrets redacted)",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one config.toml value",
	Long:  "Set one config.toml value. Keys: " + strings.Join(config.FieldKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Store the ElevenLabs API key in " + config.SecretsFile,
	RunE:  runConfigSetKey,
}

var configUnsetKeyCmd = &cobra.Command{
	Use:   "unset-key",
	Short: "Remove the ElevenLabs API key from " + config.SecretsFile,
	RunE:  runConfigUnsetKey,
}

var configInitForce bool

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetKeyCmd)
	configCmd.AddCommand(configUnsetKeyCmd)
}

func configPath() (string, error) {
	if p := strings.TrimSpace(globalFlags.ConfigPath); p != "" {
		return p, nil
	}
	return config.DefaultConfigPath()
}

// loadConfigFile reads defaults plus config.toml only, so values that came
// from the environment are never written back to the file.
func loadConfigFile(path string) (config.Config, error) {
	return config.Load(config.Options{
		ConfigPath:  path,
		DotEnvFiles: []string{},
		Env:         map[string]string{},
	})
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	st := newStyles(out, globalFlags.JSON)

	path, err := configPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !configInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.Save(path, config.Default()); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintln(out, st.success("Wrote"), path)

	if globalFlags.JSON || !IsTTY() {
		fmt.Fprintf(out, "Set %s in the environment or run 'elevenlabs-mcp config set-key'.\n", protocol.EnvAPIKey)
		return nil
	}
	fmt.Fprintln(os.Stderr, "Optional: enter your ElevenLabs API key now (input is hidden). Press Enter to skip.")
	key, err := ReadSecret("ElevenLabs API key: ")
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	if key == "" {
		return nil
	}
	if err := config.SaveSecret(config.SecretsFile, protocol.EnvAPIKey, key); err != nil {
		return err
	}
	fmt.Fprintln(out, st.success("Saved"), protocol.EnvAPIKey, "to", config.SecretsFile)
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	st := newStyles(out, globalFlags.JSON)

	path, err := configPath()
	if err != nil {
		return err
	}
	opts := config.Options{ConfigPath: path}
	cfg, err := config.Load(opts)
	if err != nil {
		return withExit(ExitConfigInvalid, err)
	}

	fmt.Fprintln(out, st.sectionHeader("Configuration"), st.dim("("+path+")"))
	for _, fi := range config.EffectiveFields(cfg, opts) {
		value := fi.Value
		if fi.Sensitive {
			value = config.Redact(value)
		} else if value == "" {
			value = "(not set)"
		}
		fmt.Fprintln(out, st.kv(fi.Key, value+" "+st.dim("["+string(fi.Source)+"]")))
	}
	if err := config.Validate(&cfg, false); err != nil {
		fmt.Fprintln(out, st.warnPrefix(), err)
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := strings.TrimSpace(args[0]), args[1]
	if err := config.ValidateField(key, value); err != nil {
		return withExit(ExitConfigInvalid, err)
	}

	path, err := configPath()
	if err != nil {
		return err
	}
	cfg, err := loadConfigFile(path)
	if err != nil {
		return withExit(ExitConfigInvalid, err)
	}
	config.ApplyField(&cfg, key, value)
	if err := config.Save(path, cfg); err != nil {
		return err
	}

	st := newStyles(cmd.OutOrStdout(), globalFlags.JSON)
	fmt.Fprintln(cmd.OutOrStdout(), st.success("Set"), key, "=", value)
	if env := config.EnvVarForField(key); env != "" {
		if v, ok := os.LookupEnv(env); ok && strings.TrimSpace(v) != "" {
			fmt.Fprintln(cmd.OutOrStdout(), st.warnPrefix(), env, "is set in the environment and takes precedence")
		}
	}
	return nil
}

func runConfigSetKey(cmd *cobra.Command, _ []string) error {
	key, err := ReadSecret("ElevenLabs API key: ")
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	if key == "" {
		return errors.New("no key entered")
	}
	if err := config.SaveSecret(config.SecretsFile, protocol.EnvAPIKey, key); err != nil {
		return err
	}
	st := newStyles(cmd.OutOrStdout(), globalFlags.JSON)
	fmt.Fprintln(cmd.OutOrStdout(), st.success("Saved"), protocol.EnvAPIKey, config.Redact(key), "to", config.SecretsFile)
	return nil
}

func runConfigUnsetKey(cmd *cobra.Command, _ []string) error {
	if err := config.DeleteSecret(config.SecretsFile, protocol.EnvAPIKey); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Removed", protocol.EnvAPIKey, "from", config.SecretsFile)
	return nil
}
