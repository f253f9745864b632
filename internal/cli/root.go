package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	ExitSuccess       = 0
	ExitGenericError  = 1
	ExitConfigInvalid = 2
	ExitBindFailure   = 4
)

// GlobalFlags holds flags shared across all commands.
type GlobalFlags struct {
	ConfigPath string
	JSON       bool
	Quiet      bool
	LogLevel   string
}

var globalFlags GlobalFlags

var rootCmd = &cobra.Command{
	Use:   "elevenlabs-mcp",
	Short: "MCP server for the ElevenLabs audio API",
	Long: "elevenlabs-mcp exposes ElevenLabs text-to-speech, transcription, voice design and conversational agents " +
		"as MCP tools. Without a subcommand it serves over stdio.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalFlags.ConfigPath, "config", "", "config.toml path (default: user config dir)")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.JSON, "json", false, "emit NDJSON events for automation/logging")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.Quiet, "quiet", false, "reduce output")
	rootCmd.PersistentFlags().StringVar(&globalFlags.LogLevel, "log-level", "", "override log level: debug|info|warn|error")

	addServeFlags(rootCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(versionCmd)
}

// exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExit(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitGenericError
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	st := newStyles(os.Stderr, globalFlags.JSON)
	fmt.Fprintln(os.Stderr, st.errPrefix(), err)
	return exitCode(err)
}
