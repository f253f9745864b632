package cli

import (
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"elevenlabs-mcp/internal/config"
	"elevenlabs-mcp/internal/elevenlabs"
	"elevenlabs-mcp/internal/files"
	"elevenlabs-mcp/internal/mcp"
	"elevenlabs-mcp/internal/playback"
	"elevenlabs-mcp/internal/playback/speakerout"
	"elevenlabs-mcp/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server (stdio by default, --http for streamable HTTP)",
	RunE:  runServe,
}

var (
	serveHTTP    bool
	serveListen  string
	serveMCPPath string
	serveNoAudio bool
)

func init() {
	addServeFlags(serveCmd)
}

// addServeFlags binds the serve flags on cmd. The root command carries them
// too because it serves when run without a subcommand.
func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&serveHTTP, "http", false, "serve streamable HTTP instead of stdio")
	cmd.Flags().StringVar(&serveListen, "listen", "", "host:port for --http (default from config)")
	cmd.Flags().StringVar(&serveMCPPath, "mcp-path", "", "HTTP path of the MCP endpoint (default from config)")
	cmd.Flags().BoolVar(&serveNoAudio, "no-audio", false, "disable local audio playback")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return withExit(ExitConfigInvalid, err)
	}
	if serveListen != "" {
		cfg.HTTP.Listen = serveListen
	}
	if serveMCPPath != "" {
		cfg.HTTP.MCPPath = serveMCPPath
	}
	if err := config.Validate(&cfg, true); err != nil {
		return withExit(ExitConfigInvalid, err)
	}

	logger := newLogger(cfg.LogLevel, os.Stderr, globalFlags.JSON)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var ledger mcp.Ledger
	if path := strings.TrimSpace(cfg.Ledger.Path); path != "" {
		st := store.NewSQLiteStore(path)
		if err := st.Init(ctx); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("generated file ledger disabled")
		} else {
			defer func() { _ = st.Close() }()
			ledger = st
		}
	}

	var player mcp.Player
	if !serveNoAudio {
		player = playback.NewPlayer(speakerout.Speaker{}, logger)
	}

	// stdout belongs to the protocol in stdio mode
	eventOut := io.Writer(os.Stderr)
	if serveHTTP {
		eventOut = cmd.OutOrStdout()
	}
	var emitter func(level, event string, data map[string]interface{})
	if globalFlags.JSON {
		emitter = newNDJSONEmitter(eventOut)
	}

	client := elevenlabs.NewClient(cfg.APIKey, cfg.ElevenLabs.BaseURL, version)
	server := mcp.NewServer(cfg, client, mcp.ServerOptions{
		Version:      version,
		Logger:       logger,
		Resolver:     files.NewResolver(cfg.Files.BasePath),
		Ledger:       ledger,
		Player:       player,
		EventEmitter: emitter,
	})

	if !serveHTTP {
		logger.Info().Str("version", version).Msg("serving MCP over stdio")
		return server.RunStdio(ctx)
	}

	listener, err := net.Listen("tcp", cfg.HTTP.Listen)
	if err != nil {
		return withExit(ExitBindFailure, fmt.Errorf("server bind failure: %w", err))
	}
	if !globalFlags.Quiet && !globalFlags.JSON {
		printEndpoint(cmd.OutOrStdout(), listener.Addr().String(), cfg, ledger != nil)
	}
	return server.Serve(ctx, listener)
}

func printEndpoint(w io.Writer, addr string, cfg config.Config, ledgerEnabled bool) {
	st := newStyles(w, false)
	base := "http://" + addr
	ledger := "disabled"
	if ledgerEnabled {
		ledger = cfg.Ledger.Path
	}
	fmt.Fprintln(w, st.banner(), st.dim(version))
	fmt.Fprintln(w)
	fmt.Fprintln(w, st.sectionHeader("MCP endpoint"))
	fmt.Fprintln(w, st.kv("URL", base+cfg.HTTP.MCPPath))
	fmt.Fprintln(w, st.kv("Health", base+"/healthz"))
	fmt.Fprintln(w, st.kv("Base path", valueOr(cfg.Files.BasePath, "(not set)")))
	fmt.Fprintln(w, st.kv("Ledger", ledger))
	fmt.Fprintln(w)
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(config.Options{ConfigPath: globalFlags.ConfigPath})
	if err != nil {
		return config.Config{}, err
	}
	if lvl := strings.TrimSpace(globalFlags.LogLevel); lvl != "" {
		cfg.LogLevel = strings.ToLower(lvl)
	}
	return cfg, nil
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
