package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"elevenlabs-mcp/internal/protocol"
	"elevenlabs-mcp/internal/store"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Inspect the ledger of files written by tools",
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recently generated files, newest first",
	Args:  cobra.NoArgs,
	RunE:  runFilesList,
}

var filesPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Forget ledger entries older than a duration (files on disk are kept)",
	Args:  cobra.NoArgs,
	RunE:  runFilesPrune,
}

var (
	filesTool      string
	filesLimit     int
	filesOlderThan time.Duration
)

func init() {
	filesListCmd.Flags().StringVar(&filesTool, "tool", "", "only show files written by this tool")
	filesListCmd.Flags().IntVar(&filesLimit, "limit", 20, "maximum number of entries")
	filesPruneCmd.Flags().DurationVar(&filesOlderThan, "older-than", 30*24*time.Hour, "age threshold")

	filesCmd.AddCommand(filesListCmd)
	filesCmd.AddCommand(filesPruneCmd)
}

func openLedger(ctx context.Context) (*store.SQLiteStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, withExit(ExitConfigInvalid, err)
	}
	path := strings.TrimSpace(cfg.Ledger.Path)
	if path == "" {
		return nil, withExit(ExitConfigInvalid, fmt.Errorf("ledger is disabled; set %s or ledger.path", protocol.EnvLedgerPath))
	}
	st := store.NewSQLiteStore(path)
	if err := st.Init(ctx); err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	return st, nil
}

func runFilesList(cmd *cobra.Command, _ []string) error {
	if filesLimit < 1 {
		return errors.New("--limit must be at least 1")
	}
	ctx := cmd.Context()
	st, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	rows, err := st.Recent(ctx, filesTool, filesLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if globalFlags.JSON {
		enc := json.NewEncoder(out)
		for _, r := range rows {
			if err := enc.Encode(map[string]interface{}{
				"id":         r.ID,
				"tool":       r.Tool,
				"path":       r.Path,
				"size_bytes": r.SizeBytes,
				"created_at": r.CreatedAt.UTC().Format(time.RFC3339),
			}); err != nil {
				return err
			}
		}
		return nil
	}

	s := newStyles(out, false)
	if len(rows) == 0 {
		fmt.Fprintln(out, "No generated files recorded.")
		return nil
	}
	fmt.Fprintln(out, s.sectionHeader("Generated files"))
	fmt.Fprintln(out, s.separator(60))
	for _, r := range rows {
		fmt.Fprintf(out, "%s  %-24s %10d  %s\n",
			s.dim(r.CreatedAt.Local().Format("2006-01-02 15:04:05")), r.Tool, r.SizeBytes, r.Path)
	}
	return nil
}

func runFilesPrune(cmd *cobra.Command, _ []string) error {
	if filesOlderThan <= 0 {
		return errors.New("--older-than must be positive")
	}
	ctx := cmd.Context()
	st, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	n, err := st.DeleteOlderThan(ctx, time.Now().Add(-filesOlderThan))
	if err != nil {
		return err
	}
	s := newStyles(cmd.OutOrStdout(), globalFlags.JSON)
	fmt.Fprintln(cmd.OutOrStdout(), s.stat("removed", n))
	return nil
}
