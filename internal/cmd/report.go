package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/masahif/campuscrawl/internal/stats"
	"github.com/masahif/campuscrawl/internal/storage"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the statistics saved by previous crawls",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show frontier progress of the saved crawl",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	reportCmd.Flags().Int("top", stats.ReportTopWords, "Number of most common words to list")

	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(statusCmd)
}

// openExisting opens the configured database without creating a new one.
func openExisting() (*storage.SQLiteStorage, error) {
	cfg, err := loadConfig(nil)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.DatabasePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no database found at %s", cfg.DatabasePath)
	}
	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.DatabasePath, err)
	}
	return store, nil
}

func runReport(cmd *cobra.Command, args []string) error {
	store, err := openExisting()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	top, _ := cmd.Flags().GetInt("top")
	if top <= 0 {
		top = stats.ReportTopWords
	}

	snap, err := store.LoadStats()
	if err != nil {
		return fmt.Errorf("failed to load statistics: %w", err)
	}
	return stats.WriteReport(cmd.OutOrStdout(), snap, top)
}

func runStatus(cmd *cobra.Command, args []string) error {
	store, err := openExisting()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return writeStatus(cmd.OutOrStdout(), store)
}

func writeStatus(w io.Writer, store *storage.SQLiteStorage) error {
	qs, err := store.Status()
	if err != nil {
		return err
	}
	started, err := store.GetMeta("crawl_started_at")
	if err != nil {
		return err
	}
	finished, err := store.GetMeta("crawl_finished_at")
	if err != nil {
		return err
	}

	if started == "" {
		started = "never"
	}
	if finished == "" {
		finished = "not finished"
	}

	_, err = fmt.Fprintf(w, "Queued: %d\nProcessing: %d\nCompleted: %d\nStarted: %s\nFinished: %s\n",
		qs.Queued, qs.Processing, qs.Completed, started, finished)
	return err
}
