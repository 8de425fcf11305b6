// Package cmd provides the command-line interface for CampusCrawl.
// It handles command parsing, configuration loading, and crawler execution.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/masahif/campuscrawl/internal/config"
	"github.com/masahif/campuscrawl/internal/crawler"
	"github.com/masahif/campuscrawl/internal/logging"
	"github.com/masahif/campuscrawl/internal/monitoring"
	"github.com/masahif/campuscrawl/internal/stats"
	"github.com/masahif/campuscrawl/internal/storage"
)

var (
	cfgFile   string
	version   string
	buildTime string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "campuscrawl [URLs...]",
	Short: "A polite, domain-restricted crawler for the campus web",
	Long: `CampusCrawl walks the allow-listed campus domains, honouring robots.txt
and crawl-delay, skipping crawler traps and near-duplicate URLs, and
collecting word and subdomain statistics for a small search index.

Seed URLs given as arguments replace the configured seeds. Without
--restart, an interrupted crawl resumes from its database.`,
	Args: cobra.ArbitraryArgs,
	RunE: runCrawler,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets version information for the CLI
func SetVersionInfo(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

func init() {
	cobra.OnInitialize(initConfig)

	d := config.DefaultConfig()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./campuscrawl.yml)")
	rootCmd.PersistentFlags().StringP("database", "d", d.DatabasePath, "Path to SQLite database file")

	rootCmd.Flags().Bool("show-config", false, "Display current configuration in YAML format and exit")
	rootCmd.Flags().Bool("restart", false, "Discard the saved frontier and statistics before crawling")

	// Crawling
	rootCmd.Flags().IntP("concurrency", "c", d.Concurrency, "Number of concurrent workers")
	rootCmd.Flags().DurationP("delay", "r", d.RequestDelay, "Pause after every completed page")
	rootCmd.Flags().DurationP("timeout", "t", d.RequestTimeout, "HTTP request timeout")
	rootCmd.Flags().StringP("user-agent", "u", d.UserAgent, "HTTP User-Agent header")
	rootCmd.Flags().Int("retry-attempts", d.RetryAttempts, "Download attempts per URL")
	rootCmd.Flags().Duration("retry-delay", d.RetryDelay, "Pause between download attempts")

	// Page extraction
	rootCmd.Flags().Int("max-redirects", d.MaxRedirects, "Redirect hops before a page yields no links")
	rootCmd.Flags().Int64("max-content-bytes", d.MaxContentBytes, "Pages larger than this yield no links")
	rootCmd.Flags().Float64("min-text-ratio", d.MinTextRatio, "Text ratio above which redirect and size checks apply")

	// Domain scope
	rootCmd.Flags().String("parent-domain", d.ParentDomain, "Domain whose subdomains are counted")
	rootCmd.Flags().StringSlice("allowed-domains", d.AllowedDomains, "Host suffixes inside the crawl scope")
	rootCmd.Flags().StringSlice("excluded-domains", d.ExcludedDomains, "Exact hosts excluded from the crawl scope")
	rootCmd.Flags().StringSlice("query-traps", nil, "Query substrings that mark a crawler trap (replaces the built-in list)")
	rootCmd.Flags().StringSlice("path-traps", nil, "Path substrings that mark a crawler trap (replaces the built-in list)")

	// Observability
	rootCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	rootCmd.Flags().String("log-level", d.Log.Level, "Log level: debug, info, warn or error")
	rootCmd.Flags().String("log-format", d.Log.Format, "Log format: json or text")
	rootCmd.Flags().String("log-file", "", "Write logs to a size-rotated file instead of stdout")

	bindFlags := []struct {
		viperKey string
		flagName string
	}{
		{"restart", "restart"},
		{"concurrency", "concurrency"},
		{"request_delay", "delay"},
		{"request_timeout", "timeout"},
		{"user_agent", "user-agent"},
		{"retry_attempts", "retry-attempts"},
		{"retry_delay", "retry-delay"},
		{"max_redirects", "max-redirects"},
		{"max_content_bytes", "max-content-bytes"},
		{"min_text_ratio", "min-text-ratio"},
		{"parent_domain", "parent-domain"},
		{"allowed_domains", "allowed-domains"},
		{"excluded_domains", "excluded-domains"},
		{"query_traps", "query-traps"},
		{"path_traps", "path-traps"},
		{"metrics_addr", "metrics-addr"},
		{"log.level", "log-level"},
		{"log.format", "log-format"},
		{"log.file", "log-file"},
	}

	for _, bind := range bindFlags {
		if err := viper.BindPFlag(bind.viperKey, rootCmd.Flags().Lookup(bind.flagName)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind flag %s: %v\n", bind.flagName, err)
		}
	}
	if err := viper.BindPFlag("database_path", rootCmd.PersistentFlags().Lookup("database")); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to bind flag database: %v\n", err)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("campuscrawl")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("CC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig layers viper values over the defaults. Non-empty args replace
// the configured seed URLs.
func loadConfig(args []string) (*config.CrawlConfig, error) {
	cfg := config.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if len(args) > 0 {
		cfg.SeedURLs = args
	}
	return cfg, nil
}

func showCurrentConfig(w io.Writer, cfg *config.CrawlConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Configuration validation failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "Displaying configuration anyway...\n\n")
	}

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}

	fmt.Fprintf(w, "# Current CampusCrawl Configuration\n")
	fmt.Fprintf(w, "# Generated at: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "# Configuration file search paths: ./campuscrawl.yml\n")
	fmt.Fprintf(w, "# Environment variables prefix: CC_\n\n")

	_, err = io.WriteString(w, string(yamlData))
	return err
}

func runCrawler(cmd *cobra.Command, args []string) error {
	showConfig, _ := cmd.Flags().GetBool("show-config")

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	if showConfig {
		return showCurrentConfig(cmd.OutOrStdout(), cfg)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logCloser, err := logging.SetDefault(logging.FromCrawlConfig(cfg.Log))
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	defer func() { _ = logCloser.Close() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cmd.OutOrStdout(), cfg)
}

// runCrawl opens the database, crawls until the frontier drains or ctx is
// cancelled, and writes the statistics report to out.
func runCrawl(ctx context.Context, out io.Writer, cfg *config.CrawlConfig) error {
	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0750); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	agg, err := prepareStore(store, cfg)
	if err != nil {
		return err
	}

	if len(cfg.SeedURLs) == 0 {
		qs, err := store.Status()
		if err != nil {
			return fmt.Errorf("failed to check queue status: %w", err)
		}
		if qs.Queued == 0 {
			fmt.Fprintf(out, "No seed URLs and nothing queued in %s. Exiting.\n", cfg.DatabasePath)
			return nil
		}
	}

	if err := store.SetMeta("crawl_started_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if err := store.SetMeta("crawl_finished_at", ""); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(reg)
	if cfg.MetricsAddr != "" {
		srv := startMetricsServer(cfg.MetricsAddr, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	slog.Info("Starting campus crawl",
		"seed_urls", len(cfg.SeedURLs),
		"concurrency", cfg.Concurrency,
		"database", cfg.DatabasePath,
		"allowed_domains", cfg.AllowedDomains)

	c, err := crawler.NewCrawler(cfg, store,
		crawler.WithAggregator(agg),
		crawler.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("failed to initialize crawler: %w", err)
	}
	defer func() { _ = c.Stop() }()

	if err := c.Start(ctx, cfg.SeedURLs); err != nil {
		return err
	}

	result := c.GetStats()
	slog.Info("Crawl finished",
		"pages_crawled", result.PagesCrawled,
		"pages_skipped", result.PagesSkipped,
		"errors", result.ErrorCount,
		"duration", result.Duration)

	if ctx.Err() == nil {
		if err := store.SetMeta("crawl_finished_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
			slog.Warn("Failed to record finish time", "error", err)
		}
	}

	return stats.WriteReport(out, agg.Snapshot(), stats.ReportTopWords)
}

// prepareStore either wipes the database (restart) or readies it for a
// resumed crawl, and returns an aggregator seeded with saved statistics.
func prepareStore(store *storage.SQLiteStorage, cfg *config.CrawlConfig) (*stats.Aggregator, error) {
	agg := stats.NewAggregator(cfg.ParentDomain)

	if cfg.Restart {
		if err := store.Reset(); err != nil {
			return nil, fmt.Errorf("failed to reset database: %w", err)
		}
		slog.Info("Discarded previous crawl state", "database", cfg.DatabasePath)
		return agg, nil
	}

	requeued, err := store.RequeueAbandoned()
	if err != nil {
		return nil, err
	}
	if requeued > 0 {
		slog.Info("Requeued abandoned URLs", "count", requeued)
	}

	saved, err := store.LoadStats()
	if err != nil {
		return nil, fmt.Errorf("failed to load saved statistics: %w", err)
	}
	agg.Restore(saved)
	if n := len(saved.UniquePages); n > 0 {
		slog.Info("Resuming crawl", "unique_pages", n)
	}

	return agg, nil
}

func startMetricsServer(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.Handler(g))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "addr", addr, "error", err)
		}
	}()
	slog.Info("Serving metrics", "addr", addr)
	return srv
}
