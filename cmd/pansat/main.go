// Package main provides the entry point for the pansat catalog engine.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pansat-go/pansat/internal/app"
	"github.com/pansat-go/pansat/internal/config"
	"github.com/pansat-go/pansat/internal/domain"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var cfgFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pansat",
	Short: "pansat - satellite and reanalysis data-file catalog engine",
	Long: `pansat indexes, matches, and retrieves satellite and reanalysis data
files across local directories and remote providers (S3, Azure Blob, plain
HTTP indices).

Features:
  - Time-range and bounding-box granule lookup
  - Temporal/spatial matching between two products
  - Pluggable providers with optional calendar-unit-at-a-time enumeration
  - Background sync with file-system watching for hot-reload
  - TLS with automatic certificate management
  - Prometheus metrics`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("pansat %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Build Date: %s\n", buildDate)
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a single sync against configured providers and exit",
	RunE:  runSyncOnce,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: discovered .pansat/config.toml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (json, text)")

	rootCmd.Flags().String("host", "127.0.0.1", "server host")
	rootCmd.Flags().Int("port", 8622, "server port")
	rootCmd.Flags().Bool("tls", false, "enable TLS")
	rootCmd.Flags().StringSlice("tls-domains", nil, "TLS domains")
	rootCmd.Flags().String("tls-email", "", "TLS email for Let's Encrypt")
	rootCmd.Flags().StringSlice("cors", nil, "allowed CORS origins (e.g., https://example.com,*.sub.domain.tld)")
	rootCmd.Flags().StringSlice("sync-products", nil, "products to sync on schedule")
	rootCmd.Flags().Duration("sync-interval", time.Hour, "interval between scheduled syncs")
	rootCmd.Flags().String("registry", "default", "active registry name")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("server.host", rootCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", rootCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("tls.enabled", rootCmd.Flags().Lookup("tls"))
	_ = viper.BindPFlag("tls.domains", rootCmd.Flags().Lookup("tls-domains"))
	_ = viper.BindPFlag("tls.email", rootCmd.Flags().Lookup("tls-email"))
	_ = viper.BindPFlag("server.cors.allowed_origins", rootCmd.Flags().Lookup("cors"))
	_ = viper.BindPFlag("sync.products", rootCmd.Flags().Lookup("sync-products"))
	_ = viper.BindPFlag("sync.interval", rootCmd.Flags().Lookup("sync-interval"))

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(syncCmd)
}

// applyActiveRegistryFlag overrides the innermost (active) configured
// registry's name with the --registry flag, when the caller set it. The
// flag is kept separate from viper's "registries" key since that is now a
// list rather than a single mapstructure-bound section.
func applyActiveRegistryFlag(cmd *cobra.Command, cfg *config.Config) {
	flag := cmd.Flags().Lookup("registry")
	if flag == nil || !flag.Changed || len(cfg.Registries) == 0 {
		return
	}
	cfg.Registries[len(cfg.Registries)-1].Name = flag.Value.String()
}

func initConfig() {
	config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyActiveRegistryFlag(cmd, cfg)

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting pansat",
		"version", version,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"registry", cfg.Registries[len(cfg.Registries)-1].Name,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "address", cfg.Server.Address())
		if err := application.Start(ctx); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		logger.Error("server error", "error", err)
		cancel()
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	logger.Info("shutting down server")
	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}

	logger.Info("server stopped")
	return nil
}

func runSyncOnce(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyActiveRegistryFlag(cmd, cfg)

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx := context.Background()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() { _ = application.Shutdown(ctx) }()

	if len(cfg.Sync.Products) == 0 {
		return fmt.Errorf("no products configured under sync.products")
	}

	now := time.Now()
	tr := domain.NewTimeRange(now.Add(-cfg.Sync.Window), now)
	result, err := application.RegistryService.Sync(ctx, cfg.Sync.Products, tr)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	logger.Info("sync complete",
		"files_found", result.FilesFound,
		"files_downloaded", result.FilesDownloaded,
		"granules_added", result.GranulesAdded,
	)
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(time.Now().UTC().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
