// Package app provides application initialization and wiring.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pansat-go/pansat/internal/adapters/metrics"
	tlsAdapter "github.com/pansat-go/pansat/internal/adapters/tls"
	"github.com/pansat-go/pansat/internal/adapters/watcher"
	"github.com/pansat-go/pansat/internal/application"
	"github.com/pansat-go/pansat/internal/config"
	"github.com/pansat-go/pansat/internal/domain"
	"github.com/pansat-go/pansat/internal/httpapi"
	"github.com/pansat-go/pansat/internal/pansatctx"
	"github.com/pansat-go/pansat/internal/ports/output"
	"github.com/pansat-go/pansat/internal/providers/azureblob"
	"github.com/pansat-go/pansat/internal/providers/discrete"
	"github.com/pansat-go/pansat/internal/providers/httpidx"
	"github.com/pansat-go/pansat/internal/providers/localdir"
	"github.com/pansat-go/pansat/internal/providers/s3bucket"
	"github.com/pansat-go/pansat/internal/registry"
)

// App holds all application components.
type App struct {
	Config          *config.Config
	Logger          *slog.Logger
	Registry        *registry.Registry
	Providers       []output.Provider
	RegistryService *application.RegistryService
	QueryService    *application.QueryService
	HealthService   *application.HealthService
	SyncService     *application.SyncService
	HTTPServer      *httpapi.Server
	TLSServer       *tlsAdapter.Server
	Watcher         *watcher.Watcher
	Metrics         *metrics.Collector
	ctx             *pansatctx.Context
}

// New creates and initializes a new application.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
		ctx:    pansatctx.Default(),
	}
	app.ctx.SetConfig(cfg)

	var metricsCollector output.MetricsCollector
	if cfg.Metrics.Enabled {
		app.Metrics = metrics.NewCollector("pansat")
		metricsCollector = app.Metrics
	} else {
		metricsCollector = &output.NoOpMetrics{}
	}

	providers, err := initProviders(ctx, cfg.Providers)
	if err != nil {
		return nil, fmt.Errorf("initializing providers: %w", err)
	}
	app.Providers = providers

	if err := os.MkdirAll(cfg.Sync.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating sync data directory: %w", err)
	}

	reg, err := buildRegistryChain(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening registry chain: %w", err)
	}
	app.Registry = reg
	app.ctx.SetActiveRegistry(reg)

	if cfg.OnTheFly {
		if _, err := app.ctx.OnTheFly(func() (*registry.Registry, error) {
			dd, err := registry.NewOnTheFlyDataDir(reg)
			if err != nil {
				return nil, err
			}
			return dd.Registry, nil
		}); err != nil {
			return nil, fmt.Errorf("initializing on-the-fly registry: %w", err)
		}
	}

	app.RegistryService = application.NewRegistryService(reg, providers, metricsCollector, logger, cfg.Sync.DataDir)
	app.QueryService = application.NewQueryService(reg, metricsCollector, logger, application.QueryServiceConfig{})
	app.HealthService = application.NewHealthService(app.RegistryService)

	if len(cfg.Sync.Products) > 0 {
		app.SyncService = application.NewSyncService(app.RegistryService, cfg.Sync.Products, cfg.Sync.Window, cfg.Sync.Interval, logger)
	}

	app.HTTPServer = httpapi.NewServer(
		cfg.Server,
		app.QueryService,
		app.RegistryService,
		app.HealthService,
		app.SyncService,
		logger,
	)

	if cfg.TLS.Enabled {
		tlsServer, err := tlsAdapter.NewServer(
			tlsAdapter.Config{
				Enabled:  cfg.TLS.Enabled,
				Domains:  cfg.TLS.Domains,
				Email:    cfg.TLS.Email,
				CacheDir: cfg.TLS.CacheDir,
				Staging:  cfg.TLS.Staging,
			},
			app.HTTPServer.Router(),
			logger,
		)
		if err != nil {
			return nil, fmt.Errorf("initializing TLS: %w", err)
		}
		app.TLSServer = tlsServer
	}

	if cfg.Watch.Enabled {
		w, err := watcher.New(
			watcher.Config{
				Paths:    cfg.Watch.Paths,
				Debounce: cfg.Watch.Debounce,
			},
			app.handleFileEvent,
			logger,
		)
		if err != nil {
			logger.Warn("failed to initialize file watcher", "error", err)
		} else {
			app.Watcher = w
		}
	}

	return app, nil
}

// Start starts all application components.
func (a *App) Start(ctx context.Context) error {
	if a.SyncService != nil {
		a.SyncService.Start(ctx)
	}

	if a.Watcher != nil {
		if err := a.Watcher.Start(ctx); err != nil {
			a.Logger.Warn("failed to start file watcher", "error", err)
		}
	}

	if a.Config.TLS.Enabled && a.TLSServer != nil {
		return a.TLSServer.ListenAndServe(a.Config.Server.Address())
	}
	return a.HTTPServer.Start()
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application")

	if a.Watcher != nil {
		_ = a.Watcher.Stop()
	}

	if a.SyncService != nil {
		a.SyncService.Stop()
	}

	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		a.Logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := a.Registry.Close(); err != nil {
		a.Logger.Error("registry close error", "error", err)
	}

	if err := a.ctx.Cleanup(); err != nil {
		a.Logger.Error("context cleanup error", "error", err)
	}

	return nil
}

// handleFileEvent handles file system events for hot-reload: a file dropped
// into a watched sync data directory is re-synced into the registry as soon
// as it settles, without waiting for the next scheduled sync.
func (a *App) handleFileEvent(ctx context.Context, event watcher.Event) error {
	a.Logger.Info("file event", "path", event.Path, "operation", event.Operation.String())

	switch event.Operation {
	case watcher.OpCreate, watcher.OpModify:
		if a.SyncService == nil {
			return nil
		}
		now := time.Now()
		tr := domain.NewTimeRange(now.Add(-a.Config.Sync.Window), now)
		_, err := a.RegistryService.Sync(ctx, a.Config.Sync.Products, tr)
		return err
	case watcher.OpDelete:
		// Deleted files are left indexed; a full resync will reconcile
		// them the next time the registry is rebuilt from disk.
		return nil
	}

	return nil
}

// buildRegistryChain opens the full parent chain of registries described by
// cfg.Registries, outermost entry first, and returns the innermost (active)
// registry. An entry with IsDataDir set opens a DataDir rooted at Path (or,
// if Path is empty, the sync data directory); otherwise it opens a bare
// index-only registry backed by an sqlite database under Path.
func buildRegistryChain(cfg *config.Config) (*registry.Registry, error) {
	var parent, active *registry.Registry

	for _, rc := range cfg.Registries {
		path := rc.Path
		if path == "" {
			path = cfg.Sync.DataDir
		}

		if rc.IsDataDir {
			if err := os.MkdirAll(path, 0o755); err != nil {
				return nil, fmt.Errorf("creating data directory for registry %q: %w", rc.Name, err)
			}
			dd, err := registry.NewDataDir(rc.Name, path, rc.Transparent, parent)
			if err != nil {
				return nil, fmt.Errorf("opening data directory registry %q: %w", rc.Name, err)
			}
			active = dd.Registry
		} else {
			dbPath := fmt.Sprintf("%s/%s.db", path, rc.Name)
			reg, err := registry.New(rc.Name, dbPath, rc.Transparent, parent)
			if err != nil {
				return nil, fmt.Errorf("opening registry %q: %w", rc.Name, err)
			}
			active = reg
		}

		parent = active
	}

	return active, nil
}

// initProviders builds one output.Provider per configured entry.
func initProviders(ctx context.Context, cfgs []config.ProviderConfig) ([]output.Provider, error) {
	providers := make([]output.Provider, 0, len(cfgs))

	for _, c := range cfgs {
		var p output.Provider
		var err error

		switch c.Kind {
		case "localdir":
			p = localdir.New(c.Name, c.BasePath)

		case "s3":
			p, err = s3bucket.New(ctx, c.Name, s3bucket.Config{
				Bucket:          c.Bucket,
				Region:          c.Region,
				Prefix:          c.Prefix,
				Endpoint:        c.Endpoint,
				AccessKeyID:     c.AccessKeyID,
				SecretAccessKey: c.SecretAccessKey,
			})

		case "azureblob":
			p, err = azureblob.New(c.Name, azureblob.Config{
				Container:        c.Container,
				AccountName:      c.AccountName,
				AccountKey:       c.AccountKey,
				ConnectionString: c.ConnectionString,
				Prefix:           c.Prefix,
			})

		case "httpidx":
			p = httpidx.New(c.Name, httpidx.Config{
				BaseURL:   c.BaseURL,
				IndexFile: c.IndexFile,
				Timeout:   c.Timeout,
				Username:  c.Username,
				Password:  c.Password,
			})

		default:
			return nil, fmt.Errorf("unknown provider kind: %s", c.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("initializing provider %q: %w", c.Name, err)
		}

		if c.Granularity != "" {
			p = discrete.New(c.Name, p, parseGranularity(c.Granularity))
		}

		providers = append(providers, p)
	}

	return providers, nil
}

func parseGranularity(s string) discrete.Granularity {
	switch s {
	case "month":
		return discrete.Month
	case "year":
		return discrete.Year
	default:
		return discrete.Day
	}
}
