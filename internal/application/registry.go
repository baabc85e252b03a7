// Package application contains the application services.
package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/pansat-go/pansat/internal/domain"
	"github.com/pansat-go/pansat/internal/download"
	"github.com/pansat-go/pansat/internal/ports/input"
	"github.com/pansat-go/pansat/internal/ports/output"
	"github.com/pansat-go/pansat/internal/registry"
)

// RegistryService manages the active registry's products and drives syncing
// with configured providers.
type RegistryService struct {
	reg         *registry.Registry
	providers   []output.Provider
	metrics     output.MetricsCollector
	logger      *slog.Logger
	downloadDir string

	nextSync time.Time
}

// NewRegistryService creates a registry service over reg, downloading into
// downloadDir when syncing from providers.
func NewRegistryService(reg *registry.Registry, providers []output.Provider, metrics output.MetricsCollector, logger *slog.Logger, downloadDir string) *RegistryService {
	return &RegistryService{
		reg:         reg,
		providers:   providers,
		metrics:     metrics,
		logger:      logger,
		downloadDir: downloadDir,
	}
}

// Products returns the names of products this registry is tracking.
func (s *RegistryService) Products(ctx context.Context) ([]string, error) {
	return s.reg.Products(ctx)
}

// GranuleCount returns the number of granules indexed for the named product.
func (s *RegistryService) GranuleCount(_ context.Context, productName string) (int, error) {
	product, err := output.LookupProduct(productName)
	if err != nil {
		return 0, err
	}
	return s.reg.GranuleCount(product), nil
}

// Sync queries every configured provider for files of the given products
// overlapping tr, downloads any the registry does not already know
// locally, and registers their granules.
func (s *RegistryService) Sync(ctx context.Context, productNames []string, tr domain.TimeRange) (input.SyncResult, error) {
	var stats input.SyncResult

	resolver := &download.Resolver{
		Providers:   s.providers,
		DownloadDir: s.downloadDir,
		Metrics:     s.metrics,
		Logger:      s.logger,
	}

	for _, name := range productNames {
		product, err := output.LookupProduct(name)
		if err != nil {
			s.logger.Warn("unknown product, skipping sync", "product", name, "error", err)
			continue
		}

		known, err := s.reg.FindFiles(ctx, product, &tr, nil)
		if err != nil {
			return stats, err
		}
		knownRemote := make(map[string]struct{}, len(known))
		for _, rec := range known {
			if rec.IsRemote() {
				knownRemote[rec.RemotePath] = struct{}{}
			}
		}

		result, err := resolver.Resolve(ctx, product, tr, knownRemote)
		if err != nil {
			return stats, err
		}
		stats.FilesFound += result.FilesFound
		stats.FilesDownloaded += result.FilesDownloaded

		for _, rec := range result.Downloaded {
			granules, err := output.Granules(product, rec)
			if err != nil {
				s.logger.Error("granule extraction failed", "file", rec.Filename, "error", err)
				continue
			}

			if err := s.reg.Add(ctx, product, granules); err != nil {
				s.logger.Error("registering granules failed", "file", rec.Filename, "error", err)
				continue
			}
			stats.GranulesAdded += len(granules)
		}

		s.metrics.SetGranulesIndexed(name, s.reg.GranuleCount(product))
	}

	products, err := s.reg.Products(ctx)
	if err == nil {
		s.metrics.SetProductsTracked(len(products))
	}

	stats.SyncedAt = time.Now()
	stats.NextScheduledAt = s.nextSync

	return stats, nil
}

// SetNextSync records when the next scheduled sync will run, for reporting.
func (s *RegistryService) SetNextSync(t time.Time) { s.nextSync = t }

// NextSync returns the next scheduled sync time.
func (s *RegistryService) NextSync() time.Time { return s.nextSync }
