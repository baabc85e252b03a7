// Package download resolves a product's missing files against a set of
// providers and pulls them to local disk, generalizing the teacher's
// find-then-download-then-register sync loop from whole packages to
// individual product files.
package download

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/pansat-go/pansat/internal/domain"
	"github.com/pansat-go/pansat/internal/ports/output"
)

// Result summarizes one Resolve call.
type Result struct {
	FilesFound      int
	FilesDownloaded int
	Downloaded      []domain.FileRecord // local records ready for granule extraction
}

// Resolver finds and downloads files for a product across a fixed set of
// providers, skipping any whose remote path is already known to the
// caller.
type Resolver struct {
	Providers   []output.Provider
	DownloadDir string
	Metrics     output.MetricsCollector
	Logger      *slog.Logger
}

// Resolve queries every provider whose Provides(product) reports true for
// product's files overlapping tr, and returns a *domain.LookupError if none
// does. Files whose RemotePath is not present in known are downloaded. known is
// updated in place as new files are downloaded, so a Resolver can be
// reused across calls without re-downloading a file a prior call already
// pulled.
func (r *Resolver) Resolve(ctx context.Context, product output.Product, tr domain.TimeRange, known map[string]struct{}) (Result, error) {
	var result Result

	var providers []output.Provider
	for _, provider := range r.Providers {
		if provider.Provides(product) {
			providers = append(providers, provider)
		}
	}
	if len(providers) == 0 {
		return result, &domain.LookupError{Product: product.Name(), Query: tr.String()}
	}

	for _, provider := range providers {
		start := time.Now()
		recs, err := provider.Find(ctx, product, tr)
		r.observe(provider.Name(), "find", start, err)
		if err != nil {
			r.Logger.Error("provider find failed", "provider", provider.Name(), "product", product.Name(), "error", err)
			continue
		}
		result.FilesFound += len(recs)

		for _, rec := range recs {
			if _, ok := known[rec.RemotePath]; ok {
				continue
			}

			dest := filepath.Join(r.DownloadDir, product.Name(), rec.Filename)

			dlStart := time.Now()
			downloaded, err := rec.Download(ctx, provider, dest)
			r.observe(provider.Name(), "download", dlStart, err)
			if err != nil {
				r.Logger.Error("download failed", "provider", provider.Name(), "file", rec.Filename, "error", err)
				continue
			}
			result.FilesDownloaded++

			known[rec.RemotePath] = struct{}{}
			result.Downloaded = append(result.Downloaded, downloaded)
		}
	}

	return result, nil
}

func (r *Resolver) observe(provider, op string, start time.Time, err error) {
	if r.Metrics == nil {
		return
	}
	r.Metrics.IncProviderOperations(provider, op, err == nil)
	r.Metrics.ObserveProviderDuration(provider, op, time.Since(start))
}
