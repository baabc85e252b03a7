// Package registry implements the Registry/DataDir hierarchy: a catalog of
// locally-known files that transparently falls through to a parent registry
// when a product is not tracked locally.
package registry

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/pansat-go/pansat/internal/catalog"
	"github.com/pansat-go/pansat/internal/domain"
	"github.com/pansat-go/pansat/internal/ports/output"
	"github.com/pansat-go/pansat/internal/store/sqlitecat"
)

// Registry is a catalog that also behaves as a LookupOnlyProvider: its
// Download is a deliberate no-op, since a registry never fetches remote
// bytes itself, only tracks what a DataDir (or its parent) already knows.
type Registry struct {
	mu          sync.RWMutex
	name        string
	cat         *catalog.Catalog
	store       *sqlitecat.Store
	transparent bool
	parent      *Registry
}

// New creates a registry backed by an index database at dbPath. If
// transparent is true and parent is non-nil, queries that miss locally fall
// through to parent.
func New(name, dbPath string, transparent bool, parent *Registry) (*Registry, error) {
	store, err := sqlitecat.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &Registry{
		name:        name,
		cat:         catalog.New(),
		store:       store,
		transparent: transparent,
		parent:      parent,
	}, nil
}

// Name returns the registry's identifier; Registry satisfies output.Provider
// so it can be queried by a DataDir like any other provider.
func (r *Registry) Name() string { return r.name }

// Provides reports whether product is tracked by this registry or, when
// transparent, by one of its ancestors.
func (r *Registry) Provides(product output.Product) bool {
	r.mu.RLock()
	provides := r.cat.Has(product.Name())
	r.mu.RUnlock()

	if r.transparent && r.parent != nil {
		return r.parent.Provides(product) || provides
	}
	return provides
}

// FindFiles returns every locally-known file for product overlapping tr (or
// every file, if tr is nil), deduplicated by local path, falling through to
// the parent registry first when transparent.
func (r *Registry) FindFiles(ctx context.Context, product output.Product, tr *domain.TimeRange, roi domain.Geometry) ([]domain.FileRecord, error) {
	var recs []domain.FileRecord
	seen := map[string]struct{}{}

	if r.transparent && r.parent != nil {
		parentRecs, err := r.parent.FindFiles(ctx, product, tr, roi)
		if err != nil {
			return nil, err
		}
		for _, rec := range parentRecs {
			if _, ok := seen[rec.LocalPath]; !ok {
				recs = append(recs, rec)
				seen[rec.LocalPath] = struct{}{}
			}
		}
	}

	granules, err := r.store.Query(ctx, product.Name(), tr, roi)
	if err != nil {
		return nil, err
	}
	for _, g := range granules {
		if _, ok := seen[g.FileRecord.LocalPath]; !ok {
			recs = append(recs, g.FileRecord)
			seen[g.FileRecord.LocalPath] = struct{}{}
		}
	}
	return recs, nil
}

// Find satisfies output.Provider by returning every locally-known file for
// product overlapping tr, equivalent to FindFiles with no region filter.
func (r *Registry) Find(ctx context.Context, product output.Product, tr domain.TimeRange) ([]domain.FileRecord, error) {
	return r.FindFiles(ctx, product, &tr, nil)
}

// FindGranules is the in-memory counterpart of FindFiles, returning granules
// instead of file records, without consulting the on-disk store. If tr and
// roi are both nil, FindGranules returns every granule known for product.
func (r *Registry) FindGranules(product output.Product, tr *domain.TimeRange, roi domain.Geometry) []domain.Granule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cat.Find(product, tr, roi)
}

// Products returns the names of every product this registry's on-disk store
// has an index table for.
func (r *Registry) Products(ctx context.Context) ([]string, error) {
	return r.store.Products(ctx)
}

// GranuleCount returns the number of granules currently held in memory for
// product, or 0 if the registry has never indexed it.
func (r *Registry) GranuleCount(product output.Product) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.cat.Has(product.Name()) {
		return 0
	}
	return len(r.cat.Index(product).Granules)
}

// Add records a file's granules in this registry and, if transparent,
// propagates them up the parent chain as well.
func (r *Registry) Add(ctx context.Context, product output.Product, granules []domain.Granule) error {
	r.mu.Lock()
	r.cat.Index(product).Add(granules...)
	r.mu.Unlock()

	if _, err := r.store.InsertGranules(ctx, product.Name(), granules); err != nil {
		return err
	}

	if r.transparent && r.parent != nil {
		return r.parent.Add(ctx, product, granules)
	}
	return nil
}

// localRecord looks up rec's own index entry for product by filename,
// without consulting the parent chain.
func (r *Registry) localRecord(ctx context.Context, product output.Product, filename string) (domain.FileRecord, bool, error) {
	granules, err := r.store.Query(ctx, product.Name(), nil, nil)
	if err != nil {
		return domain.FileRecord{}, false, err
	}
	for _, g := range granules {
		if g.FileRecord.Filename == filename {
			return g.FileRecord, true, nil
		}
	}
	return domain.FileRecord{}, false, nil
}

// GetLocalPath resolves rec's local filesystem path for product. This
// registry's own index is consulted first; if it has no entry for rec, or
// the path it has recorded no longer exists on disk, a warning is logged
// and the lookup delegates to the parent registry.
func (r *Registry) GetLocalPath(ctx context.Context, product output.Product, rec domain.FileRecord, logger *slog.Logger) (string, error) {
	local, found, err := r.localRecord(ctx, product, rec.Filename)
	if err != nil {
		return "", err
	}

	if found {
		if _, statErr := os.Stat(local.LocalPath); statErr == nil {
			return local.LocalPath, nil
		}
	}

	if r.parent == nil {
		if found {
			return local.LocalPath, nil
		}
		return "", &domain.StorageError{Operation: "get_local_path", Key: rec.Filename, Err: domain.ErrNotFound}
	}

	if logger != nil {
		dataDir, _ := getActiveDataDir(r)
		logger.Warn("local path not usable, delegating to parent registry",
			"registry", r.name, "filename", rec.Filename, "found", found, "active_data_dir", dataDir)
	}
	return r.parent.GetLocalPath(ctx, product, rec, logger)
}

// Download satisfies output.Provider. A registry never fetches remote
// bytes: it only tracks what is already known, so Download returns rec's
// LocalPath unchanged and ignores destination.
func (r *Registry) Download(_ context.Context, rec domain.FileRecord, _ string) (string, error) {
	return rec.LocalPath, nil
}

// Close releases the registry's underlying index database handle.
func (r *Registry) Close() error {
	return r.store.Close()
}

var _ output.LookupOnlyProvider = (*Registry)(nil)
