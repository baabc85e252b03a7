// Package index builds and holds the in-memory sorted, deduplicated table
// of granules for a single product.
package index

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/pansat-go/pansat/internal/domain"
	"github.com/pansat-go/pansat/internal/ports/output"
)

// Index holds every known granule for one product, sorted by start time
// with duplicates removed.
type Index struct {
	Product  output.Product
	Granules []domain.Granule
}

// New returns an empty index for product.
func New(product output.Product) *Index {
	return &Index{Product: product}
}

// Add inserts granules into the index, then re-sorts and deduplicates.
// Deduplication uses Granule.HashKey, so re-adding an already-known granule
// is a no-op.
func (idx *Index) Add(granules ...domain.Granule) {
	idx.Granules = append(idx.Granules, granules...)
	idx.normalize()
}

func (idx *Index) normalize() {
	sort.Slice(idx.Granules, func(i, j int) bool {
		return idx.Granules[i].TimeRange.Start.Before(idx.Granules[j].TimeRange.Start)
	})

	seen := make(map[string]struct{}, len(idx.Granules))
	out := idx.Granules[:0]
	for _, g := range idx.Granules {
		key := g.HashKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, g)
	}
	idx.Granules = out
}

// Build extracts granules from every file record in recs, in parallel across
// nWorkers goroutines, and adds them all to the index. A logger receives a
// warning for any record whose granule extraction failed; extraction errors
// do not abort the build.
func (idx *Index) Build(ctx context.Context, recs []domain.FileRecord, nWorkers int, logger *slog.Logger) error {
	if nWorkers < 1 {
		nWorkers = 1
	}

	results := make([][]domain.Granule, len(recs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(nWorkers)

	for i, rec := range recs {
		i, rec := i, rec
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			granules, err := output.Granules(idx.Product, rec)
			if err != nil {
				if logger != nil {
					logger.Warn("failed to extract granules", "filename", rec.Filename, "error", err)
				}
				return nil
			}
			results[i] = granules
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, granules := range results {
		idx.Add(granules...)
	}
	return nil
}

// Find returns every granule whose time range overlaps tr (if non-nil) and,
// if bound is non-nil, whose geometry also intersects bound. If both tr and
// bound are nil, Find returns every granule in the index, in ascending
// start-time order.
func (idx *Index) Find(tr *domain.TimeRange, bound domain.Geometry) []domain.Granule {
	if tr == nil && bound == nil {
		out := make([]domain.Granule, len(idx.Granules))
		copy(out, idx.Granules)
		return out
	}

	var out []domain.Granule
	for _, g := range idx.Granules {
		if tr != nil && !g.TimeRange.Covers(*tr) {
			continue
		}
		if bound != nil && g.Geometry != nil && !g.Geometry.Intersects(bound) {
			continue
		}
		out = append(out, g)
	}
	return out
}
