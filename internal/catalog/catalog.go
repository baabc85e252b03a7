// Package catalog maintains the per-product index map for a single data
// directory: the set of indices Find/FindFiles search over.
package catalog

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/pansat-go/pansat/internal/domain"
	"github.com/pansat-go/pansat/internal/index"
	"github.com/pansat-go/pansat/internal/ports/output"
)

// Catalog manages one Index per product.
type Catalog struct {
	indices map[string]*index.Index
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{indices: map[string]*index.Index{}}
}

// Index returns (creating if necessary) the index for product.
func (c *Catalog) Index(product output.Product) *index.Index {
	if idx, ok := c.indices[product.Name()]; ok {
		return idx
	}
	idx := index.New(product)
	c.indices[product.Name()] = idx
	return idx
}

// Has reports whether the catalog has an index for the named product.
func (c *Catalog) Has(productName string) bool {
	_, ok := c.indices[productName]
	return ok
}

// Products returns the names of all products the catalog has an index for.
func (c *Catalog) Products() []string {
	names := make([]string, 0, len(c.indices))
	for name := range c.indices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Find returns every granule known for product whose time range overlaps tr
// (if non-nil) and, if bound is non-nil, whose geometry intersects it. If
// both tr and bound are nil, Find returns every granule known for product.
func (c *Catalog) Find(product output.Product, tr *domain.TimeRange, bound domain.Geometry) []domain.Granule {
	idx, ok := c.indices[product.Name()]
	if !ok {
		return nil
	}
	return idx.Find(tr, bound)
}

// FromExistingFiles builds a catalog by walking root and assigning each file
// to the first product (in the given order) whose MatchesFilename accepts
// it, then extracting granules for every matched file in parallel.
func FromExistingFiles(ctx context.Context, root string, products []output.Product, nWorkers int, logger *slog.Logger) (*Catalog, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	byProduct := map[string][]domain.FileRecord{}
	for _, path := range files {
		filename := filepath.Base(path)
		for _, prod := range products {
			if prod.MatchesFilename(filename) {
				byProduct[prod.Name()] = append(byProduct[prod.Name()],
					domain.NewLocalFileRecord(path, filename, prod.Name()))
				break
			}
		}
	}

	cat := New()
	for _, prod := range products {
		recs, ok := byProduct[prod.Name()]
		if !ok {
			continue
		}
		idx := cat.Index(prod)
		if err := idx.Build(ctx, recs, nWorkers, logger); err != nil {
			return nil, err
		}
	}
	return cat, nil
}
