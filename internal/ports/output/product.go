package output

import (
	"fmt"

	"github.com/pansat-go/pansat/internal/domain"
)

// Product is the secondary port a data product (e.g. a specific satellite
// instrument's Level-2 files) must implement so the catalog engine can
// discover, index, and match its files without knowing anything about the
// product's internal file format.
type Product interface {
	// Name returns the product's unique, stable identifier, used as the
	// table name in the index database and as the JSON reference for
	// FileRecord.Product.
	Name() string

	// MatchesFilename reports whether a bare filename belongs to this
	// product, without requiring the file itself to be present.
	MatchesFilename(filename string) bool

	// TemporalCoverage extracts the time range a file covers, from its
	// filename alone when possible, falling back to reading the file's
	// metadata when the local path is set.
	TemporalCoverage(rec domain.FileRecord) (domain.TimeRange, error)

	// SpatialCoverage extracts the geometry a file covers. Products that
	// have no meaningful spatial extent (e.g. a point station's daily
	// summary) may return a nil Geometry.
	SpatialCoverage(rec domain.FileRecord) (domain.Geometry, error)

	// DefaultFilename builds the expected filename for a file known to
	// start at the given time, used by providers that must predict a
	// remote filename before listing a directory.
	DefaultFilename(start domain.TimeRange) string

	// Open opens rec's backing file and returns the resulting Dataset.
	// Actual file I/O is product-specific; callers slice the result
	// according to the granule's GetSlices().
	Open(rec domain.FileRecord) (domain.Dataset, error)
}

// GranuleProduct is an optional refinement of Product for products whose
// files contain multiple independently addressable sub-file extents (e.g.
// one granule per orbit segment within a single swath file). When a
// registered Product also implements GranuleProduct, Granules uses it
// instead of synthesizing a single whole-file granule.
type GranuleProduct interface {
	Product
	// Granules returns every granule contained in the file referenced by
	// rec.
	Granules(rec domain.FileRecord) ([]domain.Granule, error)

	// OpenGranule opens g's backing file and returns the Dataset sliced to
	// g's index ranges.
	OpenGranule(g domain.Granule) (domain.Dataset, error)
}

var _ domain.Opener = (Product)(nil)

// Granules returns the list of granules a file record represents, using the
// GranuleProduct refinement when the product implements it, and otherwise
// building a single whole-file granule from TemporalCoverage/SpatialCoverage.
func Granules(prod Product, rec domain.FileRecord) ([]domain.Granule, error) {
	if gp, ok := prod.(GranuleProduct); ok {
		return gp.Granules(rec)
	}
	tr, err := prod.TemporalCoverage(rec)
	if err != nil {
		return nil, err
	}
	geom, err := prod.SpatialCoverage(rec)
	if err != nil {
		return nil, err
	}
	return []domain.Granule{domain.NewWholeFileGranule(rec, tr, geom)}, nil
}

var productRegistry = map[string]Product{}

// RegisterProduct adds a product to the process-wide immutable product
// registry, used to resolve FileRecord.ProductName back into a Product when
// deserializing catalogs and granules. Intended to be called from package
// init() functions; it panics on a duplicate name since two products
// registering under the same name is always a programming error.
func RegisterProduct(p Product) {
	if _, exists := productRegistry[p.Name()]; exists {
		panic(fmt.Sprintf("product %q already registered", p.Name()))
	}
	productRegistry[p.Name()] = p
}

// LookupProduct resolves a product name to its registered Product.
func LookupProduct(name string) (Product, error) {
	p, ok := productRegistry[name]
	if !ok {
		return nil, &domain.LookupError{Product: name, Query: "registry lookup"}
	}
	return p, nil
}
