package output

import (
	"context"

	"github.com/pansat-go/pansat/internal/domain"
)

// IndexRepository is the secondary port for the on-disk granule index: a
// durable, queryable store of the granules known for each product, keyed by
// product name, backed by one table per product in a shared database file.
type IndexRepository interface {
	// InsertGranules idempotently records granules for a product. Granules
	// that are already present (same filename and index ranges) are left
	// untouched.
	InsertGranules(ctx context.Context, product string, granules []domain.Granule) (inserted int, err error)

	// Query returns every granule recorded for product whose time range
	// overlaps tr (every granule, if tr is nil). bound, if non-nil,
	// additionally restricts results to granules whose geometry intersects it.
	Query(ctx context.Context, product string, tr *domain.TimeRange, bound domain.Geometry) ([]domain.Granule, error)

	// Products returns the names of every product with at least one table
	// in the index.
	Products(ctx context.Context) ([]string, error)

	// Close releases the underlying database handle.
	Close() error
}
