package output

import (
	"context"

	"github.com/pansat-go/pansat/internal/domain"
)

// Provider is the secondary port for an entity from which a product's files
// can be found and downloaded: a data center's HTTP index, an S3 bucket, an
// Azure container, or a local mirror directory.
type Provider interface {
	// Name returns the provider's stable identifier, stored on FileRecord
	// so a later download can find its way back to this provider.
	Name() string

	// Find returns the file records available from this provider for the
	// given product whose coverage intersects the requested time range.
	Find(ctx context.Context, product Product, tr domain.TimeRange) ([]domain.FileRecord, error)

	// Download retrieves rec's remote file into destination (a directory
	// or full file path) and returns the local path written.
	Download(ctx context.Context, rec domain.FileRecord, destination string) (string, error)

	// Provides reports whether this provider can ever serve files for
	// product, letting callers short-circuit Find/Download against
	// providers that would never match.
	Provides(product Product) bool
}

// LookupOnlyProvider is a Provider whose Download is a deliberate no-op: it
// can be queried to discover what exists, but never fetches bytes. The
// in-process DataDir wrapping a Registry's Catalog is exactly this kind of
// provider, per Registry.Download's contract.
type LookupOnlyProvider interface {
	Provider
}
