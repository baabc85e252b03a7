// Package input defines the primary/driving ports of the application.
package input

import (
	"context"
	"time"

	"github.com/pansat-go/pansat/internal/domain"
	"github.com/pansat-go/pansat/internal/match"
)

// FindRequest describes a granule lookup against a single product.
type FindRequest struct {
	Product  string
	TimeSpan domain.TimeRange
	Region   domain.Geometry // nil means no spatial filter
}

// MatchRequest describes a cross-product temporal/spatial join.
type MatchRequest struct {
	LeftProduct  string
	RightProduct string
	TimeSpan     domain.TimeRange
	TimeDiff     time.Duration
	Merge        bool
}

// QueryService defines the primary port for catalog lookups.
type QueryService interface {
	// Find returns every known granule for req.Product overlapping req.TimeSpan
	// (and req.Region, if set), downloading nothing.
	Find(ctx context.Context, req FindRequest) ([]domain.Granule, error)

	// FindMatches performs a temporal/spatial join between two products'
	// granules.
	FindMatches(ctx context.Context, req MatchRequest) ([]match.Match, error)
}

// RegistryService defines the primary port for registry/catalog management.
type RegistryService interface {
	// Products returns the names of every product with at least one
	// indexed granule.
	Products(ctx context.Context) ([]string, error)

	// GranuleCount returns the number of granules indexed for product.
	GranuleCount(ctx context.Context, product string) (int, error)

	// Sync downloads and registers any files a configured provider has that
	// the active registry does not yet know about, for the given products.
	Sync(ctx context.Context, products []string, tr domain.TimeRange) (SyncResult, error)
}

// SyncResult reports the outcome of a Sync call.
type SyncResult struct {
	FilesFound      int
	FilesDownloaded int
	GranulesAdded   int
	SyncedAt        time.Time
	NextScheduledAt time.Time
}

// HealthChecker defines the primary port for health checks.
type HealthChecker interface {
	IsHealthy(ctx context.Context) bool
	IsReady(ctx context.Context) bool
	GetHealthDetails(ctx context.Context) HealthDetails
}

// HealthDetails contains detailed health information.
type HealthDetails struct {
	Healthy         bool
	Ready           bool
	ProductsTracked int
	Components      map[string]string
}
