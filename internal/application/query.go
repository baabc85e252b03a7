package application

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/pansat-go/pansat/internal/domain"
	"github.com/pansat-go/pansat/internal/index"
	"github.com/pansat-go/pansat/internal/match"
	"github.com/pansat-go/pansat/internal/ports/input"
	"github.com/pansat-go/pansat/internal/ports/output"
	"github.com/pansat-go/pansat/internal/registry"
)

// QueryService answers granule lookups and cross-product matches against
// the active registry.
type QueryService struct {
	reg     *registry.Registry
	metrics output.MetricsCollector
	logger  *slog.Logger
}

// QueryServiceConfig holds configuration for the query service.
type QueryServiceConfig struct{}

// NewQueryService creates a new query service.
func NewQueryService(reg *registry.Registry, metrics output.MetricsCollector, logger *slog.Logger, _ QueryServiceConfig) *QueryService {
	return &QueryService{reg: reg, metrics: metrics, logger: logger}
}

// Find returns every known granule for req.Product overlapping its time
// span and, if set, its region.
func (s *QueryService) Find(ctx context.Context, req input.FindRequest) ([]domain.Granule, error) {
	start := time.Now()

	product, err := output.LookupProduct(req.Product)
	if err != nil {
		s.metrics.IncQueryCount(req.Product, false)
		return nil, err
	}

	granules := s.reg.FindGranules(product, &req.TimeSpan, req.Region)

	s.metrics.IncQueryCount(req.Product, true)
	s.metrics.ObserveQueryDuration(req.Product, time.Since(start))
	_ = ctx
	return granules, nil
}

// FindMatches joins two products' granules over a shared time span.
func (s *QueryService) FindMatches(ctx context.Context, req input.MatchRequest) ([]match.Match, error) {
	start := time.Now()

	leftProduct, err := output.LookupProduct(req.LeftProduct)
	if err != nil {
		s.metrics.IncQueryCount(req.LeftProduct, false)
		return nil, err
	}
	rightProduct, err := output.LookupProduct(req.RightProduct)
	if err != nil {
		s.metrics.IncQueryCount(req.RightProduct, false)
		return nil, err
	}

	leftGranules := s.reg.FindGranules(leftProduct, &req.TimeSpan, nil)
	rightGranules := s.reg.FindGranules(rightProduct, &req.TimeSpan, nil)

	leftIdx := index.New(leftProduct)
	leftIdx.Add(leftGranules...)
	rightIdx := index.New(rightProduct)
	rightIdx.Add(rightGranules...)

	matches, err := match.FindMatches(ctx, leftIdx, rightIdx, match.Options{
		TimeDiff: req.TimeDiff,
		Merge:    req.Merge,
		Workers:  runtime.NumCPU(),
		Logger:   s.logger,
	})

	success := err == nil
	s.metrics.IncQueryCount(req.LeftProduct, success)
	s.metrics.ObserveQueryDuration(req.LeftProduct, time.Since(start))
	return matches, err
}
