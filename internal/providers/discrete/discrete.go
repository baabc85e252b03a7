// Package discrete wraps an output.Provider whose backing store is only
// efficiently enumerable one day (or month, or year) at a time, querying it
// once per calendar unit in the requested range instead of listing its
// entire contents.
package discrete

import (
	"context"
	"time"

	"github.com/pansat-go/pansat/internal/domain"
	"github.com/pansat-go/pansat/internal/ports/output"
)

// Granularity is the calendar unit a discrete provider is walked by.
type Granularity int

const (
	Day Granularity = iota
	Month
	Year
)

// Provider walks time.Range one calendar unit at a time, delegating each
// unit's lookup to an inner provider whose Find is expected to be scoped
// efficiently to that unit (for example because its remote layout places
// one directory per day). The requested range is padded by one unit on each
// side so that a granule spanning a unit boundary is not missed.
type Provider struct {
	name        string
	inner       output.Provider
	granularity Granularity
}

// New wraps inner, walking tr by granularity when Find is called.
func New(name string, inner output.Provider, granularity Granularity) *Provider {
	return &Provider{name: name, inner: inner, granularity: granularity}
}

func (p *Provider) Name() string { return p.name }

// Find walks the requested range one calendar unit at a time, merging and
// deduplicating the inner provider's results by remote path.
func (p *Provider) Find(ctx context.Context, product output.Product, tr domain.TimeRange) ([]domain.FileRecord, error) {
	seen := map[string]struct{}{}
	var out []domain.FileRecord

	start := p.truncate(tr.Start.Add(-p.unitDuration(tr.Start)))
	end := tr.End.Add(p.unitDuration(tr.End))

	for t := start; t.Before(end); t = p.next(t) {
		unitRange := domain.NewTimeRange(t, p.next(t))
		recs, err := p.inner.Find(ctx, product, unitRange)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			key := rec.RemotePath
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, rec)
		}
	}
	return out, nil
}

// Download delegates to the inner provider.
func (p *Provider) Download(ctx context.Context, rec domain.FileRecord, destination string) (string, error) {
	return p.inner.Download(ctx, rec, destination)
}

func (p *Provider) truncate(t time.Time) time.Time {
	switch p.granularity {
	case Month:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	case Year:
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
}

func (p *Provider) next(t time.Time) time.Time {
	switch p.granularity {
	case Month:
		return t.AddDate(0, 1, 0)
	case Year:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

func (p *Provider) unitDuration(t time.Time) time.Duration {
	return p.next(t).Sub(t)
}

// Provides delegates to the wrapped provider.
func (p *Provider) Provides(product output.Product) bool { return p.inner.Provides(product) }

var _ output.Provider = (*Provider)(nil)
