package providers

import (
	"strings"
	"testing"
	"time"

	"github.com/pansat-go/pansat/internal/domain"
)

type fakeProduct struct {
	name   string
	prefix string
	cover  domain.TimeRange
}

func (p *fakeProduct) Name() string                 { return p.name }
func (p *fakeProduct) MatchesFilename(f string) bool { return strings.HasPrefix(f, p.prefix) }
func (p *fakeProduct) TemporalCoverage(rec domain.FileRecord) (domain.TimeRange, error) {
	return p.cover, nil
}
func (p *fakeProduct) SpatialCoverage(rec domain.FileRecord) (domain.Geometry, error) { return nil, nil }
func (p *fakeProduct) DefaultFilename(start domain.TimeRange) string                 { return p.prefix + "_x.nc" }
func (p *fakeProduct) Open(domain.FileRecord) (domain.Dataset, error)                { return nil, nil }

func TestMatchRemoteObjectsFiltersByNameAndCoverage(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	prod := &fakeProduct{name: "alpha", prefix: "A", cover: domain.NewTimeRange(start, start.Add(time.Hour))}

	objects := []RemoteObject{
		{Key: "dir/A_001.nc"},
		{Key: "dir/B_001.nc"}, // wrong prefix
	}

	tr := domain.NewTimeRange(start.Add(-time.Hour), start.Add(2*time.Hour))
	recs := MatchRemoteObjects(prod, "provider-x", objects, tr)

	if len(recs) != 1 {
		t.Fatalf("len(recs) = %d; want 1", len(recs))
	}
	if recs[0].Filename != "A_001.nc" {
		t.Errorf("Filename = %q; want A_001.nc", recs[0].Filename)
	}
	if recs[0].RemotePath != "dir/A_001.nc" {
		t.Errorf("RemotePath = %q; want dir/A_001.nc", recs[0].RemotePath)
	}
	if recs[0].ProviderName != "provider-x" {
		t.Errorf("ProviderName = %q; want provider-x", recs[0].ProviderName)
	}
}

func TestMatchRemoteObjectsExcludesNonOverlapping(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	prod := &fakeProduct{name: "alpha", prefix: "A", cover: domain.NewTimeRange(start, start.Add(time.Hour))}

	objects := []RemoteObject{{Key: "A_001.nc"}}
	farAway := domain.NewTimeRange(start.Add(48*time.Hour), start.Add(49*time.Hour))

	recs := MatchRemoteObjects(prod, "provider-x", objects, farAway)
	if len(recs) != 0 {
		t.Errorf("len(recs) = %d; want 0", len(recs))
	}
}
