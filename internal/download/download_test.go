package download

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/pansat-go/pansat/internal/domain"
	"github.com/pansat-go/pansat/internal/ports/output"
)

type fakeProvider struct {
	name      string
	records   []domain.FileRecord
	findErr   error
	download  map[string]string // remote path -> local path
	noProvide bool
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Find(context.Context, output.Product, domain.TimeRange) ([]domain.FileRecord, error) {
	return p.records, p.findErr
}

func (p *fakeProvider) Download(_ context.Context, rec domain.FileRecord, destination string) (string, error) {
	if local, ok := p.download[rec.RemotePath]; ok {
		return local, nil
	}
	return destination, nil
}

func (p *fakeProvider) Provides(output.Product) bool { return !p.noProvide }

type stubProduct struct{ name string }

func (s stubProduct) Name() string                                            { return s.name }
func (s stubProduct) MatchesFilename(string) bool                             { return true }
func (s stubProduct) DefaultFilename(domain.TimeRange) string                 { return "" }
func (s stubProduct) SpatialCoverage(domain.FileRecord) (domain.Geometry, error) { return nil, nil }
func (s stubProduct) TemporalCoverage(domain.FileRecord) (domain.TimeRange, error) {
	return domain.TimeRange{}, nil
}
func (s stubProduct) Open(domain.FileRecord) (domain.Dataset, error) { return nil, nil }

func TestResolverSkipsKnownRemotePaths(t *testing.T) {
	product := stubProduct{name: "test-product"}
	provider := &fakeProvider{
		name: "mirror",
		records: []domain.FileRecord{
			domain.NewRemoteFileRecord(product.Name(), "mirror", "2020/a.nc", "a.nc"),
			domain.NewRemoteFileRecord(product.Name(), "mirror", "2020/b.nc", "b.nc"),
		},
	}

	resolver := &Resolver{
		Providers:   []output.Provider{provider},
		DownloadDir: t.TempDir(),
		Logger:      slog.Default(),
	}

	known := map[string]struct{}{"2020/a.nc": {}}

	result, err := resolver.Resolve(context.Background(), product, domain.TimeRange{}, known)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.FilesFound != 2 {
		t.Errorf("FilesFound = %d, want 2", result.FilesFound)
	}
	if result.FilesDownloaded != 1 {
		t.Errorf("FilesDownloaded = %d, want 1", result.FilesDownloaded)
	}
	if len(result.Downloaded) != 1 || result.Downloaded[0].Filename != "b.nc" {
		t.Errorf("expected only b.nc to be downloaded, got %v", result.Downloaded)
	}
	if _, ok := known["2020/b.nc"]; !ok {
		t.Errorf("expected known set to be updated with the newly downloaded path")
	}
}

func TestResolverContinuesAfterProviderFindError(t *testing.T) {
	product := stubProduct{name: "test-product"}
	failing := &fakeProvider{name: "broken", findErr: context.DeadlineExceeded}
	working := &fakeProvider{
		name:    "mirror",
		records: []domain.FileRecord{domain.NewRemoteFileRecord(product.Name(), "mirror", "c.nc", "c.nc")},
	}

	resolver := &Resolver{
		Providers:   []output.Provider{failing, working},
		DownloadDir: t.TempDir(),
		Logger:      slog.Default(),
	}

	result, err := resolver.Resolve(context.Background(), product, domain.TimeRange{}, map[string]struct{}{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FilesDownloaded != 1 {
		t.Errorf("FilesDownloaded = %d, want 1 (the working provider should still be tried)", result.FilesDownloaded)
	}
}

func TestResolverReturnsLookupErrorWhenNoProviderProvides(t *testing.T) {
	product := stubProduct{name: "test-product"}
	provider := &fakeProvider{name: "mirror", noProvide: true}

	resolver := &Resolver{
		Providers:   []output.Provider{provider},
		DownloadDir: t.TempDir(),
		Logger:      slog.Default(),
	}

	_, err := resolver.Resolve(context.Background(), product, domain.TimeRange{}, map[string]struct{}{})
	var lookupErr *domain.LookupError
	if !errors.As(err, &lookupErr) {
		t.Fatalf("Resolve error = %v (%T); want *domain.LookupError", err, err)
	}
}
