package registry

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pansat-go/pansat/internal/domain"
	"github.com/pansat-go/pansat/internal/ports/output"
)

type fakeProduct struct {
	name   string
	prefix string
}

func (p *fakeProduct) Name() string                     { return p.name }
func (p *fakeProduct) MatchesFilename(f string) bool     { return strings.HasPrefix(f, p.prefix) }
func (p *fakeProduct) TemporalCoverage(rec domain.FileRecord) (domain.TimeRange, error) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return domain.NewTimeRange(now, now.Add(time.Hour)), nil
}
func (p *fakeProduct) SpatialCoverage(rec domain.FileRecord) (domain.Geometry, error) { return nil, nil }
func (p *fakeProduct) DefaultFilename(start domain.TimeRange) string                 { return p.prefix + "_x.nc" }
func (p *fakeProduct) Open(domain.FileRecord) (domain.Dataset, error)                { return nil, nil }

func newTestRegistry(t *testing.T, name string, transparent bool, parent *Registry) *Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".db")
	reg, err := New(name, path, transparent, parent)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = reg.Close() })
	return reg
}

func TestRegistryAddAndFindGranules(t *testing.T) {
	reg := newTestRegistry(t, "test", false, nil)
	prod := &fakeProduct{name: "alpha", prefix: "A"}

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g := domain.NewWholeFileGranule(
		domain.NewLocalFileRecord("/data/a.nc", "a.nc", "alpha"),
		domain.NewTimeRange(start, start.Add(time.Hour)), nil)

	if err := reg.Add(context.Background(), prod, []domain.Granule{g}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if !reg.Provides(prod) {
		t.Error("Provides = false; want true after Add")
	}
	if reg.GranuleCount(prod) != 1 {
		t.Errorf("GranuleCount = %d; want 1", reg.GranuleCount(prod))
	}

	wide := domain.NewTimeRange(start.Add(-time.Hour), start.Add(2*time.Hour))
	got := reg.FindGranules(prod, &wide, nil)
	if len(got) != 1 {
		t.Fatalf("len(FindGranules) = %d; want 1", len(got))
	}

	all := reg.FindGranules(prod, nil, nil)
	if len(all) != 1 {
		t.Fatalf("FindGranules(nil, nil) = %d; want 1 (all granules)", len(all))
	}
}

func TestRegistryFindFilesPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	prod := &fakeProduct{name: "alpha", prefix: "A"}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g := domain.NewWholeFileGranule(
		domain.NewLocalFileRecord("/data/a.nc", "a.nc", "alpha"),
		domain.NewTimeRange(start, start.Add(time.Hour)), nil)

	reg1, err := New("test", path, false, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := reg1.Add(context.Background(), prod, []domain.Granule{g}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := reg1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reg2, err := New("test", path, false, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reg2.Close() }()

	wide := domain.NewTimeRange(start.Add(-time.Hour), start.Add(2*time.Hour))
	recs, err := reg2.FindFiles(context.Background(), prod, &wide, nil)
	if err != nil {
		t.Fatalf("FindFiles: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("len(recs) = %d; want 1 (on-disk store should survive reopen)", len(recs))
	}
}

func TestRegistryTransparentFallsThroughToParent(t *testing.T) {
	parent := newTestRegistry(t, "parent", false, nil)
	prod := &fakeProduct{name: "alpha", prefix: "A"}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g := domain.NewWholeFileGranule(
		domain.NewLocalFileRecord("/data/a.nc", "a.nc", "alpha"),
		domain.NewTimeRange(start, start.Add(time.Hour)), nil)
	if err := parent.Add(context.Background(), prod, []domain.Granule{g}); err != nil {
		t.Fatalf("parent.Add: %v", err)
	}

	child := newTestRegistry(t, "child", true, parent)

	if !child.Provides(prod) {
		t.Error("transparent child should report Provides via parent")
	}

	wide := domain.NewTimeRange(start.Add(-time.Hour), start.Add(2*time.Hour))
	recs, err := child.FindFiles(context.Background(), prod, &wide, nil)
	if err != nil {
		t.Fatalf("FindFiles: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("len(recs) = %d; want 1 (fell through to parent)", len(recs))
	}
}

func TestRegistryProducts(t *testing.T) {
	reg := newTestRegistry(t, "test", false, nil)
	prod := &fakeProduct{name: "alpha", prefix: "A"}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g := domain.NewWholeFileGranule(
		domain.NewLocalFileRecord("/data/a.nc", "a.nc", "alpha"),
		domain.NewTimeRange(start, start.Add(time.Hour)), nil)
	if err := reg.Add(context.Background(), prod, []domain.Granule{g}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	products, err := reg.Products(context.Background())
	if err != nil {
		t.Fatalf("Products: %v", err)
	}
	if len(products) != 1 || products[0] != "alpha" {
		t.Errorf("Products = %v; want [alpha]", products)
	}
}

func TestRegistryDownloadReturnsLocalPath(t *testing.T) {
	reg := newTestRegistry(t, "test", false, nil)
	rec := domain.NewLocalFileRecord("/data/a.nc", "a.nc", "alpha")

	got, err := reg.Download(context.Background(), rec, "/dest")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if got != rec.LocalPath {
		t.Errorf("Download = %q; want %q", got, rec.LocalPath)
	}
}

func TestRegistryGetLocalPathWalksToParent(t *testing.T) {
	prod := &fakeProduct{name: "alpha", prefix: "A"}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	dir := t.TempDir()
	r1Path := filepath.Join(dir, "r1.nc")
	if err := os.WriteFile(r1Path, []byte("r1"), 0o644); err != nil {
		t.Fatalf("write r1: %v", err)
	}
	r2Path := filepath.Join(dir, "r2.nc")
	if err := os.WriteFile(r2Path, []byte("r2"), 0o644); err != nil {
		t.Fatalf("write r2: %v", err)
	}

	r1 := domain.NewWholeFileGranule(
		domain.NewLocalFileRecord(r1Path, "r1.nc", "alpha"),
		domain.NewTimeRange(start, start.Add(time.Hour)), nil)
	r2 := domain.NewWholeFileGranule(
		domain.NewLocalFileRecord(r2Path, "r2.nc", "alpha"),
		domain.NewTimeRange(start, start.Add(time.Hour)), nil)

	parent := newTestRegistry(t, "parent", false, nil)
	if err := parent.Add(context.Background(), prod, []domain.Granule{r1}); err != nil {
		t.Fatalf("parent.Add: %v", err)
	}

	child := newTestRegistry(t, "child", true, parent)
	if err := child.Add(context.Background(), prod, []domain.Granule{r2}); err != nil {
		t.Fatalf("child.Add: %v", err)
	}

	found, err := child.FindFiles(context.Background(), prod, nil, nil)
	if err != nil {
		t.Fatalf("FindFiles: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("child.FindFiles(nil, nil) = %d; want 2 (R1 and R2)", len(found))
	}

	got, err := child.GetLocalPath(context.Background(), prod, r1.FileRecord, nil)
	if err != nil {
		t.Fatalf("GetLocalPath: %v", err)
	}
	if got != r1Path {
		t.Errorf("GetLocalPath(R1) = %q; want %q (resolved by walking to parent)", got, r1Path)
	}

	got2, err := child.GetLocalPath(context.Background(), prod, r2.FileRecord, nil)
	if err != nil {
		t.Fatalf("GetLocalPath: %v", err)
	}
	if got2 != r2Path {
		t.Errorf("GetLocalPath(R2) = %q; want %q (resolved locally)", got2, r2Path)
	}
}

var _ output.Product = (*fakeProduct)(nil)
