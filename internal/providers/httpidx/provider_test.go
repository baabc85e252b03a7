package httpidx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
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

func TestFindParsesIndexFile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/index.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# comment\nA_001.nc\nB_001.nc\n\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := New("remote", Config{BaseURL: srv.URL})
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	prod := &fakeProduct{name: "alpha", prefix: "A", cover: domain.NewTimeRange(start, start.Add(time.Hour))}

	tr := domain.NewTimeRange(start.Add(-time.Hour), start.Add(2*time.Hour))
	recs, err := p.Find(context.Background(), prod, tr)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(recs) != 1 || recs[0].Filename != "A_001.nc" {
		t.Fatalf("recs = %+v; want single A_001.nc record", recs)
	}
}

func TestFindNonOKStatusReturnsCommunicationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := New("remote", Config{BaseURL: srv.URL})
	tr := domain.NewTimeRange(time.Now(), time.Now().Add(time.Hour))

	_, err := p.Find(context.Background(), &fakeProduct{name: "alpha", prefix: "A"}, tr)
	if err == nil {
		t.Fatal("expected error for non-200 index response")
	}
	var commErr *domain.CommunicationError
	if !asCommunicationError(err, &commErr) {
		t.Errorf("error = %v; want *domain.CommunicationError", err)
	}
}

func asCommunicationError(err error, target **domain.CommunicationError) bool {
	ce, ok := err.(*domain.CommunicationError)
	if ok {
		*target = ce
	}
	return ok
}

func TestDownloadWritesFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	p := New("remote", Config{BaseURL: srv.URL})
	rec := domain.NewRemoteFileRecord("alpha", "remote", "A_001.nc", "A_001.nc")

	dest := filepath.Join(t.TempDir(), "out.nc")
	got, err := p.Download(context.Background(), rec, dest)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if got != dest {
		t.Errorf("Download = %q; want %q", got, dest)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("contents = %q; want payload", data)
	}
}

func TestDownloadAppliesBasicAuth(t *testing.T) {
	var gotUser, gotPass string
	var gotOK bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, gotOK = r.BasicAuth()
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	p := New("remote", Config{BaseURL: srv.URL, Username: "alice", Password: "secret"})
	rec := domain.NewRemoteFileRecord("alpha", "remote", "A_001.nc", "A_001.nc")

	if _, err := p.Download(context.Background(), rec, filepath.Join(t.TempDir(), "out.nc")); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if !gotOK || gotUser != "alice" || gotPass != "secret" {
		t.Errorf("BasicAuth = (%q, %q, %v); want (alice, secret, true)", gotUser, gotPass, gotOK)
	}
}
