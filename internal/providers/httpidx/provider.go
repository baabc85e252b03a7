// Package httpidx implements an output.Provider backed by a plain HTTP(S)
// file server advertising its contents through an index file, adapted from
// the engine's HTTP storage adapter.
package httpidx

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pansat-go/pansat/internal/domain"
	"github.com/pansat-go/pansat/internal/ports/output"
	"github.com/pansat-go/pansat/internal/providers"
)

// Config configures a Provider.
type Config struct {
	BaseURL   string
	IndexFile string // default: index.txt
	Timeout   time.Duration
	Username  string
	Password  string
}

// Provider lists files advertised by a remote index file and downloads them
// over HTTP(S).
type Provider struct {
	name      string
	client    *http.Client
	baseURL   string
	indexFile string
	username  string
	password  string
}

// New creates a provider for the given configuration.
func New(name string, cfg Config) *Provider {
	if cfg.IndexFile == "" {
		cfg.IndexFile = "index.txt"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &Provider{
		name:      name,
		client:    &http.Client{Timeout: cfg.Timeout},
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		indexFile: cfg.IndexFile,
		username:  cfg.Username,
		password:  cfg.Password,
	}
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) authenticate(req *http.Request) {
	if p.username != "" && p.password != "" {
		req.SetBasicAuth(p.username, p.password)
	}
}

// Find fetches the index file and matches its listed filenames against
// product's naming convention and temporal coverage.
func (p *Provider) Find(ctx context.Context, product output.Product, tr domain.TimeRange) ([]domain.FileRecord, error) {
	indexURL := p.baseURL + "/" + p.indexFile

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, indexURL, nil)
	if err != nil {
		return nil, err
	}
	p.authenticate(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &domain.CommunicationError{Provider: p.name, Op: "list", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.CommunicationError{Provider: p.name, Op: "list", Err: fmt.Errorf("index file returned status %d", resp.StatusCode)}
	}

	var objects []providers.RemoteObject
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		objects = append(objects, providers.RemoteObject{Key: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading index file: %w", err)
	}

	return providers.MatchRemoteObjects(product, p.name, objects, tr), nil
}

// Download fetches rec's remote path and writes it to destination.
func (p *Provider) Download(ctx context.Context, rec domain.FileRecord, destination string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(destination), 0o750); err != nil {
		return "", err
	}

	fileURL := p.baseURL + "/" + rec.RemotePath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", err
	}
	p.authenticate(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &domain.CommunicationError{Provider: p.name, Op: "download", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &domain.CommunicationError{Provider: p.name, Op: "download", Err: fmt.Errorf("download returned status %d for %s", resp.StatusCode, rec.RemotePath)}
	}

	f, err := os.Create(destination) //#nosec G304 -- destination is a controlled local path
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", err
	}
	return destination, nil
}

// Provides reports true unconditionally: any product advertised by the
// remote index file can be served from here.
func (p *Provider) Provides(output.Product) bool { return true }

var _ output.Provider = (*Provider)(nil)
