// Package localdir implements an output.Provider backed by a local
// filesystem directory, adapted from the engine's storage adapters.
package localdir

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pansat-go/pansat/internal/domain"
	"github.com/pansat-go/pansat/internal/ports/output"
	"github.com/pansat-go/pansat/internal/providers"
)

// Provider lists and serves files from a directory tree on disk. Download is
// a plain copy, since "remote" and "local" are the same filesystem.
type Provider struct {
	name     string
	basePath string
}

// New creates a provider rooted at basePath.
func New(name, basePath string) *Provider {
	return &Provider{name: name, basePath: basePath}
}

func (p *Provider) Name() string { return p.name }

// Find walks basePath, matching files against product's naming convention
// and temporal coverage.
func (p *Provider) Find(_ context.Context, product output.Product, tr domain.TimeRange) ([]domain.FileRecord, error) {
	var objects []providers.RemoteObject
	err := filepath.Walk(p.basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(p.basePath, path)
		if err != nil {
			return err
		}
		objects = append(objects, providers.RemoteObject{Key: rel})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return providers.MatchRemoteObjects(product, p.name, objects, tr), nil
}

// Download copies rec's remote path into destination.
func (p *Provider) Download(_ context.Context, rec domain.FileRecord, destination string) (string, error) {
	src := filepath.Join(p.basePath, rec.RemotePath)

	if filepath.Clean(src) == filepath.Clean(destination) {
		return destination, nil
	}

	if err := os.MkdirAll(filepath.Dir(destination), 0o750); err != nil {
		return "", err
	}

	in, err := os.Open(src) //#nosec G304 -- src is constructed from the provider's configured base path
	if err != nil {
		return "", err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(destination) //#nosec G304 -- destination is a controlled local path
	if err != nil {
		return "", err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return "", err
	}
	return destination, nil
}

// Provides reports true unconditionally: any product whose files live
// under basePath can be served from here.
func (p *Provider) Provides(output.Product) bool { return true }

var _ output.Provider = (*Provider)(nil)
