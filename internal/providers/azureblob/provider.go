// Package azureblob implements an output.Provider backed by an Azure Blob
// Storage container, adapted from the engine's Azure storage adapter.
package azureblob

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/pansat-go/pansat/internal/domain"
	"github.com/pansat-go/pansat/internal/ports/output"
	"github.com/pansat-go/pansat/internal/providers"
)

// Config configures a Provider.
type Config struct {
	Container        string
	AccountName      string
	AccountKey       string
	ConnectionString string
	Prefix           string
}

// Provider lists and downloads blobs from an Azure Blob Storage container.
type Provider struct {
	name      string
	client    *azblob.Client
	container string
	prefix    string
}

// New creates a provider for the given configuration.
func New(name string, cfg Config) (*Provider, error) {
	var client *azblob.Client
	var err error

	if cfg.ConnectionString != "" {
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	} else {
		url := "https://" + cfg.AccountName + ".blob.core.windows.net/"
		var cred *azblob.SharedKeyCredential
		cred, err = azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if err == nil {
			client, err = azblob.NewClientWithSharedKeyCredential(url, cred, nil)
		}
	}
	if err != nil {
		return nil, &domain.AuthError{Provider: name, Err: err}
	}

	return &Provider{name: name, client: client, container: cfg.Container, prefix: cfg.Prefix}, nil
}

func (p *Provider) Name() string { return p.name }

// Find lists blobs under the configured prefix and matches them against
// product's naming convention and temporal coverage.
func (p *Provider) Find(ctx context.Context, product output.Product, tr domain.TimeRange) ([]domain.FileRecord, error) {
	var objects []providers.RemoteObject

	pager := p.client.NewListBlobsFlatPager(p.container, &azblob.ListBlobsFlatOptions{Prefix: &p.prefix})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, &domain.CommunicationError{Provider: p.name, Op: "list", Err: err}
		}
		for _, blob := range page.Segment.BlobItems {
			if blob.Name == nil {
				continue
			}
			key := strings.TrimPrefix(strings.TrimPrefix(*blob.Name, p.prefix), "/")
			objects = append(objects, providers.RemoteObject{Key: key})
		}
	}

	return providers.MatchRemoteObjects(product, p.name, objects, tr), nil
}

// Download fetches rec's remote blob into destination.
func (p *Provider) Download(ctx context.Context, rec domain.FileRecord, destination string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(destination), 0o750); err != nil {
		return "", err
	}

	resp, err := p.client.DownloadStream(ctx, p.container, p.fullKey(rec.RemotePath), nil)
	if err != nil {
		return "", &domain.CommunicationError{Provider: p.name, Op: "download", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

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

func (p *Provider) fullKey(key string) string {
	if p.prefix == "" {
		return key
	}
	return p.prefix + "/" + key
}

// Provides reports true unconditionally: any product whose files live
// under the configured container/prefix can be served from here.
func (p *Provider) Provides(output.Product) bool { return true }

var _ output.Provider = (*Provider)(nil)
