// Package s3bucket implements an output.Provider backed by an AWS S3
// bucket, adapted from the engine's S3 storage adapter.
package s3bucket

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/pansat-go/pansat/internal/domain"
	"github.com/pansat-go/pansat/internal/ports/output"
	"github.com/pansat-go/pansat/internal/providers"
)

// Config configures a Provider.
type Config struct {
	Bucket          string
	Region          string
	Prefix          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Provider lists and downloads files from an S3 bucket.
type Provider struct {
	name   string
	client *s3.Client
	bucket string
	prefix string
}

// New creates a provider for the given configuration.
func New(ctx context.Context, name string, cfg Config) (*Provider, error) {
	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, &domain.AuthError{Provider: name, Err: err}
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &Provider{
		name:   name,
		client: s3.NewFromConfig(awsCfg, clientOpts...),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (p *Provider) Name() string { return p.name }

// Find lists objects under the configured prefix and matches them against
// product's naming convention and temporal coverage.
func (p *Provider) Find(ctx context.Context, product output.Product, tr domain.TimeRange) ([]domain.FileRecord, error) {
	var objects []providers.RemoteObject

	paginator := s3.NewListObjectsV2Paginator(p.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(p.prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, &domain.CommunicationError{Provider: p.name, Op: "list", Err: err}
		}
		for _, obj := range page.Contents {
			key := strings.TrimPrefix(strings.TrimPrefix(aws.ToString(obj.Key), p.prefix), "/")
			objects = append(objects, providers.RemoteObject{Key: key})
		}
	}

	return providers.MatchRemoteObjects(product, p.name, objects, tr), nil
}

// Download fetches rec's remote object into destination.
func (p *Provider) Download(ctx context.Context, rec domain.FileRecord, destination string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(destination), 0o750); err != nil {
		return "", err
	}

	resp, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.fullKey(rec.RemotePath)),
	})
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
// under the configured bucket/prefix can be served from here.
func (p *Provider) Provides(output.Product) bool { return true }

var _ output.Provider = (*Provider)(nil)
