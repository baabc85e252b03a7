package s3bucket

import (
	"context"
	"testing"
)

func TestNewBuildsClientFromStaticCredentials(t *testing.T) {
	p, err := New(context.Background(), "s3", Config{
		Bucket:          "satellite-data",
		Region:          "us-east-1",
		AccessKeyID:     "AKIAEXAMPLE",
		SecretAccessKey: "secretexample",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Name() != "s3" {
		t.Errorf("Name() = %q; want s3", p.Name())
	}
}

func TestNewWithCustomEndpoint(t *testing.T) {
	p, err := New(context.Background(), "minio", Config{
		Bucket:          "satellite-data",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Name() != "minio" {
		t.Errorf("Name() = %q; want minio", p.Name())
	}
}

func TestFullKeyWithAndWithoutPrefix(t *testing.T) {
	p := &Provider{prefix: "raw"}
	if got := p.fullKey("a.nc"); got != "raw/a.nc" {
		t.Errorf("fullKey with prefix = %q; want raw/a.nc", got)
	}

	noPrefix := &Provider{}
	if got := noPrefix.fullKey("a.nc"); got != "a.nc" {
		t.Errorf("fullKey without prefix = %q; want a.nc", got)
	}
}
