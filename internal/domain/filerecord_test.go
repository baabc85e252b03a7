package domain

import (
	"context"
	"errors"
	"testing"
)

type fakeDownloader struct {
	localPath string
	err       error
	gotRec    FileRecord
}

func (d *fakeDownloader) Download(_ context.Context, rec FileRecord, _ string) (string, error) {
	d.gotRec = rec
	if d.err != nil {
		return "", d.err
	}
	return d.localPath, nil
}

func TestFileRecordDownloadFetchesAndSetsLocalPath(t *testing.T) {
	rec := NewRemoteFileRecord("alpha", "mirror", "2020/a.nc", "a.nc")
	provider := &fakeDownloader{localPath: "/data/a.nc"}

	got, err := rec.Download(context.Background(), provider, "/data/a.nc")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if got.LocalPath != "/data/a.nc" {
		t.Errorf("LocalPath = %q; want /data/a.nc", got.LocalPath)
	}
	if provider.gotRec.RemotePath != rec.RemotePath {
		t.Errorf("provider received RemotePath = %q; want %q", provider.gotRec.RemotePath, rec.RemotePath)
	}
}

func TestFileRecordDownloadFailsWithoutRemoteSource(t *testing.T) {
	rec := NewLocalFileRecord("/data/a.nc", "a.nc", "alpha")

	_, err := rec.Download(context.Background(), &fakeDownloader{}, "/data/a.nc")
	var noSource *NoRemoteSource
	if !errors.As(err, &noSource) {
		t.Fatalf("Download error = %v (%T); want *NoRemoteSource", err, err)
	}
}

func TestFileRecordDownloadPropagatesProviderError(t *testing.T) {
	rec := NewRemoteFileRecord("alpha", "mirror", "2020/a.nc", "a.nc")
	wantErr := errors.New("network error")
	provider := &fakeDownloader{err: wantErr}

	_, err := rec.Download(context.Background(), provider, "/data/a.nc")
	if !errors.Is(err, wantErr) {
		t.Errorf("Download error = %v; want %v", err, wantErr)
	}
}

func TestIsLocalAndIsRemote(t *testing.T) {
	local := NewLocalFileRecord("/data/a.nc", "a.nc", "alpha")
	if !local.IsLocal() || local.IsRemote() {
		t.Errorf("local record: IsLocal() = %v, IsRemote() = %v; want true, false", local.IsLocal(), local.IsRemote())
	}

	remote := NewRemoteFileRecord("alpha", "mirror", "2020/a.nc", "a.nc")
	if remote.IsLocal() || !remote.IsRemote() {
		t.Errorf("remote record: IsLocal() = %v, IsRemote() = %v; want false, true", remote.IsLocal(), remote.IsRemote())
	}
}
