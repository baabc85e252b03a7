package domain

import (
	"context"
	"encoding/json"
	"fmt"
)

// Downloader is the minimal capability FileRecord.Download needs from a
// provider: fetching rec's remote file to destination and reporting the
// local path written.
type Downloader interface {
	Download(ctx context.Context, rec FileRecord, destination string) (string, error)
}

// FileRecord represents a single data file belonging to a product, which
// may exist locally, remotely, or both.
type FileRecord struct {
	Filename     string
	LocalPath    string // empty if the file has not been downloaded yet
	RemotePath   string // empty if the file is local-only
	ProductName  string
	ProviderName string // empty if the record has no associated provider
}

// NewLocalFileRecord builds a FileRecord for a file already present on disk.
func NewLocalFileRecord(localPath, filename, productName string) FileRecord {
	return FileRecord{
		LocalPath:   localPath,
		Filename:    filename,
		ProductName: productName,
	}
}

// NewRemoteFileRecord builds a FileRecord for a file known only remotely.
func NewRemoteFileRecord(productName, providerName, remotePath, filename string) FileRecord {
	return FileRecord{
		Filename:     filename,
		ProductName:  productName,
		ProviderName: providerName,
		RemotePath:   remotePath,
	}
}

// IsLocal reports whether the file has a local path.
func (f FileRecord) IsLocal() bool {
	return f.LocalPath != ""
}

// IsRemote reports whether the file has an associated remote location.
func (f FileRecord) IsRemote() bool {
	return f.RemotePath != "" && f.ProviderName != ""
}

// fileRecordJSON is the on-disk JSON shape: the product and provider are
// referenced by name, not embedded, so the registry holding their
// registration resolves them on load.
type fileRecordJSON struct {
	Filename     string `json:"filename"`
	LocalPath    string `json:"local_path,omitempty"`
	RemotePath   string `json:"remote_path,omitempty"`
	ProductName  string `json:"product"`
	ProviderName string `json:"provider,omitempty"`
}

// MarshalJSON encodes the FileRecord with product/provider as name strings.
func (f FileRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(fileRecordJSON{
		Filename:     f.Filename,
		LocalPath:    f.LocalPath,
		RemotePath:   f.RemotePath,
		ProductName:  f.ProductName,
		ProviderName: f.ProviderName,
	})
}

// UnmarshalJSON decodes a FileRecord from its name-referenced JSON form.
func (f *FileRecord) UnmarshalJSON(data []byte) error {
	var raw fileRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding file record: %w", err)
	}
	*f = FileRecord{
		Filename:     raw.Filename,
		LocalPath:    raw.LocalPath,
		RemotePath:   raw.RemotePath,
		ProductName:  raw.ProductName,
		ProviderName: raw.ProviderName,
	}
	return nil
}

func (f FileRecord) String() string {
	return fmt.Sprintf("FileRecord(%s, product=%s)", f.Filename, f.ProductName)
}

// Download fetches f's remote file into destination using provider, and
// returns a new FileRecord with LocalPath set to the written path. It fails
// with NoRemoteSource if f has no remote location to fetch from.
func (f FileRecord) Download(ctx context.Context, provider Downloader, destination string) (FileRecord, error) {
	if !f.IsRemote() {
		return FileRecord{}, &NoRemoteSource{Filename: f.Filename}
	}

	localPath, err := provider.Download(ctx, f, destination)
	if err != nil {
		return FileRecord{}, err
	}

	out := f
	out.LocalPath = localPath
	return out, nil
}
