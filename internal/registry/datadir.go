package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pansat-go/pansat/internal/ports/output"
	"github.com/pansat-go/pansat/internal/store/sqlitecat"
)

// catalogSubdir is the hidden sidecar directory name a DataDir stores its
// registry database in, within the data directory itself.
const catalogSubdir = ".pansat_catalog"

// DataDir is a Registry that also designates the default location to store
// downloaded files. Its registry database lives in a hidden
// ".pansat_catalog" subfolder of the data directory itself.
type DataDir struct {
	*Registry
	location string
}

// NewDataDir opens (or creates) a DataDir rooted at path.
func NewDataDir(name, path string, transparent bool, parent *Registry) (*DataDir, error) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("data directory must point to an existing folder, got %q: %w", path, err)
	}

	registryDir := filepath.Join(path, catalogSubdir)
	if err := os.MkdirAll(registryDir, 0o755); err != nil {
		return nil, err
	}

	reg, err := New(name, sqlitecat.DefaultPath(registryDir), transparent, parent)
	if err != nil {
		return nil, err
	}

	return &DataDir{Registry: reg, location: path}, nil
}

// Location returns the data directory's root path (not the hidden catalog
// subfolder).
func (d *DataDir) Location() string { return d.location }

// ActiveDataDir returns the path downloaded files should be written to,
// which for a DataDir is simply its own location.
func (d *DataDir) ActiveDataDir() string { return d.location }

// OnTheFlyDataDir stores downloaded files in a process-local temporary
// directory. Its registry is opaque (transparent=false): additions are not
// propagated to its parent, and Find, FindFiles and Provides consult only its
// own index, so on-the-fly downloads do not pollute a shared catalog.
// GetLocalPath still delegates to the parent on a local miss. Cleanup removes
// the temporary directory.
type OnTheFlyDataDir struct {
	*DataDir
	tmpDir string
}

// NewOnTheFlyDataDir creates a fresh temporary data directory.
func NewOnTheFlyDataDir(parent *Registry) (*OnTheFlyDataDir, error) {
	tmp, err := os.MkdirTemp("", "pansat-on-the-fly-*")
	if err != nil {
		return nil, err
	}
	dd, err := NewDataDir("on_the_fly", tmp, false, parent)
	if err != nil {
		_ = os.RemoveAll(tmp)
		return nil, err
	}
	return &OnTheFlyDataDir{DataDir: dd, tmpDir: tmp}, nil
}

// Cleanup removes the temporary directory and closes the registry database.
func (d *OnTheFlyDataDir) Cleanup() error {
	_ = d.Registry.Close()
	return os.RemoveAll(d.tmpDir)
}

var (
	_ output.Provider = (*DataDir)(nil)
	_ output.Provider = (*OnTheFlyDataDir)(nil)
)

// getActiveDataDir walks the registry's parent chain to find the nearest
// ancestor that is itself a DataDir, mirroring get_active_data_dir's
// delegation. Registries that are not DataDirs have no storage location of
// their own and simply delegate to their parent.
func getActiveDataDir(r *Registry) (string, bool) {
	for cur := r; cur != nil; cur = cur.parent {
		if dd, ok := any(cur).(*DataDir); ok {
			return dd.location, true
		}
	}
	return "", false
}

