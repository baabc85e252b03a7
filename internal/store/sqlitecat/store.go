// Package sqlitecat implements the on-disk granule index using SQLite, with
// one table per product in a single shared database file.
package sqlitecat

import (
	"bytes"
	"compress/zlib"
	"context"
	"database/sql"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"

	"github.com/pansat-go/pansat/internal/domain"
)

// identPattern restricts product names used as SQL identifiers to a safe
// character set, since Go's database/sql cannot parameterize table names.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store implements output.IndexRepository backed by a single SQLite file.
// Concurrent writers across processes are serialized with a sidecar
// ".lock" file, following the convention of a flock-guarded database path.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	lock *flock.Flock
}

// Open opens (creating if necessary) the index database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", path))
	if err != nil {
		return nil, &domain.StorageError{Operation: "open", Key: path, Err: err}
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, &domain.StorageError{Operation: "open", Key: path, Err: err}
	}

	lock := flock.New(path + ".lock")

	return &Store{db: db, lock: lock}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func tableName(product string) (string, error) {
	if !identPattern.MatchString(product) {
		return "", &domain.FormatError{Filename: product, Reason: "product name is not a valid SQL identifier"}
	}
	return product, nil
}

func (s *Store) ensureTable(ctx context.Context, product string) error {
	table, err := tableName(product)
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s" (
			filename TEXT NOT NULL,
			local_path TEXT NOT NULL DEFAULT '',
			remote_path TEXT NOT NULL DEFAULT '',
			provider_name TEXT NOT NULL DEFAULT '',
			start_time INTEGER NOT NULL,
			end_time INTEGER NOT NULL,
			primary_index_name TEXT NOT NULL DEFAULT '',
			primary_index_start INTEGER NOT NULL DEFAULT -1,
			primary_index_end INTEGER NOT NULL DEFAULT -1,
			secondary_index_name TEXT NOT NULL DEFAULT '',
			secondary_index_start INTEGER NOT NULL DEFAULT -1,
			secondary_index_end INTEGER NOT NULL DEFAULT -1,
			geometry BLOB,
			PRIMARY KEY (filename, primary_index_start, primary_index_end, secondary_index_start, secondary_index_end)
		)
	`, table) //#nosec G201 -- table name validated by identPattern above
	_, err = s.db.ExecContext(ctx, stmt)
	if err != nil {
		return &domain.StorageError{Operation: "create table", Key: table, Err: err}
	}

	idx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS "idx_%s_time" ON "%s" (start_time, end_time)`, table, table) //#nosec G201
	_, err = s.db.ExecContext(ctx, idx)
	if err != nil {
		return &domain.StorageError{Operation: "create time index", Key: table, Err: err}
	}
	return nil
}

// InsertGranules idempotently records granules for product.
func (s *Store) InsertGranules(ctx context.Context, product string, granules []domain.Granule) (int, error) {
	if len(granules) == 0 {
		return 0, nil
	}
	table, err := tableName(product)
	if err != nil {
		return 0, err
	}

	locked, err := s.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil || !locked {
		return 0, &domain.StorageError{Operation: "lock", Key: s.lock.Path(), Err: fmt.Errorf("could not acquire index lock")}
	}
	defer func() { _ = s.lock.Unlock() }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureTable(ctx, product); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &domain.StorageError{Operation: "begin tx", Key: table, Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	stmt := fmt.Sprintf(`
		INSERT OR IGNORE INTO "%s" (
			filename, local_path, remote_path, provider_name,
			start_time, end_time,
			primary_index_name, primary_index_start, primary_index_end,
			secondary_index_name, secondary_index_start, secondary_index_end,
			geometry
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, table) //#nosec G201

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return 0, &domain.StorageError{Operation: "prepare insert", Key: table, Err: err}
	}
	defer func() { _ = prepared.Close() }()

	inserted := 0
	for _, g := range granules {
		geomBlob, err := encodeGeometry(g.Geometry)
		if err != nil {
			return inserted, err
		}
		res, err := prepared.ExecContext(ctx,
			g.FileRecord.Filename, g.FileRecord.LocalPath, g.FileRecord.RemotePath, g.FileRecord.ProviderName,
			g.TimeRange.Start.UnixNano(), g.TimeRange.End.UnixNano(),
			g.PrimaryIndexName, g.PrimaryIndexRange.Start, g.PrimaryIndexRange.End,
			g.SecondaryIndexName, g.SecondaryIndexRange.Start, g.SecondaryIndexRange.End,
			geomBlob,
		)
		if err != nil {
			return inserted, &domain.StorageError{Operation: "insert granule", Key: g.FileRecord.Filename, Err: err}
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return inserted, &domain.StorageError{Operation: "commit", Key: table, Err: err}
	}
	return inserted, nil
}

// Query returns granules for product overlapping tr (every granule, if tr
// is nil), optionally filtered by intersection with bound.
func (s *Store) Query(ctx context.Context, product string, tr *domain.TimeRange, bound domain.Geometry) ([]domain.Granule, error) {
	table, err := tableName(product)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.tableExists(ctx, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	var (
		rows *sql.Rows
	)
	if tr == nil {
		query := fmt.Sprintf(`
			SELECT filename, local_path, remote_path, provider_name,
				start_time, end_time,
				primary_index_name, primary_index_start, primary_index_end,
				secondary_index_name, secondary_index_start, secondary_index_end,
				geometry
			FROM "%s"
			ORDER BY start_time ASC
		`, table) //#nosec G201
		rows, err = s.db.QueryContext(ctx, query)
	} else {
		query := fmt.Sprintf(`
			SELECT filename, local_path, remote_path, provider_name,
				start_time, end_time,
				primary_index_name, primary_index_start, primary_index_end,
				secondary_index_name, secondary_index_start, secondary_index_end,
				geometry
			FROM "%s"
			WHERE NOT (start_time > ? OR end_time < ?)
			ORDER BY start_time ASC
		`, table) //#nosec G201
		rows, err = s.db.QueryContext(ctx, query, tr.End.UnixNano(), tr.Start.UnixNano())
	}
	if err != nil {
		return nil, &domain.StorageError{Operation: "query", Key: table, Err: err}
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Granule
	for rows.Next() {
		var (
			filename, localPath, remotePath, providerName string
			startNanos, endNanos                           int64
			primaryName, secondaryName                     string
			primaryStart, primaryEnd                       int
			secondaryStart, secondaryEnd                    int
			geomBlob                                        []byte
		)
		if err := rows.Scan(
			&filename, &localPath, &remotePath, &providerName,
			&startNanos, &endNanos,
			&primaryName, &primaryStart, &primaryEnd,
			&secondaryName, &secondaryStart, &secondaryEnd,
			&geomBlob,
		); err != nil {
			return nil, &domain.StorageError{Operation: "scan", Key: table, Err: err}
		}

		geom, err := decodeGeometry(geomBlob)
		if err != nil {
			return nil, err
		}
		if bound != nil && geom != nil && !geom.Intersects(bound) {
			continue
		}

		g := domain.Granule{
			FileRecord: domain.FileRecord{
				Filename:     filename,
				LocalPath:    localPath,
				RemotePath:   remotePath,
				ProviderName: providerName,
				ProductName:  product,
			},
			TimeRange:           domain.TimeRange{Start: time.Unix(0, startNanos).UTC(), End: time.Unix(0, endNanos).UTC()},
			Geometry:            geom,
			PrimaryIndexName:    primaryName,
			PrimaryIndexRange:   domain.IndexRange{Start: primaryStart, End: primaryEnd},
			SecondaryIndexName:  secondaryName,
			SecondaryIndexRange: domain.IndexRange{Start: secondaryStart, End: secondaryEnd},
		}
		out = append(out, g)
	}
	return out, nil
}

// Products returns the names of every product table present.
func (s *Store) Products(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' AND name NOT LIKE 'idx_%'`)
	if err != nil {
		return nil, &domain.StorageError{Operation: "list products", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func (s *Store) tableExists(ctx context.Context, table string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table,
	).Scan(&count)
	if err != nil {
		return false, &domain.StorageError{Operation: "check table", Key: table, Err: err}
	}
	return count > 0, nil
}

// encodeGeometry compresses a geometry's WKB encoding with zlib. A nil
// geometry encodes to a nil blob.
func encodeGeometry(g domain.Geometry) ([]byte, error) {
	if g == nil {
		return nil, nil
	}
	raw, err := wkb.Marshal(g.Orb())
	if err != nil {
		return nil, &domain.FormatError{Filename: "geometry", Reason: err.Error()}
	}

	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeGeometry reverses encodeGeometry, returning a domain.Geometry
// wrapping whichever concrete orb type the blob decoded to.
func decodeGeometry(blob []byte) (domain.Geometry, error) {
	if len(blob) == 0 {
		return nil, nil
	}

	g, err := wkb.Unmarshal(blob)
	if err != nil {
		raw, zerr := decompress(blob)
		if zerr != nil {
			return nil, &domain.FormatError{Filename: "geometry", Reason: err.Error()}
		}
		g, err = wkb.Unmarshal(raw)
		if err != nil {
			return nil, &domain.FormatError{Filename: "geometry", Reason: err.Error()}
		}
	}

	switch v := g.(type) {
	case orb.Point:
		return domain.Point{Point: v}, nil
	case orb.Polygon:
		return domain.Polygon{Polygon: v}, nil
	case orb.MultiPolygon:
		return domain.MultiPolygon{MultiPolygon: v}, nil
	case orb.LineString:
		return domain.LineString{LineString: v}, nil
	default:
		return nil, &domain.FormatError{Filename: "geometry", Reason: fmt.Sprintf("unsupported decoded geometry type %T", g)}
	}
}

// decompress inflates a zlib-compressed WKB blob, the encoding written by
// encodeGeometry; decodeGeometry uses it when a raw WKB parse fails.
func decompress(blob []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return io.ReadAll(r)
}

// DefaultPath returns the conventional index database path within a
// catalog directory (the ".pansat_catalog" sidecar directory).
func DefaultPath(catalogDir string) string {
	return filepath.Join(catalogDir, "index.sqlite")
}
