package domain

import "fmt"

// IndexRange identifies a [Start, End) slice along one axis of a file's
// underlying array data (e.g. the along-track dimension of a swath).
// {-1, -1} means "no sub-indexing along this axis".
type IndexRange struct {
	Start int
	End   int
}

var unsetIndexRange = IndexRange{Start: -1, End: -1}

// Dataset represents a product file opened into memory. The concrete
// in-memory array representation is format-specific (HDF5, NetCDF, ...) and
// out of scope here; Dataset is the contract point a product implementation
// fulfills so callers can close what they open.
type Dataset interface {
	Close() error
}

// Opener is the minimal capability Granule.Open needs from a product:
// opening the granule's backing file into a Dataset.
type Opener interface {
	Open(rec FileRecord) (Dataset, error)
}

// Granule represents a temporally and spatially limited sub-section of a
// data file. Granules are the unit the match engine operates on: a single
// FileRecord may be represented by one granule (whole-file coverage) or many
// (sub-file coverage, e.g. one granule per orbit segment).
type Granule struct {
	FileRecord FileRecord
	TimeRange  TimeRange
	Geometry   Geometry

	PrimaryIndexName    string
	PrimaryIndexRange   IndexRange
	SecondaryIndexName  string
	SecondaryIndexRange IndexRange
}

// NewWholeFileGranule builds a granule covering an entire file, with no
// sub-file index ranges.
func NewWholeFileGranule(rec FileRecord, tr TimeRange, geom Geometry) Granule {
	return Granule{
		FileRecord:          rec,
		TimeRange:           tr,
		Geometry:            geom,
		PrimaryIndexRange:   unsetIndexRange,
		SecondaryIndexRange: unsetIndexRange,
	}
}

// Equal reports whether two granules point to the same file and the same
// primary and secondary index ranges.
func (g Granule) Equal(other Granule) bool {
	return g.FileRecord.Filename == other.FileRecord.Filename &&
		g.PrimaryIndexName == other.PrimaryIndexName &&
		g.PrimaryIndexRange == other.PrimaryIndexRange &&
		g.SecondaryIndexName == other.SecondaryIndexName &&
		g.SecondaryIndexRange == other.SecondaryIndexRange
}

// HashKey returns a comparable key suitable for use as a map key or dedup
// set membership test, computed from the filename and the index ranges.
func (g Granule) HashKey() string {
	return fmt.Sprintf("%s|%s|%d:%d|%s|%d:%d",
		g.FileRecord.Filename,
		g.PrimaryIndexName, g.PrimaryIndexRange.Start, g.PrimaryIndexRange.End,
		g.SecondaryIndexName, g.SecondaryIndexRange.Start, g.SecondaryIndexRange.End,
	)
}

// IsAdjacent reports whether two granules reference the same file and have
// contiguous or overlapping primary and secondary index ranges.
func (g Granule) IsAdjacent(other Granule) bool {
	if g.FileRecord.Filename != other.FileRecord.Filename {
		return false
	}
	if g.PrimaryIndexName != other.PrimaryIndexName {
		return false
	}
	if g.SecondaryIndexName != other.SecondaryIndexName {
		return false
	}
	if g.PrimaryIndexRange.Start > other.PrimaryIndexRange.End {
		return false
	}
	if g.PrimaryIndexRange.End < other.PrimaryIndexRange.Start {
		return false
	}
	if g.SecondaryIndexRange.Start > other.SecondaryIndexRange.End {
		return false
	}
	if g.SecondaryIndexRange.End < other.SecondaryIndexRange.Start {
		return false
	}
	return true
}

// Merge combines two adjacent granules into one covering the union of their
// temporal, spatial, and index extents. It returns NotAdjacentError if the
// granules are not adjacent.
//
// The time range union uses min(start, start) / max(end, end); an earlier
// revision of this logic (min(start, end)) could produce a time range
// narrower than either input when the two granules' spans differed widely.
func (g Granule) Merge(other Granule) (Granule, error) {
	if !g.IsAdjacent(other) {
		return Granule{}, &NotAdjacentError{A: g, B: other}
	}

	start := g.TimeRange.Start
	if other.TimeRange.Start.Before(start) {
		start = other.TimeRange.Start
	}
	end := g.TimeRange.End
	if other.TimeRange.End.After(end) {
		end = other.TimeRange.End
	}

	merged := Granule{
		FileRecord:         g.FileRecord,
		TimeRange:          TimeRange{Start: start, End: end},
		Geometry:           mergeGeometry(g.Geometry, other.Geometry),
		PrimaryIndexName:   g.PrimaryIndexName,
		SecondaryIndexName: g.SecondaryIndexName,
		PrimaryIndexRange: IndexRange{
			Start: minInt(g.PrimaryIndexRange.Start, other.PrimaryIndexRange.Start),
			End:   maxInt(g.PrimaryIndexRange.End, other.PrimaryIndexRange.End),
		},
		SecondaryIndexRange: IndexRange{
			Start: minInt(g.SecondaryIndexRange.Start, other.SecondaryIndexRange.Start),
			End:   maxInt(g.SecondaryIndexRange.End, other.SecondaryIndexRange.End),
		},
	}
	return merged, nil
}

// mergeGeometry returns the envelope of the two geometries' bounds. A
// granule's merged geometry is necessarily an over-approximation: the true
// shape of the combined data range cannot, in general, be represented
// exactly by either geometry's concrete type.
func mergeGeometry(a, b Geometry) Geometry {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	ba, bb := a.Bound(), b.Bound()
	return NewLonLatRect(
		minFloat(ba.Min[0], bb.Min[0]), minFloat(ba.Min[1], bb.Min[1]),
		maxFloat(ba.Max[0], bb.Max[0]), maxFloat(ba.Max[1], bb.Max[1]),
	)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// GetSlices returns the per-dimension index range this granule occupies
// within its backing file, keyed by dimension name. A dimension with no
// sub-indexing (unsetIndexRange) is omitted, since it covers the whole
// file's extent along that axis.
func (g Granule) GetSlices() map[string]IndexRange {
	slices := map[string]IndexRange{}
	if g.PrimaryIndexName != "" && g.PrimaryIndexRange != unsetIndexRange {
		slices[g.PrimaryIndexName] = g.PrimaryIndexRange
	}
	if g.SecondaryIndexName != "" && g.SecondaryIndexRange != unsetIndexRange {
		slices[g.SecondaryIndexName] = g.SecondaryIndexRange
	}
	return slices
}

// Open opens g's backing file through product, yielding the Dataset the
// caller is expected to slice to GetSlices()'s index ranges.
func (g Granule) Open(product Opener) (Dataset, error) {
	return product.Open(g.FileRecord)
}

func (g Granule) String() string {
	if g.SecondaryIndexName == "" {
		return fmt.Sprintf("Granule(filename=%s, time_range=%s, primary_index_range=%v)",
			g.FileRecord.Filename, g.TimeRange, g.PrimaryIndexRange)
	}
	return fmt.Sprintf("Granule(filename=%s, time_range=%s, primary_index_range=%v, secondary_index_range=%v)",
		g.FileRecord.Filename, g.TimeRange, g.PrimaryIndexRange, g.SecondaryIndexRange)
}
