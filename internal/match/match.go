// Package match implements the recursive divide-and-conquer temporal/spatial
// join between two products' granule indices.
package match

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pansat-go/pansat/internal/domain"
	"github.com/pansat-go/pansat/internal/index"
)

// Match pairs a granule from the left index with one matching granule from
// the right index.
type Match struct {
	Left  domain.Granule
	Right domain.Granule
}

// defaultTimeDiff is used when Options.TimeDiff is the zero value.
const defaultTimeDiff = 5 * time.Minute

// Options configures FindMatches.
type Options struct {
	// TimeDiff is the maximum time difference between two granules for
	// them to be considered a match. Defaults to 5 minutes.
	TimeDiff time.Duration
	// Merge combines matches of adjacent granules into a single, wider
	// match, so that observations spanning multiple granule boundaries
	// are not reported as separate matches.
	Merge bool
	// Workers bounds the number of goroutines used to partition the left
	// index's top-level split. A value <= 1 runs serially.
	Workers int
	// Progress, if non-nil, receives the count of newly processed left
	// granules as work completes. It may be written to from multiple
	// goroutines and must not block.
	Progress chan<- int
	// Logger, if non-nil, receives one summary line when a parallel run
	// finishes; it receives no per-granule progress.
	Logger *slog.Logger
}

// FindMatches finds every pair of overlapping granules between left and
// right, recursively bisecting the left index and pruning the right index
// to each bisection's time window before the final granule-by-granule
// comparison.
func FindMatches(ctx context.Context, left, right *index.Index, opts Options) ([]Match, error) {
	if opts.TimeDiff <= 0 {
		opts.TimeDiff = defaultTimeDiff
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	total := len(left.Granules)
	if total == 0 || len(right.Granules) == 0 {
		return nil, nil
	}

	if opts.Workers == 1 {
		return findMatchesRec(ctx, left.Granules, right.Granules, opts)
	}

	return findMatchesParallel(ctx, left.Granules, right.Granules, opts, total)
}

// findMatchesParallel splits the left granule slice into opts.Workers
// contiguous blocks, matches each block against the right granules
// restricted to that block's (padded) time window, and boundary-merges the
// per-block results back together in order.
func findMatchesParallel(ctx context.Context, left, right []domain.Granule, opts Options, total int) ([]Match, error) {
	blocks := partition(left, opts.Workers)
	results := make([][]Match, len(blocks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i, block := range blocks {
		i, block := i, block
		g.Go(func() error {
			windowed := restrictToWindow(block, right, opts.TimeDiff)
			m, err := findMatchesRec(ctx, block, windowed, opts)
			if err != nil {
				return err
			}
			results[i] = m
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if opts.Logger != nil {
		opts.Logger.Info("match engine finished", "left_granules", total, "workers", opts.Workers)
	}

	var merged []Match
	for _, block := range results {
		merged = mergeBoundary(merged, block, opts.Merge)
	}
	return merged, nil
}

func partition(granules []domain.Granule, n int) [][]domain.Granule {
	if n > len(granules) {
		n = len(granules)
	}
	if n < 1 {
		n = 1
	}
	per := len(granules) / n
	rem := len(granules) % n

	blocks := make([][]domain.Granule, 0, n)
	start := 0
	for i := 0; i < n; i++ {
		size := per
		if i < rem {
			size++
		}
		blocks = append(blocks, granules[start:start+size])
		start += size
	}
	return blocks
}

func restrictToWindow(left, right []domain.Granule, pad time.Duration) []domain.Granule {
	if len(left) == 0 {
		return nil
	}
	start := left[0].TimeRange.Start.Add(-pad)
	end := left[len(left)-1].TimeRange.End.Add(pad)
	var out []domain.Granule
	for _, g := range right {
		if g.TimeRange.End.Before(start) || g.TimeRange.Start.After(end) {
			continue
		}
		out = append(out, g)
	}
	return out
}

// findMatchesRec recursively bisects left (splitting on granule count) and
// prunes right to each half's padded time window before recursing, bottoming
// out at a single left granule.
func findMatchesRec(ctx context.Context, left, right []domain.Granule, opts Options) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(right) == 0 {
		reportProgress(opts, len(left))
		return nil, nil
	}

	if len(left) > 1 {
		mid := len(left) / 2
		left1, left2 := left[:mid], left[mid:]

		right1 := restrictToWindow(left1, right, opts.TimeDiff)
		right2 := restrictToWindow(left2, right, opts.TimeDiff)

		matches1, err := findMatchesRec(ctx, left1, right1, opts)
		if err != nil {
			return nil, err
		}
		matches2, err := findMatchesRec(ctx, left2, right2, opts)
		if err != nil {
			return nil, err
		}

		if len(matches1) == 0 {
			return matches2, nil
		}
		if len(matches2) == 0 {
			return matches1, nil
		}
		return mergeBoundary(matches1, matches2, opts.Merge), nil
	}

	granule := left[0]
	start := granule.TimeRange.Start.Add(-opts.TimeDiff)
	end := granule.TimeRange.End.Add(opts.TimeDiff)

	var candidates []domain.Granule
	for _, g := range right {
		if g.TimeRange.End.Before(start) || g.TimeRange.Start.After(end) {
			continue
		}
		if granule.Geometry != nil && g.Geometry != nil && !granule.Geometry.Intersects(g.Geometry) {
			continue
		}
		candidates = append(candidates, g)
	}

	if len(candidates) == 0 {
		reportProgress(opts, 1)
		return nil, nil
	}

	if opts.Merge {
		candidates = mergeAdjacentGranules(candidates)
	}

	out := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, Match{Left: granule, Right: c})
	}
	reportProgress(opts, 1)
	return out, nil
}

func reportProgress(opts Options, n int) {
	if opts.Progress == nil {
		return
	}
	select {
	case opts.Progress <- n:
	default:
	}
}

// mergeAdjacentGranules folds any run of mutually adjacent granules (already
// sorted by start time, as Index.Find guarantees) into a single merged
// granule, so that a match split across several file segments is reported
// once.
func mergeAdjacentGranules(granules []domain.Granule) []domain.Granule {
	if len(granules) == 0 {
		return granules
	}
	out := make([]domain.Granule, 0, len(granules))
	current := granules[0]
	for _, next := range granules[1:] {
		if current.IsAdjacent(next) {
			merged, err := current.Merge(next)
			if err == nil {
				current = merged
				continue
			}
		}
		out = append(out, current)
		current = next
	}
	out = append(out, current)
	return out
}

// mergeBoundary concatenates two ordered match slices, attempting to merge
// only the seam between the last element of a and the first of b when both
// sides' granules are adjacent.
func mergeBoundary(a, b []Match, merge bool) []Match {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	if !merge {
		return append(append([]Match{}, a...), b...)
	}

	last, first := a[len(a)-1], b[0]
	if last.Left.IsAdjacent(first.Left) && last.Right.IsAdjacent(first.Right) {
		mergedLeft, errL := last.Left.Merge(first.Left)
		mergedRight, errR := last.Right.Merge(first.Right)
		if errL == nil && errR == nil {
			out := make([]Match, 0, len(a)+len(b)-1)
			out = append(out, a[:len(a)-1]...)
			out = append(out, Match{Left: mergedLeft, Right: mergedRight})
			out = append(out, b[1:]...)
			return out
		}
	}

	out := make([]Match, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}
