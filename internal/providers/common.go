// Package providers holds shared helpers used by the concrete provider
// adapters (internal/providers/localdir, httpidx, s3bucket, azureblob).
package providers

import (
	"strings"

	"github.com/pansat-go/pansat/internal/domain"
	"github.com/pansat-go/pansat/internal/ports/output"
)

// RemoteObject is the minimal listing a backing store reports for one file.
type RemoteObject struct {
	Key string
}

// MatchRemoteObjects matches a listing against product's filename pattern
// and temporal coverage, returning remote file records overlapping tr.
// Providers that can only list, not inspect, file contents rely on the
// product's DefaultFilename-compatible naming convention to derive coverage
// without a download.
func MatchRemoteObjects(product output.Product, providerName string, objects []RemoteObject, tr domain.TimeRange) []domain.FileRecord {
	var recs []domain.FileRecord
	for _, obj := range objects {
		filename := obj.Key
		if idx := strings.LastIndex(filename, "/"); idx >= 0 {
			filename = filename[idx+1:]
		}
		if !product.MatchesFilename(filename) {
			continue
		}

		rec := domain.NewRemoteFileRecord(product.Name(), providerName, obj.Key, filename)

		coverage, err := product.TemporalCoverage(rec)
		if err != nil {
			continue
		}
		if !coverage.Covers(tr) {
			continue
		}
		recs = append(recs, rec)
	}
	return recs
}
