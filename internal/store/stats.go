package store

import (
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/quoteline/beacon/pkg/errors"
)

// Stats summarizes the store's contents for diagnostics.
type Stats struct {
	// Entries is the number of cached catalogs.
	Entries int `json:"entries"`

	// TotalBytes is the stored document + signature payload size.
	TotalBytes int64 `json:"total_bytes"`

	// OldestFetch is the earliest fetch time across entries. Zero when the
	// store is empty.
	OldestFetch time.Time `json:"oldest_fetch,omitempty"`

	// NewestFetch is the latest fetch time across entries. Zero when the
	// store is empty.
	NewestFetch time.Time `json:"newest_fetch,omitempty"`

	// CorruptRecords counts records that no longer decode. They behave as
	// cache misses until overwritten or cleaned up.
	CorruptRecords int `json:"corrupt_records,omitempty"`
}

// Stats scans the store and returns summary statistics.
func (s *Store) Stats() (Stats, error) {
	var stats Stats

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(catalogsBucket).ForEach(func(_, v []byte) error {
			stats.Entries++

			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				stats.CorruptRecords++
				return nil
			}

			stats.TotalBytes += int64(len(e.Document) + len(e.Signature))
			if stats.OldestFetch.IsZero() || e.FetchedAt.Before(stats.OldestFetch) {
				stats.OldestFetch = e.FetchedAt
			}
			if e.FetchedAt.After(stats.NewestFetch) {
				stats.NewestFetch = e.FetchedAt
			}
			return nil
		})
	})
	if err != nil {
		return Stats{}, errors.WrapIO("scan", s.path, err)
	}
	return stats, nil
}
