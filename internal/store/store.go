// Package store persists last-known-good catalog documents in a local
// bbolt database. Entries are only ever written after the caller has
// verified the document/signature pair; the store trusts its caller on
// this and records the pair byte-for-byte so later re-verification sees
// exactly what was fetched.
//
// The store is durable across restarts. A missing or undecodable record is
// a cache miss, never an error: the cache must stay usable even when a
// record rots on disk. Expiry is advisory — Get returns expired entries and
// leaves acceptability to the caller; Cleanup is the only path that removes
// them.
package store

import (
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/quoteline/beacon/pkg/catalogs"
	"github.com/quoteline/beacon/pkg/constants"
	"github.com/quoteline/beacon/pkg/errors"
	"github.com/quoteline/beacon/pkg/logging"
)

// catalogsBucket holds one record per catalog ID.
var catalogsBucket = []byte("catalogs")

// Store is a persistent map from catalog ID to last-known-good entry.
// bbolt serializes writes in a single writer transaction, which gives the
// per-key write ordering the cache relies on; readers only ever observe
// committed records.
type Store struct {
	db   *bolt.DB
	path string
}

// Open opens (creating if needed) the store at the given path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, &errors.ValidationError{Field: "path", Message: "store path is required"}
	}

	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("create", filepath.Dir(path), err)
	}

	db, err := bolt.Open(path, constants.StoreFilePermissions, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(catalogsBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, errors.WrapIO("initialize", path, err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the location of the database file.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the cached entry for id. The second return value reports
// whether an entry was found; an undecodable on-disk record counts as a
// miss, not an error.
func (s *Store) Get(id catalogs.ID) (*Entry, bool, error) {
	var entry *Entry

	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(catalogsBucket).Get([]byte(id))
		if raw == nil {
			return nil
		}

		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			// Corrupt record: treat as a miss. It will be overwritten by
			// the next successful Put.
			logging.Warn().
				Str("catalog_id", string(id)).
				Err(err).
				Msg("Discarding undecodable cache record")
			return nil
		}
		entry = &e
		return nil
	})
	if err != nil {
		return nil, false, errors.WrapIO("read", s.path, err)
	}
	if entry == nil {
		return nil, false, nil
	}
	return entry, true, nil
}

// Put stores a verified document/signature pair for id. Callers must only
// pass pairs the Verifier accepted; the store does not re-verify.
//
// FetchedAt is monotonically non-decreasing per catalog: a Put carrying an
// older fetch time than the stored record is rejected, so a slow retry can
// never clobber a newer entry.
func (s *Store) Put(id catalogs.ID, doc, sig []byte, fetchedAt time.Time) error {
	if id == "" {
		return &errors.ValidationError{Field: "id", Message: "catalog id is required"}
	}
	if len(doc) == 0 || len(sig) == 0 {
		return &errors.ValidationError{Field: "document", Message: "document and signature are required"}
	}

	entry := Entry{
		ID:        id,
		Document:  doc,
		Signature: sig,
		FetchedAt: fetchedAt.UTC(),
		Verified:  true,
		Source:    SourceRemote,
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		return errors.WrapIO("encode", string(id), err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(catalogsBucket)

		if raw := bucket.Get([]byte(id)); raw != nil {
			var existing Entry
			if decodeErr := json.Unmarshal(raw, &existing); decodeErr == nil {
				if entry.FetchedAt.Before(existing.FetchedAt) {
					return &errors.ValidationError{
						Field:   "fetchedAt",
						Value:   entry.FetchedAt,
						Message: "fetch time regressed below the stored entry",
					}
				}
			}
		}

		return bucket.Put([]byte(id), encoded)
	})
	if err != nil {
		var vErr *errors.ValidationError
		if stderrors.As(err, &vErr) {
			return err
		}
		return errors.WrapIO("write", s.path, err)
	}
	return nil
}

// Delete removes the entry for id. Deleting a missing entry is a no-op.
func (s *Store) Delete(id catalogs.ID) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(catalogsBucket).Delete([]byte(id))
	})
	if err != nil {
		return errors.WrapIO("delete", s.path, err)
	}
	return nil
}

// ListExpired returns the IDs of entries whose fetch time is more than ttl
// before now. The entries themselves remain readable until Cleanup.
func (s *Store) ListExpired(now time.Time, ttl time.Duration) ([]catalogs.ID, error) {
	var expired []catalogs.ID

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(catalogsBucket).ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				// Corrupt records are expired by definition.
				expired = append(expired, catalogs.ID(k))
				return nil
			}
			if e.Expired(now, ttl) {
				expired = append(expired, e.ID)
			}
			return nil
		})
	})
	if err != nil {
		return nil, errors.WrapIO("scan", s.path, err)
	}
	return expired, nil
}

// Cleanup removes all entries past their ttl and returns how many were
// deleted. This is the only path that removes entries by age.
func (s *Store) Cleanup(now time.Time, ttl time.Duration) (int, error) {
	expired, err := s.ListExpired(now, ttl)
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(catalogsBucket)
		for _, id := range expired {
			if err := bucket.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, errors.WrapIO("cleanup", s.path, err)
	}

	logging.Debug().
		Int("removed", len(expired)).
		Msg("Cache cleanup complete")
	return len(expired), nil
}
