package store

import (
	"time"

	"github.com/quoteline/beacon/pkg/catalogs"
)

// Source records where an entry's bytes came from.
type Source string

const (
	// SourceRemote marks an entry written after a fresh verified fetch.
	SourceRemote Source = "remote"
)

// Entry is one cached catalog: the exact verified byte pair plus fetch
// metadata. The raw bytes are kept rather than the decoded document so the
// signature can be re-checked against precisely what was stored.
type Entry struct {
	// ID is the catalog identifier.
	ID catalogs.ID `json:"id"`

	// Document is the raw document bytes as fetched.
	Document []byte `json:"document"`

	// Signature is the raw detached signature bytes.
	Signature []byte `json:"signature"`

	// FetchedAt is when the pair was fetched. Monotonically non-decreasing
	// per catalog across Puts.
	FetchedAt time.Time `json:"fetched_at"`

	// Verified records that the Verifier accepted this exact pair before
	// it was written. Always true for persisted entries.
	Verified bool `json:"verified"`

	// Source records where the bytes came from.
	Source Source `json:"source"`
}

// Expired reports whether the entry is past its ttl at the given time.
func (e *Entry) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(e.FetchedAt) > ttl
}

// Age returns how long ago the entry was fetched.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}
