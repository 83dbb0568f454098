package beacon

import (
	"sync/atomic"
	"time"

	"github.com/quoteline/beacon/internal/store"
	"github.com/quoteline/beacon/pkg/catalogs"
)

// counters tracks in-process load activity.
type counters struct {
	loads          atomic.Uint64
	cacheHits      atomic.Uint64
	fetches        atomic.Uint64
	verifyFailures atomic.Uint64
	staleFallbacks atomic.Uint64
}

// Stats combines persistent store statistics with in-process load counters.
// All values are read-only diagnostics.
type Stats struct {
	// Store summarizes the on-disk cache.
	Store store.Stats `json:"store"`

	// Loads counts Load/Refresh calls since the client was created.
	Loads uint64 `json:"loads"`

	// CacheHits counts loads served from fresh cache without network I/O.
	CacheHits uint64 `json:"cache_hits"`

	// Fetches counts completed network fetches.
	Fetches uint64 `json:"fetches"`

	// VerificationFailures counts signature, schema, and structural
	// rejections.
	VerificationFailures uint64 `json:"verification_failures"`

	// StaleFallbacks counts loads served from expired-or-unrefreshable
	// cache because the network was unavailable.
	StaleFallbacks uint64 `json:"stale_fallbacks"`
}

// Stats returns cache and load statistics.
func (c *client) Stats() (Stats, error) {
	storeStats, err := c.store.Stats()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Store:                storeStats,
		Loads:                c.counters.loads.Load(),
		CacheHits:            c.counters.cacheHits.Load(),
		Fetches:              c.counters.fetches.Load(),
		VerificationFailures: c.counters.verifyFailures.Load(),
		StaleFallbacks:       c.counters.staleFallbacks.Load(),
	}, nil
}

// ListExpired returns the IDs of entries past the configured TTL.
func (c *client) ListExpired() ([]catalogs.ID, error) {
	return c.store.ListExpired(time.Now(), c.options.ttl)
}

// CleanupExpired removes entries past the configured TTL.
func (c *client) CleanupExpired() (int, error) {
	return c.store.Cleanup(time.Now(), c.options.ttl)
}
