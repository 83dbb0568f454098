package beacon

import (
	"bytes"
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quoteline/beacon/pkg/catalogs"
	"github.com/quoteline/beacon/pkg/constants"
	"github.com/quoteline/beacon/pkg/errors"
	"github.com/quoteline/beacon/pkg/logging"
)

// Source records which path produced a Result.
type Source string

const (
	// SourceCache marks a fresh cache hit served without network I/O.
	SourceCache Source = "cache"

	// SourceRemote marks a document fetched and verified on this call.
	SourceRemote Source = "remote"

	// SourceFallback marks a previously verified cached copy served
	// because the network was unavailable.
	SourceFallback Source = "fallback"
)

// Result is a successfully loaded catalog document.
type Result struct {
	// Document is the decoded, verified document.
	Document *catalogs.Document

	// Raw is the exact verified document bytes.
	Raw []byte

	// FetchedAt is when the underlying bytes were fetched and verified.
	FetchedAt time.Time

	// Stale marks a fallback serve: the copy was previously verified but
	// could not be refreshed, so it may be outdated.
	Stale bool

	// Source records which path produced this result.
	Source Source
}

// LoadResult is one catalog's outcome within a LoadAll batch.
type LoadResult struct {
	Result *Result
	Err    error
}

// Load returns the document for id using the cache-first policy:
// a cached entry within the TTL is returned without touching the network;
// otherwise the document is fetched and verified, with stale-cache fallback
// on network failure. Verification failures are never masked by the cache.
func (c *client) Load(ctx context.Context, id catalogs.ID) (*Result, error) {
	if id == "" {
		return nil, &errors.ValidationError{Field: "id", Message: "catalog id is required"}
	}
	c.counters.loads.Add(1)

	entry, ok, err := c.store.Get(id)
	if err != nil {
		return nil, err
	}
	if ok && !entry.Expired(time.Now(), c.options.ttl) {
		if doc, decodeErr := catalogs.DecodeDocument(entry.Document); decodeErr == nil {
			c.counters.cacheHits.Add(1)
			return &Result{
				Document:  doc,
				Raw:       entry.Document,
				FetchedAt: entry.FetchedAt,
				Source:    SourceCache,
			}, nil
		}
		// A cached document this build can no longer decode (e.g. written
		// by a different client version) is treated as a miss.
		logging.FromContext(ctx).Warn().
			Str("catalog_id", string(id)).
			Msg("Cached document no longer decodes; refetching")
	}

	return c.fetchAndVerify(ctx, id)
}

// Refresh fetches and verifies id unconditionally, skipping the cache
// shortcut. The fallback and verification rules match Load.
func (c *client) Refresh(ctx context.Context, id catalogs.ID) (*Result, error) {
	if id == "" {
		return nil, &errors.ValidationError{Field: "id", Message: "catalog id is required"}
	}
	c.counters.loads.Add(1)
	return c.fetchAndVerify(ctx, id)
}

// LoadAll applies the per-id load policy with a bounded number of
// simultaneous loads and aggregates partial successes: one catalog's
// failure never aborts the batch.
func (c *client) LoadAll(ctx context.Context, ids []catalogs.ID, concurrency int) map[catalogs.ID]LoadResult {
	if concurrency <= 0 {
		concurrency = c.options.concurrency
	}
	if concurrency > constants.MaxConcurrency {
		concurrency = constants.MaxConcurrency
	}

	results := make([]LoadResult, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, id := range ids {
		g.Go(func() error {
			res, err := c.Load(ctx, id)
			results[i] = LoadResult{Result: res, Err: err}
			// Failures are recorded per id, never propagated.
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[catalogs.ID]LoadResult, len(ids))
	for i, id := range ids {
		out[id] = results[i]
	}
	return out
}

// Index fetches the remote catalog index.
func (c *client) Index(ctx context.Context) (*catalogs.Index, error) {
	return c.fetcher.FetchIndex(ctx)
}

// fetchAndVerify coalesces concurrent calls per catalog ID so N identical
// loads cause at most one network fetch.
func (c *client) fetchAndVerify(ctx context.Context, id catalogs.ID) (*Result, error) {
	v, err, _ := c.flight.Do(string(id), func() (any, error) {
		return c.doFetchAndVerify(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

// doFetchAndVerify runs the Fetching -> Verifying leg of the load state
// machine for one catalog.
func (c *client) doFetchAndVerify(ctx context.Context, id catalogs.ID) (*Result, error) {
	log := logging.FromContext(ctx)

	doc, sig, err := c.fetcher.Fetch(ctx, id)
	if err != nil {
		if errors.IsNetwork(err) || errors.IsTimeout(err) {
			return c.fallback(ctx, id, err)
		}
		// A definitive answer from the source (e.g. not found) is
		// surfaced as-is; the cache is not consulted for it.
		return nil, err
	}
	c.counters.fetches.Add(1)

	parsed, err := c.verifier.VerifyAndParse(id, doc, sig)
	if err != nil {
		// Security event: never store the failing payload and never fall
		// back to a cached copy of it.
		c.counters.verifyFailures.Add(1)
		c.hooks.triggerVerificationFailed(id, err)
		log.Error().
			Str("catalog_id", string(id)).
			Err(err).
			Msg("Catalog failed verification")
		return nil, err
	}

	// Previous bytes, if any, for change detection.
	var oldDoc *catalogs.Document
	var oldRaw []byte
	if prev, ok, getErr := c.store.Get(id); getErr == nil && ok {
		oldRaw = prev.Document
		if d, decodeErr := catalogs.DecodeDocument(prev.Document); decodeErr == nil {
			oldDoc = d
		}
	}

	fetchedAt := time.Now().UTC()
	if err := c.store.Put(id, doc, sig, fetchedAt); err != nil {
		return nil, err
	}

	if oldRaw == nil || !bytes.Equal(oldRaw, doc) {
		c.hooks.triggerUpdated(id, oldDoc, parsed)
	}

	log.Debug().
		Str("catalog_id", string(id)).
		Time("fetched_at", fetchedAt).
		Msg("Catalog fetched and verified")

	return &Result{
		Document:  parsed,
		Raw:       doc,
		FetchedAt: fetchedAt,
		Source:    SourceRemote,
	}, nil
}

// fallback serves the last-known-good copy, if any, when the network is
// unavailable. The copy was verified when stored; it is returned with an
// explicit stale marker rather than withheld.
func (c *client) fallback(ctx context.Context, id catalogs.ID, cause error) (*Result, error) {
	entry, ok, err := c.store.Get(id)
	if err != nil || !ok {
		return nil, &errors.UnavailableError{CatalogID: string(id), Err: cause}
	}

	doc, decodeErr := catalogs.DecodeDocument(entry.Document)
	if decodeErr != nil {
		return nil, &errors.UnavailableError{CatalogID: string(id), Err: cause}
	}

	c.counters.staleFallbacks.Add(1)
	c.hooks.triggerStale(id, doc)
	logging.FromContext(ctx).Warn().
		Str("catalog_id", string(id)).
		Time("fetched_at", entry.FetchedAt).
		Err(cause).
		Msg("Serving stale catalog; refresh unavailable")

	return &Result{
		Document:  doc,
		Raw:       entry.Document,
		FetchedAt: entry.FetchedAt,
		Stale:     true,
		Source:    SourceFallback,
	}, nil
}
