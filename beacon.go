// Package beacon acquires, cryptographically verifies, and locally caches
// signed catalog documents describing external service providers a trading
// client can connect to. Documents come from an untrusted network source;
// authenticity is established by detached Ed25519 signatures checked
// against trust anchors compiled into the client, and verified documents
// are cached durably so the client stays usable when the network is not.
//
// The load policy is cache-first: a fresh cached entry is returned without
// touching the network, a missing or expired entry triggers a fetch-and-
// verify, and a network failure falls back to any previously verified copy,
// explicitly marked stale. Verification failures are security events and
// are never papered over with cached data.
//
// Example usage:
//
//	bc, err := beacon.New(
//	    beacon.WithBaseURL("https://catalogs.example.com"),
//	    beacon.WithStorePath("/var/lib/app/catalogs.db"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer bc.Close()
//
//	res, err := bc.Load(ctx, "alpha")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if res.Stale {
//	    fmt.Println("showing cached copy; may be outdated")
//	}
//	fmt.Println(res.Document.Name)
package beacon

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/quoteline/beacon/internal/fetch"
	"github.com/quoteline/beacon/internal/store"
	"github.com/quoteline/beacon/internal/verify"
	"github.com/quoteline/beacon/pkg/catalogs"
	"github.com/quoteline/beacon/pkg/errors"
	"github.com/quoteline/beacon/pkg/logging"
)

// Compile-time interface check to ensure proper implementation.
var _ Client = (*client)(nil)

// Loader loads verified catalog documents.
type Loader interface {
	// Load returns the document for id using the cache-first policy.
	Load(ctx context.Context, id catalogs.ID) (*Result, error)

	// Refresh fetches and verifies unconditionally, skipping the cache
	// shortcut.
	Refresh(ctx context.Context, id catalogs.ID) (*Result, error)

	// LoadAll applies the per-id load policy concurrently and aggregates
	// partial successes.
	LoadAll(ctx context.Context, ids []catalogs.ID, concurrency int) map[catalogs.ID]LoadResult

	// Index fetches the remote catalog index.
	Index(ctx context.Context) (*catalogs.Index, error)
}

// AutoRefresher provides controls for background catalog refreshes.
type AutoRefresher interface {
	// AutoRefreshOn begins background refreshes if configured.
	AutoRefreshOn() error

	// AutoRefreshOff stops background refreshes.
	AutoRefreshOff() error
}

// Hooks provides access to event callback registration.
type Hooks interface {
	// OnCatalogUpdated registers a callback for verified document changes.
	OnCatalogUpdated(CatalogUpdatedHook)

	// OnCatalogStale registers a callback for stale-fallback serves.
	OnCatalogStale(CatalogStaleHook)

	// OnVerificationFailed registers a callback for signature, schema, and
	// structural failures.
	OnVerificationFailed(VerificationFailedHook)
}

// Diagnostics exposes read-only cache introspection.
type Diagnostics interface {
	// Stats returns cache and load counters.
	Stats() (Stats, error)

	// ListExpired returns the IDs of entries past the configured TTL.
	ListExpired() ([]catalogs.ID, error)

	// CleanupExpired removes entries past the configured TTL and returns
	// how many were deleted.
	CleanupExpired() (int, error)
}

// Client manages verified provider catalogs with local caching, background
// refreshes, and event hooks.
type Client interface {
	Loader
	AutoRefresher
	Hooks
	Diagnostics

	// Close stops background work and closes the local store.
	Close() error
}

// client is the internal implementation of the Client interface.
type client struct {
	options  *options
	fetcher  *fetch.Client
	verifier *verify.Verifier
	store    *store.Store

	// flight coalesces concurrent fetch-and-verify calls per catalog ID.
	flight singleflight.Group

	counters counters
	hooks    *hooks

	// auto refresh state
	mu             sync.Mutex
	refreshTicker  *time.Ticker
	refreshCancel  context.CancelFunc
	stopCh         chan struct{}
	autoRefreshing bool

	closeOnce sync.Once
}

// New creates a new Client instance with the given options.
func New(opts ...Option) (Client, error) {
	options, err := defaults().apply(opts...)
	if err != nil {
		return nil, err
	}

	if options.baseURL == "" {
		return nil, &errors.ConfigError{
			Component: "beacon",
			Message:   "a catalog source base URL is required (WithBaseURL)",
		}
	}

	fetchOpts := []fetch.Option{
		fetch.WithRetryPolicy(fetch.RetryPolicy{
			MaxAttempts: options.maxRetries,
			BaseBackoff: options.retryBackoff,
			MaxBackoff:  options.maxBackoff,
		}),
	}
	if options.httpClient != nil {
		fetchOpts = append(fetchOpts, fetch.WithHTTPClient(options.httpClient))
	}

	fetcher, err := fetch.New(options.baseURL, fetchOpts...)
	if err != nil {
		return nil, err
	}

	keys := options.publicKeys
	if len(keys) == 0 {
		keys = verify.DefaultPublicKeys()
	}
	verifier, err := verify.New(keys...)
	if err != nil {
		return nil, err
	}

	storePath, err := expandPath(options.storePath)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(storePath)
	if err != nil {
		return nil, err
	}

	c := &client{
		options:  options,
		fetcher:  fetcher,
		verifier: verifier,
		store:    st,
		hooks:    newHooks(),
		stopCh:   make(chan struct{}),
	}

	if options.logger != nil {
		logging.SetDefault(*options.logger)
	}

	if options.autoRefreshEnabled {
		if err := c.AutoRefreshOn(); err != nil {
			_ = st.Close()
			return nil, err
		}
	}

	return c, nil
}

// Close stops background refreshes and closes the local store.
func (c *client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		_ = c.AutoRefreshOff()
		err = c.store.Close()
	})
	return err
}

// expandPath expands a leading "~" to the user's home directory.
func expandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.WrapIO("resolve", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
