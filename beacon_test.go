package beacon

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quoteline/beacon/internal/verify"
	"github.com/quoteline/beacon/pkg/catalogs"
	"github.com/quoteline/beacon/pkg/errors"
)

// testSource is an httptest-backed catalog publisher. Documents are signed
// with a per-test key so verification exercises the real code path.
type testSource struct {
	t    *testing.T
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey

	mu   sync.Mutex
	docs map[string][]byte
	sigs map[string][]byte

	delay       time.Duration
	docRequests atomic.Int64

	srv *httptest.Server
}

func newTestSource(t *testing.T) *testSource {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	s := &testSource{
		t:    t,
		priv: priv,
		pub:  pub,
		docs: make(map[string][]byte),
		sigs: make(map[string][]byte),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)
	return s
}

// publish signs doc and makes it available under id.
func (s *testSource) publish(id string, doc []byte) {
	s.t.Helper()

	sig, err := verify.Sign(s.priv, doc)
	require.NoError(s.t, err)
	s.publishWithSig(id, doc, sig)
}

// publishWithSig makes doc available with an explicit signature, which may
// be deliberately wrong.
func (s *testSource) publishWithSig(id string, doc, sig []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = doc
	s.sigs[id] = sig
}

func (s *testSource) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	delete(s.sigs, id)
}

func (s *testSource) handle(w http.ResponseWriter, r *http.Request) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	path := strings.TrimPrefix(r.URL.Path, "/")

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case path == "index.json":
		idx := catalogs.Index{GeneratedAt: time.Now().UTC()}
		for id := range s.docs {
			idx.Entries = append(idx.Entries, catalogs.IndexEntry{
				ID:        catalogs.ID(id),
				Name:      id,
				UpdatedAt: time.Now().UTC(),
			})
		}
		_ = json.NewEncoder(w).Encode(idx)

	case strings.HasPrefix(path, "catalogs/") && strings.HasSuffix(path, ".json.sig"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "catalogs/"), ".json.sig")
		sig, ok := s.sigs[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(sig)

	case strings.HasPrefix(path, "catalogs/") && strings.HasSuffix(path, ".json"):
		s.docRequests.Add(1)
		id := strings.TrimSuffix(strings.TrimPrefix(path, "catalogs/"), ".json")
		doc, ok := s.docs[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(doc)

	default:
		http.NotFound(w, r)
	}
}

// newTestClient builds a Client pointed at the test source with a temp
// store and a fast-fail retry policy.
func newTestClient(t *testing.T, s *testSource, opts ...Option) Client {
	t.Helper()

	base := []Option{
		WithBaseURL(s.srv.URL),
		WithStorePath(filepath.Join(t.TempDir(), "catalogs.db")),
		WithPublicKeys(s.pub),
		WithRetry(1, time.Millisecond, 5*time.Millisecond),
	}
	c, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func docJSON(t *testing.T, id, name, updatedAt string) []byte {
	t.Helper()

	raw, err := json.Marshal(map[string]any{
		"schema_version": "v1",
		"id":             id,
		"name":           name,
		"updated_at":     updatedAt,
		"provider": map[string]any{
			"kind": "broker",
			"endpoints": []map[string]any{
				{"name": "orders", "url": "https://" + id + ".example.com/api", "protocol": "rest"},
			},
			"capabilities": []string{"streaming"},
		},
	})
	require.NoError(t, err)
	return raw
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New()
	require.Error(t, err)

	var cfgErr *errors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestOptionValidation(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"zero ttl", WithTTL(0)},
		{"negative ttl", WithTTL(-time.Hour)},
		{"zero concurrency", WithConcurrency(0)},
		{"excessive concurrency", WithConcurrency(1000)},
		{"zero retry attempts", WithRetry(0, time.Second, time.Second)},
		{"no public keys", WithPublicKeys()},
		{"empty store path", WithStorePath("")},
		{"zero refresh interval", WithAutoRefreshInterval(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(WithBaseURL("https://catalogs.example.com"), tt.opt)
			require.Error(t, err)

			var valErr *errors.ValidationError
			assert.ErrorAs(t, err, &valErr)
		})
	}
}

func TestLoadFetchesThenServesFromCache(t *testing.T) {
	src := newTestSource(t)
	src.publish("alpha", docJSON(t, "alpha", "Alpha Markets", "2026-01-02T03:04:05Z"))

	c := newTestClient(t, src)
	ctx := context.Background()

	res, err := c.Load(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, res.Source)
	assert.False(t, res.Stale)
	assert.Equal(t, catalogs.ID("alpha"), res.Document.ID)
	assert.Equal(t, "Alpha Markets", res.Document.Name)
	assert.Equal(t, "broker", res.Document.Provider.Kind)
	assert.Equal(t, int64(1), src.docRequests.Load())

	// Within the TTL a second load must not touch the network.
	res2, err := c.Load(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, SourceCache, res2.Source)
	assert.Equal(t, res.Raw, res2.Raw)
	assert.Equal(t, int64(1), src.docRequests.Load())

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stats.Loads)
	assert.Equal(t, uint64(1), stats.CacheHits)
	assert.Equal(t, uint64(1), stats.Fetches)
	assert.Equal(t, 1, stats.Store.Entries)
}

func TestLoadEmptyID(t *testing.T) {
	src := newTestSource(t)
	c := newTestClient(t, src)

	_, err := c.Load(context.Background(), "")
	require.Error(t, err)

	var valErr *errors.ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestConcurrentLoadsCoalesce(t *testing.T) {
	src := newTestSource(t)
	src.publish("alpha", docJSON(t, "alpha", "Alpha Markets", "2026-01-02T03:04:05Z"))
	src.delay = 100 * time.Millisecond

	c := newTestClient(t, src)
	ctx := context.Background()

	const callers = 8
	start := make(chan struct{})
	var wg sync.WaitGroup
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			<-start
			_, errs[n] = c.Load(ctx, "alpha")
		}(i)
	}
	close(start)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), src.docRequests.Load(),
		"concurrent loads for one id should cause a single fetch")
}

func TestTamperedSignatureRejected(t *testing.T) {
	src := newTestSource(t)
	doc := docJSON(t, "beta", "Beta Exchange", "2026-01-02T03:04:05Z")
	sig, err := verify.Sign(src.priv, doc)
	require.NoError(t, err)
	sig[0] ^= 0x01
	src.publishWithSig("beta", doc, sig)

	c := newTestClient(t, src)

	var hookID catalogs.ID
	var hookErr error
	c.OnVerificationFailed(func(id catalogs.ID, err error) {
		hookID = id
		hookErr = err
	})

	_, err = c.Load(context.Background(), "beta")
	require.Error(t, err)
	assert.True(t, errors.IsInvalidSignature(err))
	assert.Equal(t, catalogs.ID("beta"), hookID)
	assert.Error(t, hookErr)

	// The failing payload must never reach the store.
	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Store.Entries)
	assert.Equal(t, uint64(1), stats.VerificationFailures)
}

func TestTamperedDocumentRejected(t *testing.T) {
	src := newTestSource(t)
	doc := docJSON(t, "beta", "Beta Exchange", "2026-01-02T03:04:05Z")
	sig, err := verify.Sign(src.priv, doc)
	require.NoError(t, err)

	tampered := []byte(strings.Replace(string(doc), "Beta Exchange", "Evil Exchange", 1))
	src.publishWithSig("beta", tampered, sig)

	c := newTestClient(t, src)

	_, err = c.Load(context.Background(), "beta")
	require.Error(t, err)
	assert.True(t, errors.IsInvalidSignature(err))
}

func TestStaleFallbackWhenSourceUnreachable(t *testing.T) {
	src := newTestSource(t)
	src.publish("alpha", docJSON(t, "alpha", "Alpha Markets", "2026-01-02T03:04:05Z"))

	c := newTestClient(t, src, WithTTL(30*time.Millisecond))
	ctx := context.Background()

	first, err := c.Load(ctx, "alpha")
	require.NoError(t, err)
	require.Equal(t, SourceRemote, first.Source)

	var staleID catalogs.ID
	c.OnCatalogStale(func(id catalogs.ID, doc *catalogs.Document) {
		staleID = id
	})

	src.srv.Close()
	time.Sleep(40 * time.Millisecond)

	res, err := c.Load(ctx, "alpha")
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, first.Raw, res.Raw)
	assert.Equal(t, catalogs.ID("alpha"), staleID)

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.StaleFallbacks)
}

func TestUnavailableWithoutCache(t *testing.T) {
	src := newTestSource(t)
	src.srv.Close()

	c := newTestClient(t, src)

	_, err := c.Load(context.Background(), "alpha")
	require.Error(t, err)
	assert.True(t, errors.IsUnavailable(err))
}

func TestNotFoundIsDefinitive(t *testing.T) {
	src := newTestSource(t)
	src.publish("alpha", docJSON(t, "alpha", "Alpha Markets", "2026-01-02T03:04:05Z"))

	c := newTestClient(t, src, WithTTL(30*time.Millisecond))
	ctx := context.Background()

	_, err := c.Load(ctx, "alpha")
	require.NoError(t, err)

	// The source now says the catalog does not exist. That answer is
	// authoritative and must not be masked by the cached copy.
	src.remove("alpha")
	time.Sleep(40 * time.Millisecond)

	_, err = c.Load(ctx, "alpha")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestUnsupportedSchemaNeverCached(t *testing.T) {
	src := newTestSource(t)
	raw, err := json.Marshal(map[string]any{
		"schema_version": "v9",
		"id":             "gamma",
		"name":           "Gamma",
		"updated_at":     "2026-01-02T03:04:05Z",
		"provider":       map[string]any{"kind": "broker"},
	})
	require.NoError(t, err)
	src.publish("gamma", raw)

	c := newTestClient(t, src)

	_, err = c.Load(context.Background(), "gamma")
	require.Error(t, err)
	assert.True(t, errors.IsUnsupportedSchema(err))

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Store.Entries)
}

func TestRefreshBypassesCache(t *testing.T) {
	src := newTestSource(t)
	src.publish("alpha", docJSON(t, "alpha", "Alpha Markets", "2026-01-02T03:04:05Z"))

	c := newTestClient(t, src)
	ctx := context.Background()

	_, err := c.Load(ctx, "alpha")
	require.NoError(t, err)

	var oldName, newName string
	c.OnCatalogUpdated(func(id catalogs.ID, old, updated *catalogs.Document) {
		if old != nil {
			oldName = old.Name
		}
		newName = updated.Name
	})

	src.publish("alpha", docJSON(t, "alpha", "Alpha Markets v2", "2026-02-02T03:04:05Z"))

	// A fresh cache entry hides the update from Load.
	cached, err := c.Load(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "Alpha Markets", cached.Document.Name)

	// Refresh skips the freshness check and picks it up.
	res, err := c.Refresh(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, res.Source)
	assert.Equal(t, "Alpha Markets v2", res.Document.Name)
	assert.Equal(t, "Alpha Markets", oldName)
	assert.Equal(t, "Alpha Markets v2", newName)
}

func TestFirstFetchFiresUpdatedHookWithNilOld(t *testing.T) {
	src := newTestSource(t)
	src.publish("alpha", docJSON(t, "alpha", "Alpha Markets", "2026-01-02T03:04:05Z"))

	c := newTestClient(t, src)

	var sawNilOld bool
	c.OnCatalogUpdated(func(id catalogs.ID, old, updated *catalogs.Document) {
		sawNilOld = old == nil
	})

	_, err := c.Load(context.Background(), "alpha")
	require.NoError(t, err)
	assert.True(t, sawNilOld)
}

func TestLoadAllPartialSuccess(t *testing.T) {
	src := newTestSource(t)
	src.publish("alpha", docJSON(t, "alpha", "Alpha Markets", "2026-01-02T03:04:05Z"))

	badDoc := docJSON(t, "beta", "Beta Exchange", "2026-01-02T03:04:05Z")
	badSig := make([]byte, 64)
	src.publishWithSig("beta", badDoc, badSig)

	c := newTestClient(t, src)

	results := c.LoadAll(context.Background(), []catalogs.ID{"alpha", "beta", "missing"}, 2)
	require.Len(t, results, 3)

	require.NoError(t, results["alpha"].Err)
	assert.Equal(t, "Alpha Markets", results["alpha"].Result.Document.Name)

	require.Error(t, results["beta"].Err)
	assert.True(t, errors.IsInvalidSignature(results["beta"].Err))

	require.Error(t, results["missing"].Err)
	assert.True(t, errors.IsNotFound(results["missing"].Err))
}

func TestIndex(t *testing.T) {
	src := newTestSource(t)
	src.publish("alpha", docJSON(t, "alpha", "Alpha Markets", "2026-01-02T03:04:05Z"))
	src.publish("beta", docJSON(t, "beta", "Beta Exchange", "2026-01-02T03:04:05Z"))

	c := newTestClient(t, src)

	idx, err := c.Index(context.Background())
	require.NoError(t, err)
	assert.Len(t, idx.Entries, 2)
	assert.ElementsMatch(t, []catalogs.ID{"alpha", "beta"}, idx.IDs())

	entry, ok := idx.Lookup("alpha")
	require.True(t, ok)
	assert.Equal(t, catalogs.ID("alpha"), entry.ID)
}

func TestCleanupExpired(t *testing.T) {
	src := newTestSource(t)
	src.publish("alpha", docJSON(t, "alpha", "Alpha Markets", "2026-01-02T03:04:05Z"))

	c := newTestClient(t, src, WithTTL(20*time.Millisecond))
	ctx := context.Background()

	_, err := c.Load(ctx, "alpha")
	require.NoError(t, err)

	expired, err := c.ListExpired()
	require.NoError(t, err)
	assert.Empty(t, expired)

	time.Sleep(30 * time.Millisecond)

	expired, err = c.ListExpired()
	require.NoError(t, err)
	assert.Equal(t, []catalogs.ID{"alpha"}, expired)

	removed, err := c.CleanupExpired()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Store.Entries)
}

func TestCacheSurvivesRestart(t *testing.T) {
	src := newTestSource(t)
	src.publish("alpha", docJSON(t, "alpha", "Alpha Markets", "2026-01-02T03:04:05Z"))

	storePath := filepath.Join(t.TempDir(), "catalogs.db")
	opts := []Option{
		WithBaseURL(src.srv.URL),
		WithStorePath(storePath),
		WithPublicKeys(src.pub),
		WithRetry(1, time.Millisecond, 5*time.Millisecond),
	}

	c, err := New(opts...)
	require.NoError(t, err)
	_, err = c.Load(context.Background(), "alpha")
	require.NoError(t, err)
	require.NoError(t, c.Close())

	// A new client over the same store serves from cache with the source
	// offline.
	src.srv.Close()

	c2, err := New(opts...)
	require.NoError(t, err)
	defer c2.Close()

	res, err := c2.Load(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, SourceCache, res.Source)
	assert.Equal(t, "Alpha Markets", res.Document.Name)
}

func TestAutoRefresh(t *testing.T) {
	src := newTestSource(t)
	src.publish("alpha", docJSON(t, "alpha", "Alpha Markets", "2026-01-02T03:04:05Z"))

	c := newTestClient(t, src,
		WithAutoRefresh(true),
		WithAutoRefreshInterval(20*time.Millisecond),
	)
	defer c.Close()

	assert.Eventually(t, func() bool {
		return src.docRequests.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond,
		"background refresh should fetch listed catalogs repeatedly")

	require.NoError(t, c.AutoRefreshOff())
}

func TestCloseIsIdempotent(t *testing.T) {
	src := newTestSource(t)
	c := newTestClient(t, src)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}
