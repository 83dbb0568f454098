// Package fetch retrieves catalog documents, detached signatures, and the
// catalog index from the remote source. It owns timeout and retry policy
// and nothing else: no verification, no caching, no side effects beyond
// network I/O.
package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quoteline/beacon/pkg/catalogs"
	"github.com/quoteline/beacon/pkg/constants"
	"github.com/quoteline/beacon/pkg/errors"
	"github.com/quoteline/beacon/pkg/logging"
)

// Client fetches catalog material over plain HTTP(S) GET. Authenticity
// comes from each document's signature, not from the transport, so no
// request auth is applied.
type Client struct {
	baseURL string
	http    *http.Client
	retry   RetryPolicy
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

// WithRetryPolicy replaces the retry policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.retry = policy
	}
}

// New creates a fetch client for the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &errors.ValidationError{
			Field:   "baseURL",
			Value:   baseURL,
			Message: "base URL must be an absolute http(s) URL",
		}
	}

	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/") + "/",
		http:    &http.Client{Timeout: constants.DefaultHTTPTimeout},
		retry:   DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Fetch retrieves one catalog document and its detached signature.
// Transient failures are retried per the client's policy; a definitive
// "not found" is returned immediately.
func (c *Client) Fetch(ctx context.Context, id catalogs.ID) (doc, sig []byte, err error) {
	if id == "" {
		return nil, nil, &errors.ValidationError{Field: "id", Message: "catalog id is required"}
	}

	docURL := c.baseURL + constants.CatalogPathPrefix + string(id) + ".json"
	doc, err = c.get(ctx, docURL, "catalog "+string(id))
	if err != nil {
		return nil, nil, err
	}

	sigURL := docURL + constants.SignatureSuffix
	sig, err = c.get(ctx, sigURL, "signature for catalog "+string(id))
	if err != nil {
		return nil, nil, err
	}

	return doc, sig, nil
}

// FetchIndex retrieves and decodes the catalog index.
func (c *Client) FetchIndex(ctx context.Context) (*catalogs.Index, error) {
	raw, err := c.get(ctx, c.baseURL+constants.IndexPath, "catalog index")
	if err != nil {
		return nil, err
	}
	return catalogs.DecodeIndex(raw)
}

// Result is the outcome of one catalog's fetch within a batch.
type Result struct {
	Document  []byte
	Signature []byte
	Err       error
}

// FetchAll fetches the given catalogs with a bounded number of simultaneous
// fetches and returns a per-id result set. One catalog's failure never
// aborts the batch.
func (c *Client) FetchAll(ctx context.Context, ids []catalogs.ID, concurrency int) map[catalogs.ID]Result {
	if concurrency <= 0 {
		concurrency = constants.DefaultConcurrency
	}
	if concurrency > constants.MaxConcurrency {
		concurrency = constants.MaxConcurrency
	}

	results := make([]Result, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, id := range ids {
		g.Go(func() error {
			doc, sig, err := c.Fetch(ctx, id)
			results[i] = Result{Document: doc, Signature: sig, Err: err}
			// Failures are recorded per id, never propagated.
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[catalogs.ID]Result, len(ids))
	for i, id := range ids {
		out[id] = results[i]
	}
	return out
}

// get performs one GET with retries for transient failures.
func (c *Client) get(ctx context.Context, rawURL, what string) ([]byte, error) {
	log := logging.FromContext(ctx)

	var lastErr error
	attempts := 0

	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.retry.Backoff(attempt)
			log.Debug().
				Str("url", rawURL).
				Int("attempt", attempt+1).
				Dur("backoff", delay).
				Msg("Retrying fetch")
			if err := sleep(ctx, delay); err != nil {
				return nil, &errors.TimeoutError{Operation: "fetch " + what, Message: err.Error()}
			}
		}
		attempts++

		body, retriable, err := c.getOnce(ctx, rawURL, what)
		if err == nil {
			return body, nil
		}
		if !retriable {
			return nil, err
		}
		lastErr = err
	}

	return nil, errors.WrapNetwork(rawURL, 0, attempts, lastErr)
}

// getOnce performs a single GET. The second return value reports whether
// the failure is transient and worth retrying.
func (c *Client) getOnce(ctx context.Context, rawURL, what string) (body []byte, retriable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, errors.WrapNetwork(rawURL, 0, 1, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// The caller's deadline expired; retrying cannot help.
			return nil, false, &errors.TimeoutError{Operation: "fetch " + what, Message: err.Error()}
		}
		// Connection failures and per-request timeouts are transient.
		return nil, true, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, readErr := io.ReadAll(io.LimitReader(resp.Body, constants.MaxDocumentSize+1))
		if readErr != nil {
			return nil, true, readErr
		}
		if len(data) > constants.MaxDocumentSize {
			return nil, false, &errors.DocumentError{Message: what + " exceeds the maximum document size"}
		}
		return data, false, nil

	case resp.StatusCode == http.StatusNotFound:
		// Definitive: the source says it does not exist. Never retried.
		return nil, false, &errors.NotFoundError{Resource: "remote", ID: what}

	case resp.StatusCode >= 500:
		return nil, true, errors.WrapNetwork(rawURL, resp.StatusCode, 1, errors.New(resp.Status))

	default:
		// Other client errors are not transient.
		return nil, false, errors.WrapNetwork(rawURL, resp.StatusCode, 1, errors.New(resp.Status))
	}
}

// sleep waits for d or until the context is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
