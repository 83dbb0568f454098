package beacon

import (
	"crypto/ed25519"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/quoteline/beacon/pkg/constants"
	"github.com/quoteline/beacon/pkg/errors"
)

// Option is a function that configures a Client instance.
type Option func(*options) error

// options holds the configured options for a Client.
type options struct {
	baseURL    string
	httpClient *http.Client

	storePath string
	ttl       time.Duration

	concurrency int

	maxRetries   int
	retryBackoff time.Duration
	maxBackoff   time.Duration

	publicKeys []ed25519.PublicKey

	autoRefreshEnabled  bool
	autoRefreshInterval time.Duration

	logger *zerolog.Logger
}

// defaults returns the default options.
func defaults() *options {
	return &options{
		storePath:           constants.DefaultStorePath,
		ttl:                 constants.DefaultCacheTTL,
		concurrency:         constants.DefaultConcurrency,
		maxRetries:          constants.MaxRetries,
		retryBackoff:        constants.RetryBackoff,
		maxBackoff:          constants.MaxRetryBackoff,
		autoRefreshEnabled:  false,
		autoRefreshInterval: constants.DefaultRefreshInterval,
	}
}

// apply applies the given options, returning the first error.
func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithBaseURL configures the remote catalog source. Required.
func WithBaseURL(url string) Option {
	return func(o *options) error {
		o.baseURL = url
		return nil
	}
}

// WithHTTPClient replaces the HTTP client used for fetching.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) error {
		o.httpClient = client
		return nil
	}
}

// WithStorePath configures where the local cache database lives.
func WithStorePath(path string) Option {
	return func(o *options) error {
		if path == "" {
			return &errors.ValidationError{Field: "storePath", Message: "store path cannot be empty"}
		}
		o.storePath = path
		return nil
	}
}

// WithTTL configures the cache expiry window. Entries older than ttl are
// refreshed on the next load; they remain usable as stale fallback.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) error {
		if ttl <= 0 {
			return &errors.ValidationError{Field: "ttl", Value: ttl, Message: "ttl must be positive"}
		}
		o.ttl = ttl
		return nil
	}
}

// WithConcurrency configures the bound on simultaneous fetches.
func WithConcurrency(n int) Option {
	return func(o *options) error {
		if n <= 0 || n > constants.MaxConcurrency {
			return &errors.ValidationError{Field: "concurrency", Value: n, Message: "concurrency out of range"}
		}
		o.concurrency = n
		return nil
	}
}

// WithRetry configures the transient-failure retry policy.
func WithRetry(maxAttempts int, base, max time.Duration) Option {
	return func(o *options) error {
		if maxAttempts < 1 {
			return &errors.ValidationError{Field: "maxAttempts", Value: maxAttempts, Message: "at least one attempt is required"}
		}
		o.maxRetries = maxAttempts
		o.retryBackoff = base
		o.maxBackoff = max
		return nil
	}
}

// WithPublicKeys replaces the embedded trust anchors. Intended for tests
// and staging environments with their own signing keys.
func WithPublicKeys(keys ...ed25519.PublicKey) Option {
	return func(o *options) error {
		if len(keys) == 0 {
			return &errors.ValidationError{Field: "publicKeys", Message: "at least one public key is required"}
		}
		o.publicKeys = keys
		return nil
	}
}

// WithAutoRefresh configures whether background refreshes are enabled.
func WithAutoRefresh(enabled bool) Option {
	return func(o *options) error {
		o.autoRefreshEnabled = enabled
		return nil
	}
}

// WithAutoRefreshInterval configures how often background refreshes run.
func WithAutoRefreshInterval(interval time.Duration) Option {
	return func(o *options) error {
		if interval <= 0 {
			return &errors.ValidationError{Field: "autoRefreshInterval", Value: interval, Message: "interval must be positive"}
		}
		o.autoRefreshInterval = interval
		return nil
	}
}

// WithLogger replaces the package default logger for this client.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}
