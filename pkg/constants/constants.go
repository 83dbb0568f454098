// Package constants provides shared constants used throughout the beacon codebase.
// This includes timeouts, retry limits, cache TTLs, and other configuration values
// that should be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests to the catalog source
	DefaultHTTPTimeout = 30 * time.Second

	// LoadTimeout is the timeout for a single load operation, retries included
	LoadTimeout = 2 * time.Minute

	// RefreshContextTimeout is the timeout for each background refresh pass
	RefreshContextTimeout = 5 * time.Minute

	// DefaultRefreshInterval is the default interval between automatic catalog refreshes
	DefaultRefreshInterval = 1 * time.Hour

	// RetryBackoff is the base backoff duration for retries
	RetryBackoff = 2 * time.Second

	// MaxRetryBackoff is the maximum backoff duration for retries
	MaxRetryBackoff = 30 * time.Second
)

// Limit constants define various limits and capacities
const (
	// MaxRetries is the maximum number of attempts for transient fetch failures
	MaxRetries = 3

	// DefaultConcurrency is the default number of simultaneous fetches
	DefaultConcurrency = 3

	// MaxConcurrency is the upper bound accepted for fetch concurrency
	MaxConcurrency = 16

	// MaxDocumentSize is the maximum accepted size of a catalog document in bytes
	MaxDocumentSize = 1 << 20

	// SignatureSize is the exact size of a detached Ed25519 signature in bytes
	SignatureSize = 64
)

// Cache constants
const (
	// DefaultCacheTTL is the default time-to-live for cached catalog entries
	DefaultCacheTTL = 24 * time.Hour
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644

	// StoreFilePermissions is for the local cache database (rw-------)
	StoreFilePermissions = 0600
)

// Path constants
const (
	// DefaultStorePath is the default path for the local catalog cache
	DefaultStorePath = "~/.beacon/catalogs.db"

	// DefaultConfigPath is the default path for configuration files
	DefaultConfigPath = "~/.beacon/config.yaml"
)

// Remote source layout constants
const (
	// IndexPath is the well-known location of the catalog index, relative to the base URL
	IndexPath = "index.json"

	// CatalogPathPrefix is the directory holding catalog documents, relative to the base URL
	CatalogPathPrefix = "catalogs/"

	// SignatureSuffix is appended to a document path to locate its detached signature
	SignatureSuffix = ".sig"
)
