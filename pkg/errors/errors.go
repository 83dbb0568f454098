// Package errors provides custom error types for the beacon system.
// These errors enable better error handling, programmatic error checking,
// and improved debugging throughout the application.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the beacon system
var (
	// ErrNotFound indicates that a requested catalog was not found at the source
	ErrNotFound = errors.New("not found")

	// ErrNetwork indicates a transient network failure
	ErrNetwork = errors.New("network error")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidSignature indicates that a document's signature did not verify
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrUnsupportedSchema indicates an authentic document with an unsupported schema version
	ErrUnsupportedSchema = errors.New("unsupported schema")

	// ErrMalformedDocument indicates a document that could not be decoded or validated
	ErrMalformedDocument = errors.New("malformed document")

	// ErrUnavailable indicates that no verified document was obtainable by any path
	ErrUnavailable = errors.New("catalog unavailable")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrStoreClosed indicates an operation against a closed store
	ErrStoreClosed = errors.New("store closed")
)

// NotFoundError represents a definitive "does not exist" answer from the source.
// It is never retried.
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// NetworkError represents a transient failure talking to the catalog source.
// It is eligible for retry and for stale-cache fallback.
type NetworkError struct {
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

// Error implements the error interface
func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("network error fetching %s (status %d, %d attempts): %v", e.URL, e.StatusCode, e.Attempts, e.Err)
	}
	return fmt.Sprintf("network error fetching %s (%d attempts): %v", e.URL, e.Attempts, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

// SignatureError indicates that a document failed Ed25519 verification.
// This is security-relevant and must never be masked by cache fallback.
type SignatureError struct {
	CatalogID string
	Keys      int
	Message   string
}

// Error implements the error interface
func (e *SignatureError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("invalid signature for catalog %s: %s", e.CatalogID, e.Message)
	}
	return fmt.Sprintf("invalid signature for catalog %s: no trusted key matched (%d tried)", e.CatalogID, e.Keys)
}

// Is implements errors.Is support
func (e *SignatureError) Is(target error) bool {
	return target == ErrInvalidSignature
}

// SchemaError indicates an authentic document whose schema version this
// client does not understand. Authenticity does not imply compatibility.
type SchemaError struct {
	CatalogID string
	Version   string
	Supported []string
}

// Error implements the error interface
func (e *SchemaError) Error() string {
	return fmt.Sprintf("unsupported schema version %q for catalog %s (supported: %v)", e.Version, e.CatalogID, e.Supported)
}

// Is implements errors.Is support
func (e *SchemaError) Is(target error) bool {
	return target == ErrUnsupportedSchema
}

// DocumentError indicates a document that could not be decoded or failed
// structural validation. Treated with the same severity as a bad signature,
// since the input is attacker-controlled.
type DocumentError struct {
	CatalogID string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *DocumentError) Error() string {
	if e.CatalogID != "" {
		return fmt.Sprintf("malformed document for catalog %s: %s", e.CatalogID, e.Message)
	}
	return fmt.Sprintf("malformed document: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DocumentError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *DocumentError) Is(target error) bool {
	return target == ErrMalformedDocument
}

// UnavailableError indicates that no verified document could be produced:
// the network failed and no cached copy exists.
type UnavailableError struct {
	CatalogID string
	Err       error
}

// Error implements the error interface
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("catalog %s unavailable: %v", e.CatalogID, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// TimeoutError represents an operation timeout
type TimeoutError struct {
	Operation string
	Duration  string
	Message   string
}

// Error implements the error interface
func (e *TimeoutError) Error() string {
	if e.Duration != "" {
		return fmt.Sprintf("operation %s timed out after %s: %s", e.Operation, e.Duration, e.Message)
	}
	return fmt.Sprintf("operation %s timed out: %s", e.Operation, e.Message)
}

// Is implements errors.Is support
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// ValidationError represents a validation failure on caller-supplied input
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// IOError represents an error during local I/O operations
type IOError struct {
	Operation string // "read", "write", "open", "close", "delete"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsNetwork checks if an error is a transient network error
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsInvalidSignature checks if an error is a signature verification failure
func IsInvalidSignature(err error) bool {
	return errors.Is(err, ErrInvalidSignature)
}

// IsUnsupportedSchema checks if an error is an unsupported schema error
func IsUnsupportedSchema(err error) bool {
	return errors.Is(err, ErrUnsupportedSchema)
}

// IsMalformedDocument checks if an error is a malformed document error
func IsMalformedDocument(err error) bool {
	return errors.Is(err, ErrMalformedDocument)
}

// IsVerification checks if an error is any of the non-retriable,
// security-relevant verification failures.
func IsVerification(err error) bool {
	return IsInvalidSignature(err) || IsUnsupportedSchema(err) || IsMalformedDocument(err)
}

// IsUnavailable checks if an error means no verified document was obtainable
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapNetwork wraps an error as a NetworkError
func WrapNetwork(url string, statusCode, attempts int, err error) error {
	if err == nil {
		return nil
	}
	return &NetworkError{
		URL:        url,
		StatusCode: statusCode,
		Attempts:   attempts,
		Err:        err,
	}
}

// WrapDocument wraps an error as a DocumentError
func WrapDocument(catalogID string, err error) error {
	if err == nil {
		return nil
	}
	return &DocumentError{
		CatalogID: catalogID,
		Message:   err.Error(),
		Err:       err,
	}
}
