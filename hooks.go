package beacon

import (
	"sync"

	"github.com/quoteline/beacon/pkg/catalogs"
)

// Hook function types for catalog events
type (
	// CatalogUpdatedHook is called when a verified document is stored for
	// the first time or replaces a different previous version. old is nil
	// on first fetch.
	CatalogUpdatedHook func(id catalogs.ID, old, updated *catalogs.Document)

	// CatalogStaleHook is called when a previously verified copy is served
	// because the network was unavailable.
	CatalogStaleHook func(id catalogs.ID, doc *catalogs.Document)

	// VerificationFailedHook is called when a fetched document fails
	// signature, schema, or structural verification.
	VerificationFailedHook func(id catalogs.ID, err error)
)

// hooks manages event callbacks for catalog changes.
type hooks struct {
	mu                   sync.RWMutex
	onCatalogUpdated     []CatalogUpdatedHook
	onCatalogStale       []CatalogStaleHook
	onVerificationFailed []VerificationFailedHook
}

// newHooks creates a new hooks instance.
func newHooks() *hooks {
	return &hooks{}
}

// OnCatalogUpdated registers a callback for verified document changes.
func (c *client) OnCatalogUpdated(fn CatalogUpdatedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onCatalogUpdated = append(c.hooks.onCatalogUpdated, fn)
}

// OnCatalogStale registers a callback for stale-fallback serves.
func (c *client) OnCatalogStale(fn CatalogStaleHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onCatalogStale = append(c.hooks.onCatalogStale, fn)
}

// OnVerificationFailed registers a callback for verification failures.
func (c *client) OnVerificationFailed(fn VerificationFailedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onVerificationFailed = append(c.hooks.onVerificationFailed, fn)
}

func (h *hooks) triggerUpdated(id catalogs.ID, old, updated *catalogs.Document) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onCatalogUpdated {
		hook(id, old, updated)
	}
}

func (h *hooks) triggerStale(id catalogs.ID, doc *catalogs.Document) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onCatalogStale {
		hook(id, doc)
	}
}

func (h *hooks) triggerVerificationFailed(id catalogs.ID, err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onVerificationFailed {
		hook(id, err)
	}
}
