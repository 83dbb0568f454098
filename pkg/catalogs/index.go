package catalogs

import (
	"encoding/json"
	"time"

	"github.com/quoteline/beacon/pkg/errors"
)

// Index lists all catalogs known to the remote source, with enough metadata
// to decide whether an entry needs refresh without downloading the full
// document. The index itself is unsigned; trust comes from each document's
// own detached signature.
type Index struct {
	// GeneratedAt is when the publisher produced this index.
	GeneratedAt time.Time `json:"generated_at"`

	// Entries lists the known catalogs.
	Entries []IndexEntry `json:"entries"`
}

// IndexEntry is one catalog's row in the index.
type IndexEntry struct {
	// ID is the catalog's stable identifier.
	ID ID `json:"id"`

	// Name is the provider's display name.
	Name string `json:"name"`

	// UpdatedAt is the publisher's last-modified timestamp for the document.
	UpdatedAt time.Time `json:"updated_at"`

	// SignaturePath locates the detached signature, relative to the base URL.
	SignaturePath string `json:"signature_path,omitempty"`
}

// IDs returns the catalog identifiers listed in the index.
func (idx *Index) IDs() []ID {
	ids := make([]ID, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		ids = append(ids, e.ID)
	}
	return ids
}

// Lookup returns the entry for the given ID, if present.
func (idx *Index) Lookup(id ID) (IndexEntry, bool) {
	for _, e := range idx.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return IndexEntry{}, false
}

// DecodeIndex decodes raw index bytes.
func DecodeIndex(raw []byte) (*Index, error) {
	var idx Index
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, &errors.DocumentError{Message: "index is not valid JSON", Err: err}
	}
	for _, e := range idx.Entries {
		if e.ID == "" {
			return nil, &errors.DocumentError{Message: "index entry is missing required field: id"}
		}
	}
	return &idx, nil
}
