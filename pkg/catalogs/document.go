package catalogs

import (
	"encoding/json"
	"time"

	"github.com/quoteline/beacon/pkg/errors"
)

// Document is the decoded form of one catalog document (schema v1).
// The struct is a closed set of explicit fields per schema version;
// unknown versions are rejected rather than reflected over.
type Document struct {
	// SchemaVersion tags the document shape. Always SchemaV1 after decode;
	// legacy v0 documents are migrated forward.
	SchemaVersion string `json:"schema_version"`

	// ID is the catalog's stable identifier.
	ID ID `json:"id"`

	// Name is the provider's display name.
	Name string `json:"name"`

	// UpdatedAt is the publisher's last-modified timestamp.
	UpdatedAt time.Time `json:"updated_at"`

	// Description is free-form provider prose. Optional.
	Description string `json:"description,omitempty"`

	// Homepage is the provider's website. Optional.
	Homepage string `json:"homepage,omitempty"`

	// Provider holds the connection-relevant provider metadata.
	Provider ProviderInfo `json:"provider"`
}

// ProviderInfo describes how a client connects to the provider.
type ProviderInfo struct {
	// Kind classifies the provider (e.g. "broker", "market-data").
	Kind string `json:"kind"`

	// Endpoints lists the provider's reachable services.
	Endpoints []Endpoint `json:"endpoints,omitempty"`

	// Regions lists geographic regions the provider serves. Optional.
	Regions []string `json:"regions,omitempty"`

	// Capabilities lists feature tags (e.g. "streaming", "paper-trading").
	Capabilities []string `json:"capabilities,omitempty"`
}

// Endpoint is one reachable service of a provider.
type Endpoint struct {
	// Name identifies the endpoint within the provider (e.g. "orders").
	Name string `json:"name"`

	// URL is the endpoint's address.
	URL string `json:"url"`

	// Protocol is the wire protocol (e.g. "rest", "websocket", "fix").
	Protocol string `json:"protocol,omitempty"`
}

// documentV0 is the legacy pre-versioning document shape. It lacks the
// schema_version field and nests nothing under "provider".
type documentV0 struct {
	ID           ID         `json:"id"`
	Name         string     `json:"name"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Description  string     `json:"description,omitempty"`
	Kind         string     `json:"kind,omitempty"`
	Endpoints    []Endpoint `json:"endpoints,omitempty"`
	Capabilities []string   `json:"capabilities,omitempty"`
}

// schemaProbe reads only the version tag so the right struct can be chosen.
type schemaProbe struct {
	SchemaVersion *string `json:"schema_version"`
}

// DecodeDocument decodes raw document bytes into a Document, migrating
// legacy v0 documents to the v1 shape. It returns a SchemaError for
// versions this client does not understand and a DocumentError for bytes
// that do not decode. It performs no signature checking; callers must only
// pass bytes that have already been verified, or treat the result as
// untrusted.
func DecodeDocument(raw []byte) (*Document, error) {
	var probe schemaProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, &errors.DocumentError{Message: "document is not valid JSON", Err: err}
	}

	// Missing tag means a legacy v0 document.
	if probe.SchemaVersion == nil {
		return decodeV0(raw)
	}

	switch *probe.SchemaVersion {
	case SchemaV1:
		return decodeV1(raw)
	default:
		return nil, &errors.SchemaError{
			Version:   *probe.SchemaVersion,
			Supported: []string{SchemaV1},
		}
	}
}

func decodeV1(raw []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &errors.DocumentError{Message: "document does not match schema v1", Err: err}
	}
	if doc.ID == "" {
		return nil, &errors.DocumentError{Message: "document is missing required field: id"}
	}
	if doc.Name == "" {
		return nil, &errors.DocumentError{CatalogID: string(doc.ID), Message: "document is missing required field: name"}
	}
	return &doc, nil
}

// decodeV0 migrates a legacy document forward to the v1 shape.
func decodeV0(raw []byte) (*Document, error) {
	var old documentV0
	if err := json.Unmarshal(raw, &old); err != nil {
		return nil, &errors.DocumentError{Message: "document does not match legacy schema", Err: err}
	}
	if old.ID == "" {
		return nil, &errors.DocumentError{Message: "document is missing required field: id"}
	}
	if old.Name == "" {
		return nil, &errors.DocumentError{CatalogID: string(old.ID), Message: "document is missing required field: name"}
	}

	return &Document{
		SchemaVersion: SchemaV1,
		ID:            old.ID,
		Name:          old.Name,
		UpdatedAt:     old.UpdatedAt,
		Description:   old.Description,
		Provider: ProviderInfo{
			Kind:         old.Kind,
			Endpoints:    old.Endpoints,
			Capabilities: old.Capabilities,
		},
	}, nil
}
