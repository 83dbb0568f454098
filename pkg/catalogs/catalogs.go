// Package catalogs defines the data model for signed provider catalogs.
// A catalog is a small structured document published by a trusted party that
// describes one external service provider a client can connect to. Documents
// travel with a detached Ed25519 signature; this package only models their
// shape and decoding. Verification lives with the consumer of the raw bytes.
package catalogs

// ID is an opaque, stable identifier for one catalog.
// It is immutable once assigned by the publisher.
type ID string

// String returns the ID as a string.
func (id ID) String() string { return string(id) }

// Schema versions understood by this client. Authenticity of a document does
// not imply compatibility; anything outside this set is rejected after
// signature verification.
const (
	// SchemaV0 marks legacy documents published before versioning was
	// introduced. They carry no schema_version field and are migrated to
	// the v1 shape at decode time.
	SchemaV0 = ""

	// SchemaV1 is the current document schema.
	SchemaV1 = "v1"
)

// SupportedSchemas lists the schema versions this client accepts.
func SupportedSchemas() []string {
	return []string{SchemaV0, SchemaV1}
}

// SchemaSupported reports whether the given schema version is understood.
func SchemaSupported(version string) bool {
	switch version {
	case SchemaV0, SchemaV1:
		return true
	}
	return false
}
