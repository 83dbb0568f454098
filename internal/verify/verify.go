// Package verify validates detached Ed25519 signatures over catalog
// documents and gates decoding behind the signature check. It performs no
// I/O; input bytes are attacker-controlled and every expected failure is a
// typed error, never a panic.
package verify

import (
	"crypto/ed25519"
	"encoding/json"

	"github.com/quoteline/beacon/pkg/catalogs"
	"github.com/quoteline/beacon/pkg/constants"
	"github.com/quoteline/beacon/pkg/errors"
)

// Verifier checks document signatures against a set of trusted public keys.
// Multiple keys support rotation: during a transition the old and new key
// are both trusted, and a signature matching any key passes.
type Verifier struct {
	keys []ed25519.PublicKey
}

// New creates a Verifier trusting the given keys.
func New(keys ...ed25519.PublicKey) (*Verifier, error) {
	if len(keys) == 0 {
		return nil, &errors.ValidationError{
			Field:   "keys",
			Message: "at least one trusted public key is required",
		}
	}
	for i, key := range keys {
		if len(key) != ed25519.PublicKeySize {
			return nil, &errors.ValidationError{
				Field:   "keys",
				Value:   i,
				Message: "public key has wrong size",
			}
		}
	}
	return &Verifier{keys: keys}, nil
}

// Keys returns the number of trusted keys.
func (v *Verifier) Keys() int {
	return len(v.keys)
}

// Verify reports whether sig is a valid detached signature over the
// canonical encoding of doc, under any trusted key.
func (v *Verifier) Verify(doc, sig []byte) bool {
	if len(sig) != constants.SignatureSize {
		return false
	}

	canonical, err := Canonicalize(doc)
	if err != nil {
		return false
	}

	for _, key := range v.keys {
		if ed25519.Verify(key, canonical, sig) {
			return true
		}
	}
	return false
}

// VerifyAndParse verifies doc against sig and, only on success, decodes it
// into a Document. The id is used for error context only.
//
// Order matters: the signature is checked first, so schema and structural
// complaints are only ever raised about authentic documents. An unsupported
// schema version on an authentic document is still rejected — authenticity
// does not imply compatibility.
func (v *Verifier) VerifyAndParse(id catalogs.ID, doc, sig []byte) (*catalogs.Document, error) {
	if len(sig) != constants.SignatureSize {
		return nil, &errors.SignatureError{
			CatalogID: string(id),
			Message:   "signature has wrong size",
		}
	}

	canonical, err := Canonicalize(doc)
	if err != nil {
		return nil, errors.WrapDocument(string(id), err)
	}

	matched := false
	for _, key := range v.keys {
		if ed25519.Verify(key, canonical, sig) {
			matched = true
			break
		}
	}
	if !matched {
		return nil, &errors.SignatureError{
			CatalogID: string(id),
			Keys:      len(v.keys),
		}
	}

	// Schema gate: reject versions this client does not understand.
	version, err := probeSchemaVersion(doc)
	if err != nil {
		return nil, errors.WrapDocument(string(id), err)
	}
	if !catalogs.SchemaSupported(version) {
		return nil, &errors.SchemaError{
			CatalogID: string(id),
			Version:   version,
			Supported: []string{catalogs.SchemaV1},
		}
	}

	// Structural validation against the embedded schema for that version.
	if err := validateStructure(version, doc); err != nil {
		return nil, &errors.DocumentError{
			CatalogID: string(id),
			Message:   err.Error(),
			Err:       err,
		}
	}

	parsed, err := catalogs.DecodeDocument(doc)
	if err != nil {
		return nil, err
	}
	return parsed, nil
}

// Sign produces a detached signature over the canonical encoding of doc.
// The client never signs; this is the publisher-side primitive, kept here
// so tests and offline tooling share the exact canonicalization used for
// verification.
func Sign(priv ed25519.PrivateKey, doc []byte) ([]byte, error) {
	canonical, err := Canonicalize(doc)
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(priv, canonical), nil
}

// probeSchemaVersion reads only the schema_version tag.
func probeSchemaVersion(doc []byte) (string, error) {
	var probe struct {
		SchemaVersion *string `json:"schema_version"`
	}
	if err := json.Unmarshal(doc, &probe); err != nil {
		return "", &errors.DocumentError{Message: "document is not a JSON object", Err: err}
	}
	if probe.SchemaVersion == nil {
		return catalogs.SchemaV0, nil
	}
	return *probe.SchemaVersion, nil
}
