package verify

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/quoteline/beacon/pkg/errors"
)

// Canonicalize produces the deterministic byte encoding of a JSON document:
// object keys sorted lexicographically, no insignificant whitespace, number
// tokens preserved as published. Signing and verification both operate on
// this encoding, so transit formatting (indentation, key order) never
// affects the signature check.
//
// Canonicalization is idempotent: canonicalizing already-canonical bytes is
// a no-op.
func Canonicalize(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, &errors.DocumentError{Message: "cannot canonicalize: invalid JSON", Err: err}
	}
	// Reject trailing garbage after the document.
	if dec.More() {
		return nil, &errors.DocumentError{Message: "cannot canonicalize: trailing data after document"}
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, value any) error {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, v[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil

	case []any:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil

	case json.Number:
		// Number tokens pass through untouched so the canonical form never
		// depends on float round-tripping.
		buf.WriteString(string(v))
		return nil

	case string:
		return writeCanonicalString(buf, v)

	case bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil

	case nil:
		buf.WriteString("null")
		return nil

	default:
		return &errors.DocumentError{Message: "cannot canonicalize: unsupported JSON value"}
	}
}

// writeCanonicalString writes a JSON string using encoding/json's escaping,
// which is deterministic for a given input.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	encoded, err := json.Marshal(s)
	if err != nil {
		return &errors.DocumentError{Message: "cannot canonicalize string", Err: err}
	}
	buf.Write(encoded)
	return nil
}
