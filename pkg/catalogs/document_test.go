package catalogs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quoteline/beacon/pkg/errors"
)

func TestDecodeDocumentV1(t *testing.T) {
	raw := []byte(`{
		"schema_version": "v1",
		"id": "alpha",
		"name": "Alpha Markets",
		"updated_at": "2026-08-01T12:00:00Z",
		"homepage": "https://alpha.example.com",
		"provider": {
			"kind": "broker",
			"endpoints": [
				{"name": "orders", "url": "https://api.alpha.example.com/v2", "protocol": "rest"},
				{"name": "stream", "url": "wss://stream.alpha.example.com", "protocol": "websocket"}
			],
			"regions": ["us", "eu"],
			"capabilities": ["paper-trading", "streaming"]
		}
	}`)

	doc, err := DecodeDocument(raw)
	require.NoError(t, err)

	assert.Equal(t, SchemaV1, doc.SchemaVersion)
	assert.Equal(t, ID("alpha"), doc.ID)
	assert.Equal(t, "Alpha Markets", doc.Name)
	assert.Equal(t, time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC), doc.UpdatedAt)
	assert.Equal(t, "broker", doc.Provider.Kind)
	require.Len(t, doc.Provider.Endpoints, 2)
	assert.Equal(t, "websocket", doc.Provider.Endpoints[1].Protocol)
}

func TestDecodeDocumentV0Migration(t *testing.T) {
	// Legacy documents have no schema_version and keep provider fields at
	// the top level. They must decode into the v1 shape.
	raw := []byte(`{
		"id": "legacy-feed",
		"name": "Legacy Feed",
		"updated_at": "2024-01-15T00:00:00Z",
		"kind": "market-data",
		"endpoints": [{"name": "quotes", "url": "https://quotes.example.com"}],
		"capabilities": ["delayed-quotes"]
	}`)

	doc, err := DecodeDocument(raw)
	require.NoError(t, err)

	assert.Equal(t, SchemaV1, doc.SchemaVersion, "v0 documents migrate to v1")
	assert.Equal(t, ID("legacy-feed"), doc.ID)
	assert.Equal(t, "market-data", doc.Provider.Kind)
	require.Len(t, doc.Provider.Endpoints, 1)
	assert.Equal(t, "quotes", doc.Provider.Endpoints[0].Name)
}

func TestDecodeDocumentErrors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"not json", `{"id": "alpha"`, errors.ErrMalformedDocument},
		{"unknown version", `{"schema_version": "v9", "id": "alpha", "name": "x"}`, errors.ErrUnsupportedSchema},
		{"missing id v1", `{"schema_version": "v1", "name": "x"}`, errors.ErrMalformedDocument},
		{"missing name v1", `{"schema_version": "v1", "id": "alpha"}`, errors.ErrMalformedDocument},
		{"missing id v0", `{"name": "x"}`, errors.ErrMalformedDocument},
		{"wrong type", `{"schema_version": "v1", "id": "alpha", "name": "x", "provider": 7}`, errors.ErrMalformedDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDocument([]byte(tt.raw))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecodeIndex(t *testing.T) {
	raw := []byte(`{
		"generated_at": "2026-08-20T06:00:00Z",
		"entries": [
			{"id": "alpha", "name": "Alpha Markets", "updated_at": "2026-08-01T12:00:00Z", "signature_path": "catalogs/alpha.json.sig"},
			{"id": "beta", "name": "Beta Data", "updated_at": "2026-07-10T09:30:00Z"}
		]
	}`)

	idx, err := DecodeIndex(raw)
	require.NoError(t, err)
	require.Len(t, idx.Entries, 2)

	assert.Equal(t, []ID{"alpha", "beta"}, idx.IDs())

	entry, ok := idx.Lookup("beta")
	require.True(t, ok)
	assert.Equal(t, "Beta Data", entry.Name)

	_, ok = idx.Lookup("gamma")
	assert.False(t, ok)
}

func TestDecodeIndexErrors(t *testing.T) {
	_, err := DecodeIndex([]byte(`[1,2,3]`))
	assert.ErrorIs(t, err, errors.ErrMalformedDocument)

	_, err = DecodeIndex([]byte(`{"entries": [{"name": "missing id"}]}`))
	assert.ErrorIs(t, err, errors.ErrMalformedDocument)
}

func TestSchemaSupported(t *testing.T) {
	assert.True(t, SchemaSupported(SchemaV0))
	assert.True(t, SchemaSupported(SchemaV1))
	assert.False(t, SchemaSupported("v2"))
}
