package verify

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/quoteline/beacon/pkg/catalogs"
)

// schemaV1 is the structural schema for current documents. Compiled once at
// package init; a compile failure is a programming error, not input-driven.
const schemaV1 = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["schema_version", "id", "name", "updated_at", "provider"],
	"properties": {
		"schema_version": {"const": "v1"},
		"id": {"type": "string", "minLength": 1},
		"name": {"type": "string", "minLength": 1},
		"updated_at": {"type": "string"},
		"description": {"type": "string"},
		"homepage": {"type": "string"},
		"provider": {
			"type": "object",
			"required": ["kind"],
			"properties": {
				"kind": {"type": "string", "minLength": 1},
				"endpoints": {
					"type": "array",
					"items": {
						"type": "object",
						"required": ["name", "url"],
						"properties": {
							"name": {"type": "string", "minLength": 1},
							"url": {"type": "string", "minLength": 1},
							"protocol": {"type": "string"}
						}
					}
				},
				"regions": {"type": "array", "items": {"type": "string"}},
				"capabilities": {"type": "array", "items": {"type": "string"}}
			}
		}
	}
}`

// schemaV0 covers legacy documents published before versioning.
const schemaV0 = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["id", "name", "updated_at"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"name": {"type": "string", "minLength": 1},
		"updated_at": {"type": "string"},
		"description": {"type": "string"},
		"kind": {"type": "string"},
		"endpoints": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "url"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"url": {"type": "string", "minLength": 1},
					"protocol": {"type": "string"}
				}
			}
		},
		"capabilities": {"type": "array", "items": {"type": "string"}}
	}
}`

var compiledSchemas = map[string]*jsonschema.Schema{
	catalogs.SchemaV0: jsonschema.MustCompileString("catalog-v0.json", schemaV0),
	catalogs.SchemaV1: jsonschema.MustCompileString("catalog-v1.json", schemaV1),
}

// validateStructure checks raw document bytes against the embedded schema
// for the given (already supported) version.
func validateStructure(version string, doc []byte) error {
	schema, ok := compiledSchemas[version]
	if !ok {
		return fmt.Errorf("no structural schema for version %q", version)
	}

	var value any
	if err := json.Unmarshal(doc, &value); err != nil {
		return err
	}
	return schema.Validate(value)
}
