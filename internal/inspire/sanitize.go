// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package inspire

import "github.com/pdiddy/inspire-harvester/pkg/types"

// keyRenames maps API field names that collide with document-store
// reserved names to safe replacements. Keys beginning with '$' would be
// rejected as operators by MongoDB, and "id" is promoted to the store's
// primary key. The table is applied structurally to decoded objects, so a
// "$ref" inside a string value is never touched.
var keyRenames = map[string]string{
	"$ref":    "ref",
	"$schema": "schema",
	"id":      "_id",
}

// SanitizeDocument renames reserved keys at every nesting depth and
// returns the document. Maps are rewritten in place; the rename table is
// fixed and deterministic, so sanitizing twice is a no-op.
func SanitizeDocument(doc types.Document) types.Document {
	sanitizeValue(map[string]any(doc))
	return doc
}

func sanitizeValue(v any) {
	switch val := v.(type) {
	case map[string]any:
		for key, inner := range val {
			sanitizeValue(inner)
			if safe, ok := keyRenames[key]; ok {
				delete(val, key)
				val[safe] = inner
			}
		}
	case []any:
		for _, inner := range val {
			sanitizeValue(inner)
		}
	}
}
