// Package schemas embeds the JSON Schemas shared between the client and the
// backend contract documentation.
package schemas

import _ "embed"

// DraftSchemaJSON is the schema for the draft payload returned by the
// interpreter service.
//
//go:embed draft.schema.json
var DraftSchemaJSON string
