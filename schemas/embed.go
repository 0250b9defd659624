// Package schemas holds the JSON Schemas for documents written by the CLI.
package schemas

import _ "embed"

// RunDocument is the JSON Schema for a stored run document.
//
//go:embed run_document.schema.json
var RunDocument []byte
