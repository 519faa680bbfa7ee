// Package manifest handles kytos.json, the descriptor every NApp carries at
// the root of its directory: parsing, identity checks and JSON Schema
// validation.
package manifest
