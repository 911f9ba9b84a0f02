// Package openapi embeds the OpenAPI description of the counterstrike HTTP
// API for runtime distribution.
package openapi

import _ "embed"

// APISpec contains the OpenAPI 3 document served at GET /openapi.yaml.
//
//go:embed counterstrike.yaml
var APISpec []byte

// Spec returns a copy of the embedded OpenAPI YAML.
func Spec() []byte {
	return append([]byte(nil), APISpec...)
}
