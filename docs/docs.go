// Package docs embeds the HTTP API description served at /openapi.yaml.
package docs

import _ "embed"

// OpenAPI is the OpenAPI 3 document for the tracking API
//
//go:embed openapi.yaml
var OpenAPI []byte
