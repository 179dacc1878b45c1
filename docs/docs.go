// Package docs embeds the OpenAPI document served at /api-docs.yml.
package docs

import _ "embed"

//go:embed swagger.yml
var Spec []byte
