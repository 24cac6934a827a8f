// AngelaMos | 2026
// embed.go

// Package migrations embeds the schema so the binary migrates itself at
// startup instead of depending on an external goose invocation.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
