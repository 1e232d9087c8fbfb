package web

import "embed"

// StaticFS holds the embedded upload page.
//
//go:embed static
var StaticFS embed.FS
