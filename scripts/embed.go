// Package scripts embeds the built-in rule scripts.
package scripts

import "embed"

// FS holds rules/*.risor. Paths are relative to the scripts root, so it can
// be handed to the rule runtime directly.
//
//go:embed rules/*.risor
var FS embed.FS
