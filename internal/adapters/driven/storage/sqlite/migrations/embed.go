package migrations

import "embed"

// FS holds numbered up and down scripts for the passage index schema. They
// are applied in order when sqlite.OpenIndex opens a knowledge base.
//
//go:embed *.sql
var FS embed.FS
