package migrations

import "embed"

// FS contains the embedded match store migrations.
//
//go:embed *.sql
var FS embed.FS
