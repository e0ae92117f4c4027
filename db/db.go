// Package db embeds the SQL schema so the binary can migrate without the source tree.
package db

import _ "embed"

// Schema is the idempotent initial schema.
//
//go:embed migrations/0001_init.sql
var Schema string
