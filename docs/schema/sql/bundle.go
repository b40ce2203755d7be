// Package sqldocs exposes the measurement store DDL bundles directly from the
// docs tree. The sqlite bundle is the authoritative snapshot schema; the
// postgres bundle documents the warehouse tables the postgres source reads.
package sqldocs

import _ "embed"

// SQLite contains the snapshot SQLite DDL bundle.
//
//go:embed sqlite.sql
var SQLite string

// Postgres contains the warehouse Postgres DDL bundle.
//
//go:embed postgres.sql
var Postgres string
