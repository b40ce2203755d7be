package core

import (
	"fmt"
	"os"

	"watercolumn/internal/infra/source/memory"
	"watercolumn/internal/infra/source/postgres"
	"watercolumn/internal/infra/source/sqlite"
)

// SourceDriver identifies a concrete measurement source implementation.
type SourceDriver string

const (
	SourceMemory   SourceDriver = "memory"   // in-memory only (tests / fixtures)
	SourceSQLite   SourceDriver = "sqlite"   // embedded sqlite snapshot file
	SourcePostgres SourceDriver = "postgres" // PostgreSQL warehouse
)

// OpenResultSource selects a measurement source using environment variables.
// Defaults to sqlite when unset.
//
//	WATERCOLUMN_SOURCE_DRIVER: memory|sqlite|postgres (default sqlite)
//	WATERCOLUMN_SQLITE_PATH: path to sqlite snapshot (default ./watercolumn.db)
//	WATERCOLUMN_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenResultSource() (ResultSource, error) {
	driver := os.Getenv("WATERCOLUMN_SOURCE_DRIVER")
	if driver == "" {
		driver = string(SourceSQLite)
	}
	switch SourceDriver(driver) {
	case SourceMemory:
		return memory.NewSource(), nil
	case SourceSQLite:
		path := os.Getenv("WATERCOLUMN_SQLITE_PATH")
		return sqlite.NewSource(path)
	case SourcePostgres:
		dsn := os.Getenv("WATERCOLUMN_POSTGRES_DSN")
		ps, err := NewPostgresSource(dsn)
		if err != nil {
			return nil, err
		}
		return ps, nil
	default:
		return nil, fmt.Errorf("unknown source driver %s", driver)
	}
}

// NewPostgresSource constructs a Postgres-backed source from the provided DSN.
func NewPostgresSource(dsn string) (*postgres.Source, error) {
	return postgres.NewSource(dsn)
}

// NewSQLiteSource constructs a sqlite-backed source reading the snapshot at
// path.
func NewSQLiteSource(path string) (*sqlite.Source, error) {
	return sqlite.NewSource(path)
}

// NewMemorySource constructs an empty in-memory source.
func NewMemorySource() *memory.Source {
	return memory.NewSource()
}
