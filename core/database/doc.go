// Package database opens the connection pool used by the persistence engine.
//
// It wraps GORM and selects the dialector from configuration: PostgreSQL, MySQL or
// SQLite. The pool is sized for "one connection per active transaction": every
// reindex or ingestion worker holds exactly one connection while its transaction is
// open, so MaxOpenConns bounds worker concurrency.
//
// # Schema Inspection
//
// TableExists and GetTableColumns read the catalog instead of probing tables. They are
// used by schema verification at startup, where a failing probe statement would abort
// the surrounding transaction on PostgreSQL.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
// Tests use the dbtest subpackage, which opens an in-memory SQLite database with the
// full schema already created.
package database
