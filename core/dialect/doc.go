// Package dialect holds the capability table for every supported database.
//
// Instead of one adapter type per database, each database is a single Dialect record:
// feature flags (FOR UPDATE support, native sequences, erase procedure, whether a
// failed statement poisons the transaction), SQL builders for the handful of
// statements that differ, and the classifier that maps driver errors into the
// core/dberr taxonomy. The record is selected once at startup from the gorm
// dialector name.
//
// # Lock ordering contract
//
// Every dialect must honour the same ingestion lock order: the logical_resource_ident
// row is locked before the logical_resources row. On dialects without SELECT ... FOR
// UPDATE the statements are issued in the same order and the database's own write
// locks serialise them.
//
// The reindex path intentionally claims logical_resources first and then locks the
// ident row. The window for a deadlock between the two paths is small but real; the
// transaction manager (core/txn) retries any transaction failing with dberr.ErrLock.
//
// # Usage
//
//	d, err := dialect.ForDB(db)
//	query := d.ForUpdate("SELECT version_id FROM logical_resources WHERE logical_resource_id = ?")
//	if err := db.Exec(query, id).Error; err != nil {
//	    return d.Translate("lock logical resource", err)
//	}
package dialect
