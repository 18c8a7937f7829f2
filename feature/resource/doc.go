// Package resource stores versioned resources and their search parameters.
//
// Every write appends an immutable version row to <type>_resources and updates the
// logical resource state. Version numbers start at 1 and increase by one per write; a
// write that does not follow the current version fails with a
// *dberr.VersionConflictError and writes nothing.
//
// # Lock order
//
// Writes lock the logical_resource_ident row first and the logical_resources row
// second. The reindex path takes them in the opposite order, so callers run both inside
// txn.Manager.DoWithRetry.
//
// The Service wraps the DAO with transactions, payload encoding and parameter
// extraction; the Handler exposes it on the admin surface.
package resource
