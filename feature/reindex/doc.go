// Package reindex recomputes the search index of stored resources.
//
// Workers pick candidates by random-offset sampling over logical_resources and claim
// them with an UPDATE conditioned on the previously read reindex_txid, so concurrent
// workers never process the same resource twice for one reindex timestamp.
//
// The claim locks logical_resources before logical_resource_ident, the reverse of the
// write path. Run every claim through txn.Manager.DoWithRetry.
package reindex
