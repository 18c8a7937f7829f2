// Package dictionary resolves the normalized dictionary values of the store to their ids.
//
// Resource types, code systems, parameter names, common token values and canonical urls
// are append-only and shared by every resource. The Resolver implements read-or-add for
// each of them on top of the per-transaction cache scope:
//
//  1. the transaction-local staged entries,
//  2. the shared LRU cache of committed ids,
//  3. a SELECT against the dictionary table,
//  4. an INSERT whose unique key collision means another transaction won the race, in
//     which case the row is read again.
//
// Ids found or created are staged in the transaction's scope and only become visible to
// other transactions once it commits. Token values and canonical urls are also resolved
// in batches: known values are taken from the caches, the misses are read with one query
// per code system and whatever is still missing is bulk inserted.
//
// Prefill loads the small dictionaries straight into the shared caches at startup.
package dictionary
