// Package txn runs units of work in a database transaction.
//
// A Tx carries everything a DAO needs for one unit of work: the gorm handle bound to
// the transaction, the dialect and the transaction-local view of the identity caches.
// It is passed explicitly down the call chain; nothing is kept in globals or in the
// context.
//
// Manager.Do commits when the callback returns nil and rolls back otherwise. Ids staged
// in Tx.Cache reach the shared caches only after the commit succeeded, and are dropped
// on rollback, so other transactions never see ids that were not committed. Hooks
// registered with AfterCommit run after the shared caches were updated.
//
// DoWithRetry repeats the whole unit of work when it failed with a lock conflict or a
// connection error. Callers taking ident row locks before logical_resources row locks
// (inserts) and callers taking them the other way round (reindex) can deadlock each
// other; the retry is the recovery path for that.
package txn
