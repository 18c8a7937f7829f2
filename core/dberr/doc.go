// Package dberr defines the error taxonomy shared by every DAO.
//
// Driver errors never leave a DAO untranslated: each statement failure is passed
// through the active dialect (see core/dialect) which classifies it into one of the
// kind sentinels below and wraps it in a *DatabaseError. Callers branch with
// errors.Is:
//
//	if errors.Is(err, dberr.ErrVersionConflict) {
//	    // re-read and retry the business operation
//	}
//
// # Kinds
//
//   - ErrConnect: the database cannot be reached. Retryable.
//   - ErrLock: deadlock or lock timeout. Retryable (the reindex path depends on this).
//   - ErrDataAccess: unexpected SQL state. Not retryable.
//   - ErrVersionConflict: optimistic version check failed.
//   - ErrNotFound: the resource or logical resource is absent.
//   - ErrUnsupported: the dialect lacks the capability.
//   - ErrCorruptSchema: an invariant is broken (a row that must exist is missing). Fatal.
//   - ErrConstraint, ErrUniqueViolation, ErrDuplicateName, ErrUndefinedName: finer SQL
//     classifications; ErrUniqueViolation also matches ErrConstraint.
package dberr
