// Package cache implements the identity caches that map dictionary names and values
// to their database ids.
//
// Two layers are involved:
//
//   - Shared: a process-wide, size-bounded LRU (hashicorp/golang-lru/v2) holding only
//     ids that are known to be committed.
//   - Staged: a per-transaction map layered over a Shared cache. Ids created or first
//     read inside a transaction are staged here and only reach the shared layer through
//     Promote, after the owning transaction has committed. Discard drops them on
//     rollback, so an id that might still be rolled back never leaks to other workers.
//
// Identity groups one Shared cache per dictionary (resource types, code systems,
// parameter names, common token values, canonical urls, logical resource idents) and
// Scope is the matching group of Staged caches for one transaction. A Scope is not
// safe for concurrent use; a Shared cache is.
//
// # Usage
//
//	ids, _ := cache.NewIdentity(cfg, observer)
//	scope := ids.NewScope()
//	if id, ok := scope.CodeSystems.Get("http://loinc.org"); ok { ... }
//	scope.CodeSystems.Put("http://loinc.org", 42)
//	// after commit
//	scope.UpdateSharedMaps()
package cache
