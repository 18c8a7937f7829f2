// Package parameter models the search parameter values extracted from a resource and
// stores them in the per resource type parameter tables.
//
// A Set is replaced wholesale: the rows of the logical resource are deleted and the new
// values inserted. Hash gives a stable content hash of a Set so callers can skip the
// replacement when nothing changed.
package parameter
