// Package integrity reconciles offloaded resource payloads with the object store.
//
// Resource versions whose payload exceeds the offload threshold keep only an object
// key in resource_payload_key. The object may go missing (manual bucket cleanup,
// failed restore) and objects may be left behind without a row (a write that
// uploaded its payload and then rolled back while the process died before the
// cleanup ran).
//
// A check indexes both sides concurrently, builds the union of keys and reports every
// key present on only one side. Orphaned objects older than the grace period can be
// purged. Missing objects are reported only; the payload cannot be restored here.
//
// # HTTP Endpoints
//
//   - GET /$integrity : Runs a check and returns the plan.
//   - POST /$integrity/purge?confirm=true : Runs a check and removes orphaned objects.
package integrity
