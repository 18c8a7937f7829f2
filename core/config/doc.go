// Package config loads the resource store configuration.
//
// Values come from environment variables, optionally seeded from a .env file, with
// defaults taken from the `default` struct tags of each section:
//   - Server: admin HTTP server (port, API key, body limit)
//   - Database: driver, connection and pool settings, managed resource types
//   - Storage: S3/MinIO endpoint and bucket for offloaded payloads
//   - Log: level and format
//   - Cache: capacity of the shared identity caches
//   - Payload: compression and offload threshold
//   - Integrity: snapshot reuse and orphan grace period of payload checks
//   - Engine: deadlock retries, reindex workers, erase strategy
//
// Nested keys map to upper-case variables joined by underscores, for example
// ENGINE_REINDEX_WORKERS for engine.reindex_workers.
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
