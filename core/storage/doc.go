// Package storage provides the object store client used for offloaded resource payloads.
//
// It wraps the MinIO Go client behind the Client interface so the payload store can be
// tested against core/storage/mocks. Both AWS S3 and self-hosted MinIO are supported.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	err = storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region)
package storage
