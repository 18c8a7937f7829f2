// Package payload encodes resource payloads and moves large ones to object storage.
package payload

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"resource-store/core/storage"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Stored is how one resource version payload is persisted: either inline in Data or
// in the object store under Key.
type Stored struct {
	Data []byte
	Key  *string
}

// Store prepares payloads for persistence and loads them back.
type Store struct {
	cfg    Config
	client storage.Client
	bucket string
	logger *zap.Logger
}

// NewStore creates a Store. client may be nil, in which case payloads are always
// stored inline.
func NewStore(cfg Config, client storage.Client, bucket string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{cfg: cfg, client: client, bucket: bucket, logger: logger}
}

func (s *Store) offloads(size int) bool {
	return s.client != nil && s.cfg.OffloadThreshold > 0 && size > s.cfg.OffloadThreshold
}

// Prepare encodes data and offloads it when it is larger than the threshold.
func (s *Store) Prepare(ctx context.Context, data []byte) (Stored, error) {
	encoded := data
	if s.cfg.Compress {
		var err error
		if encoded, err = Encode(data); err != nil {
			return Stored{}, err
		}
	}
	if !s.offloads(len(encoded)) {
		return Stored{Data: encoded}, nil
	}

	key := uuid.NewString()
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(encoded), int64(len(encoded)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return Stored{}, fmt.Errorf("failed to offload payload: %w", err)
	}
	return Stored{Key: &key}, nil
}

// Load returns the decoded payload of a stored version.
func (s *Store) Load(ctx context.Context, stored Stored) ([]byte, error) {
	if stored.Key == nil {
		if stored.Data == nil {
			return nil, nil
		}
		return Decode(stored.Data)
	}
	if s.client == nil {
		return nil, fmt.Errorf("payload %s is offloaded but no object store is configured", *stored.Key)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, *stored.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payload %s: %w", *stored.Key, err)
	}
	defer obj.Close()
	raw, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload %s: %w", *stored.Key, err)
	}
	return Decode(raw)
}

// Delete removes offloaded payloads. Failures are logged and the first one returned.
func (s *Store) Delete(ctx context.Context, keys []string) error {
	if len(keys) == 0 || s.client == nil {
		return nil
	}

	objects := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		objects <- minio.ObjectInfo{Key: k}
	}
	close(objects)

	var first error
	for rErr := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		s.logger.Warn("Failed to remove offloaded payload", zap.String("key", rErr.ObjectName), zap.Error(rErr.Err))
		if first == nil {
			first = fmt.Errorf("failed to remove payload %s: %w", rErr.ObjectName, rErr.Err)
		}
	}
	return first
}
