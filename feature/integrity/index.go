package integrity

import (
	"context"
	"fmt"
	"time"

	"resource-store/core/schema"
	"resource-store/core/storage"

	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"
)

// storedObject is what the index keeps of a listed object.
type storedObject struct {
	LastModified time.Time
}

type payloadRow struct {
	Key       string `gorm:"column:resource_payload_key"`
	LogicalID string `gorm:"column:logical_id"`
	VersionID int    `gorm:"column:version_id"`
}

// loadDBIndex returns every offloaded payload key of the given resource types.
func loadDBIndex(ctx context.Context, db *gorm.DB, resourceTypes []string) (map[string]Reference, error) {
	index := make(map[string]Reference)
	for _, rt := range resourceTypes {
		tables, err := schema.TablesFor(rt)
		if err != nil {
			return nil, err
		}
		var rows []payloadRow
		err = db.WithContext(ctx).
			Table(tables.Resources+" r").
			Select("r.resource_payload_key, lr.logical_id, r.version_id").
			Joins("JOIN "+tables.LogicalResources+" lr ON lr.logical_resource_id = r.logical_resource_id").
			Where("r.resource_payload_key IS NOT NULL").
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to index payload keys of %s: %w", rt, err)
		}
		for _, row := range rows {
			index[row.Key] = Reference{ResourceType: rt, LogicalID: row.LogicalID, VersionID: row.VersionID}
		}
	}
	return index, nil
}

// loadStorageSet lists the bucket once.
func loadStorageSet(ctx context.Context, client storage.Client, bucket string) (map[string]storedObject, error) {
	set := make(map[string]storedObject)
	for obj := range client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list bucket %s: %w", bucket, obj.Err)
		}
		set[obj.Key] = storedObject{LastModified: obj.LastModified}
	}
	return set, nil
}
