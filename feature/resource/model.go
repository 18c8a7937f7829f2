package resource

import (
	"time"

	"resource-store/core/payload"
	"resource-store/core/schema"
)

// Status is the outcome of an insert.
type Status string

const (
	StatusCreated Status = "created"
	StatusUpdated Status = "updated"
	StatusDeleted Status = "deleted"
	// StatusIfNoneMatchExisted means a conditional create found a current version and
	// wrote nothing.
	StatusIfNoneMatchExisted Status = "if_none_match_existed"
)

// Version is a new resource version to be written.
type Version struct {
	ResourceType string
	LogicalID    string
	// VersionID is the version the caller expects to write. Zero means the version
	// following the current one.
	VersionID   int
	LastUpdated time.Time
	Deleted     bool
	Payload     payload.Stored
}

// InsertResult describes the version written by Insert.
type InsertResult struct {
	LogicalResourceID int64  `json:"logicalResourceId"`
	ResourceID        int64  `json:"resourceId"`
	VersionID         int    `json:"versionId"`
	Status            Status `json:"status"`
}

// Record is one stored resource version.
type Record struct {
	ResourceType      string
	LogicalID         string
	LogicalResourceID int64
	ResourceID        int64
	VersionID         int
	LastUpdated       time.Time
	Deleted           bool
	Payload           payload.Stored
}

// Erased reports whether the payload of the version was removed by an erase.
func (r Record) Erased() bool {
	return !r.Deleted && r.Payload.Data == nil && r.Payload.Key == nil
}

type versionRow struct {
	ResourceID         int64     `gorm:"column:resource_id"`
	LogicalResourceID  int64     `gorm:"column:logical_resource_id"`
	VersionID          int       `gorm:"column:version_id"`
	LastUpdated        time.Time `gorm:"column:last_updated"`
	IsDeleted          string    `gorm:"column:is_deleted"`
	Data               []byte    `gorm:"column:data"`
	ResourcePayloadKey *string   `gorm:"column:resource_payload_key"`
}

func (r versionRow) record(resourceType, logicalID string) Record {
	return Record{
		ResourceType:      resourceType,
		LogicalID:         logicalID,
		LogicalResourceID: r.LogicalResourceID,
		ResourceID:        r.ResourceID,
		VersionID:         r.VersionID,
		LastUpdated:       r.LastUpdated,
		Deleted:           r.IsDeleted == schema.FlagYes,
		Payload:           payload.Stored{Data: r.Data, Key: r.ResourcePayloadKey},
	}
}
