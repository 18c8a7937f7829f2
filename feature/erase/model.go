package erase

// Status is the outcome of one erase request.
type Status string

const (
	StatusNotFound Status = "NOT_FOUND"
	// StatusNotSupportedGreater means the requested version is newer than the current one.
	StatusNotSupportedGreater Status = "NOT_SUPPORTED_GREATER"
	// StatusNotSupportedLatest means the requested version is the current one and not
	// version 1. The head of the history is never erased in place.
	StatusNotSupportedLatest Status = "NOT_SUPPORTED_LATEST"
	// StatusVersion means one historical version lost its payload.
	StatusVersion Status = "VERSION"
	// StatusDone means the whole logical resource was erased.
	StatusDone Status = "DONE"
)

// Request names what to erase. Without a version the whole resource is erased.
type Request struct {
	ResourceType string `json:"resourceType"`
	LogicalID    string `json:"logicalId"`
	Version      *int   `json:"version,omitempty"`
}

// ResourceEraseRecord is the result of an erase.
type ResourceEraseRecord struct {
	Status                Status `json:"status"`
	ErasedResourceGroupID int64  `json:"erasedResourceGroupId"`
	// Total is the number of versions that were erased.
	Total int64 `json:"total"`
	// PayloadKeys are the offloaded payloads of the erased versions. They are removed
	// from the object store once the erase committed.
	PayloadKeys []string `json:"-"`
}

// ErasedResourceRec is one audit row of an erase group.
type ErasedResourceRec struct {
	ErasedResourceID      int64  `gorm:"column:erased_resource_id" json:"erasedResourceId"`
	ErasedResourceGroupID int64  `gorm:"column:erased_resource_group_id" json:"erasedResourceGroupId"`
	ResourceTypeID        int    `gorm:"column:resource_type_id" json:"-"`
	ResourceType          string `gorm:"column:resource_type" json:"resourceType"`
	LogicalID             string `gorm:"column:logical_id" json:"logicalId"`
	VersionID             *int   `gorm:"column:version_id" json:"versionId,omitempty"`
}
