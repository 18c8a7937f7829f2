package schema

import "time"

// Flag values stored in the CHAR(1) is_deleted columns.
const (
	FlagYes = "Y"
	FlagNo  = "N"
)

// Change types recorded in resource_change_log.
const (
	ChangeCreate = "C"
	ChangeUpdate = "U"
	ChangeDelete = "D"
)

// EpochReindexTstamp is the reindex timestamp of a logical resource that has never been reindexed.
var EpochReindexTstamp = time.Unix(0, 0).UTC()

// ResourceType maps a resource type name to its id.
type ResourceType struct {
	ResourceTypeID int    `gorm:"column:resource_type_id;primaryKey;autoIncrement"`
	ResourceType   string `gorm:"column:resource_type;size:64;not null;uniqueIndex:unq_resource_types"`
}

// TableName implements the GORM tabler interface.
func (ResourceType) TableName() string { return "resource_types" }

// CodeSystem maps a code system url to its id.
type CodeSystem struct {
	CodeSystemID   int    `gorm:"column:code_system_id;primaryKey;autoIncrement"`
	CodeSystemName string `gorm:"column:code_system_name;size:255;not null;uniqueIndex:unq_code_systems"`
}

// TableName implements the GORM tabler interface.
func (CodeSystem) TableName() string { return "code_systems" }

// ParameterName maps a search parameter name to its id.
type ParameterName struct {
	ParameterNameID int    `gorm:"column:parameter_name_id;primaryKey;autoIncrement"`
	ParameterName   string `gorm:"column:parameter_name;size:255;not null;uniqueIndex:unq_parameter_names"`
}

// TableName implements the GORM tabler interface.
func (ParameterName) TableName() string { return "parameter_names" }

// CommonTokenValue is a deduplicated (code system, token value) pair.
type CommonTokenValue struct {
	CommonTokenValueID int64  `gorm:"column:common_token_value_id;primaryKey;autoIncrement"`
	CodeSystemID       int    `gorm:"column:code_system_id;not null;uniqueIndex:unq_common_token_values,priority:1"`
	TokenValue         string `gorm:"column:token_value;size:1024;not null;uniqueIndex:unq_common_token_values,priority:2"`
}

// TableName implements the GORM tabler interface.
func (CommonTokenValue) TableName() string { return "common_token_values" }

// CommonCanonicalValue is a deduplicated canonical url.
type CommonCanonicalValue struct {
	CanonicalID int    `gorm:"column:canonical_id;primaryKey;autoIncrement"`
	URL         string `gorm:"column:url;size:1024;not null;uniqueIndex:unq_common_canonical_values"`
}

// TableName implements the GORM tabler interface.
func (CommonCanonicalValue) TableName() string { return "common_canonical_values" }

// LogicalResourceIdent is the durable (type, logical id) -> logical_resource_id mapping.
// Rows are never deleted, so ids are never reused.
type LogicalResourceIdent struct {
	LogicalResourceID int64  `gorm:"column:logical_resource_id;primaryKey;autoIncrement"`
	ResourceTypeID    int    `gorm:"column:resource_type_id;not null;uniqueIndex:unq_logical_resource_ident,priority:1"`
	LogicalID         string `gorm:"column:logical_id;size:255;not null;uniqueIndex:unq_logical_resource_ident,priority:2"`
}

// TableName implements the GORM tabler interface.
func (LogicalResourceIdent) TableName() string { return "logical_resource_ident" }

// LogicalResource is the per logical resource state shared by all resource types.
type LogicalResource struct {
	LogicalResourceID int64     `gorm:"column:logical_resource_id;primaryKey;autoIncrement:false"`
	ResourceTypeID    int       `gorm:"column:resource_type_id;not null;index:idx_logical_resources_rtid"`
	LogicalID         string    `gorm:"column:logical_id;size:255;not null"`
	IsDeleted         string    `gorm:"column:is_deleted;size:1;not null;default:N"`
	LastUpdated       time.Time `gorm:"column:last_updated;not null"`
	ParameterHash     string    `gorm:"column:parameter_hash;size:64"`
	ReindexTstamp     time.Time `gorm:"column:reindex_tstamp;not null;index:idx_logical_resources_reindex"`
	ReindexTxID       int64     `gorm:"column:reindex_txid;not null;default:0"`
	VersionID         int       `gorm:"column:version_id;not null"`
}

// TableName implements the GORM tabler interface.
func (LogicalResource) TableName() string { return "logical_resources" }

// ResourceChangeLog records every create, update and delete.
type ResourceChangeLog struct {
	ChangeLogID       int64     `gorm:"column:change_log_id;primaryKey;autoIncrement"`
	ResourceID        int64     `gorm:"column:resource_id;not null"`
	ChangeTstamp      time.Time `gorm:"column:change_tstamp;not null;index:idx_resource_change_log_tstamp"`
	ResourceTypeID    int       `gorm:"column:resource_type_id;not null"`
	LogicalResourceID int64     `gorm:"column:logical_resource_id;not null;index:idx_resource_change_log_lrid"`
	VersionID         int       `gorm:"column:version_id;not null"`
	ChangeType        string    `gorm:"column:change_type;size:1;not null"`
}

// TableName implements the GORM tabler interface.
func (ResourceChangeLog) TableName() string { return "resource_change_log" }

// ErasedResource is the audit record of one erase.
type ErasedResource struct {
	ErasedResourceID      int64  `gorm:"column:erased_resource_id;primaryKey;autoIncrement"`
	ErasedResourceGroupID int64  `gorm:"column:erased_resource_group_id;not null;index:idx_erased_resources_group"`
	ResourceTypeID        int    `gorm:"column:resource_type_id;not null"`
	LogicalID             string `gorm:"column:logical_id;size:255;not null"`
	VersionID             *int   `gorm:"column:version_id"`
}

// TableName implements the GORM tabler interface.
func (ErasedResource) TableName() string { return "erased_resources" }

// ResourceTokenRef links a logical resource to a common token value for a parameter.
// References are stored as tokens whose code system is the target resource type.
type ResourceTokenRef struct {
	ParameterNameID    int   `gorm:"column:parameter_name_id;not null"`
	LogicalResourceID  int64 `gorm:"column:logical_resource_id;not null;index:idx_resource_token_refs_lrid"`
	CommonTokenValueID int64 `gorm:"column:common_token_value_id;not null;index:idx_resource_token_refs_ctv"`
	RefVersionID       *int  `gorm:"column:ref_version_id"`
	ResourceTypeID     int   `gorm:"column:resource_type_id;not null"`
}

// TableName implements the GORM tabler interface.
func (ResourceTokenRef) TableName() string { return "resource_token_refs" }

// LogicalResourceProfile links a logical resource to a canonical profile url.
type LogicalResourceProfile struct {
	LogicalResourceID int64  `gorm:"column:logical_resource_id;not null;index:idx_logical_resource_profiles_lrid"`
	CanonicalID       int    `gorm:"column:canonical_id;not null;index:idx_logical_resource_profiles_cid"`
	Version           string `gorm:"column:version;size:64"`
	ResourceTypeID    int    `gorm:"column:resource_type_id;not null"`
}

// TableName implements the GORM tabler interface.
func (LogicalResourceProfile) TableName() string { return "logical_resource_profiles" }

// LogicalResourceTag links a logical resource to a meta.tag token.
type LogicalResourceTag struct {
	LogicalResourceID  int64 `gorm:"column:logical_resource_id;not null;index:idx_logical_resource_tags_lrid"`
	CommonTokenValueID int64 `gorm:"column:common_token_value_id;not null"`
	ResourceTypeID     int   `gorm:"column:resource_type_id;not null"`
}

// TableName implements the GORM tabler interface.
func (LogicalResourceTag) TableName() string { return "logical_resource_tags" }

// LogicalResourceSecurity links a logical resource to a meta.security token.
type LogicalResourceSecurity struct {
	LogicalResourceID  int64 `gorm:"column:logical_resource_id;not null;index:idx_logical_resource_security_lrid"`
	CommonTokenValueID int64 `gorm:"column:common_token_value_id;not null"`
	ResourceTypeID     int   `gorm:"column:resource_type_id;not null"`
}

// TableName implements the GORM tabler interface.
func (LogicalResourceSecurity) TableName() string { return "logical_resource_security" }

// Sequence is a table-backed sequence for dialects without CREATE SEQUENCE.
type Sequence struct {
	SequenceName string `gorm:"column:sequence_name;primaryKey;size:64"`
	NextVal      int64  `gorm:"column:next_val;not null"`
}

// TableName implements the GORM tabler interface.
func (Sequence) TableName() string { return "fhir_sequences" }

// The models below back the per resource type tables. They have no TableName; callers
// always address them through the names returned by TablesFor. Index tags are left
// unnamed so every table gets its own index names.

// TypeLogicalResource is a row of <type>_logical_resources.
type TypeLogicalResource struct {
	LogicalResourceID int64     `gorm:"column:logical_resource_id;primaryKey;autoIncrement:false"`
	LogicalID         string    `gorm:"column:logical_id;size:255;not null"`
	CurrentResourceID int64     `gorm:"column:current_resource_id;not null"`
	IsDeleted         string    `gorm:"column:is_deleted;size:1;not null;default:N"`
	LastUpdated       time.Time `gorm:"column:last_updated;not null"`
	VersionID         int       `gorm:"column:version_id;not null"`
}

// TypeResource is one immutable version row of <type>_resources.
type TypeResource struct {
	ResourceID         int64     `gorm:"column:resource_id;primaryKey;autoIncrement"`
	LogicalResourceID  int64     `gorm:"column:logical_resource_id;not null;uniqueIndex:,composite:lrid_version"`
	VersionID          int       `gorm:"column:version_id;not null;uniqueIndex:,composite:lrid_version"`
	LastUpdated        time.Time `gorm:"column:last_updated;not null"`
	IsDeleted          string    `gorm:"column:is_deleted;size:1;not null;default:N"`
	Data               []byte    `gorm:"column:data"`
	ResourcePayloadKey *string   `gorm:"column:resource_payload_key;size:64"`
}

// TypeStrValue is a row of <type>_str_values.
type TypeStrValue struct {
	ParameterNameID   int    `gorm:"column:parameter_name_id;not null"`
	StrValue          string `gorm:"column:str_value;size:1024"`
	StrValueLCase     string `gorm:"column:str_value_lcase;size:1024"`
	LogicalResourceID int64  `gorm:"column:logical_resource_id;not null;index"`
}

// TypeDateValue is a row of <type>_date_values.
type TypeDateValue struct {
	ParameterNameID   int       `gorm:"column:parameter_name_id;not null"`
	DateStart         time.Time `gorm:"column:date_start"`
	DateEnd           time.Time `gorm:"column:date_end"`
	LogicalResourceID int64     `gorm:"column:logical_resource_id;not null;index"`
}

// TypeNumberValue is a row of <type>_number_values.
type TypeNumberValue struct {
	ParameterNameID   int     `gorm:"column:parameter_name_id;not null"`
	NumberValue       float64 `gorm:"column:number_value"`
	LogicalResourceID int64   `gorm:"column:logical_resource_id;not null;index"`
}
