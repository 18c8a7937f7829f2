package resource

import (
	"errors"
	"fmt"
	"time"

	"resource-store/core/cache"
	"resource-store/core/dberr"
	"resource-store/core/schema"
	"resource-store/core/txn"
	"resource-store/feature/dictionary"
	"resource-store/feature/parameter"

	"go.uber.org/zap"
)

const versionColumns = "r.resource_id, r.logical_resource_id, r.version_id, r.last_updated, r.is_deleted, r.data, r.resource_payload_key"

// DAO reads and writes versioned resources.
//
// Insert locks the logical_resource_ident row before the logical_resources row. Every
// dialect adapter must keep that order for the write path.
type DAO struct {
	resolver *dictionary.Resolver
	params   *parameter.DAO
	logger   *zap.Logger
}

// NewDAO creates a DAO.
func NewDAO(resolver *dictionary.Resolver, params *parameter.DAO, logger *zap.Logger) *DAO {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DAO{resolver: resolver, params: params, logger: logger}
}

// Resolver returns the dictionary resolver used by the DAO.
func (d *DAO) Resolver() *dictionary.Resolver { return d.resolver }

// Parameters returns the parameter DAO used by the DAO.
func (d *DAO) Parameters() *parameter.DAO { return d.params }

// ReadLogicalResourceID returns the logical_resource_id of (resourceTypeID, logicalID)
// or nil when the logical resource was never created.
func (d *DAO) ReadLogicalResourceID(tx *txn.Tx, resourceTypeID int, logicalID string) (*int64, error) {
	key := cache.IdentKey{ResourceTypeID: resourceTypeID, LogicalID: logicalID}
	if id, ok := tx.Cache.Idents.Get(key); ok {
		return &id, nil
	}

	var ids []int64
	err := tx.DB.Raw("SELECT logical_resource_id FROM logical_resource_ident WHERE resource_type_id = ? AND logical_id = ?",
		resourceTypeID, logicalID).Scan(&ids).Error
	if err != nil {
		return nil, tx.Dialect.Translate("read logical resource ident", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	tx.Cache.Idents.Put(key, ids[0])
	return &ids[0], nil
}

// lockIdent returns the locked ident row of (resourceTypeID, logicalID), creating it
// when it does not exist.
func (d *DAO) lockIdent(tx *txn.Tx, resourceTypeID int, logicalID string) (int64, error) {
	key := cache.IdentKey{ResourceTypeID: resourceTypeID, LogicalID: logicalID}
	query := tx.Dialect.ForUpdate("SELECT logical_resource_id FROM logical_resource_ident WHERE resource_type_id = ? AND logical_id = ?")
	read := func() ([]int64, error) {
		var ids []int64
		err := tx.DB.Raw(query, resourceTypeID, logicalID).Scan(&ids).Error
		return ids, err
	}

	ids, err := read()
	if err != nil {
		return 0, tx.Dialect.Translate("lock logical resource ident", err)
	}
	if len(ids) > 0 {
		tx.Cache.Idents.Put(key, ids[0])
		return ids[0], nil
	}

	row := schema.LogicalResourceIdent{ResourceTypeID: resourceTypeID, LogicalID: logicalID}
	err = tx.Guard(func() error { return tx.DB.Create(&row).Error })
	if err == nil {
		tx.Cache.Idents.Put(key, row.LogicalResourceID)
		return row.LogicalResourceID, nil
	}
	if err = tx.Dialect.Translate("add logical resource ident", err); !errors.Is(err, dberr.ErrUniqueViolation) {
		return 0, err
	}

	// A concurrent create of the same resource committed first.
	if ids, err = read(); err != nil {
		return 0, tx.Dialect.Translate("lock logical resource ident", err)
	}
	if len(ids) == 0 {
		return 0, dberr.CorruptSchema("logical resource ident %d/%s collided on insert but cannot be read", resourceTypeID, logicalID)
	}
	tx.Cache.Idents.Put(key, ids[0])
	return ids[0], nil
}

// lockLogicalResource returns the locked logical_resources row or nil.
func (d *DAO) lockLogicalResource(tx *txn.Tx, logicalResourceID int64) (*schema.LogicalResource, error) {
	var rows []schema.LogicalResource
	query := tx.Dialect.ForUpdate("SELECT * FROM logical_resources WHERE logical_resource_id = ?")
	if err := tx.DB.Raw(query, logicalResourceID).Scan(&rows).Error; err != nil {
		return nil, tx.Dialect.Translate("lock logical resource", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Insert writes a new version of a resource and replaces its search parameters.
//
// ifNoneMatch set to 0 asks for a conditional create: when a current, not deleted
// version exists nothing is written and the result has StatusIfNoneMatchExisted.
func (d *DAO) Insert(tx *txn.Tx, v Version, params parameter.Set, parameterHash string, ifNoneMatch *int) (InsertResult, error) {
	tables, err := schema.TablesFor(v.ResourceType)
	if err != nil {
		return InsertResult{}, err
	}
	resourceTypeID, err := d.resolver.ResourceTypeID(tx, v.ResourceType)
	if err != nil {
		return InsertResult{}, err
	}

	lrid, err := d.lockIdent(tx, resourceTypeID, v.LogicalID)
	if err != nil {
		return InsertResult{}, err
	}
	current, err := d.lockLogicalResource(tx, lrid)
	if err != nil {
		return InsertResult{}, err
	}

	currentVersion := 0
	if current != nil {
		currentVersion = current.VersionID
		if ifNoneMatch != nil && *ifNoneMatch == 0 && current.IsDeleted == schema.FlagNo {
			return InsertResult{LogicalResourceID: lrid, VersionID: currentVersion, Status: StatusIfNoneMatchExisted}, nil
		}
	}

	versionID := v.VersionID
	if versionID == 0 {
		versionID = currentVersion + 1
	}
	if versionID != currentVersion+1 {
		return InsertResult{}, &dberr.VersionConflictError{
			ResourceType: v.ResourceType,
			LogicalID:    v.LogicalID,
			Expected:     versionID,
			Current:      currentVersion,
		}
	}

	lastUpdated := v.LastUpdated
	if lastUpdated.IsZero() {
		lastUpdated = time.Now()
	}
	lastUpdated = lastUpdated.UTC()
	deleted := flag(v.Deleted)

	row := schema.TypeResource{
		LogicalResourceID:  lrid,
		VersionID:          versionID,
		LastUpdated:        lastUpdated,
		IsDeleted:          deleted,
		Data:               v.Payload.Data,
		ResourcePayloadKey: v.Payload.Key,
	}
	if err := tx.DB.Table(tables.Resources).Create(&row).Error; err != nil {
		err = tx.Dialect.Translate("insert "+tables.Resources, err)
		if errors.Is(err, dberr.ErrUniqueViolation) {
			return InsertResult{}, &dberr.VersionConflictError{ResourceType: v.ResourceType, LogicalID: v.LogicalID, Expected: versionID, Current: currentVersion}
		}
		return InsertResult{}, err
	}

	if current == nil {
		lr := schema.LogicalResource{
			LogicalResourceID: lrid,
			ResourceTypeID:    resourceTypeID,
			LogicalID:         v.LogicalID,
			IsDeleted:         deleted,
			LastUpdated:       lastUpdated,
			ParameterHash:     parameterHash,
			ReindexTstamp:     schema.EpochReindexTstamp,
			ReindexTxID:       0,
			VersionID:         versionID,
		}
		if err := tx.DB.Create(&lr).Error; err != nil {
			return InsertResult{}, tx.Dialect.Translate("insert logical resource", err)
		}
		typed := schema.TypeLogicalResource{
			LogicalResourceID: lrid,
			LogicalID:         v.LogicalID,
			CurrentResourceID: row.ResourceID,
			IsDeleted:         deleted,
			LastUpdated:       lastUpdated,
			VersionID:         versionID,
		}
		if err := tx.DB.Table(tables.LogicalResources).Create(&typed).Error; err != nil {
			return InsertResult{}, tx.Dialect.Translate("insert "+tables.LogicalResources, err)
		}
		if err := d.params.Insert(tx, tables, resourceTypeID, lrid, params); err != nil {
			return InsertResult{}, err
		}
	} else {
		if _, err := tx.Exec("update logical resource",
			"UPDATE logical_resources SET is_deleted = ?, last_updated = ?, version_id = ?, parameter_hash = ? WHERE logical_resource_id = ?",
			deleted, lastUpdated, versionID, parameterHash, lrid); err != nil {
			return InsertResult{}, err
		}
		if _, err := tx.Exec("update "+tables.LogicalResources,
			"UPDATE "+tables.LogicalResources+" SET current_resource_id = ?, is_deleted = ?, last_updated = ?, version_id = ? WHERE logical_resource_id = ?",
			row.ResourceID, deleted, lastUpdated, versionID, lrid); err != nil {
			return InsertResult{}, err
		}
		if current.ParameterHash != parameterHash {
			if err := d.params.Replace(tx, tables, resourceTypeID, lrid, params); err != nil {
				return InsertResult{}, err
			}
		}
	}

	status, changeType := StatusUpdated, schema.ChangeUpdate
	switch {
	case v.Deleted:
		status, changeType = StatusDeleted, schema.ChangeDelete
	case current == nil:
		status, changeType = StatusCreated, schema.ChangeCreate
	}
	change := schema.ResourceChangeLog{
		ResourceID:        row.ResourceID,
		ChangeTstamp:      lastUpdated,
		ResourceTypeID:    resourceTypeID,
		LogicalResourceID: lrid,
		VersionID:         versionID,
		ChangeType:        changeType,
	}
	if err := tx.DB.Create(&change).Error; err != nil {
		return InsertResult{}, tx.Dialect.Translate("insert resource change log", err)
	}

	d.logger.Debug("Inserted resource version",
		zap.String("resource_type", v.ResourceType),
		zap.String("logical_id", v.LogicalID),
		zap.Int("version", versionID),
		zap.String("status", string(status)),
	)
	return InsertResult{LogicalResourceID: lrid, ResourceID: row.ResourceID, VersionID: versionID, Status: status}, nil
}

// ReplaceParameters replaces the search parameters of a logical resource and records
// parameterHash.
func (d *DAO) ReplaceParameters(tx *txn.Tx, resourceType string, resourceTypeID int, logicalResourceID int64, params parameter.Set, parameterHash string) error {
	tables, err := schema.TablesFor(resourceType)
	if err != nil {
		return err
	}
	if err := d.params.Replace(tx, tables, resourceTypeID, logicalResourceID, params); err != nil {
		return err
	}
	_, err = tx.Exec("update parameter hash",
		"UPDATE logical_resources SET parameter_hash = ? WHERE logical_resource_id = ?", parameterHash, logicalResourceID)
	return err
}

func (d *DAO) identify(tx *txn.Tx, resourceType, logicalID string) (schema.Tables, int64, error) {
	tables, err := schema.TablesFor(resourceType)
	if err != nil {
		return schema.Tables{}, 0, err
	}
	resourceTypeID, err := d.resolver.ResourceTypeID(tx, resourceType)
	if err != nil {
		return schema.Tables{}, 0, err
	}
	lrid, err := d.ReadLogicalResourceID(tx, resourceTypeID, logicalID)
	if err != nil {
		return schema.Tables{}, 0, err
	}
	if lrid == nil {
		return schema.Tables{}, 0, dberr.NotFound("%s/%s", resourceType, logicalID)
	}
	return tables, *lrid, nil
}

// ReadCurrent returns the current version of a resource. A deleted resource is
// returned with Deleted set.
func (d *DAO) ReadCurrent(tx *txn.Tx, resourceType, logicalID string) (*Record, error) {
	tables, lrid, err := d.identify(tx, resourceType, logicalID)
	if err != nil {
		return nil, err
	}
	var rows []versionRow
	query := fmt.Sprintf("SELECT %s FROM logical_resources l JOIN %s r ON r.logical_resource_id = l.logical_resource_id AND r.version_id = l.version_id WHERE l.logical_resource_id = ?",
		versionColumns, tables.Resources)
	if err := tx.DB.Raw(query, lrid).Scan(&rows).Error; err != nil {
		return nil, tx.Dialect.Translate("read current version", err)
	}
	if len(rows) == 0 {
		return nil, dberr.NotFound("%s/%s", resourceType, logicalID)
	}
	rec := rows[0].record(resourceType, logicalID)
	return &rec, nil
}

// ReadVersion returns one version of a resource.
func (d *DAO) ReadVersion(tx *txn.Tx, resourceType, logicalID string, versionID int) (*Record, error) {
	tables, lrid, err := d.identify(tx, resourceType, logicalID)
	if err != nil {
		return nil, err
	}
	var rows []versionRow
	query := fmt.Sprintf("SELECT %s FROM %s r WHERE r.logical_resource_id = ? AND r.version_id = ?", versionColumns, tables.Resources)
	if err := tx.DB.Raw(query, lrid, versionID).Scan(&rows).Error; err != nil {
		return nil, tx.Dialect.Translate("read version", err)
	}
	if len(rows) == 0 {
		return nil, dberr.NotFound("%s/%s/_history/%d", resourceType, logicalID, versionID)
	}
	rec := rows[0].record(resourceType, logicalID)
	return &rec, nil
}

// History returns every version of a resource, newest first.
func (d *DAO) History(tx *txn.Tx, resourceType, logicalID string) ([]Record, error) {
	tables, lrid, err := d.identify(tx, resourceType, logicalID)
	if err != nil {
		return nil, err
	}
	var rows []versionRow
	query := fmt.Sprintf("SELECT %s FROM %s r WHERE r.logical_resource_id = ? ORDER BY r.version_id DESC", versionColumns, tables.Resources)
	if err := tx.DB.Raw(query, lrid).Scan(&rows).Error; err != nil {
		return nil, tx.Dialect.Translate("read history", err)
	}
	if len(rows) == 0 {
		return nil, dberr.NotFound("%s/%s", resourceType, logicalID)
	}
	out := make([]Record, len(rows))
	for i, row := range rows {
		out[i] = row.record(resourceType, logicalID)
	}
	return out, nil
}

// SearchToken returns the logical ids of current resources of resourceType with a token
// or reference value system|code for parameter name.
func (d *DAO) SearchToken(tx *txn.Tx, resourceType, name, system, code string) ([]string, error) {
	var ids []string
	err := tx.DB.Raw(`SELECT DISTINCT lr.logical_id
FROM resource_token_refs ref
JOIN common_token_values ctv ON ctv.common_token_value_id = ref.common_token_value_id
JOIN code_systems cs ON cs.code_system_id = ctv.code_system_id
JOIN parameter_names pn ON pn.parameter_name_id = ref.parameter_name_id
JOIN logical_resources lr ON lr.logical_resource_id = ref.logical_resource_id
JOIN resource_types rt ON rt.resource_type_id = lr.resource_type_id
WHERE rt.resource_type = ? AND pn.parameter_name = ? AND cs.code_system_name = ? AND ctv.token_value = ? AND lr.is_deleted = ?
ORDER BY lr.logical_id`, resourceType, name, system, code, schema.FlagNo).Scan(&ids).Error
	if err != nil {
		return nil, tx.Dialect.Translate("search token", err)
	}
	return ids, nil
}

// SearchProfile returns the logical ids of current resources of resourceType that
// declare the canonical profile url.
func (d *DAO) SearchProfile(tx *txn.Tx, resourceType, url string) ([]string, error) {
	var ids []string
	err := tx.DB.Raw(`SELECT DISTINCT lr.logical_id
FROM logical_resource_profiles p
JOIN common_canonical_values c ON c.canonical_id = p.canonical_id
JOIN logical_resources lr ON lr.logical_resource_id = p.logical_resource_id
JOIN resource_types rt ON rt.resource_type_id = lr.resource_type_id
WHERE rt.resource_type = ? AND c.url = ? AND lr.is_deleted = ?
ORDER BY lr.logical_id`, resourceType, url, schema.FlagNo).Scan(&ids).Error
	if err != nil {
		return nil, tx.Dialect.Translate("search profile", err)
	}
	return ids, nil
}

func flag(b bool) string {
	if b {
		return schema.FlagYes
	}
	return schema.FlagNo
}
