package erase

import (
	"resource-store/core/dialect"
	"resource-store/core/schema"
	"resource-store/core/txn"
	"resource-store/feature/dictionary"
	"resource-store/feature/parameter"

	"go.uber.org/zap"
)

// DAO erases resources.
type DAO struct {
	resolver *dictionary.Resolver
	whole    wholeEraser
	logger   *zap.Logger
}

// NewDAO creates a DAO. Whole resources are erased by the erase_resource routine when
// useProcedure is set and d has one, otherwise by individual statements.
func NewDAO(resolver *dictionary.Resolver, params *parameter.DAO, d dialect.Dialect, useProcedure bool, logger *zap.Logger) *DAO {
	if logger == nil {
		logger = zap.NewNop()
	}
	var whole wholeEraser = statementEraser{params: params}
	if useProcedure && d.HasEraseProcedure {
		whole = procedureEraser{}
	}
	return &DAO{resolver: resolver, whole: whole, logger: logger}
}

// Strategy names how whole resources are erased.
func (d *DAO) Strategy() string { return d.whole.name() }

type payloadKeyRow struct {
	Key *string `gorm:"column:resource_payload_key"`
}

type lockedResource struct {
	LogicalResourceID int64 `gorm:"column:logical_resource_id"`
	VersionID         int   `gorm:"column:version_id"`
}

// Erase erases the resource or the version named by req and records the erase under
// groupID.
//
// A request for version 1 erases the whole resource. Any other version equal to the
// current version is refused.
func (d *DAO) Erase(tx *txn.Tx, groupID int64, req Request) (*ResourceEraseRecord, error) {
	tables, err := schema.TablesFor(req.ResourceType)
	if err != nil {
		return nil, err
	}
	out := &ResourceEraseRecord{ErasedResourceGroupID: groupID}
	resourceTypeID, found, err := d.resolver.LookupResourceTypeID(tx, req.ResourceType)
	if err != nil {
		return nil, err
	}
	if !found {
		out.Status = StatusNotFound
		return out, nil
	}

	// Same lock order as the write path: ident, then logical resource.
	var ids []int64
	identSQL := tx.Dialect.ForUpdate("SELECT logical_resource_id FROM logical_resource_ident WHERE resource_type_id = ? AND logical_id = ?")
	if err := tx.DB.Raw(identSQL, resourceTypeID, req.LogicalID).Scan(&ids).Error; err != nil {
		return nil, tx.Dialect.Translate("lock logical resource ident", err)
	}
	if len(ids) == 0 {
		out.Status = StatusNotFound
		return out, nil
	}
	lrid := ids[0]

	var rows []lockedResource
	lrSQL := tx.Dialect.ForUpdate("SELECT logical_resource_id, version_id FROM logical_resources WHERE logical_resource_id = ?")
	if err := tx.DB.Raw(lrSQL, lrid).Scan(&rows).Error; err != nil {
		return nil, tx.Dialect.Translate("lock logical resource", err)
	}
	if len(rows) == 0 {
		out.Status = StatusNotFound
		return out, nil
	}
	current := rows[0].VersionID

	if v := req.Version; v != nil {
		switch {
		case *v < 1:
			out.Status = StatusNotFound
			return out, nil
		case *v > current:
			out.Status = StatusNotSupportedGreater
			return out, nil
		case *v == 1:
		case *v == current:
			out.Status = StatusNotSupportedLatest
			return out, nil
		default:
			return d.eraseVersion(tx, tables, resourceTypeID, lrid, req, *v, out)
		}
	}
	return d.eraseWhole(tx, tables, resourceTypeID, lrid, req, out)
}

func (d *DAO) audit(tx *txn.Tx, groupID int64, resourceTypeID int, logicalID string, version *int) error {
	rec := schema.ErasedResource{
		ErasedResourceGroupID: groupID,
		ResourceTypeID:        resourceTypeID,
		LogicalID:             logicalID,
		VersionID:             version,
	}
	if err := tx.DB.Create(&rec).Error; err != nil {
		return tx.Dialect.Translate("insert erased resource", err)
	}
	return nil
}

func (d *DAO) eraseVersion(tx *txn.Tx, tables schema.Tables, resourceTypeID int, lrid int64, req Request, version int, out *ResourceEraseRecord) (*ResourceEraseRecord, error) {
	var keys []payloadKeyRow
	err := tx.DB.Raw("SELECT resource_payload_key FROM "+tables.Resources+" WHERE logical_resource_id = ? AND version_id = ?",
		lrid, version).Scan(&keys).Error
	if err != nil {
		return nil, tx.Dialect.Translate("read "+tables.Resources, err)
	}
	if len(keys) == 0 {
		out.Status = StatusNotFound
		return out, nil
	}

	if err := d.audit(tx, out.ErasedResourceGroupID, resourceTypeID, req.LogicalID, &version); err != nil {
		return nil, err
	}
	if _, err := tx.Exec("erase version payload",
		"UPDATE "+tables.Resources+" SET data = NULL, resource_payload_key = NULL WHERE logical_resource_id = ? AND version_id = ?",
		lrid, version); err != nil {
		return nil, err
	}
	if _, err := tx.Exec("erase version change log",
		"DELETE FROM resource_change_log WHERE logical_resource_id = ? AND version_id = ?", lrid, version); err != nil {
		return nil, err
	}

	if keys[0].Key != nil {
		out.PayloadKeys = []string{*keys[0].Key}
	}
	out.Status = StatusVersion
	out.Total = 1
	d.logger.Debug("Erased resource version",
		zap.String("resource_type", req.ResourceType),
		zap.String("logical_id", req.LogicalID),
		zap.Int("version", version),
		zap.Int64("group", out.ErasedResourceGroupID),
	)
	return out, nil
}

func (d *DAO) eraseWhole(tx *txn.Tx, tables schema.Tables, resourceTypeID int, lrid int64, req Request, out *ResourceEraseRecord) (*ResourceEraseRecord, error) {
	var keys []string
	err := tx.DB.Raw("SELECT resource_payload_key FROM "+tables.Resources+" WHERE logical_resource_id = ? AND resource_payload_key IS NOT NULL ORDER BY version_id",
		lrid).Scan(&keys).Error
	if err != nil {
		return nil, tx.Dialect.Translate("read "+tables.Resources, err)
	}

	if err := d.audit(tx, out.ErasedResourceGroupID, resourceTypeID, req.LogicalID, nil); err != nil {
		return nil, err
	}
	total, err := d.whole.eraseWhole(tx, tables, lrid)
	if err != nil {
		return nil, err
	}

	out.Status = StatusDone
	out.Total = total
	out.PayloadKeys = keys
	d.logger.Debug("Erased resource",
		zap.String("resource_type", req.ResourceType),
		zap.String("logical_id", req.LogicalID),
		zap.Int64("versions", total),
		zap.Int64("group", out.ErasedResourceGroupID),
		zap.String("strategy", d.whole.name()),
	)
	return out, nil
}

// GetErasedResourceRecords returns the audit rows of an erase group.
func (d *DAO) GetErasedResourceRecords(tx *txn.Tx, groupID int64) ([]ErasedResourceRec, error) {
	var recs []ErasedResourceRec
	err := tx.DB.Raw(`SELECT e.erased_resource_id, e.erased_resource_group_id, e.resource_type_id, rt.resource_type, e.logical_id, e.version_id
FROM erased_resources e
JOIN resource_types rt ON rt.resource_type_id = e.resource_type_id
WHERE e.erased_resource_group_id = ?
ORDER BY e.erased_resource_id`, groupID).Scan(&recs).Error
	if err != nil {
		return nil, tx.Dialect.Translate("read erased resources", err)
	}
	return recs, nil
}

// ClearErasedResourcesInGroup deletes the audit rows of an erase group and returns how
// many were removed.
func (d *DAO) ClearErasedResourcesInGroup(tx *txn.Tx, groupID int64) (int64, error) {
	return tx.Exec("clear erased resources", "DELETE FROM erased_resources WHERE erased_resource_group_id = ?", groupID)
}
