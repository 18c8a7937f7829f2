package parameter

import (
	"resource-store/core/schema"
	"resource-store/core/txn"
	"resource-store/feature/dictionary"
	"resource-store/feature/reference"
)

const insertBatchSize = 500

// DAO replaces the search parameter rows of logical resources.
type DAO struct {
	resolver *dictionary.Resolver
	refs     *reference.DAO
}

// NewDAO creates a DAO.
func NewDAO(resolver *dictionary.Resolver, refs *reference.DAO) *DAO {
	return &DAO{resolver: resolver, refs: refs}
}

// Replace deletes the current parameter rows of the logical resource and inserts set.
func (d *DAO) Replace(tx *txn.Tx, tables schema.Tables, resourceTypeID int, logicalResourceID int64, set Set) error {
	if err := d.Delete(tx, tables, logicalResourceID); err != nil {
		return err
	}
	return d.Insert(tx, tables, resourceTypeID, logicalResourceID, set)
}

// Delete removes the per type and global parameter rows of the logical resource.
func (d *DAO) Delete(tx *txn.Tx, tables schema.Tables, logicalResourceID int64) error {
	for _, table := range tables.ParameterTables() {
		if _, err := tx.Exec("delete "+table, "DELETE FROM "+table+" WHERE logical_resource_id = ?", logicalResourceID); err != nil {
			return err
		}
	}
	return d.refs.Delete(tx, logicalResourceID)
}

// Insert writes set for the logical resource.
func (d *DAO) Insert(tx *txn.Tx, tables schema.Tables, resourceTypeID int, logicalResourceID int64, set Set) error {
	if set.IsEmpty() {
		return nil
	}

	nameIDs := make(map[string]int)
	for _, name := range set.names() {
		id, err := d.resolver.ParameterNameID(tx, name)
		if err != nil {
			return err
		}
		nameIDs[name] = id
	}

	if len(set.Strings) > 0 {
		rows := make([]schema.TypeStrValue, len(set.Strings))
		for i, v := range set.Strings {
			rows[i] = schema.TypeStrValue{
				ParameterNameID:   nameIDs[v.Name],
				StrValue:          v.Value,
				StrValueLCase:     lower(v.Value),
				LogicalResourceID: logicalResourceID,
			}
		}
		if err := tx.DB.Table(tables.StrValues).CreateInBatches(&rows, insertBatchSize).Error; err != nil {
			return tx.Dialect.Translate("insert "+tables.StrValues, err)
		}
	}

	if len(set.Dates) > 0 {
		rows := make([]schema.TypeDateValue, len(set.Dates))
		for i, v := range set.Dates {
			rows[i] = schema.TypeDateValue{
				ParameterNameID:   nameIDs[v.Name],
				DateStart:         v.Start.UTC(),
				DateEnd:           v.End.UTC(),
				LogicalResourceID: logicalResourceID,
			}
		}
		if err := tx.DB.Table(tables.DateValues).CreateInBatches(&rows, insertBatchSize).Error; err != nil {
			return tx.Dialect.Translate("insert "+tables.DateValues, err)
		}
	}

	if len(set.Numbers) > 0 {
		rows := make([]schema.TypeNumberValue, len(set.Numbers))
		for i, v := range set.Numbers {
			rows[i] = schema.TypeNumberValue{
				ParameterNameID:   nameIDs[v.Name],
				NumberValue:       v.Value,
				LogicalResourceID: logicalResourceID,
			}
		}
		if err := tx.DB.Table(tables.NumberValues).CreateInBatches(&rows, insertBatchSize).Error; err != nil {
			return tx.Dialect.Translate("insert "+tables.NumberValues, err)
		}
	}

	var batch reference.Batch
	for _, v := range set.Tokens {
		batch.Tokens = append(batch.Tokens, reference.TokenRec{
			LogicalResourceID: logicalResourceID,
			ResourceTypeID:    resourceTypeID,
			ParameterNameID:   nameIDs[v.Name],
			CodeSystem:        v.System,
			TokenValue:        v.Code,
		})
	}
	for _, v := range set.References {
		batch.Tokens = append(batch.Tokens, reference.TokenRec{
			LogicalResourceID: logicalResourceID,
			ResourceTypeID:    resourceTypeID,
			ParameterNameID:   nameIDs[v.Name],
			CodeSystem:        v.TargetType,
			TokenValue:        v.TargetID,
			RefVersionID:      v.Version,
		})
	}
	for _, v := range set.Profiles {
		batch.Profiles = append(batch.Profiles, reference.ProfileRec{
			LogicalResourceID: logicalResourceID,
			ResourceTypeID:    resourceTypeID,
			URL:               v.URL,
			Version:           v.Version,
		})
	}
	for _, v := range set.Tags {
		batch.Tags = append(batch.Tags, reference.TagRec{
			LogicalResourceID: logicalResourceID,
			ResourceTypeID:    resourceTypeID,
			CodeSystem:        v.System,
			Code:              v.Code,
		})
	}
	for _, v := range set.Security {
		batch.Security = append(batch.Security, reference.TagRec{
			LogicalResourceID: logicalResourceID,
			ResourceTypeID:    resourceTypeID,
			CodeSystem:        v.System,
			Code:              v.Code,
		})
	}
	return d.refs.Flush(tx, &batch)
}

// Count returns the number of parameter rows stored for the logical resource across
// the per type and global tables.
func (d *DAO) Count(tx *txn.Tx, tables schema.Tables, logicalResourceID int64) (int64, error) {
	var total int64
	for _, table := range append(tables.ParameterTables(), schema.GlobalParameterTables...) {
		var n int64
		if err := tx.DB.Table(table).Where("logical_resource_id = ?", logicalResourceID).Count(&n).Error; err != nil {
			return 0, tx.Dialect.Translate("count "+table, err)
		}
		total += n
	}
	return total, nil
}
