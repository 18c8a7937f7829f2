package reference

import (
	"resource-store/core/cache"
	"resource-store/core/schema"
	"resource-store/core/txn"
	"resource-store/feature/dictionary"

	"go.uber.org/zap"
)

const insertBatchSize = 500

// DAO writes and removes reference records.
type DAO struct {
	resolver *dictionary.Resolver
	logger   *zap.Logger
}

// NewDAO creates a DAO.
func NewDAO(resolver *dictionary.Resolver, logger *zap.Logger) *DAO {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DAO{resolver: resolver, logger: logger}
}

// Flush resolves the dictionary values of b, inserts its records and resets it.
func (d *DAO) Flush(tx *txn.Tx, b *Batch) error {
	if b.Len() == 0 {
		return nil
	}

	systems := make(map[string]int)
	resolveSystem := func(name string) (int, error) {
		if id, ok := systems[name]; ok {
			return id, nil
		}
		id, err := d.resolver.CodeSystemID(tx, name)
		if err != nil {
			return 0, err
		}
		systems[name] = id
		return id, nil
	}

	keyOf := func(system, value string) (cache.TokenKey, error) {
		id, err := resolveSystem(system)
		return cache.TokenKey{CodeSystemID: id, Value: value}, err
	}

	tokenKeys := make([]cache.TokenKey, 0, len(b.Tokens)+len(b.Tags)+len(b.Security))
	for _, rec := range b.Tokens {
		k, err := keyOf(rec.CodeSystem, rec.TokenValue)
		if err != nil {
			return err
		}
		tokenKeys = append(tokenKeys, k)
	}
	for _, rec := range append(append([]TagRec(nil), b.Tags...), b.Security...) {
		k, err := keyOf(rec.CodeSystem, rec.Code)
		if err != nil {
			return err
		}
		tokenKeys = append(tokenKeys, k)
	}

	tokenIDs, err := d.resolver.TokenValueIDs(tx, tokenKeys)
	if err != nil {
		return err
	}

	urls := make([]string, len(b.Profiles))
	for i, rec := range b.Profiles {
		urls[i] = rec.URL
	}
	canonicalIDs, err := d.resolver.CanonicalIDs(tx, urls)
	if err != nil {
		return err
	}

	if len(b.Tokens) > 0 {
		rows := make([]schema.ResourceTokenRef, len(b.Tokens))
		for i, rec := range b.Tokens {
			rows[i] = schema.ResourceTokenRef{
				ParameterNameID:    rec.ParameterNameID,
				LogicalResourceID:  rec.LogicalResourceID,
				CommonTokenValueID: tokenIDs[cache.TokenKey{CodeSystemID: systems[rec.CodeSystem], Value: rec.TokenValue}],
				RefVersionID:       rec.RefVersionID,
				ResourceTypeID:     rec.ResourceTypeID,
			}
		}
		if err := tx.DB.CreateInBatches(&rows, insertBatchSize).Error; err != nil {
			return tx.Dialect.Translate("insert resource token refs", err)
		}
	}

	if len(b.Profiles) > 0 {
		rows := make([]schema.LogicalResourceProfile, len(b.Profiles))
		for i, rec := range b.Profiles {
			rows[i] = schema.LogicalResourceProfile{
				LogicalResourceID: rec.LogicalResourceID,
				CanonicalID:       canonicalIDs[rec.URL],
				Version:           rec.Version,
				ResourceTypeID:    rec.ResourceTypeID,
			}
		}
		if err := tx.DB.CreateInBatches(&rows, insertBatchSize).Error; err != nil {
			return tx.Dialect.Translate("insert logical resource profiles", err)
		}
	}

	if len(b.Tags) > 0 {
		rows := make([]schema.LogicalResourceTag, len(b.Tags))
		for i, rec := range b.Tags {
			rows[i] = schema.LogicalResourceTag{
				LogicalResourceID:  rec.LogicalResourceID,
				CommonTokenValueID: tokenIDs[cache.TokenKey{CodeSystemID: systems[rec.CodeSystem], Value: rec.Code}],
				ResourceTypeID:     rec.ResourceTypeID,
			}
		}
		if err := tx.DB.CreateInBatches(&rows, insertBatchSize).Error; err != nil {
			return tx.Dialect.Translate("insert logical resource tags", err)
		}
	}

	if len(b.Security) > 0 {
		rows := make([]schema.LogicalResourceSecurity, len(b.Security))
		for i, rec := range b.Security {
			rows[i] = schema.LogicalResourceSecurity{
				LogicalResourceID:  rec.LogicalResourceID,
				CommonTokenValueID: tokenIDs[cache.TokenKey{CodeSystemID: systems[rec.CodeSystem], Value: rec.Code}],
				ResourceTypeID:     rec.ResourceTypeID,
			}
		}
		if err := tx.DB.CreateInBatches(&rows, insertBatchSize).Error; err != nil {
			return tx.Dialect.Translate("insert logical resource security", err)
		}
	}

	d.logger.Debug("Flushed reference records",
		zap.Int("tokens", len(b.Tokens)),
		zap.Int("profiles", len(b.Profiles)),
		zap.Int("tags", len(b.Tags)),
		zap.Int("security", len(b.Security)),
	)
	b.Reset()
	return nil
}

// Delete removes every reference record of the logical resource.
func (d *DAO) Delete(tx *txn.Tx, logicalResourceID int64) error {
	for _, table := range schema.GlobalParameterTables {
		if _, err := tx.Exec("delete "+table, "DELETE FROM "+table+" WHERE logical_resource_id = ?", logicalResourceID); err != nil {
			return err
		}
	}
	return nil
}
