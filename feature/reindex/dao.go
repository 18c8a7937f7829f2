package reindex

import (
	"strings"
	"time"

	"resource-store/core/dberr"
	"resource-store/core/metrics"
	"resource-store/core/schema"
	"resource-store/core/txn"
	"resource-store/feature/parameter"
	"resource-store/feature/resource"

	"go.uber.org/zap"
)

// Claim outcomes recorded in metrics.
const (
	ClaimClaimed  = "claimed"
	ClaimLostRace = "lost_race"
	ClaimEmpty    = "empty"
	ClaimNotFound = "not_found"
)

// ResourceIndexRecord is a logical resource claimed for reindexing.
type ResourceIndexRecord struct {
	LogicalResourceID int64
	ResourceTypeID    int
	ResourceType      string
	LogicalID         string
	// TransactionID is the reindex_txid written by the claim.
	TransactionID int64
}

type candidate struct {
	LogicalResourceID int64  `gorm:"column:logical_resource_id"`
	ResourceTypeID    int    `gorm:"column:resource_type_id"`
	LogicalID         string `gorm:"column:logical_id"`
	ReindexTxID       int64  `gorm:"column:reindex_txid"`
}

// DAO claims resources for reindexing and rewrites their search parameters.
type DAO struct {
	resources   *resource.DAO
	rand        Rand
	offsetRange int
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// Option configures a DAO.
type Option func(*DAO)

// WithRand replaces the source of candidate offsets.
func WithRand(r Rand) Option {
	return func(d *DAO) { d.rand = r }
}

// WithOffsetRange sets the initial candidate offset range.
func WithOffsetRange(n int) Option {
	return func(d *DAO) {
		if n > 0 {
			d.offsetRange = n
		}
	}
}

// WithMetrics records claim outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *DAO) { d.metrics = m }
}

// NewDAO creates a DAO.
func NewDAO(resources *resource.DAO, logger *zap.Logger, opts ...Option) *DAO {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &DAO{
		resources:   resources,
		rand:        globalRand{},
		offsetRange: DefaultOffsetRange,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// GetResourceToReindex claims one logical resource whose reindex_tstamp is older than
// reindexTstamp and returns it, or nil when there is nothing left to reindex.
//
// When logicalResourceID is set that resource is claimed directly. Otherwise a
// candidate is sampled, optionally restricted to resourceType and logicalID. The claim
// sets reindex_tstamp to reindexTstamp, so a claimed resource is not eligible again
// for the same timestamp.
func (d *DAO) GetResourceToReindex(tx *txn.Tx, reindexTstamp time.Time, logicalResourceID *int64, resourceType, logicalID string) (*ResourceIndexRecord, error) {
	reindexTstamp = reindexTstamp.UTC()
	if logicalResourceID != nil {
		return d.claimByID(tx, reindexTstamp, *logicalResourceID)
	}

	where := []string{"is_deleted = ?", "reindex_tstamp < ?"}
	args := []any{schema.FlagNo, reindexTstamp}
	if resourceType != "" {
		resourceTypeID, found, err := d.resources.Resolver().LookupResourceTypeID(tx, resourceType)
		if err != nil {
			return nil, err
		}
		if !found {
			d.metrics.ReindexClaim(ClaimEmpty)
			return nil, nil
		}
		where = append(where, "resource_type_id = ?")
		args = append(args, resourceTypeID)
	}
	if logicalID != "" {
		where = append(where, "logical_id = ?")
		args = append(args, logicalID)
	}
	base := "SELECT logical_resource_id, resource_type_id, logical_id, reindex_txid FROM logical_resources WHERE " +
		strings.Join(where, " AND ") + " ORDER BY logical_resource_id "

	sel := newSelector(d.rand, d.offsetRange)
	for {
		offset, ok := sel.next()
		if !ok {
			d.metrics.ReindexClaim(ClaimEmpty)
			return nil, nil
		}

		var rows []candidate
		if err := tx.DB.Raw(base+tx.Dialect.Paginate(offset, 1), args...).Scan(&rows).Error; err != nil {
			return nil, tx.Dialect.Translate("select reindex candidate", err)
		}
		if len(rows) == 0 {
			sel.empty()
			continue
		}

		rec, err := d.claim(tx, reindexTstamp, rows[0])
		if err != nil {
			return nil, err
		}
		if rec == nil {
			d.metrics.ReindexClaim(ClaimLostRace)
			d.logger.Debug("Lost reindex claim race", zap.Int64("logical_resource_id", rows[0].LogicalResourceID))
			continue
		}
		d.metrics.ReindexClaim(ClaimClaimed)
		return rec, nil
	}
}

func (d *DAO) claimByID(tx *txn.Tx, reindexTstamp time.Time, logicalResourceID int64) (*ResourceIndexRecord, error) {
	var rows []candidate
	err := tx.DB.Raw("SELECT logical_resource_id, resource_type_id, logical_id, reindex_txid FROM logical_resources WHERE logical_resource_id = ? AND is_deleted = ? AND reindex_tstamp < ?",
		logicalResourceID, schema.FlagNo, reindexTstamp).Scan(&rows).Error
	if err != nil {
		return nil, tx.Dialect.Translate("select reindex target", err)
	}
	if len(rows) == 0 {
		d.metrics.ReindexClaim(ClaimNotFound)
		return nil, nil
	}
	rec, err := d.claim(tx, reindexTstamp, rows[0])
	if err != nil {
		return nil, err
	}
	if rec == nil {
		d.metrics.ReindexClaim(ClaimNotFound)
		return nil, nil
	}
	d.metrics.ReindexClaim(ClaimClaimed)
	return rec, nil
}

// claim bumps the reindex state of c when nobody changed it since it was read, then
// locks the ident row. It returns nil when the claim was lost.
func (d *DAO) claim(tx *txn.Tx, reindexTstamp time.Time, c candidate) (*ResourceIndexRecord, error) {
	txid := c.ReindexTxID + 1
	n, err := tx.Exec("claim reindex candidate",
		"UPDATE logical_resources SET reindex_tstamp = ?, reindex_txid = ? WHERE logical_resource_id = ? AND reindex_txid = ?",
		reindexTstamp, txid, c.LogicalResourceID, c.ReindexTxID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	// Locks in the reverse order of resource.DAO.Insert.
	var ids []int64
	query := tx.Dialect.ForUpdate("SELECT logical_resource_id FROM logical_resource_ident WHERE resource_type_id = ? AND logical_id = ?")
	if err := tx.DB.Raw(query, c.ResourceTypeID, c.LogicalID).Scan(&ids).Error; err != nil {
		return nil, tx.Dialect.Translate("lock logical resource ident", err)
	}
	if len(ids) == 0 {
		d.logger.Debug("Reindex candidate lost its ident", zap.Int64("logical_resource_id", c.LogicalResourceID))
		return nil, nil
	}

	name, err := d.resources.Resolver().ResourceTypeName(tx, c.ResourceTypeID)
	if err != nil {
		return nil, err
	}
	return &ResourceIndexRecord{
		LogicalResourceID: c.LogicalResourceID,
		ResourceTypeID:    c.ResourceTypeID,
		ResourceType:      name,
		LogicalID:         c.LogicalID,
		TransactionID:     txid,
	}, nil
}

// UpdateParameters replaces the search parameters of rec with params and records
// parameterHash. Nothing is rewritten when the stored hash already equals
// parameterHash. The result reports whether index rows were rewritten.
func (d *DAO) UpdateParameters(tx *txn.Tx, rec *ResourceIndexRecord, params parameter.Set, parameterHash string) (bool, error) {
	var hashes []string
	err := tx.DB.Raw("SELECT parameter_hash FROM logical_resources WHERE logical_resource_id = ?", rec.LogicalResourceID).Scan(&hashes).Error
	if err != nil {
		return false, tx.Dialect.Translate("read parameter hash", err)
	}
	if len(hashes) == 0 {
		return false, dberr.CorruptSchema("claimed logical resource %d of %s/%s does not exist", rec.LogicalResourceID, rec.ResourceType, rec.LogicalID)
	}
	if hashes[0] == parameterHash {
		return false, nil
	}
	if err := d.resources.ReplaceParameters(tx, rec.ResourceType, rec.ResourceTypeID, rec.LogicalResourceID, params, parameterHash); err != nil {
		return false, err
	}
	return true, nil
}

// Insert writes nothing. Reindexing never changes resource content, only its index.
func (d *DAO) Insert(_ *txn.Tx, v resource.Version) (resource.InsertResult, error) {
	return resource.InsertResult{VersionID: v.VersionID}, nil
}
