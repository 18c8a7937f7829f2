package erase

import (
	"context"

	"resource-store/core/metrics"
	"resource-store/core/payload"
	"resource-store/core/sequence"
	"resource-store/core/txn"

	"go.uber.org/zap"
)

// Service runs erases in their own transactions.
type Service struct {
	tm       *txn.Manager
	dao      *DAO
	payloads *payload.Store
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewService creates a Service.
func NewService(tm *txn.Manager, dao *DAO, payloads *payload.Store, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{tm: tm, dao: dao, payloads: payloads, metrics: m, logger: logger}
}

// Erase erases what req names under a new erase group. Offloaded payloads of erased
// versions are removed from the object store after the commit.
func (s *Service) Erase(ctx context.Context, req Request) (*ResourceEraseRecord, error) {
	var out *ResourceEraseRecord
	err := s.tm.DoWithRetry(ctx, func(tx *txn.Tx) error {
		groupID, err := sequence.Next(tx)
		if err != nil {
			return err
		}
		out, err = s.dao.Erase(tx, groupID, req)
		if err != nil {
			return err
		}
		if keys := out.PayloadKeys; len(keys) > 0 {
			tx.AfterCommit(func() { s.removePayloads(context.WithoutCancel(ctx), keys) })
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Erase(string(out.Status))
	s.logger.Info("Erase finished",
		zap.String("resource_type", req.ResourceType),
		zap.String("logical_id", req.LogicalID),
		zap.String("status", string(out.Status)),
		zap.Int64("group", out.ErasedResourceGroupID),
		zap.Int64("total", out.Total),
	)
	return out, nil
}

func (s *Service) removePayloads(ctx context.Context, keys []string) {
	if err := s.payloads.Delete(ctx, keys); err != nil {
		s.logger.Warn("Failed to remove erased payloads", zap.Strings("keys", keys), zap.Error(err))
	}
}

// Records returns the audit rows of an erase group.
func (s *Service) Records(ctx context.Context, groupID int64) ([]ErasedResourceRec, error) {
	var out []ErasedResourceRec
	err := s.tm.Do(ctx, func(tx *txn.Tx) error {
		var err error
		out, err = s.dao.GetErasedResourceRecords(tx, groupID)
		return err
	})
	return out, err
}

// Clear deletes the audit rows of an erase group.
func (s *Service) Clear(ctx context.Context, groupID int64) (int64, error) {
	var n int64
	err := s.tm.Do(ctx, func(tx *txn.Tx) error {
		var err error
		n, err = s.dao.ClearErasedResourcesInGroup(tx, groupID)
		return err
	})
	return n, err
}
