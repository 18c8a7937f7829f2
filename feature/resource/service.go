package resource

import (
	"context"
	"fmt"

	"resource-store/core/dberr"
	"resource-store/core/metrics"
	"resource-store/core/payload"
	"resource-store/core/schema"
	"resource-store/core/server"
	"resource-store/core/txn"
	"resource-store/feature/parameter"

	"go.uber.org/zap"
)

// Extractor derives the search parameters of a payload.
type Extractor interface {
	Extract(resourceType string, data []byte) (parameter.Set, error)
}

// Resource is a stored version with its decoded payload.
type Resource struct {
	Record
	Data []byte
}

// Service runs resource operations in their own transactions.
type Service struct {
	tm        *txn.Manager
	dao       *DAO
	payloads  *payload.Store
	extractor Extractor
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewService creates a Service.
func NewService(tm *txn.Manager, dao *DAO, payloads *payload.Store, extractor Extractor, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{tm: tm, dao: dao, payloads: payloads, extractor: extractor, metrics: m, logger: logger}
}

// Put creates or updates a resource. ifMatch, when set, is the version the caller
// expects to be current. ifNoneMatch set to 0 turns the call into a conditional create.
func (s *Service) Put(ctx context.Context, resourceType, logicalID string, data []byte, ifMatch, ifNoneMatch *int) (InsertResult, error) {
	if _, err := schema.TablesFor(resourceType); err != nil {
		return InsertResult{}, fmt.Errorf("%w: %v", server.ErrBadRequest, err)
	}
	params, err := s.extractor.Extract(resourceType, data)
	if err != nil {
		return InsertResult{}, fmt.Errorf("%w: %v", server.ErrBadRequest, err)
	}
	stored, err := s.payloads.Prepare(ctx, data)
	if err != nil {
		return InsertResult{}, err
	}

	version := Version{ResourceType: resourceType, LogicalID: logicalID, Payload: stored}
	if ifMatch != nil {
		version.VersionID = *ifMatch + 1
	}

	var res InsertResult
	err = s.tm.DoWithRetry(ctx, func(tx *txn.Tx) error {
		var err error
		res, err = s.dao.Insert(tx, version, params, params.Hash(), ifNoneMatch)
		return err
	})
	if (err != nil || res.Status == StatusIfNoneMatchExisted) && stored.Key != nil {
		if delErr := s.payloads.Delete(ctx, []string{*stored.Key}); delErr != nil {
			s.logger.Warn("Failed to remove unused payload", zap.String("key", *stored.Key), zap.Error(delErr))
		}
	}
	if err != nil {
		return InsertResult{}, err
	}

	s.written(resourceType, res.Status)
	return res, nil
}

// Delete marks a resource deleted by writing a new deleted version. Deleting a
// resource that is already deleted writes nothing.
func (s *Service) Delete(ctx context.Context, resourceType, logicalID string) (InsertResult, error) {
	var res InsertResult
	err := s.tm.DoWithRetry(ctx, func(tx *txn.Tx) error {
		current, err := s.dao.ReadCurrent(tx, resourceType, logicalID)
		if err != nil {
			return err
		}
		if current.Deleted {
			res = InsertResult{
				LogicalResourceID: current.LogicalResourceID,
				ResourceID:        current.ResourceID,
				VersionID:         current.VersionID,
				Status:            StatusDeleted,
			}
			return nil
		}

		var empty parameter.Set
		res, err = s.dao.Insert(tx, Version{
			ResourceType: resourceType,
			LogicalID:    logicalID,
			VersionID:    current.VersionID + 1,
			Deleted:      true,
		}, empty, empty.Hash(), nil)
		return err
	})
	if err != nil {
		return InsertResult{}, err
	}
	s.written(resourceType, res.Status)
	return res, nil
}

func (s *Service) written(resourceType string, status Status) {
	switch status {
	case StatusCreated:
		s.metrics.Write(resourceType, schema.ChangeCreate)
	case StatusUpdated:
		s.metrics.Write(resourceType, schema.ChangeUpdate)
	case StatusDeleted:
		s.metrics.Write(resourceType, schema.ChangeDelete)
	}
}

func (s *Service) load(ctx context.Context, rec Record) (*Resource, error) {
	data, err := s.payloads.Load(ctx, rec.Payload)
	if err != nil {
		return nil, err
	}
	return &Resource{Record: rec, Data: data}, nil
}

// Read returns the current version of a resource.
func (s *Service) Read(ctx context.Context, resourceType, logicalID string) (*Resource, error) {
	var rec *Record
	err := s.tm.Do(ctx, func(tx *txn.Tx) error {
		var err error
		rec, err = s.dao.ReadCurrent(tx, resourceType, logicalID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, *rec)
}

// VRead returns one version of a resource. Versions whose payload was erased are
// reported as not found.
func (s *Service) VRead(ctx context.Context, resourceType, logicalID string, versionID int) (*Resource, error) {
	var rec *Record
	err := s.tm.Do(ctx, func(tx *txn.Tx) error {
		var err error
		rec, err = s.dao.ReadVersion(tx, resourceType, logicalID, versionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if rec.Erased() {
		return nil, dberr.NotFound("%s/%s/_history/%d was erased", resourceType, logicalID, versionID)
	}
	return s.load(ctx, *rec)
}

// History returns the version records of a resource, newest first, without payloads.
func (s *Service) History(ctx context.Context, resourceType, logicalID string) ([]Record, error) {
	var out []Record
	err := s.tm.Do(ctx, func(tx *txn.Tx) error {
		var err error
		out, err = s.dao.History(tx, resourceType, logicalID)
		return err
	})
	return out, err
}

// SearchToken returns the ids of resources matching a token parameter.
func (s *Service) SearchToken(ctx context.Context, resourceType, name, system, code string) ([]string, error) {
	var out []string
	err := s.tm.Do(ctx, func(tx *txn.Tx) error {
		var err error
		out, err = s.dao.SearchToken(tx, resourceType, name, system, code)
		return err
	})
	return out, err
}

// SearchProfile returns the ids of resources declaring a profile.
func (s *Service) SearchProfile(ctx context.Context, resourceType, url string) ([]string, error) {
	var out []string
	err := s.tm.Do(ctx, func(tx *txn.Tx) error {
		var err error
		out, err = s.dao.SearchProfile(tx, resourceType, url)
		return err
	})
	return out, err
}
