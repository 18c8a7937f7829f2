package reindex

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"resource-store/core/metrics"
	"resource-store/core/payload"
	"resource-store/core/txn"
	"resource-store/feature/resource"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Request selects what to reindex.
type Request struct {
	// Tstamp is the reindex timestamp. Resources reindexed before it are eligible and
	// claimed resources get it. Zero means now.
	Tstamp time.Time `json:"tstamp"`
	// LogicalResourceID reindexes exactly that resource.
	LogicalResourceID *int64 `json:"logicalResourceId,omitempty"`
	// ResourceType and LogicalID restrict the candidates.
	ResourceType string `json:"resourceType,omitempty"`
	LogicalID    string `json:"logicalId,omitempty"`
}

// Outcome is the result of reindexing one resource.
type Outcome struct {
	Record    *ResourceIndexRecord
	Rewritten bool
	// Failed is set when the payload could not be read or its parameters extracted.
	// The resource stays claimed so it is not picked again for the same timestamp.
	Failed bool
}

// Summary counts what Run did.
type Summary struct {
	Tstamp    time.Time `json:"tstamp"`
	Processed int64     `json:"processed"`
	Rewritten int64     `json:"rewritten"`
	Failed    int64     `json:"failed"`
}

// Service reindexes resources in their own transactions.
type Service struct {
	tm        *txn.Manager
	dao       *DAO
	resources *resource.DAO
	payloads  *payload.Store
	extractor resource.Extractor
	workers   int
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewService creates a Service running workers concurrent workers in Run.
func NewService(tm *txn.Manager, dao *DAO, resources *resource.DAO, payloads *payload.Store, extractor resource.Extractor, workers int, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers < 1 {
		workers = 1
	}
	return &Service{
		tm:        tm,
		dao:       dao,
		resources: resources,
		payloads:  payloads,
		extractor: extractor,
		workers:   workers,
		metrics:   m,
		logger:    logger,
	}
}

func normalize(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Truncate(time.Microsecond)
}

// ReindexOne claims and reindexes one resource. It returns nil when nothing is left.
func (s *Service) ReindexOne(ctx context.Context, req Request) (*Outcome, error) {
	req.Tstamp = normalize(req.Tstamp)
	var out *Outcome
	err := s.tm.DoWithRetry(ctx, func(tx *txn.Tx) error {
		out = nil
		rec, err := s.dao.GetResourceToReindex(tx, req.Tstamp, req.LogicalResourceID, req.ResourceType, req.LogicalID)
		if err != nil || rec == nil {
			return err
		}
		start := time.Now()
		defer s.metrics.ReindexDone(rec.ResourceType, start)

		out = &Outcome{Record: rec}
		current, err := s.resources.ReadCurrent(tx, rec.ResourceType, rec.LogicalID)
		if err != nil {
			return err
		}
		data, err := s.payloads.Load(ctx, current.Payload)
		if err != nil {
			s.logger.Warn("Failed to load payload for reindex",
				zap.String("resource_type", rec.ResourceType), zap.String("logical_id", rec.LogicalID), zap.Error(err))
			out.Failed = true
			return nil
		}
		params, err := s.extractor.Extract(rec.ResourceType, data)
		if err != nil {
			s.logger.Warn("Failed to extract parameters for reindex",
				zap.String("resource_type", rec.ResourceType), zap.String("logical_id", rec.LogicalID), zap.Error(err))
			out.Failed = true
			return nil
		}
		out.Rewritten, err = s.dao.UpdateParameters(tx, rec, params, params.Hash())
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Run reindexes every eligible resource with the configured number of workers and
// returns once no eligible resource is left. A request naming one logical resource is
// processed once.
func (s *Service) Run(ctx context.Context, req Request) (Summary, error) {
	req.Tstamp = normalize(req.Tstamp)
	if req.LogicalResourceID != nil {
		sum := Summary{Tstamp: req.Tstamp}
		out, err := s.ReindexOne(ctx, req)
		if err != nil || out == nil {
			return sum, err
		}
		sum.add(out)
		return sum, nil
	}

	var processed, rewritten, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < s.workers; w++ {
		g.Go(func() error {
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				out, err := s.ReindexOne(gctx, req)
				if err != nil {
					return err
				}
				if out == nil {
					return nil
				}
				processed.Add(1)
				if out.Rewritten {
					rewritten.Add(1)
				}
				if out.Failed {
					failed.Add(1)
				}
			}
		})
	}
	err := g.Wait()
	sum := Summary{Tstamp: req.Tstamp, Processed: processed.Load(), Rewritten: rewritten.Load(), Failed: failed.Load()}
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("Reindex stopped", zap.Error(err), zap.Int64("processed", sum.Processed))
	} else {
		s.logger.Info("Reindex finished",
			zap.Time("tstamp", sum.Tstamp),
			zap.Int64("processed", sum.Processed),
			zap.Int64("rewritten", sum.Rewritten),
			zap.Int64("failed", sum.Failed),
		)
	}
	return sum, err
}

func (sum *Summary) add(out *Outcome) {
	sum.Processed++
	if out.Rewritten {
		sum.Rewritten++
	}
	if out.Failed {
		sum.Failed++
	}
}
