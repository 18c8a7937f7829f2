package integrity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"resource-store/core/payload"
	"resource-store/core/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service checks offloaded payloads against the object store.
type Service struct {
	cfg           Config
	db            *gorm.DB
	client        storage.Client
	bucket        string
	payloads      *payload.Store
	resourceTypes []string
	logger        *zap.Logger
	now           func() time.Time
	cache         snapshotCache
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new integrity service. client may be nil when offloading is
// disabled, in which case the feature stays unloaded.
func NewService(cfg Config, db *gorm.DB, client storage.Client, bucket string, payloads *payload.Store, resourceTypes []string, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		cfg:           cfg,
		db:            db,
		client:        client,
		bucket:        bucket,
		payloads:      payloads,
		resourceTypes: resourceTypes,
		logger:        logger,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled reports whether an object store is configured.
func (s *Service) Enabled() bool {
	return s.client != nil
}

// Check builds a plan from the cached snapshot, refreshing it when it expired.
func (s *Service) Check(ctx context.Context, opts Options) (*Plan, error) {
	snap, err := s.cache.get(ctx, s.now(), s.buildSnapshot)
	if err != nil {
		return nil, err
	}
	return s.plan(snap, opts), nil
}

// Purge plans on a fresh snapshot and removes orphaned objects. It returns the plan
// and the number of objects removed.
func (s *Service) Purge(ctx context.Context, opts Options) (*Plan, int, error) {
	s.cache.invalidate()
	opts.DoPurge = true
	plan, err := s.Check(ctx, opts)
	if err != nil {
		return nil, 0, err
	}
	executed, err := s.ApplyPlan(ctx, plan, opts)
	return plan, executed, err
}

// ApplyPlan executes the actions of plan. Nothing is executed unless opts.Confirmed is
// set and opts.DryRun is not.
func (s *Service) ApplyPlan(ctx context.Context, plan *Plan, opts Options) (int, error) {
	if !opts.Confirmed || opts.DryRun {
		return 0, nil
	}

	var keys []string
	for _, action := range plan.Actions {
		if action.Type == ActionDeleteStorage {
			keys = append(keys, action.Key)
		}
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := s.payloads.Delete(ctx, keys); err != nil {
		return 0, fmt.Errorf("failed to purge orphaned payloads: %w", err)
	}
	s.cache.invalidate()
	s.logger.Info("Purged orphaned payloads", zap.Int("count", len(keys)))
	return len(keys), nil
}

func (s *Service) plan(snap *snapshot, opts Options) *Plan {
	union := make(map[string]struct{}, len(snap.DBIndex)+len(snap.StorageSet))
	for key := range snap.DBIndex {
		union[key] = struct{}{}
	}
	for key := range snap.StorageSet {
		union[key] = struct{}{}
	}
	keys := make([]string, 0, len(union))
	for key := range union {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	plan := &Plan{Results: []Result{}, Actions: []Action{}}
	plan.Summary.TotalKeys = len(keys)
	for _, key := range keys {
		ref, inDB := snap.DBIndex[key]
		obj, inStorage := snap.StorageSet[key]
		if inDB && inStorage {
			continue
		}

		result := Result{Key: key, DBPresent: inDB, StoragePresent: inStorage}
		if inDB {
			result.Reference = &ref
			plan.Summary.MissingStorage++
			plan.Results = append(plan.Results, result)
			continue
		}

		plan.Summary.Orphaned++
		result.Recent = snap.Built.Sub(obj.LastModified) < s.cfg.OrphanGrace
		plan.Results = append(plan.Results, result)
		if opts.DoPurge && !result.Recent {
			plan.Actions = append(plan.Actions, Action{
				Type:   ActionDeleteStorage,
				Key:    key,
				Reason: "no resource version references the object",
			})
			plan.Summary.PurgeActions++
		}
	}
	return plan
}
