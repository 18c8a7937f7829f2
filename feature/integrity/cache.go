package integrity

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// snapshot holds both indices built at the same moment.
type snapshot struct {
	DBIndex    map[string]Reference
	StorageSet map[string]storedObject
	Built      time.Time
	TTL        time.Duration
}

func (s *snapshot) expired(now time.Time) bool {
	if s.TTL == 0 {
		return true
	}
	return now.Sub(s.Built) > s.TTL
}

// snapshotCache reuses a snapshot until its TTL passes. Concurrent callers of an
// expired cache share one build.
type snapshotCache struct {
	mu      sync.RWMutex
	current *snapshot
	sf      singleflight.Group
}

func (c *snapshotCache) get(ctx context.Context, now time.Time, build func(context.Context) (*snapshot, error)) (*snapshot, error) {
	c.mu.RLock()
	snap := c.current
	c.mu.RUnlock()
	if snap != nil && !snap.expired(now) {
		return snap, nil
	}

	v, err, _ := c.sf.Do("snapshot", func() (any, error) {
		c.mu.RLock()
		snap := c.current
		c.mu.RUnlock()
		if snap != nil && !snap.expired(now) {
			return snap, nil
		}
		fresh, err := build(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.current = fresh
		c.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*snapshot), nil
}

func (c *snapshotCache) invalidate() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}

// buildSnapshot loads the database index and the storage listing concurrently.
func (s *Service) buildSnapshot(ctx context.Context) (*snapshot, error) {
	snap := &snapshot{Built: s.now(), TTL: s.cfg.CacheTTL}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		idx, err := loadDBIndex(gctx, s.db, s.resourceTypes)
		snap.DBIndex = idx
		return err
	})
	g.Go(func() error {
		set, err := loadStorageSet(gctx, s.client, s.bucket)
		snap.StorageSet = set
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}
