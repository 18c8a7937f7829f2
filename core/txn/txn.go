package txn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resource-store/core/cache"
	"resource-store/core/dberr"
	"resource-store/core/dialect"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Tx is the context of one unit of work.
type Tx struct {
	// DB is bound to the open transaction. Every statement of the unit of work must use it.
	DB *gorm.DB
	// Dialect of the connected database.
	Dialect dialect.Dialect
	// Cache is the transaction-local layer over the shared identity caches.
	Cache *cache.Scope

	afterCommit []func()
	savepoints  int
}

// AfterCommit registers fn to run once the transaction committed.
func (tx *Tx) AfterCommit(fn func()) {
	tx.afterCommit = append(tx.afterCommit, fn)
}

// Exec runs a statement and returns the number of affected rows. Errors are translated
// for operation op.
func (tx *Tx) Exec(op, query string, args ...any) (int64, error) {
	res := tx.DB.Exec(query, args...)
	if res.Error != nil {
		return 0, tx.Dialect.Translate(op, res.Error)
	}
	return res.RowsAffected, nil
}

// Guard runs fn so that a failing statement inside it does not abort the transaction.
// On dialects where a failed statement poisons the transaction, fn runs under a
// savepoint that is rolled back when fn returns an error.
func (tx *Tx) Guard(fn func() error) error {
	if !tx.Dialect.ErrorPoisonsTransaction {
		return fn()
	}
	tx.savepoints++
	name := fmt.Sprintf("sp_%d", tx.savepoints)
	if err := tx.DB.SavePoint(name).Error; err != nil {
		return tx.Dialect.Translate("savepoint", err)
	}
	if err := fn(); err != nil {
		if rbErr := tx.DB.RollbackTo(name).Error; rbErr != nil {
			return tx.Dialect.Translate("rollback to savepoint", rbErr)
		}
		return err
	}
	return nil
}

// Manager opens transactions against one database.
type Manager struct {
	db      *gorm.DB
	dialect dialect.Dialect
	ids     *cache.Identity
	logger  *zap.Logger

	maxRetries int
	backoff    time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithRetries sets how often DoWithRetry repeats a unit of work and the base delay
// between attempts.
func WithRetries(maxRetries int, backoff time.Duration) Option {
	return func(m *Manager) {
		m.maxRetries = maxRetries
		m.backoff = backoff
	}
}

// NewManager creates a Manager.
func NewManager(db *gorm.DB, d dialect.Dialect, ids *cache.Identity, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		db:         db,
		dialect:    d,
		ids:        ids,
		logger:     logger,
		maxRetries: 3,
		backoff:    50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DB returns the connection pool.
func (m *Manager) DB() *gorm.DB { return m.db }

// Dialect returns the dialect of the connected database.
func (m *Manager) Dialect() dialect.Dialect { return m.dialect }

// Identity returns the shared identity caches.
func (m *Manager) Identity() *cache.Identity { return m.ids }

// Do runs fn in a new transaction. The error returned by fn is returned unchanged.
func (m *Manager) Do(ctx context.Context, fn func(tx *Tx) error) error {
	gtx := m.db.WithContext(ctx).Begin()
	if gtx.Error != nil {
		return m.dialect.Translate("begin transaction", gtx.Error)
	}

	tx := &Tx{DB: gtx, Dialect: m.dialect, Cache: m.ids.NewScope()}
	committed := false
	defer func() {
		if committed {
			return
		}
		tx.Cache.ClearLocalMaps()
		if err := gtx.Rollback().Error; err != nil && !errors.Is(err, gorm.ErrInvalidTransaction) {
			m.logger.Debug("Rollback failed", zap.Error(err))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := gtx.Commit().Error; err != nil {
		return m.dialect.Translate("commit", err)
	}
	committed = true

	tx.Cache.UpdateSharedMaps()
	for _, hook := range tx.afterCommit {
		hook()
	}
	return nil
}

// DoWithRetry runs fn like Do and repeats it while it fails with a retryable error.
func (m *Manager) DoWithRetry(ctx context.Context, fn func(tx *Tx) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = m.Do(ctx, fn)
		if err == nil || !dberr.IsRetryable(err) || attempt >= m.maxRetries {
			return err
		}

		delay := m.backoff * time.Duration(attempt+1)
		m.logger.Warn("Retrying transaction",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
