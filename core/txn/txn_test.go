package txn_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"resource-store/core/cache"
	"resource-store/core/database/dbtest"
	"resource-store/core/dberr"
	"resource-store/core/dialect"
	"resource-store/core/schema"
	"resource-store/core/txn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newManager(t *testing.T, opts ...txn.Option) *txn.Manager {
	t.Helper()
	db := dbtest.Open(t)
	ids, err := cache.NewIdentity(cache.DefaultConfig(), nil)
	require.NoError(t, err)
	return txn.NewManager(db, dialect.All[dialect.SQLite], ids, zap.NewNop(), opts...)
}

func TestDo_CommitPromotesCache(t *testing.T) {
	m := newManager(t)
	hookRan := false

	err := m.Do(context.Background(), func(tx *txn.Tx) error {
		require.NoError(t, tx.DB.Create(&schema.CodeSystem{CodeSystemID: 7, CodeSystemName: "http://loinc.org"}).Error)
		tx.Cache.CodeSystems.Put("http://loinc.org", 7)
		tx.AfterCommit(func() {
			id, ok := m.Identity().CodeSystems.Get("http://loinc.org")
			assert.True(t, ok, "shared caches are updated before hooks run")
			assert.Equal(t, 7, id)
			hookRan = true
		})
		_, ok := m.Identity().CodeSystems.Get("http://loinc.org")
		assert.False(t, ok, "staged id must not be visible before commit")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, hookRan)

	var count int64
	require.NoError(t, m.DB().Model(&schema.CodeSystem{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDo_RollbackDiscardsCache(t *testing.T) {
	m := newManager(t)
	boom := errors.New("boom")
	hookRan := false

	err := m.Do(context.Background(), func(tx *txn.Tx) error {
		require.NoError(t, tx.DB.Create(&schema.CodeSystem{CodeSystemID: 3, CodeSystemName: "http://snomed.info/sct"}).Error)
		tx.Cache.CodeSystems.Put("http://snomed.info/sct", 3)
		tx.AfterCommit(func() { hookRan = true })
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, hookRan)

	_, ok := m.Identity().CodeSystems.Get("http://snomed.info/sct")
	assert.False(t, ok)

	var count int64
	require.NoError(t, m.DB().Model(&schema.CodeSystem{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDo_PanicRollsBack(t *testing.T) {
	m := newManager(t)

	assert.Panics(t, func() {
		_ = m.Do(context.Background(), func(tx *txn.Tx) error {
			tx.Cache.ParameterNames.Put("_lastUpdated", 1)
			panic("unexpected")
		})
	})

	_, ok := m.Identity().ParameterNames.Get("_lastUpdated")
	assert.False(t, ok)

	// The single connection must have been released.
	require.NoError(t, m.Do(context.Background(), func(tx *txn.Tx) error { return nil }))
}

func TestDoWithRetry(t *testing.T) {
	t.Run("Retries Lock Conflicts", func(t *testing.T) {
		m := newManager(t, txn.WithRetries(3, time.Millisecond))
		calls := 0
		err := m.DoWithRetry(context.Background(), func(tx *txn.Tx) error {
			calls++
			if calls < 3 {
				return dberr.New("sqlite", "lock", dberr.ErrLock, errors.New("database is locked"))
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("Gives Up", func(t *testing.T) {
		m := newManager(t, txn.WithRetries(2, time.Millisecond))
		calls := 0
		err := m.DoWithRetry(context.Background(), func(tx *txn.Tx) error {
			calls++
			return dberr.New("sqlite", "lock", dberr.ErrLock, errors.New("deadlock"))
		})
		assert.ErrorIs(t, err, dberr.ErrLock)
		assert.Equal(t, 3, calls)
	})

	t.Run("Does Not Retry Other Errors", func(t *testing.T) {
		m := newManager(t, txn.WithRetries(5, time.Millisecond))
		calls := 0
		err := m.DoWithRetry(context.Background(), func(tx *txn.Tx) error {
			calls++
			return dberr.NotFound("Patient/%s", "x")
		})
		assert.ErrorIs(t, err, dberr.ErrNotFound)
		assert.Equal(t, 1, calls)
	})

	t.Run("Stops On Cancelled Context", func(t *testing.T) {
		m := newManager(t, txn.WithRetries(5, time.Hour))
		ctx, cancel := context.WithCancel(context.Background())
		err := m.DoWithRetry(ctx, func(tx *txn.Tx) error {
			cancel()
			return dberr.New("sqlite", "lock", dberr.ErrLock, errors.New("deadlock"))
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestGuard(t *testing.T) {
	m := newManager(t)
	err := m.Do(context.Background(), func(tx *txn.Tx) error {
		require.NoError(t, tx.DB.Create(&schema.ParameterName{ParameterNameID: 1, ParameterName: "name"}).Error)
		guardErr := tx.Guard(func() error {
			return tx.DB.Create(&schema.ParameterName{ParameterNameID: 2, ParameterName: "name"}).Error
		})
		assert.ErrorIs(t, tx.Dialect.Translate("insert", guardErr), dberr.ErrUniqueViolation)

		// The transaction is still usable.
		_, err := tx.Exec("insert", "INSERT INTO parameter_names (parameter_name_id, parameter_name) VALUES (?, ?)", 3, "birthdate")
		return err
	})
	require.NoError(t, err)
}
