// Package dbtest opens throwaway databases for tests.
package dbtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"resource-store/core/dialect"
	"resource-store/core/schema"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultResourceTypes are bootstrapped when Open is called without resource types.
var DefaultResourceTypes = []string{"Patient", "Observation"}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	}
}

// Open returns a private in-memory sqlite database with the schema bootstrapped.
// The pool is limited to one connection, so transactions run one after the other and
// concurrent tests over it never observe lock waits or lost optimistic updates.
func Open(t testing.TB, resourceTypes ...string) *gorm.DB {
	t.Helper()
	if len(resourceTypes) == 0 {
		resourceTypes = DefaultResourceTypes
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, schema.Bootstrap(context.Background(), db, dialect.All[dialect.SQLite], resourceTypes))
	return db
}

// Mock returns a gorm database backed by sqlmock using the dialector of id.
func Mock(t testing.TB, id dialect.ID) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	var dialector gorm.Dialector
	switch id {
	case dialect.Postgres:
		dialector = postgres.New(postgres.Config{Conn: conn})
	case dialect.MySQL:
		dialector = mysql.New(mysql.Config{Conn: conn, SkipInitializeWithVersion: true})
	default:
		t.Fatalf("no mock dialector for %s", id)
	}

	db, err := gorm.Open(dialector, gormConfig())
	require.NoError(t, err)
	return db, mock
}
