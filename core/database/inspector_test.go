package database

import (
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestGetTableColumns(t *testing.T) {
	// Setup In-Memory DB
	db, err := Connect(Config{Driver: "sqlite", Name: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)

	err = db.Exec("CREATE TABLE patient_str_values (parameter_name_id INTEGER, str_value TEXT, logical_resource_id BIGINT)").Error
	require.NoError(t, err)

	columns, err := GetTableColumns(db, "patient_str_values")
	require.NoError(t, err)
	assert.Len(t, columns, 3)

	colMap := make(map[string]string)
	for _, col := range columns {
		colMap[col.Field] = col.Type
	}
	assert.Equal(t, "integer", colMap["parameter_name_id"])
	assert.Equal(t, "text", colMap["str_value"])
	assert.Equal(t, "bigint", colMap["logical_resource_id"])

	assert.True(t, TableExists(db, "patient_str_values"))
	assert.False(t, TableExists(db, "non_existent"))

	// PRAGMA table_info returns an empty result for a missing table
	cols, err := GetTableColumns(db, "non_existent")
	assert.NoError(t, err)
	assert.Empty(t, cols)
}

func TestGetTableColumns_Postgres(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.columns")).
		WithArgs("logical_resources").
		WillReturnRows(sqlmock.NewRows([]string{"field", "type"}).
			AddRow("logical_resource_id", "BIGINT").
			AddRow("reindex_tstamp", "timestamp without time zone"))

	cols, err := GetTableColumns(db, "logical_resources")
	require.NoError(t, err)
	assert.Equal(t, []ColumnInfo{
		{Field: "logical_resource_id", Type: "bigint"},
		{Field: "reindex_tstamp", Type: "timestamp without time zone"},
	}, cols)
	assert.NoError(t, mock.ExpectationsWereMet())
}
