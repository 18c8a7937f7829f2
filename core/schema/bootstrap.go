package schema

import (
	"context"
	"fmt"

	"resource-store/core/database"
	"resource-store/core/dialect"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SequenceName is the sequence used for erased resource group ids and similar tokens.
const SequenceName = "fhir_sequence"

// Bootstrap creates any missing global and per resource type tables and the shared
// sequence. Where the dialect has an erase routine it is installed as well. It is
// meant for development and tests; production schemas are managed by the schema
// tooling.
func Bootstrap(ctx context.Context, db *gorm.DB, d dialect.Dialect, resourceTypes []string) error {
	db = db.WithContext(ctx)

	globals := []any{
		&ResourceType{},
		&CodeSystem{},
		&ParameterName{},
		&CommonTokenValue{},
		&CommonCanonicalValue{},
		&LogicalResourceIdent{},
		&LogicalResource{},
		&ResourceChangeLog{},
		&ErasedResource{},
		&ResourceTokenRef{},
		&LogicalResourceProfile{},
		&LogicalResourceTag{},
		&LogicalResourceSecurity{},
		&Sequence{},
	}
	if err := db.AutoMigrate(globals...); err != nil {
		return d.Translate("create global tables", err)
	}

	for _, rt := range resourceTypes {
		if err := CreateTypeTables(ctx, db, d, rt); err != nil {
			return err
		}
	}

	if d.SupportsNativeSequence {
		ddl, err := d.CreateSequenceSQL(SequenceName, 1000)
		if err != nil {
			return err
		}
		if err := db.Exec(ddl).Error; err != nil {
			return d.Translate("create sequence", err)
		}
	} else {
		seed := Sequence{SequenceName: SequenceName, NextVal: 0}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return d.Translate("seed sequence", err)
		}
	}

	if d.HasEraseProcedure {
		for _, ddl := range EraseProcedureDDL(d.ID) {
			if err := db.Exec(ddl).Error; err != nil {
				return d.Translate("create erase procedure", err)
			}
		}
	}
	return nil
}

// CreateTypeTables creates the per type tables of resourceType.
func CreateTypeTables(ctx context.Context, db *gorm.DB, d dialect.Dialect, resourceType string) error {
	tables, err := TablesFor(resourceType)
	if err != nil {
		return err
	}
	db = db.WithContext(ctx)

	models := []struct {
		table string
		model any
	}{
		{tables.LogicalResources, &TypeLogicalResource{}},
		{tables.Resources, &TypeResource{}},
		{tables.StrValues, &TypeStrValue{}},
		{tables.DateValues, &TypeDateValue{}},
		{tables.NumberValues, &TypeNumberValue{}},
	}
	for _, m := range models {
		if err := db.Table(m.table).AutoMigrate(m.model); err != nil {
			return d.Translate(fmt.Sprintf("create table %s", m.table), err)
		}
	}
	return nil
}

// Verify checks that the global tables and the per type tables of resourceTypes exist
// and that logical_resources carries the reindex columns.
func Verify(db *gorm.DB, resourceTypes []string) error {
	required := []string{
		LogicalResourceIdent{}.TableName(),
		LogicalResource{}.TableName(),
		ResourceChangeLog{}.TableName(),
		ErasedResource{}.TableName(),
	}
	required = append(required, GlobalParameterTables...)
	for _, rt := range resourceTypes {
		tables, err := TablesFor(rt)
		if err != nil {
			return err
		}
		required = append(required, tables.LogicalResources, tables.Resources)
		required = append(required, tables.ParameterTables()...)
	}

	var missing []string
	for _, table := range required {
		if !database.TableExists(db, table) {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("schema is missing tables: %v", missing)
	}

	// Schemas created before reindexing was supported lack these columns.
	columns, err := database.GetTableColumns(db, LogicalResource{}.TableName())
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c.Field] = true
	}
	for _, col := range reindexColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("logical_resources is missing columns: %v", missing)
	}
	return nil
}

var reindexColumns = []string{"parameter_hash", "reindex_tstamp", "reindex_txid"}
