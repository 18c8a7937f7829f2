// Package sequence hands out values of the shared fhir_sequence.
//
// Databases with native sequences use nextval; the others increment a row of the
// fhir_sequences table inside the caller's transaction.
package sequence

import (
	"resource-store/core/dberr"
	"resource-store/core/schema"
	"resource-store/core/txn"
)

// Next returns the next value of the shared sequence.
func Next(tx *txn.Tx) (int64, error) {
	return NextOf(tx, schema.SequenceName)
}

// NextOf returns the next value of the named sequence.
func NextOf(tx *txn.Tx, name string) (int64, error) {
	var value int64
	if tx.Dialect.SupportsNativeSequence {
		query, err := tx.Dialect.NextValueSQL(name)
		if err != nil {
			return 0, err
		}
		if err := tx.DB.Raw(query).Scan(&value).Error; err != nil {
			return 0, tx.Dialect.Translate("next sequence value", err)
		}
		return value, nil
	}

	affected, err := tx.Exec("next sequence value",
		"UPDATE fhir_sequences SET next_val = next_val + 1 WHERE sequence_name = ?", name)
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, dberr.CorruptSchema("sequence %s is not initialised", name)
	}
	if err := tx.DB.Raw("SELECT next_val FROM fhir_sequences WHERE sequence_name = ?", name).Scan(&value).Error; err != nil {
		return 0, tx.Dialect.Translate("read sequence value", err)
	}
	return value, nil
}
