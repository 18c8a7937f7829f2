package erase

import (
	"resource-store/core/dberr"
	"resource-store/core/schema"
	"resource-store/core/txn"
	"resource-store/core/utils"
	"resource-store/feature/parameter"
)

// wholeEraser removes every row of a locked logical resource except its ident and
// returns the number of version rows removed.
type wholeEraser interface {
	eraseWhole(tx *txn.Tx, tables schema.Tables, logicalResourceID int64) (int64, error)
	name() string
}

// statementEraser issues the deletes one by one.
type statementEraser struct {
	params *parameter.DAO
}

func (statementEraser) name() string { return "statements" }

func (e statementEraser) eraseWhole(tx *txn.Tx, tables schema.Tables, logicalResourceID int64) (int64, error) {
	if _, err := tx.Exec("erase change log", "DELETE FROM resource_change_log WHERE logical_resource_id = ?", logicalResourceID); err != nil {
		return 0, err
	}
	total, err := tx.Exec("erase "+tables.Resources, "DELETE FROM "+tables.Resources+" WHERE logical_resource_id = ?", logicalResourceID)
	if err != nil {
		return 0, err
	}
	if err := e.params.Delete(tx, tables, logicalResourceID); err != nil {
		return 0, err
	}
	if _, err := tx.Exec("erase "+tables.LogicalResources, "DELETE FROM "+tables.LogicalResources+" WHERE logical_resource_id = ?", logicalResourceID); err != nil {
		return 0, err
	}
	n, err := tx.Exec("erase logical resource", "DELETE FROM logical_resources WHERE logical_resource_id = ?", logicalResourceID)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, dberr.CorruptSchema("locked logical resource %d disappeared during erase", logicalResourceID)
	}
	return total, nil
}

// procedureEraser calls the erase_resource routine deployed with the schema.
type procedureEraser struct{}

func (procedureEraser) name() string { return "procedure" }

func (procedureEraser) eraseWhole(tx *txn.Tx, tables schema.Tables, logicalResourceID int64) (int64, error) {
	call, err := tx.Dialect.EraseProcedureSQL()
	if err != nil {
		return 0, err
	}
	var rows []map[string]any
	if err := tx.DB.Raw(call, logicalResourceID, tables.ResourceType).Scan(&rows).Error; err != nil {
		return 0, tx.Dialect.Translate("call erase_resource", err)
	}
	if len(rows) == 0 {
		return 0, dberr.CorruptSchema("erase_resource returned no result for logical resource %d", logicalResourceID)
	}
	v, err := utils.SingleValue(rows[0])
	if err != nil {
		return 0, dberr.CorruptSchema("erase_resource result: %v", err)
	}
	total, err := utils.ToInt64(v)
	if err != nil {
		return 0, dberr.CorruptSchema("erase_resource result: %v", err)
	}
	if total < 0 {
		return 0, dberr.CorruptSchema("erase_resource found no logical resource %d", logicalResourceID)
	}
	return total, nil
}
