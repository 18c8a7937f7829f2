package schema

import (
	"fmt"
	"strings"

	"resource-store/core/dialect"
)

// erase_resource(logical_resource_id, resource_type) removes a logical resource with
// its versions, parameters and change log, keeping the ident row. It yields the number
// of version rows removed, or -1 when the logical resource does not exist.

const postgresEraseProcedure = `CREATE OR REPLACE FUNCTION erase_resource(p_logical_resource_id BIGINT, p_resource_type VARCHAR)
RETURNS BIGINT LANGUAGE plpgsql AS $$
DECLARE
  v_prefix TEXT := lower(p_resource_type);
  v_total  BIGINT := 0;
BEGIN
  PERFORM 1 FROM logical_resources WHERE logical_resource_id = p_logical_resource_id;
  IF NOT FOUND THEN
    RETURN -1;
  END IF;
  DELETE FROM resource_change_log WHERE logical_resource_id = p_logical_resource_id;
  EXECUTE format('DELETE FROM %I WHERE logical_resource_id = $1', v_prefix || '_resources') USING p_logical_resource_id;
  GET DIAGNOSTICS v_total = ROW_COUNT;
{{parameters}}
  EXECUTE format('DELETE FROM %I WHERE logical_resource_id = $1', v_prefix || '_logical_resources') USING p_logical_resource_id;
  DELETE FROM logical_resources WHERE logical_resource_id = p_logical_resource_id;
  RETURN v_total;
END
$$`

const mysqlEraseProcedure = `CREATE PROCEDURE erase_resource(IN p_logical_resource_id BIGINT, IN p_resource_type VARCHAR(64))
BEGIN
  DECLARE v_prefix VARCHAR(64) DEFAULT LOWER(p_resource_type);
  DECLARE v_total BIGINT DEFAULT -1;
  IF EXISTS (SELECT 1 FROM logical_resources WHERE logical_resource_id = p_logical_resource_id) THEN
    SET @erase_lrid = p_logical_resource_id;
    DELETE FROM resource_change_log WHERE logical_resource_id = p_logical_resource_id;
    SET @erase_sql = CONCAT('DELETE FROM ', v_prefix, '_resources WHERE logical_resource_id = ?');
    PREPARE erase_stmt FROM @erase_sql;
    EXECUTE erase_stmt USING @erase_lrid;
    SET v_total = ROW_COUNT();
    DEALLOCATE PREPARE erase_stmt;
{{parameters}}
    SET @erase_sql = CONCAT('DELETE FROM ', v_prefix, '_logical_resources WHERE logical_resource_id = ?');
    PREPARE erase_stmt FROM @erase_sql;
    EXECUTE erase_stmt USING @erase_lrid;
    DEALLOCATE PREPARE erase_stmt;
    DELETE FROM logical_resources WHERE logical_resource_id = p_logical_resource_id;
  END IF;
  SELECT v_total AS deleted;
END`

const parametersPlaceholder = "{{parameters}}"

var typeParameterSuffixes = []string{"_str_values", "_date_values", "_number_values"}

// EraseProcedureDDL returns the statements installing erase_resource on the database
// identified by id. Databases without the routine get none.
func EraseProcedureDDL(id dialect.ID) []string {
	var body strings.Builder
	switch id {
	case dialect.Postgres:
		for _, suffix := range typeParameterSuffixes {
			fmt.Fprintf(&body, "  EXECUTE format('DELETE FROM %%I WHERE logical_resource_id = $1', v_prefix || '%s') USING p_logical_resource_id;\n", suffix)
		}
		for _, table := range GlobalParameterTables {
			fmt.Fprintf(&body, "  DELETE FROM %s WHERE logical_resource_id = p_logical_resource_id;\n", table)
		}
		return []string{strings.Replace(postgresEraseProcedure, parametersPlaceholder, strings.TrimSuffix(body.String(), "\n"), 1)}
	case dialect.MySQL:
		for _, suffix := range typeParameterSuffixes {
			fmt.Fprintf(&body, "    SET @erase_sql = CONCAT('DELETE FROM ', v_prefix, '%s WHERE logical_resource_id = ?');\n", suffix)
			body.WriteString("    PREPARE erase_stmt FROM @erase_sql;\n    EXECUTE erase_stmt USING @erase_lrid;\n    DEALLOCATE PREPARE erase_stmt;\n")
		}
		for _, table := range GlobalParameterTables {
			fmt.Fprintf(&body, "    DELETE FROM %s WHERE logical_resource_id = p_logical_resource_id;\n", table)
		}
		return []string{
			"DROP PROCEDURE IF EXISTS erase_resource",
			strings.Replace(mysqlEraseProcedure, parametersPlaceholder, strings.TrimSuffix(body.String(), "\n"), 1),
		}
	default:
		return nil
	}
}
