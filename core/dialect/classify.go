package dialect

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"resource-store/core/dberr"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

func passThrough(err error) bool {
	var dbErr *dberr.DatabaseError
	if errors.As(err, &dbErr) {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// classifyCommon recognises connection failures reported by database/sql itself.
func classifyCommon(err error) error {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return dberr.ErrConnect
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return dberr.ErrConnect
	}
	return nil
}

func classifyPostgres(err error) error {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return dberr.ErrConnect
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case "23505":
		return dberr.ErrUniqueViolation
	case "23502", "23503", "23514", "23P01":
		return dberr.ErrConstraint
	case "42P01", "42703", "42883", "3F000":
		return dberr.ErrUndefinedName
	case "42P07", "42710", "42723":
		return dberr.ErrDuplicateName
	case "40P01", "55P03", "40001":
		return dberr.ErrLock
	}
	if strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P") {
		return dberr.ErrConnect
	}
	return nil
}

func classifyMySQL(err error) error {
	if errors.Is(err, mysqldriver.ErrInvalidConn) {
		return dberr.ErrConnect
	}
	var myErr *mysqldriver.MySQLError
	if !errors.As(err, &myErr) {
		return nil
	}
	switch myErr.Number {
	case 1062:
		return dberr.ErrUniqueViolation
	case 1048, 1216, 1217, 1451, 1452, 3819:
		return dberr.ErrConstraint
	case 1054, 1146, 1305:
		return dberr.ErrUndefinedName
	case 1050, 1061, 1304:
		return dberr.ErrDuplicateName
	case 1205, 1213:
		return dberr.ErrLock
	case 1040, 1045, 1053, 2002, 2003, 2006, 2013:
		return dberr.ErrConnect
	}
	return nil
}

func classifySQLite(err error) error {
	var liteErr sqlite3.Error
	if !errors.As(err, &liteErr) {
		return nil
	}
	switch liteErr.Code {
	case sqlite3.ErrConstraint:
		if liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return dberr.ErrUniqueViolation
		}
		return dberr.ErrConstraint
	case sqlite3.ErrBusy, sqlite3.ErrLocked:
		return dberr.ErrLock
	case sqlite3.ErrCantOpen, sqlite3.ErrIoErr:
		return dberr.ErrConnect
	}
	msg := liteErr.Error()
	switch {
	case strings.Contains(msg, "no such table"), strings.Contains(msg, "no such column"), strings.Contains(msg, "no such function"):
		return dberr.ErrUndefinedName
	case strings.Contains(msg, "already exists"):
		return dberr.ErrDuplicateName
	}
	return nil
}
