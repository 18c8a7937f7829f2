package dialect

import (
	"fmt"
	"strings"

	"resource-store/core/dberr"

	"gorm.io/gorm"
)

// ID is the canonical identifier of a supported database.
type ID string

const (
	Postgres ID = "postgres"
	MySQL    ID = "mysql"
	SQLite   ID = "sqlite"
)

// Dialect describes what a database supports and how the few differing statements are spelled.
type Dialect struct {
	// ID is the canonical identifier, matching the gorm dialector name.
	ID ID
	// Name is the human readable product name.
	Name string
	// Aliases are alternative names accepted by Lookup.
	Aliases []string

	// SupportsForUpdate is true when SELECT ... FOR UPDATE row locks are available.
	SupportsForUpdate bool
	// SupportsNativeSequence is true when the database has CREATE SEQUENCE.
	SupportsNativeSequence bool
	// HasEraseProcedure is true when an erase_resource routine is deployed with the schema.
	HasEraseProcedure bool
	// ErrorPoisonsTransaction is true when any failed statement aborts the surrounding
	// transaction, so expected failures must run under a savepoint.
	ErrorPoisonsTransaction bool

	classify       func(err error) error
	paginate       func(offset, limit int) string
	nextValue      func(sequence string) string
	createSequence func(sequence string, cache int) string
	eraseCall      string
}

// String returns the canonical identifier.
func (d Dialect) String() string {
	return string(d.ID)
}

// ForUpdate appends a row lock clause to query when the dialect supports it.
func (d Dialect) ForUpdate(query string) string {
	if !d.SupportsForUpdate {
		return query
	}
	return query + " FOR UPDATE"
}

// Paginate returns the clause selecting limit rows after skipping offset rows.
func (d Dialect) Paginate(offset, limit int) string {
	return d.paginate(offset, limit)
}

// NextValueSQL returns the query fetching the next value of a native sequence.
func (d Dialect) NextValueSQL(sequence string) (string, error) {
	if !d.SupportsNativeSequence {
		return "", &dberr.UnsupportedOperationError{Dialect: d.String(), Operation: "native sequences"}
	}
	return d.nextValue(sequence), nil
}

// CreateSequenceSQL returns the DDL creating a native sequence if it does not exist.
func (d Dialect) CreateSequenceSQL(sequence string, cache int) (string, error) {
	if !d.SupportsNativeSequence {
		return "", &dberr.UnsupportedOperationError{Dialect: d.String(), Operation: "native sequences"}
	}
	return d.createSequence(sequence, cache), nil
}

// EraseProcedureSQL returns the statement calling the erase_resource routine.
// The routine takes (logical_resource_id, resource_type) and yields the number of
// resource version rows it deleted.
func (d Dialect) EraseProcedureSQL() (string, error) {
	if !d.HasEraseProcedure {
		return "", &dberr.UnsupportedOperationError{
			Dialect:   d.String(),
			Operation: "erase procedure",
			Reason:    "resources are erased with individual statements",
		}
	}
	return d.eraseCall, nil
}

// Classify maps a driver error to a dberr kind sentinel.
func (d Dialect) Classify(err error) error {
	if kind := classifyCommon(err); kind != nil {
		return kind
	}
	if d.classify != nil {
		if kind := d.classify(err); kind != nil {
			return kind
		}
	}
	return dberr.ErrDataAccess
}

// Translate wraps err into a *dberr.DatabaseError for operation op. Errors that are
// already classified, context errors and nil pass through unchanged.
func (d Dialect) Translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if passThrough(err) {
		return err
	}
	return dberr.New(d.String(), op, d.Classify(err), err)
}

// All is the registry of supported dialects keyed by canonical ID.
var All = map[ID]Dialect{
	Postgres: {
		ID:                      Postgres,
		Name:                    "PostgreSQL",
		Aliases:                 []string{"postgresql", "pgx", "pgsql"},
		SupportsForUpdate:       true,
		SupportsNativeSequence:  true,
		HasEraseProcedure:       true,
		ErrorPoisonsTransaction: true,
		classify:                classifyPostgres,
		paginate: func(offset, limit int) string {
			return fmt.Sprintf("OFFSET %d ROWS FETCH FIRST %d ROWS ONLY", offset, limit)
		},
		nextValue: func(sequence string) string {
			return fmt.Sprintf("SELECT nextval('%s')", sequence)
		},
		createSequence: func(sequence string, cache int) string {
			return fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS %s AS BIGINT START WITH 1 CACHE %d NO CYCLE", sequence, cache)
		},
		eraseCall: "SELECT erase_resource(?, ?)",
	},
	MySQL: {
		ID:                MySQL,
		Name:              "MySQL",
		Aliases:           []string{"mariadb", "aurora-mysql"},
		SupportsForUpdate: true,
		HasEraseProcedure: true,
		classify:          classifyMySQL,
		paginate:          limitOffset,
		eraseCall:         "CALL erase_resource(?, ?)",
	},
	SQLite: {
		ID:       SQLite,
		Name:     "SQLite",
		Aliases:  []string{"sqlite3"},
		classify: classifySQLite,
		paginate: limitOffset,
	},
}

func limitOffset(offset, limit int) string {
	return fmt.Sprintf("LIMIT %d OFFSET %d", limit, offset)
}

// Lookup returns the dialect registered under name or one of its aliases.
func Lookup(name string) (Dialect, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if d, ok := All[ID(n)]; ok {
		return d, nil
	}
	for _, d := range All {
		for _, alias := range d.Aliases {
			if alias == n {
				return d, nil
			}
		}
	}
	return Dialect{}, &dberr.UnsupportedOperationError{Dialect: name, Operation: "persistence", Reason: "unknown database"}
}

// ForDB returns the dialect matching the gorm dialector of db.
func ForDB(db *gorm.DB) (Dialect, error) {
	if db == nil || db.Dialector == nil {
		return Dialect{}, fmt.Errorf("database connection is not initialised")
	}
	return Lookup(db.Dialector.Name())
}
