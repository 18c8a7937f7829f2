package dberr

import (
	"errors"
	"fmt"
)

// Kind sentinels.
var (
	// ErrConnect is returned when the database cannot be reached.
	ErrConnect = errors.New("database connection error")

	// ErrDataAccess is returned for malformed statements or unexpected SQL states.
	ErrDataAccess = errors.New("data access error")

	// ErrVersionConflict is returned when the expected version does not follow the current one.
	ErrVersionConflict = errors.New("version conflict")

	// ErrNotFound is returned when a resource or logical resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnsupported is returned when the dialect does not provide a capability.
	ErrUnsupported = errors.New("operation not supported by this database")

	// ErrCorruptSchema is returned when a row that must exist is missing.
	ErrCorruptSchema = errors.New("corrupt schema")

	// ErrConstraint is returned for integrity constraint violations.
	ErrConstraint = errors.New("constraint violation")

	// ErrUniqueViolation is a unique key collision. It also matches ErrConstraint.
	ErrUniqueViolation = fmt.Errorf("%w: unique key", ErrConstraint)

	// ErrDuplicateName is returned when a schema object already exists.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrUndefinedName is returned when a table, column or routine does not exist.
	ErrUndefinedName = errors.New("undefined name")

	// ErrLock is returned for deadlocks and lock timeouts.
	ErrLock = errors.New("lock conflict")
)

// DatabaseError wraps a driver error with the classified kind and the failing operation.
type DatabaseError struct {
	Dialect   string
	Operation string
	Kind      error
	Cause     error
}

// Error implements the error interface.
func (e *DatabaseError) Error() string {
	return fmt.Sprintf("[%s] %s: %v: %v", e.Dialect, e.Operation, e.Kind, e.Cause)
}

// Unwrap returns the underlying driver error.
func (e *DatabaseError) Unwrap() error {
	return e.Cause
}

// Is matches the kind sentinel as well as anything in the cause chain.
func (e *DatabaseError) Is(target error) bool {
	if errors.Is(e.Kind, target) {
		return true
	}
	return errors.Is(e.Cause, target)
}

// New creates a DatabaseError.
func New(dialect, operation string, kind, cause error) *DatabaseError {
	return &DatabaseError{Dialect: dialect, Operation: operation, Kind: kind, Cause: cause}
}

// VersionConflictError is returned when an update does not follow the current version.
type VersionConflictError struct {
	ResourceType string
	LogicalID    string
	Expected     int
	Current      int
}

// Error implements the error interface.
func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict on %s/%s: new version %d does not follow current version %d",
		e.ResourceType, e.LogicalID, e.Expected, e.Current)
}

// Is reports ErrVersionConflict.
func (e *VersionConflictError) Is(target error) bool {
	return target == ErrVersionConflict
}

// UnsupportedOperationError is returned when a dialect lacks a capability.
type UnsupportedOperationError struct {
	Dialect   string
	Operation string
	Reason    string
}

// Error implements the error interface.
func (e *UnsupportedOperationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s does not support %s: %s", e.Dialect, e.Operation, e.Reason)
	}
	return fmt.Sprintf("%s does not support %s", e.Dialect, e.Operation)
}

// Is reports ErrUnsupported.
func (e *UnsupportedOperationError) Is(target error) bool {
	return target == ErrUnsupported
}

// NotFound returns an ErrNotFound wrapped with a description of what was looked up.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// CorruptSchema returns an ErrCorruptSchema wrapped with a description of the broken invariant.
func CorruptSchema(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptSchema, fmt.Sprintf(format, args...))
}

// IsRetryable reports whether the whole transaction may be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLock) || errors.Is(err, ErrConnect)
}
