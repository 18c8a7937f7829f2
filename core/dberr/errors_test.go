package dberr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseError_Is(t *testing.T) {
	cause := errors.New("driver said no")
	err := New("postgres", "insert", ErrUniqueViolation, cause)

	assert.True(t, errors.Is(err, ErrUniqueViolation))
	assert.True(t, errors.Is(err, ErrConstraint), "unique violation is a constraint violation")
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrLock))
	assert.Contains(t, err.Error(), "[postgres] insert")
}

func TestVersionConflictError(t *testing.T) {
	var err error = &VersionConflictError{ResourceType: "Patient", LogicalID: "p1", Expected: 3, Current: 1}
	wrapped := fmt.Errorf("insert: %w", err)

	assert.True(t, errors.Is(wrapped, ErrVersionConflict))
	var vc *VersionConflictError
	assert.True(t, errors.As(wrapped, &vc))
	assert.Equal(t, 1, vc.Current)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"Deadlock", New("mysql", "update", ErrLock, errors.New("1213")), true},
		{"Connect", New("mysql", "select", ErrConnect, errors.New("refused")), true},
		{"Constraint", New("mysql", "insert", ErrConstraint, errors.New("fk")), false},
		{"CorruptSchema", CorruptSchema("missing row"), false},
		{"Unsupported", &UnsupportedOperationError{Dialect: "sqlite", Operation: "sequence"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
