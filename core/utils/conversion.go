package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ToInt64 converts a value scanned from an untyped result column to int64. Drivers
// report numeric results as integers, floats, strings or byte slices depending on the
// database and statement kind.
func ToInt64(val any) (int64, error) {
	switch v := val.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case float32:
		return int64(v), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
	case nil:
		return 0, fmt.Errorf("cannot convert NULL to int64")
	default:
		return 0, fmt.Errorf("cannot convert %T to int64", val)
	}
}

// SingleValue returns the only column of a result row scanned into a map.
func SingleValue(row map[string]any) (any, error) {
	if len(row) != 1 {
		return nil, fmt.Errorf("expected one column, got %d", len(row))
	}
	for _, v := range row {
		return v, nil
	}
	return nil, nil
}
