// Package utils converts loosely typed values read from database drivers.
package utils
