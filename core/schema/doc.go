// Package schema describes the persisted layout of the resource store.
//
// Global tables hold the dictionaries (resource types, code systems, parameter names,
// common token values, canonical urls), the logical resource identity and state, the
// change log, the erase audit records and the parameter tables shared by every
// resource type. Each resource type additionally owns five tables named after it:
// <type>_logical_resources, <type>_resources (one immutable row per version) and the
// string, date and number parameter tables.
//
// The GORM models in this package are used both for statements and, through
// Bootstrap, to create the tables in development and test databases.
package schema
