// Package erase hard-deletes resources and single historical versions.
//
// Every erase writes an erased_resources audit row tagged with an erase group id taken
// from the shared sequence. The group can be listed and cleared afterwards.
package erase
