// Package reference persists the normalized search index records that point into the
// shared dictionaries: token values (including references, stored as tokens whose code
// system is the target resource type), profiles, tags and security labels.
//
// Records are collected in a Batch and written by Flush. Flush resolves every distinct
// code system, token value and canonical url of the batch through the dictionary
// resolver first, so each dictionary value is looked up or inserted at most once per
// flush, and then bulk inserts the records.
package reference
