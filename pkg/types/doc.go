// Package types defines the entity types and standard errors shared by the
// masader form: schema fields, records, drafts, pull-request ledger entries
// and configuration.
package types
