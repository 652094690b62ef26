// Package registry persists per-conversation pipeline state in SQLite and
// enforces the status transition table.
//
// The Store manages the database connection, schema initialization, and the
// UPSERT-by-conversation-id writes every stage commit goes through. Status is
// a closed enum with an explicit transition table checked at every mutation
// site, so an invalid advance (for example NEW straight to ENRICHED) fails
// fast instead of producing a silently inconsistent record.
//
// Treat this package as the single source of truth for registry semantics;
// when you add statuses or columns, update schema.sql and bump schemaVersion.
package registry
