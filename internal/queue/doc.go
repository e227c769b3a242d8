// Package queue persists dubbing jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, and status transitions that mirror the pipeline enum. Queue items
// capture progress, intermediate artifact paths, the transcript and its
// translation, and the structured silence intervals stages need to coordinate
// without additional state.
//
// The database is treated as transient storage for in-flight jobs rather than
// a long-term archive. Schema changes bump the version in schema.go; users
// clear the database to adopt the new schema.
package queue
