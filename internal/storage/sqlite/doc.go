// Package sqlite contains SQLite repository implementations for scan
// studies: study summaries, per-trial records and the graph-to-sector
// assignments used while scanning.
//
// The schema is owned by internal/db; open the database through db.Open
// so migrations are applied before a store is constructed.
package sqlite
