// Package database provides SQLite connection management for Whip Core.
//
// The broker uses a single SQLite file for its command audit trail. This
// package manages:
//   - Opening the database with WAL mode and busy timeout pragmas
//   - Applying embedded schema migrations
//   - Health checks and graceful shutdown
//
// The connection pool is limited to one open connection: SQLite supports a
// single writer, and the audit workload is write-mostly.
package database
