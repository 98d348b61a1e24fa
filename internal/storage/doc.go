// Package storage is the state store gateway: it persists the last-known
// snapshot of observed catalog items and variant availability.
//
// It currently supports:
//   - "rest": a PostgREST-style hosted store (endpoint + service key)
//   - "sqlite": a local SQLite database file
package storage
