// Package parents persists parent records (patients) in the local SQLite
// store.
//
// # Data Model
//
// Each row keeps the permanent local id, the server id once the record has
// been acknowledged by the remote service, a synced flag that mirrors the
// presence of the server id, the JSON payload, and the creation time in Unix
// nanoseconds. Rows are listed in creation order.
//
// # Indexes
//
// Query accepts the indexed fields "synced" and "server_id". Any other field
// is rejected with common.ErrUnknownIndex rather than falling back to a table
// scan.
//
// The repository works over dbx.DBTX, so the same code runs against the
// database handle or inside a store transaction.
package parents
