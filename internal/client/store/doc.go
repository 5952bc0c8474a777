// Package store is the durable local database of the client.
//
// # Overview
//
// Store wraps a single SQLite database (modernc.org/sqlite, pure Go) holding
// four tables: parents, dependents, queue_entries and cache. The schema is
// created and upgraded by goose from migrations embedded in the binary.
//
// # Durability
//
// The database is opened in WAL mode with synchronous=FULL, so a write that
// returned has reached stable storage and survives a crash or power loss.
// Foreign keys are enforced: a dependent cannot reference a parent that does
// not exist.
//
// # Transactions
//
// Transaction hands the callback a Tx whose repositories share one SQL
// transaction. Writes that must happen together (a record and its queue
// entry; a server id backfill and the removal of the queue entry) go through
// it. The pool is limited to one connection, so all access is serialized.
//
// Typical usage:
//
//	st, err := store.Open(ctx, "healthsync.db")
//	...
//	err = st.Transaction(ctx, func(ctx context.Context, tx *store.Tx) error {
//	    if err := tx.Parents.Put(ctx, rec); err != nil {
//	        return err
//	    }
//	    return tx.Queue.Enqueue(ctx, entry)
//	})
package store
