// Package queue stores the mutations that still have to reach the remote
// service.
//
// # Overview
//
// Every local write enqueues exactly one entry in the same transaction as the
// record it describes, so a record is never saved without its queue entry and
// vice versa. Entries are removed only after the server acknowledged them and
// the server id was written back, again in one transaction.
//
// # Ordering
//
// ListPending returns parent entries before dependent entries and, within
// each group, the order in which they were enqueued (Seq, an autoincrement
// column). Processing parents first lets a dependent created in the same
// offline session find its parent's server id.
//
// # States
//
//   - pending: picked up by every drain; failed attempts are counted.
//   - failed: a terminal failure (bad payload, rejected by the server). The
//     entry stays in the table, visible to the user, until Requeue.
//
// The pending count shown to users covers both states.
package queue
