// Package cli provides the interactive HealthSync operator console.
//
// The console runs on top of the same sync service the local HTTP API uses.
// It can register patients and screenings while offline, list what is kept
// on the device, trigger a sync, and inspect or retry parked queue entries.
//
// The prompt shows the current connectivity mode and the number of entries
// still waiting for upload. The REPL is started via App.Run, which blocks
// until the user exits or the input ends.
package cli
