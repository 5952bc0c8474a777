// Package models defines the records kept in the local store and the queue
// entries that describe pending mutations.
package models

import (
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/healthsync/internal/shared"
)

type (
	Patient   = shared.Patient
	Screening = shared.Screening
)

// Record is a locally created entity. Synced is true iff ServerID is set.
type Record struct {
	LocalID   string          `json:"local_id"`
	ServerID  *int64          `json:"server_id,omitempty"`
	Synced    bool            `json:"synced"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// DependentRecord belongs to a parent Record.
type DependentRecord struct {
	Record
	ParentLocalID  string `json:"parent_local_id"`
	ParentServerID *int64 `json:"parent_server_id,omitempty"`
}
