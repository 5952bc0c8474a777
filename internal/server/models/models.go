// Package models defines the canonical server-side records.
package models

import (
	"encoding/json"
	"time"
)

// Patient is a stored parent record. IdempotencyKey is the client's local
// id; a second create with the same key resolves to the same row.
type Patient struct {
	ID             int64
	IdempotencyKey string
	Payload        json.RawMessage
	CreatedAt      time.Time
}

type Screening struct {
	ID             int64
	PatientID      int64
	IdempotencyKey string
	Payload        json.RawMessage
	CreatedAt      time.Time
}
