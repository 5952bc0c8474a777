package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type EntityType string

const (
	EntityParent    EntityType = "parent"
	EntityDependent EntityType = "dependent"
)

func (t EntityType) Valid() bool {
	return t == EntityParent || t == EntityDependent
}

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

type QueueState string

const (
	// QueueStatePending entries are picked up by the next drain.
	QueueStatePending QueueState = "pending"
	// QueueStateFailed entries hit a terminal failure and wait for the user.
	QueueStateFailed QueueState = "failed"
)

// QueueEntry describes one pending mutation of one record.
type QueueEntry struct {
	ID            string          `json:"id"`
	Seq           int64           `json:"seq"`
	EntityType    EntityType      `json:"entity_type"`
	Action        Action          `json:"action"`
	TargetLocalID string          `json:"target_local_id"`
	Snapshot      json.RawMessage `json:"snapshot"`
	Attempts      int             `json:"attempts"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
	LastError     *string         `json:"last_error,omitempty"`
	State         QueueState      `json:"state"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (e *QueueEntry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("queue entry id is empty")
	}
	if e.TargetLocalID == "" {
		return fmt.Errorf("queue entry %s has no target", e.ID)
	}
	if !e.EntityType.Valid() {
		return fmt.Errorf("queue entry %s: unknown entity type %q", e.ID, e.EntityType)
	}
	if !e.Action.Valid() {
		return fmt.Errorf("queue entry %s: unknown action %q", e.ID, e.Action)
	}
	return nil
}
