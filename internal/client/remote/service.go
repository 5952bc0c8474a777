// Package remote talks to the screening service that owns the canonical
// copy of every record.
package remote

import (
	"context"
	"encoding/json"
)

// Service is what the reconciler needs from the remote side. Both create
// calls are idempotent with respect to key: repeating a call with the same
// key returns the id assigned the first time.
type Service interface {
	Ping(ctx context.Context) error
	CreateParent(ctx context.Context, key string, payload json.RawMessage) (int64, error)
	CreateDependent(ctx context.Context, key string, parentServerID int64, payload json.RawMessage) (int64, error)
}
