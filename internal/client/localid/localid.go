// Package localid allocates identifiers for records created offline.
//
// A local id is "local_" followed by a random (version 4) UUID, so two devices
// creating records without coordination will not collide in practice. Local
// ids are permanent: they stay on the record after the server assigns its own
// id and double as the idempotency token for the create call.
package localid

import (
	"strings"

	"github.com/google/uuid"
)

const Prefix = "local_"

// New returns a fresh local id.
func New() string {
	return Prefix + uuid.NewString()
}

// IsLocal reports whether id has the shape produced by New.
func IsLocal(id string) bool {
	rest, ok := strings.CutPrefix(id, Prefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}

// Allocator hands out local ids.
type Allocator interface {
	NewID() string
}

type UUIDAllocator struct{}

func (UUIDAllocator) NewID() string { return New() }
