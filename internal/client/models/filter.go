package models

// Filter selects records whose indexed Field equals Value. A nil Value
// matches rows where the field is NULL.
type Filter struct {
	Field string
	Value any
}

// Indexed field names accepted by the record repositories.
const (
	FieldSynced        = "synced"
	FieldServerID      = "server_id"
	FieldParentLocalID = "parent_local_id"
)
