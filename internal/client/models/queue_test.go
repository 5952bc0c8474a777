package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueEntry_Validate(t *testing.T) {
	ok := QueueEntry{ID: "q1", EntityType: EntityParent, Action: ActionCreate, TargetLocalID: "local_1"}

	tests := []struct {
		name    string
		mutate  func(e *QueueEntry)
		wantErr bool
	}{
		{name: "valid", mutate: func(e *QueueEntry) {}},
		{name: "dependent update", mutate: func(e *QueueEntry) { e.EntityType = EntityDependent; e.Action = ActionUpdate }},
		{name: "no id", mutate: func(e *QueueEntry) { e.ID = "" }, wantErr: true},
		{name: "no target", mutate: func(e *QueueEntry) { e.TargetLocalID = "" }, wantErr: true},
		{name: "bad entity", mutate: func(e *QueueEntry) { e.EntityType = "child" }, wantErr: true},
		{name: "bad action", mutate: func(e *QueueEntry) { e.Action = "upsert" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ok
			tt.mutate(&e)
			if tt.wantErr {
				assert.Error(t, e.Validate())
			} else {
				assert.NoError(t, e.Validate())
			}
		})
	}
}
