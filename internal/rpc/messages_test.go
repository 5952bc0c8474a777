package rpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestCreatePatientRequest_RoundTrip(t *testing.T) {
	in := CreatePatientRequest{
		IdempotencyKey: "local_abc",
		Patient:        json.RawMessage(`{"full_name":"Asha","age":42,"gender":"Female","village":"Rampur"}`),
	}
	s, err := in.Struct()
	require.NoError(t, err)

	out, err := ParseCreatePatientRequest(s)
	require.NoError(t, err)
	assert.Equal(t, "local_abc", out.IdempotencyKey)
	assert.JSONEq(t, string(in.Patient), string(out.Patient))
}

func TestCreateScreeningRequest_RoundTrip(t *testing.T) {
	in := CreateScreeningRequest{
		IdempotencyKey: "local_d1",
		PatientID:      101,
		Screening:      json.RawMessage(`{"heart_rate":72,"smoking_status":"Never"}`),
	}
	s, err := in.Struct()
	require.NoError(t, err)

	out, err := ParseCreateScreeningRequest(s)
	require.NoError(t, err)
	assert.Equal(t, in.IdempotencyKey, out.IdempotencyKey)
	assert.Equal(t, int64(101), out.PatientID)
	assert.JSONEq(t, string(in.Screening), string(out.Screening))
}

func TestStruct_RejectsNonObjectPayload(t *testing.T) {
	_, err := CreatePatientRequest{IdempotencyKey: "k", Patient: json.RawMessage(`[1,2]`)}.Struct()
	require.Error(t, err)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
	}{
		{name: "no key", fields: map[string]any{"patient_id": 1.0, "screening": map[string]any{}}},
		{name: "empty key", fields: map[string]any{"idempotency_key": "", "patient_id": 1.0, "screening": map[string]any{}}},
		{name: "fractional id", fields: map[string]any{"idempotency_key": "k", "patient_id": 1.5, "screening": map[string]any{}}},
		{name: "zero id", fields: map[string]any{"idempotency_key": "k", "patient_id": 0.0, "screening": map[string]any{}}},
		{name: "string id", fields: map[string]any{"idempotency_key": "k", "patient_id": "1", "screening": map[string]any{}}},
		{name: "screening not object", fields: map[string]any{"idempotency_key": "k", "patient_id": 1.0, "screening": "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := structpb.NewStruct(tt.fields)
			require.NoError(t, err)
			_, err = ParseCreateScreeningRequest(s)
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestIDAndPingResponses(t *testing.T) {
	id, err := ParseIDResponse(IDResponse(501))
	require.NoError(t, err)
	assert.Equal(t, int64(501), id)

	_, err = ParseIDResponse(&structpb.Struct{})
	require.ErrorIs(t, err, ErrMalformed)

	assert.Equal(t, StatusOK, PingStatus(PingResponse()))
	assert.Empty(t, PingStatus(&structpb.Struct{}))
}
