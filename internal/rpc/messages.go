package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"
)

// Field names used in the Struct messages.
const (
	FieldIdempotencyKey = "idempotency_key"
	FieldPatient        = "patient"
	FieldPatientID      = "patient_id"
	FieldScreening      = "screening"
	FieldID             = "id"
	FieldStatus         = "status"
)

const StatusOK = "OK"

var ErrMalformed = errors.New("malformed message")

// CreatePatientRequest is {idempotency_key, patient}.
type CreatePatientRequest struct {
	IdempotencyKey string
	Patient        json.RawMessage
}

// CreateScreeningRequest is {idempotency_key, patient_id, screening}.
type CreateScreeningRequest struct {
	IdempotencyKey string
	PatientID      int64
	Screening      json.RawMessage
}

func (r CreatePatientRequest) Struct() (*structpb.Struct, error) {
	patient, err := jsonToValue(r.Patient)
	if err != nil {
		return nil, fmt.Errorf("patient: %w", err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldIdempotencyKey: structpb.NewStringValue(r.IdempotencyKey),
		FieldPatient:        patient,
	}}, nil
}

func ParseCreatePatientRequest(s *structpb.Struct) (CreatePatientRequest, error) {
	key, err := stringField(s, FieldIdempotencyKey)
	if err != nil {
		return CreatePatientRequest{}, err
	}
	patient, err := objectField(s, FieldPatient)
	if err != nil {
		return CreatePatientRequest{}, err
	}
	return CreatePatientRequest{IdempotencyKey: key, Patient: patient}, nil
}

func (r CreateScreeningRequest) Struct() (*structpb.Struct, error) {
	screening, err := jsonToValue(r.Screening)
	if err != nil {
		return nil, fmt.Errorf("screening: %w", err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldIdempotencyKey: structpb.NewStringValue(r.IdempotencyKey),
		FieldPatientID:      structpb.NewNumberValue(float64(r.PatientID)),
		FieldScreening:      screening,
	}}, nil
}

func ParseCreateScreeningRequest(s *structpb.Struct) (CreateScreeningRequest, error) {
	key, err := stringField(s, FieldIdempotencyKey)
	if err != nil {
		return CreateScreeningRequest{}, err
	}
	patientID, err := idField(s, FieldPatientID)
	if err != nil {
		return CreateScreeningRequest{}, err
	}
	screening, err := objectField(s, FieldScreening)
	if err != nil {
		return CreateScreeningRequest{}, err
	}
	return CreateScreeningRequest{IdempotencyKey: key, PatientID: patientID, Screening: screening}, nil
}

// IDResponse is the {id} reply of the create calls.
func IDResponse(id int64) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldID: structpb.NewNumberValue(float64(id)),
	}}
}

func ParseIDResponse(s *structpb.Struct) (int64, error) {
	return idField(s, FieldID)
}

func PingResponse() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldStatus: structpb.NewStringValue(StatusOK),
	}}
}

func PingStatus(s *structpb.Struct) string {
	return s.GetFields()[FieldStatus].GetStringValue()
}

func jsonToValue(raw json.RawMessage) (*structpb.Value, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, err
	}
	return structpb.NewStructValue(st), nil
}

func stringField(s *structpb.Struct, name string) (string, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return "", fmt.Errorf("%w: missing %s", ErrMalformed, name)
	}
	str, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok || str.StringValue == "" {
		return "", fmt.Errorf("%w: %s must be a non-empty string", ErrMalformed, name)
	}
	return str.StringValue, nil
}

func idField(s *structpb.Struct, name string) (int64, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", ErrMalformed, name)
	}
	num, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a number", ErrMalformed, name)
	}
	f := num.NumberValue
	if f != math.Trunc(f) || f <= 0 || f > 1<<53 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", ErrMalformed, name)
	}
	return int64(f), nil
}

func objectField(s *structpb.Struct, name string) (json.RawMessage, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformed, name)
	}
	obj := v.GetStructValue()
	if obj == nil {
		return nil, fmt.Errorf("%w: %s must be an object", ErrMalformed, name)
	}
	b, err := json.Marshal(obj.AsMap())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	return b, nil
}
