package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/dmitrijs2005/healthsync/internal/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type fakeScreenings struct {
	err      error
	gotKey   string
	gotID    int64
	gotBytes json.RawMessage
}

func (f *fakeScreenings) CreatePatient(ctx context.Context, key string, payload json.RawMessage) (int64, error) {
	f.gotKey, f.gotBytes = key, payload
	return 101, f.err
}

func (f *fakeScreenings) CreateScreening(ctx context.Context, key string, patientID int64, payload json.RawMessage) (int64, error) {
	f.gotKey, f.gotID, f.gotBytes = key, patientID, payload
	return 501, f.err
}

func TestPing(t *testing.T) {
	s := newTestServer("secret", &fakeScreenings{})
	resp, err := s.Ping(context.Background(), &structpb.Struct{})
	require.NoError(t, err)
	assert.Equal(t, rpc.StatusOK, rpc.PingStatus(resp))
}

func TestCreatePatient(t *testing.T) {
	f := &fakeScreenings{}
	s := newTestServer("secret", f)

	in, err := rpc.CreatePatientRequest{IdempotencyKey: "local_p1", Patient: json.RawMessage(`{"full_name":"Asha"}`)}.Struct()
	require.NoError(t, err)

	resp, err := s.CreatePatient(context.Background(), in)
	require.NoError(t, err)

	id, err := rpc.ParseIDResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, int64(101), id)
	assert.Equal(t, "local_p1", f.gotKey)
	assert.JSONEq(t, `{"full_name":"Asha"}`, string(f.gotBytes))
}

func TestCreateScreening(t *testing.T) {
	f := &fakeScreenings{}
	s := newTestServer("secret", f)

	in, err := rpc.CreateScreeningRequest{IdempotencyKey: "local_d1", PatientID: 101, Screening: json.RawMessage(`{"heart_rate":72}`)}.Struct()
	require.NoError(t, err)

	resp, err := s.CreateScreening(context.Background(), in)
	require.NoError(t, err)

	id, err := rpc.ParseIDResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, int64(501), id)
	assert.Equal(t, int64(101), f.gotID)
}

func TestCreate_MalformedRequest(t *testing.T) {
	s := newTestServer("secret", &fakeScreenings{})

	_, err := s.CreatePatient(context.Background(), &structpb.Struct{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.CreateScreening(context.Background(), &structpb.Struct{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestCreate_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{err: fmt.Errorf("%w: age", common.ErrValidation), want: codes.InvalidArgument},
		{err: fmt.Errorf("patient 9: %w", common.ErrParentNotFound), want: codes.FailedPrecondition},
		{err: context.DeadlineExceeded, want: codes.DeadlineExceeded},
		{err: context.Canceled, want: codes.Canceled},
		{err: errors.New("db down"), want: codes.Internal},
	}

	in, err := rpc.CreateScreeningRequest{IdempotencyKey: "local_d1", PatientID: 9, Screening: json.RawMessage(`{}`)}.Struct()
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			s := newTestServer("secret", &fakeScreenings{err: tt.err})
			_, err := s.CreateScreening(context.Background(), in)
			assert.Equal(t, tt.want, status.Code(err))
		})
	}
}

func TestCreate_InternalErrorHidesDetails(t *testing.T) {
	s := newTestServer("secret", &fakeScreenings{err: errors.New("password=hunter2")})

	in, err := rpc.CreatePatientRequest{IdempotencyKey: "local_p1", Patient: json.RawMessage(`{}`)}.Struct()
	require.NoError(t, err)

	_, err = s.CreatePatient(context.Background(), in)
	assert.Equal(t, "internal error", status.Convert(err).Message())
}
