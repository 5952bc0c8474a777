package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/dmitrijs2005/healthsync/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// GRPCClient implements Service over the healthsync.v1 gRPC API.
type GRPCClient struct {
	conn        *grpc.ClientConn
	client      *rpc.ScreeningClient
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if c.accessToken != "" {
		ctx = withAccessToken(ctx, c.accessToken)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewGRPCClient creates a client for endpoint. The connection is established
// lazily; extra dial options are appended after the defaults.
func NewGRPCClient(endpoint, accessToken string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{accessToken: accessToken}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpoint, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client: %w", err)
	}
	c.conn = conn
	c.client = rpc.NewScreeningClient(conn)
	return c, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) Ping(ctx context.Context) error {
	resp, err := c.client.Ping(ctx, &structpb.Struct{})
	if err != nil {
		return mapError(err)
	}
	if rpc.PingStatus(resp) != rpc.StatusOK {
		return &Error{Class: Retriable, Code: codes.Unavailable, Err: ErrUnavailable}
	}
	return nil
}

func (c *GRPCClient) CreateParent(ctx context.Context, key string, payload json.RawMessage) (int64, error) {
	req, err := rpc.CreatePatientRequest{IdempotencyKey: key, Patient: payload}.Struct()
	if err != nil {
		return 0, &Error{Class: Terminal, Code: codes.InvalidArgument, Err: err}
	}

	ctx = metadata.AppendToOutgoingContext(ctx, common.IdempotencyKeyHeaderName, key)
	resp, err := c.client.CreatePatient(ctx, req)
	if err != nil {
		return 0, mapError(err)
	}
	return parseID(resp)
}

func (c *GRPCClient) CreateDependent(ctx context.Context, key string, parentServerID int64, payload json.RawMessage) (int64, error) {
	req, err := rpc.CreateScreeningRequest{IdempotencyKey: key, PatientID: parentServerID, Screening: payload}.Struct()
	if err != nil {
		return 0, &Error{Class: Terminal, Code: codes.InvalidArgument, Err: err}
	}

	ctx = metadata.AppendToOutgoingContext(ctx, common.IdempotencyKeyHeaderName, key)
	resp, err := c.client.CreateScreening(ctx, req)
	if err != nil {
		return 0, mapError(err)
	}
	return parseID(resp)
}

func parseID(resp *structpb.Struct) (int64, error) {
	id, err := rpc.ParseIDResponse(resp)
	if err != nil {
		return 0, &Error{Class: Retriable, Code: codes.Internal, Err: err}
	}
	return id, nil
}
